// Copyright 2025 Lumenaut Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"errors"
	"time"

	"github.com/lumenaut-io/gohorizon/cbor"
)

const (
	// BaseFee is the default per-operation fee
	BaseFee uint64 = 100
)

// Operation type identifiers used in the envelope encoding
const (
	OperationTypeManageData uint = 0
	OperationTypePayment    uint = 1
)

// Operation is the interface for all transaction operation types
type Operation interface {
	Type() uint
	Source() string
}

// TimeBounds restricts the validity window of a transaction
type TimeBounds struct {
	cbor.StructAsArray
	MinTime uint64
	MaxTime uint64
}

// Asset identifies a transferable asset. The native asset has an empty
// issuer
type Asset struct {
	cbor.StructAsArray
	Code   string
	Issuer string
}

// NativeAsset returns the network's native asset
func NativeAsset() Asset {
	return Asset{Code: "native"}
}

// ManageDataOperation writes a named data entry against an account. The
// operation-level source account may differ from the transaction source
type ManageDataOperation struct {
	cbor.StructAsArray
	OpType        uint
	SourceAccount string
	Name          string
	Value         []byte
}

func NewManageDataOperation(
	source string,
	name string,
	value []byte,
) *ManageDataOperation {
	return &ManageDataOperation{
		OpType:        OperationTypeManageData,
		SourceAccount: source,
		Name:          name,
		Value:         value,
	}
}

func (o *ManageDataOperation) Type() uint {
	return o.OpType
}

func (o *ManageDataOperation) Source() string {
	return o.SourceAccount
}

// PaymentOperation transfers an asset amount to a destination account
type PaymentOperation struct {
	cbor.StructAsArray
	OpType        uint
	SourceAccount string
	Destination   string
	Asset         Asset
	Amount        string
}

func NewPaymentOperation(
	source string,
	destination string,
	asset Asset,
	amount string,
) *PaymentOperation {
	return &PaymentOperation{
		OpType:        OperationTypePayment,
		SourceAccount: source,
		Destination:   destination,
		Asset:         asset,
		Amount:        amount,
	}
}

func (o *PaymentOperation) Type() uint {
	return o.OpType
}

func (o *PaymentOperation) Source() string {
	return o.SourceAccount
}

// Transaction is a set of operations against a source account. A built
// transaction carries the sequence number following the one provided via
// WithAccountSequence, since building consumes the account's next sequence
// number
type Transaction struct {
	cbor.DecodeStoreCbor
	SourceAccount  string
	Fee            uint64
	SequenceNumber int64
	TimeBounds     *TimeBounds
	Memo           string
	Operations     []Operation
	Signatures     []DecoratedSignature
}

// TransactionOptionFunc is a function that modifies a Transaction during
// construction
type TransactionOptionFunc func(*Transaction)

// NewTransaction creates a new Transaction with the provided options. An
// error is returned if no source account or no operations were provided
func NewTransaction(options ...TransactionOptionFunc) (*Transaction, error) {
	t := &Transaction{
		Fee: BaseFee,
	}
	// Apply provided options functions
	for _, option := range options {
		option(t)
	}
	if t.SourceAccount == "" {
		return nil, errors.New("transaction requires a source account")
	}
	if len(t.Operations) == 0 {
		return nil, errors.New("transaction requires at least one operation")
	}
	return t, nil
}

// WithSourceAccount specifies the transaction source account
func WithSourceAccount(accountID string) TransactionOptionFunc {
	return func(t *Transaction) {
		t.SourceAccount = accountID
	}
}

// WithFee specifies the transaction fee
func WithFee(fee uint64) TransactionOptionFunc {
	return func(t *Transaction) {
		t.Fee = fee
	}
}

// WithAccountSequence specifies the source account's current sequence
// number. The built transaction carries the next one
func WithAccountSequence(sequence int64) TransactionOptionFunc {
	return func(t *Transaction) {
		t.SequenceNumber = sequence + 1
	}
}

// WithTimeBounds specifies an explicit validity window
func WithTimeBounds(minTime uint64, maxTime uint64) TransactionOptionFunc {
	return func(t *Transaction) {
		t.TimeBounds = &TimeBounds{
			MinTime: minTime,
			MaxTime: maxTime,
		}
	}
}

// WithTimeout specifies a validity window starting now and ending after the
// provided duration
func WithTimeout(timeout time.Duration) TransactionOptionFunc {
	return func(t *Transaction) {
		now := time.Now().Unix()
		t.TimeBounds = &TimeBounds{
			MinTime: uint64(now),
			MaxTime: uint64(now + int64(timeout.Seconds())),
		}
	}
}

// WithMemo specifies a text memo
func WithMemo(memo string) TransactionOptionFunc {
	return func(t *Transaction) {
		t.Memo = memo
	}
}

// WithOperations specifies the transaction operations
func WithOperations(operations ...Operation) TransactionOptionFunc {
	return func(t *Transaction) {
		t.Operations = append(t.Operations, operations...)
	}
}
