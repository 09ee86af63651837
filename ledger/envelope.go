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
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/lumenaut-io/gohorizon/cbor"
	"golang.org/x/crypto/blake2b"
)

// DecoratedSignature pairs a signature with a hint identifying the signing
// key
type DecoratedSignature struct {
	cbor.StructAsArray
	Hint      []byte
	Signature []byte
}

// transactionBody is the signed portion of the envelope encoding
type transactionBody struct {
	cbor.StructAsArray
	SourceAccount  string
	Fee            uint64
	SequenceNumber int64
	TimeBounds     *TimeBounds
	Memo           string
	Operations     []cbor.RawMessage
}

// transactionEnvelope is the wire form of a transaction: the encoded body
// plus any attached signatures
type transactionEnvelope struct {
	cbor.StructAsArray
	Body       cbor.RawMessage
	Signatures []DecoratedSignature
}

// BodyBytes returns the canonical encoding of the signed portion of the
// transaction. For transactions decoded from an envelope, the received
// bytes are returned unchanged so signature verification hashes exactly
// what was signed
func (t *Transaction) BodyBytes() ([]byte, error) {
	if stored := t.Cbor(); stored != nil {
		return stored, nil
	}
	opsRaw := make([]cbor.RawMessage, 0, len(t.Operations))
	for _, op := range t.Operations {
		opData, err := cbor.Encode(op)
		if err != nil {
			return nil, fmt.Errorf("failed to encode operation: %w", err)
		}
		opsRaw = append(opsRaw, cbor.RawMessage(opData))
	}
	body := transactionBody{
		SourceAccount:  t.SourceAccount,
		Fee:            t.Fee,
		SequenceNumber: t.SequenceNumber,
		TimeBounds:     t.TimeBounds,
		Memo:           t.Memo,
		Operations:     opsRaw,
	}
	return cbor.Encode(&body)
}

// SignatureBase returns the hash that signatures cover: the network ID
// followed by the encoded transaction body
func (t *Transaction) SignatureBase(networkID []byte) ([]byte, error) {
	body, err := t.BodyBytes()
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(networkID)+len(body))
	data = append(data, networkID...)
	data = append(data, body...)
	hash := blake2b.Sum256(data)
	return hash[:], nil
}

// Hash returns the transaction hash under the given network as a hex string
func (t *Transaction) Hash(networkID []byte) (string, error) {
	base, err := t.SignatureBase(networkID)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(base), nil
}

// Sign appends a decorated signature from the provided keypair
func (t *Transaction) Sign(networkID []byte, keyPair *KeyPair) error {
	base, err := t.SignatureBase(networkID)
	if err != nil {
		return err
	}
	t.Signatures = append(
		t.Signatures,
		DecoratedSignature{
			Hint:      keyPair.Hint(),
			Signature: keyPair.Sign(base),
		},
	)
	return nil
}

// SignedBy reports whether any attached signature verifies against the
// given account's public key. It never returns an error: a malformed
// account ID or body simply fails verification
func (t *Transaction) SignedBy(networkID []byte, accountID string) bool {
	pub, err := ParseAccountID(accountID)
	if err != nil {
		return false
	}
	base, err := t.SignatureBase(networkID)
	if err != nil {
		return false
	}
	for _, sig := range t.Signatures {
		if ed25519.Verify(pub, base, sig.Signature) {
			return true
		}
	}
	return false
}

// EncodeBase64 serializes the transaction and its signatures to the
// base64-encoded envelope wire form
func (t *Transaction) EncodeBase64() (string, error) {
	body, err := t.BodyBytes()
	if err != nil {
		return "", err
	}
	env := transactionEnvelope{
		Body:       cbor.RawMessage(body),
		Signatures: t.Signatures,
	}
	envData, err := cbor.Encode(&env)
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(envData), nil
}

// DecodeTransactionBase64 parses a base64-encoded envelope back into a
// Transaction. The received body encoding is retained for signature
// verification
func DecodeTransactionBase64(encoded string) (*Transaction, error) {
	envData, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	var env transactionEnvelope
	if _, err := cbor.Decode(envData, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	var body transactionBody
	if _, err := cbor.Decode(env.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to decode transaction body: %w", err)
	}
	ops := make([]Operation, 0, len(body.Operations))
	for _, opRaw := range body.Operations {
		op, err := decodeOperation(opRaw)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	t := &Transaction{
		SourceAccount:  body.SourceAccount,
		Fee:            body.Fee,
		SequenceNumber: body.SequenceNumber,
		TimeBounds:     body.TimeBounds,
		Memo:           body.Memo,
		Operations:     ops,
		Signatures:     env.Signatures,
	}
	t.SetCbor(env.Body)
	return t, nil
}

// decodeOperation determines an operation's type from its leading type ID
// and decodes it into the corresponding concrete type
func decodeOperation(opRaw cbor.RawMessage) (Operation, error) {
	opType, err := cbor.DecodeIdFromList(opRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to determine operation type: %w", err)
	}
	var op Operation
	switch uint(opType) {
	case OperationTypeManageData:
		op = &ManageDataOperation{}
	case OperationTypePayment:
		op = &PaymentOperation{}
	default:
		return nil, fmt.Errorf("unknown operation type: %d", opType)
	}
	if _, err := cbor.Decode(opRaw, op); err != nil {
		return nil, fmt.Errorf("failed to decode operation: %w", err)
	}
	return op, nil
}
