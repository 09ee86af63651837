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

// Package auth implements challenge-transaction authentication: a server
// proves a client controls an account by having it co-sign a throwaway
// transaction that can never post to the ledger.
//
// The challenge is stateless and single-use. Freshness is enforced only by
// the time-bounds check at verification time; no nonce store is kept, so
// independent verifiers cannot deduplicate nonces within the validity
// window. That is an accepted property of the protocol, not a defect of
// this implementation.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	gohorizon "github.com/lumenaut-io/gohorizon"
	"github.com/lumenaut-io/gohorizon/ledger"
)

const (
	// ChallengeNonceSize is the length of the random value carried by a
	// challenge, before base64 encoding
	ChallengeNonceSize = 48

	// DefaultChallengeTimeout is the validity window applied when no
	// timeout is provided
	DefaultChallengeTimeout = 5 * time.Minute

	// challengeSequenceSentinel is the account sequence fed to the
	// transaction builder so the built challenge carries sequence number
	// zero and can never post against real account state
	challengeSequenceSentinel int64 = -1
)

// InvalidChallengeError represents a failed challenge verification. The
// reason identifies the first check that failed; verification is fail-fast
// and produces no aggregate report. A failed challenge is a completed
// authentication rejection and is never retried
type InvalidChallengeError struct {
	Reason string
}

func (e InvalidChallengeError) Error() string {
	return fmt.Sprintf("invalid challenge: %s", e.Reason)
}

func invalidChallenge(reason string) error {
	return InvalidChallengeError{Reason: reason}
}

// BuildChallenge creates a challenge transaction for the given client
// account, signed by the server: a zero-sequence transaction whose single
// operation writes a random nonce under "<anchorName> auth" with the client
// as the operation-level source. The result is the base64-encoded signed
// envelope, to be handed to the client for co-signing
func BuildChallenge(
	serverKeyPair *ledger.KeyPair,
	clientAccountID string,
	anchorName string,
	network gohorizon.Network,
	timeout time.Duration,
) (string, error) {
	if _, err := ledger.ParseAccountID(clientAccountID); err != nil {
		return "", fmt.Errorf("invalid client account ID: %w", err)
	}
	if anchorName == "" {
		return "", fmt.Errorf("anchor name must not be empty")
	}
	if timeout <= 0 {
		timeout = DefaultChallengeTimeout
	}
	nonce := make([]byte, ChallengeNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	value := []byte(base64.StdEncoding.EncodeToString(nonce))
	tx, err := ledger.NewTransaction(
		ledger.WithSourceAccount(serverKeyPair.AccountID()),
		ledger.WithAccountSequence(challengeSequenceSentinel),
		ledger.WithTimeout(timeout),
		ledger.WithOperations(
			ledger.NewManageDataOperation(
				clientAccountID,
				anchorName+" auth",
				value,
			),
		),
	)
	if err != nil {
		return "", err
	}
	if err := tx.Sign(network.ID(), serverKeyPair); err != nil {
		return "", err
	}
	return tx.EncodeBase64()
}

// VerifyChallenge checks a returned challenge envelope. Every check is a
// hard precondition applied in order; the first failure aborts verification
// with an InvalidChallengeError naming the failed check
func VerifyChallenge(
	challenge string,
	serverAccountID string,
	network gohorizon.Network,
) (bool, error) {
	tx, err := ledger.DecodeTransactionBase64(challenge)
	if err != nil {
		return false, invalidChallenge("cannot decode challenge transaction")
	}
	if tx.SequenceNumber != 0 {
		return false, invalidChallenge("sequence number should be zero")
	}
	if tx.SourceAccount != serverAccountID {
		return false, invalidChallenge("source account mismatch")
	}
	if len(tx.Operations) != 1 {
		return false, invalidChallenge("should contain only one operation")
	}
	op := tx.Operations[0]
	if op.Source() == "" {
		return false, invalidChallenge(
			"operation should contain a source account",
		)
	}
	manageData, ok := op.(*ledger.ManageDataOperation)
	if !ok {
		return false, invalidChallenge("operation should be manageData")
	}
	// The historical reason text says 64 bytes, which is the encoded
	// length; the check enforces the 48 decoded bytes the builder produces
	nonce, err := base64.StdEncoding.DecodeString(string(manageData.Value))
	if err != nil || len(nonce) != ChallengeNonceSize {
		return false, invalidChallenge(
			"should be a 64-byte base64 random string",
		)
	}
	if !tx.SignedBy(network.ID(), serverAccountID) {
		return false, invalidChallenge("not signed by the server")
	}
	if !tx.SignedBy(network.ID(), op.Source()) {
		return false, invalidChallenge("not signed by the client")
	}
	now := uint64(time.Now().Unix())
	if tx.TimeBounds == nil ||
		now < tx.TimeBounds.MinTime ||
		now > tx.TimeBounds.MaxTime {
		return false, invalidChallenge("transaction has expired")
	}
	return true, nil
}

// VerifySignedBy reports whether the transaction carries a valid signature
// from the given account under the given network. It never returns an
// error; malformed input simply fails verification
func VerifySignedBy(
	tx *ledger.Transaction,
	accountID string,
	network gohorizon.Network,
) bool {
	return tx.SignedBy(network.ID(), accountID)
}
