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

// Package ledger provides transaction construction, signing, and envelope
// encoding for the ledger network. It is the dependency boundary between the
// Horizon query client and the cryptographic wire format.
package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// AccountIdPrefix is the bech32 human-readable prefix for account IDs
	AccountIdPrefix = "acct"
	// SeedPrefix is the bech32 human-readable prefix for secret seeds
	SeedPrefix = "seed"

	// SignatureHintSize is the number of trailing public key bytes included
	// with each signature to identify the signing key
	SignatureHintSize = 4
)

// KeyPair wraps an ed25519 keypair and provides the string encodings used
// on the wire and in the query API
type KeyPair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// GenerateKeyPair creates a new random keypair
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{pub: pub, priv: priv}, nil
}

// NewKeyPairFromSeed creates a keypair from a 32-byte seed
func NewKeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf(
			"seed must be %d bytes, got %d",
			ed25519.SeedSize,
			len(seed),
		)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("unexpected public key type")
	}
	return &KeyPair{pub: pub, priv: priv}, nil
}

// NewKeyPairFromSeedString creates a keypair from a bech32-encoded seed
func NewKeyPairFromSeedString(seed string) (*KeyPair, error) {
	data, err := decodeBech32(SeedPrefix, seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return NewKeyPairFromSeed(data)
}

// AccountID returns the bech32-encoded public key
func (k *KeyPair) AccountID() string {
	encoded, err := encodeBech32(AccountIdPrefix, k.pub)
	if err != nil {
		panic(fmt.Sprintf("unexpected error encoding account ID: %s", err))
	}
	return encoded
}

// Seed returns the bech32-encoded secret seed
func (k *KeyPair) Seed() string {
	encoded, err := encodeBech32(SeedPrefix, k.priv.Seed())
	if err != nil {
		panic(fmt.Sprintf("unexpected error encoding seed: %s", err))
	}
	return encoded
}

// PublicKey returns the raw public key
func (k *KeyPair) PublicKey() ed25519.PublicKey {
	return k.pub
}

// Hint returns the trailing public key bytes used to identify signatures
// produced by this keypair
func (k *KeyPair) Hint() []byte {
	return k.pub[len(k.pub)-SignatureHintSize:]
}

// Sign signs the provided message with the secret key
func (k *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// ParseAccountID decodes a bech32-encoded account ID into a public key. The
// key must be a canonical encoding of a valid curve point
func ParseAccountID(accountID string) (ed25519.PublicKey, error) {
	data, err := decodeBech32(AccountIdPrefix, accountID)
	if err != nil {
		return nil, fmt.Errorf("invalid account ID: %w", err)
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf(
			"account ID must decode to %d bytes, got %d",
			ed25519.PublicKeySize,
			len(data),
		)
	}
	// Reject non-canonical point encodings
	if _, err := new(edwards25519.Point).SetBytes(data); err != nil {
		return nil, fmt.Errorf("account ID is not a valid curve point: %w", err)
	}
	return ed25519.PublicKey(data), nil
}

// encodeBech32 converts data to base32 and encodes it as bech32
func encodeBech32(prefix string, data []byte) (string, error) {
	convData, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(prefix, convData)
}

// decodeBech32 decodes a bech32 string and verifies the expected prefix
func decodeBech32(prefix string, encoded string) ([]byte, error) {
	hrp, convData, err := bech32.Decode(encoded)
	if err != nil {
		return nil, err
	}
	if hrp != prefix {
		return nil, fmt.Errorf(
			"unexpected prefix: expected %q, got %q",
			prefix,
			hrp,
		)
	}
	data, err := bech32.ConvertBits(convData, 5, 8, false)
	if err != nil {
		return nil, err
	}
	return data, nil
}
