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

// Package gohorizon implements a client library for a Horizon-style ledger
// HTTP API: a fluent query builder with streaming subscriptions, transaction
// construction and submission, and a challenge-transaction authentication
// protocol.
//
// This package is the main entry point into this library. The other packages
// can be used outside of this one, but it's not a primary design goal.
package gohorizon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lumenaut-io/gohorizon/horizon"
	"github.com/lumenaut-io/gohorizon/ledger"
)

// The Client type aggregates a query endpoint client with an explicit
// network selection. Network identity is never ambient state: it is
// provided at construction and passed into every signing operation
type Client struct {
	network    Network
	horizonURL string
	httpClient *http.Client
	logger     *slog.Logger
	horizon    *horizon.Client
}

// NewClient returns a new Client object with the specified options. An
// error is returned if no network was specified and no endpoint URL can be
// derived
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{}
	// Apply provided options functions
	for _, option := range options {
		option(c)
	}
	if c.network.Passphrase == "" {
		return nil, errors.New("no network specified")
	}
	if c.horizonURL == "" {
		c.horizonURL = c.network.HorizonURL
	}
	if c.horizonURL == "" {
		return nil, fmt.Errorf(
			"network %s has no default endpoint URL",
			c.network,
		)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	horizonOptions := []horizon.ClientOptionFunc{
		horizon.WithHorizonURL(c.horizonURL),
		horizon.WithLogger(c.logger),
	}
	if c.httpClient != nil {
		horizonOptions = append(
			horizonOptions,
			horizon.WithHTTPClient(c.httpClient),
		)
	}
	horizonClient, err := horizon.NewClient(horizonOptions...)
	if err != nil {
		return nil, err
	}
	c.horizon = horizonClient
	return c, nil
}

// Horizon returns the query endpoint client
func (c *Client) Horizon() *horizon.Client {
	return c.horizon
}

// Network returns the configured network
func (c *Client) Network() Network {
	return c.network
}

// SubmitMemoPayment builds, signs, and submits a minimal payment carrying
// the provided memo text. The payment itself is a vehicle: the memo is the
// payload, recoverable later by scanning the account's transaction history
func (c *Client) SubmitMemoPayment(
	ctx context.Context,
	keyPair *ledger.KeyPair,
	destination string,
	amount string,
	memo string,
) (*horizon.Record, error) {
	resp, err := c.horizon.Account(keyPair.AccountID()).Call(ctx)
	if err != nil {
		return nil, err
	}
	account, ok := resp.(*horizon.Record)
	if !ok {
		return nil, errors.New("unexpected collection response for account")
	}
	sequenceStr, ok := account.GetString("sequence")
	if !ok {
		return nil, errors.New("account record has no sequence number")
	}
	sequence, err := strconv.ParseInt(sequenceStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid account sequence number: %w", err)
	}
	tx, err := ledger.NewTransaction(
		ledger.WithSourceAccount(keyPair.AccountID()),
		ledger.WithAccountSequence(sequence),
		ledger.WithMemo(memo),
		ledger.WithOperations(
			ledger.NewPaymentOperation(
				"",
				destination,
				ledger.NativeAsset(),
				amount,
			),
		),
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(c.network.ID(), keyPair); err != nil {
		return nil, err
	}
	envelope, err := tx.EncodeBase64()
	if err != nil {
		return nil, err
	}
	c.logger.Debug(
		"submitting memo payment",
		"source", keyPair.AccountID(),
		"destination", destination,
	)
	return c.horizon.SubmitTransaction(ctx, envelope)
}
