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

// anchord is a small anchor service exposing challenge-transaction
// authentication and memo payment submission over HTTP
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gohorizon "github.com/lumenaut-io/gohorizon"
	"github.com/lumenaut-io/gohorizon/auth"
	"github.com/lumenaut-io/gohorizon/ledger"

	"github.com/julienschmidt/httprouter"
)

type anchord struct {
	listenAddress    string
	network          gohorizon.Network
	anchorName       string
	challengeTimeout time.Duration
	keyPair          *ledger.KeyPair
	client           *gohorizon.Client
	logger           *slog.Logger
}

func main() {
	var listenAddress string
	var networkName string
	var horizonURL string
	var seed string
	var anchorName string
	var challengeTimeout time.Duration
	flag.StringVar(
		&listenAddress,
		"listen",
		":8000",
		"listen address for the HTTP API",
	)
	flag.StringVar(
		&networkName,
		"network",
		"testnet",
		"specifies the ledger network to use",
	)
	flag.StringVar(
		&horizonURL,
		"horizon-url",
		"",
		"specifies the query endpoint URL. this overrides the network default",
	)
	flag.StringVar(
		&seed,
		"seed",
		"",
		"seed of the anchor signing key",
	)
	flag.StringVar(
		&anchorName,
		"anchor-name",
		"anchord",
		"service name embedded in challenge operations",
	)
	flag.DurationVar(
		&challengeTimeout,
		"challenge-timeout",
		auth.DefaultChallengeTimeout,
		"validity window for issued challenges",
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	network := gohorizon.NetworkByName(networkName)
	if network == gohorizon.NetworkInvalid {
		logger.Error("invalid network specified", "network", networkName)
		os.Exit(1)
	}
	keyPair, err := ledger.NewKeyPairFromSeedString(seed)
	if err != nil {
		logger.Error("invalid anchor seed", "error", err)
		os.Exit(1)
	}
	options := []gohorizon.ClientOptionFunc{
		gohorizon.WithNetwork(network),
		gohorizon.WithLogger(logger),
	}
	if horizonURL != "" {
		options = append(options, gohorizon.WithHorizonURL(horizonURL))
	}
	client, err := gohorizon.NewClient(options...)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	a := &anchord{
		listenAddress:    listenAddress,
		network:          network,
		anchorName:       anchorName,
		challengeTimeout: challengeTimeout,
		keyPair:          keyPair,
		client:           client,
		logger:           logger,
	}

	router := httprouter.New()
	router.GET("/auth", a.handleGetAuth)
	router.POST("/auth", a.handlePostAuth)
	router.POST("/submit", a.handlePostSubmit)
	logger.Info(
		"listening",
		"address", listenAddress,
		"network", network.Name,
		"account", keyPair.AccountID(),
	)
	if err := http.ListenAndServe(a.listenAddress, router); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// handleGetAuth issues a fresh challenge for the requested account
func (a *anchord) handleGetAuth(
	w http.ResponseWriter,
	r *http.Request,
	_ httprouter.Params,
) {
	account := r.URL.Query().Get("account")
	if account == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("missing account parameter"))
		return
	}
	challenge, err := auth.BuildChallenge(
		a.keyPair,
		account,
		a.anchorName,
		a.network,
		a.challengeTimeout,
	)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.logger.Info("issued challenge", "account", account)
	a.writeJSON(w, map[string]string{
		"transaction":        challenge,
		"network_passphrase": a.network.Passphrase,
	})
}

// handlePostAuth verifies a co-signed challenge returned by a client
func (a *anchord) handlePostAuth(
	w http.ResponseWriter,
	r *http.Request,
	_ httprouter.Params,
) {
	var body struct {
		Transaction string `json:"transaction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	ok, err := auth.VerifyChallenge(
		body.Transaction,
		a.keyPair.AccountID(),
		a.network,
	)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("challenge verification failed")
		}
		a.logger.Info("rejected challenge", "error", err)
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}
	a.writeJSON(w, map[string]string{"status": "ok"})
}

// handlePostSubmit records a user-tagged amount on the ledger as a memo
// payment from the anchor account
func (a *anchord) handlePostSubmit(
	w http.ResponseWriter,
	r *http.Request,
	_ httprouter.Params,
) {
	var body struct {
		Destination string `json:"destination"`
		Amount      string `json:"amount"`
		User        string `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	memo, err := json.Marshal(map[string]string{
		"user":   body.User,
		"amount": body.Amount,
	})
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	record, err := a.client.SubmitMemoPayment(
		r.Context(),
		a.keyPair,
		body.Destination,
		body.Amount,
		string(memo),
	)
	if err != nil {
		a.writeError(w, http.StatusBadGateway, err)
		return
	}
	hash, _ := record.GetString("hash")
	a.logger.Info("submitted memo payment", "hash", hash, "user", body.User)
	a.writeJSON(w, map[string]string{"hash": hash})
}

func (a *anchord) writeJSON(w http.ResponseWriter, doc any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		a.logger.Error("failed to write response", "error", err)
	}
}

func (a *anchord) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "{\"error\": %q}\n", err.Error())
}
