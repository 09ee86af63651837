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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/lumenaut-io/gohorizon/ledger"
)

type submitFlags struct {
	flagset     *flag.FlagSet
	seed        string
	destination string
	amount      string
	user        string
	memo        string
}

func newSubmitFlags() *submitFlags {
	f := &submitFlags{
		flagset: flag.NewFlagSet("submit", flag.ExitOnError),
	}
	f.flagset.StringVar(
		&f.seed,
		"seed",
		"",
		"seed of the paying account",
	)
	f.flagset.StringVar(
		&f.destination,
		"destination",
		"",
		"account ID receiving the payment",
	)
	f.flagset.StringVar(
		&f.amount,
		"amount",
		"1",
		"payment amount in native asset units",
	)
	f.flagset.StringVar(
		&f.user,
		"user",
		"",
		"user tag recorded in the memo alongside the amount",
	)
	f.flagset.StringVar(
		&f.memo,
		"memo",
		"",
		"raw memo text. this overrides the -user option",
	)
	return f
}

func runSubmit(f *globalFlags) {
	submitFlags := newSubmitFlags()
	err := submitFlags.flagset.Parse(f.flagset.Args()[1:])
	if err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
	keyPair, err := ledger.NewKeyPairFromSeedString(submitFlags.seed)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	memo := submitFlags.memo
	if memo == "" {
		encoded, err := json.Marshal(map[string]string{
			"user":   submitFlags.user,
			"amount": submitFlags.amount,
		})
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		memo = string(encoded)
	}
	client := createClient(f)
	record, err := client.SubmitMemoPayment(
		context.Background(),
		keyPair,
		submitFlags.destination,
		submitFlags.amount,
		memo,
	)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	hash, _ := record.GetString("hash")
	fmt.Printf("Submitted transaction: %s\n", hash)
}
