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
	"flag"
	"fmt"
	"os"
	"time"

	gohorizon "github.com/lumenaut-io/gohorizon"
	"github.com/lumenaut-io/gohorizon/auth"
	"github.com/lumenaut-io/gohorizon/ledger"
)

type challengeFlags struct {
	flagset       *flag.FlagSet
	serverSeed    string
	serverAccount string
	clientSeed    string
	clientAccount string
	anchorName    string
	timeout       time.Duration
	verify        string
	sign          string
}

func newChallengeFlags() *challengeFlags {
	f := &challengeFlags{
		flagset: flag.NewFlagSet("challenge", flag.ExitOnError),
	}
	f.flagset.StringVar(
		&f.serverSeed,
		"server-seed",
		"",
		"seed of the server signing key (build mode)",
	)
	f.flagset.StringVar(
		&f.serverAccount,
		"server-account",
		"",
		"account ID of the server (verify mode)",
	)
	f.flagset.StringVar(
		&f.clientSeed,
		"client-seed",
		"",
		"seed of the client signing key (sign mode)",
	)
	f.flagset.StringVar(
		&f.clientAccount,
		"client-account",
		"",
		"account ID being authenticated (build mode)",
	)
	f.flagset.StringVar(
		&f.anchorName,
		"anchor-name",
		"",
		"service name embedded in the challenge operation (build mode)",
	)
	f.flagset.DurationVar(
		&f.timeout,
		"timeout",
		auth.DefaultChallengeTimeout,
		"challenge validity window (build mode)",
	)
	f.flagset.StringVar(
		&f.sign,
		"sign",
		"",
		"base64 challenge envelope to co-sign (sign mode)",
	)
	f.flagset.StringVar(
		&f.verify,
		"verify",
		"",
		"base64 challenge envelope to verify (verify mode)",
	)
	return f
}

func runChallenge(f *globalFlags) {
	challengeFlags := newChallengeFlags()
	err := challengeFlags.flagset.Parse(f.flagset.Args()[1:])
	if err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
	network := gohorizon.NetworkByName(f.network)
	if network == gohorizon.NetworkInvalid {
		fmt.Printf("Invalid network specified: %s\n", f.network)
		os.Exit(1)
	}
	switch {
	case challengeFlags.verify != "":
		ok, err := auth.VerifyChallenge(
			challengeFlags.verify,
			challengeFlags.serverAccount,
			network,
		)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("Challenge verified: %v\n", ok)
	case challengeFlags.sign != "":
		keyPair, err := ledger.NewKeyPairFromSeedString(challengeFlags.clientSeed)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		tx, err := ledger.DecodeTransactionBase64(challengeFlags.sign)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		if err := tx.Sign(network.ID(), keyPair); err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		signed, err := tx.EncodeBase64()
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n", signed)
	default:
		keyPair, err := ledger.NewKeyPairFromSeedString(challengeFlags.serverSeed)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		challenge, err := auth.BuildChallenge(
			keyPair,
			challengeFlags.clientAccount,
			challengeFlags.anchorName,
			network,
			challengeFlags.timeout,
		)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n", challenge)
	}
}
