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

	gohorizon "github.com/lumenaut-io/gohorizon"
)

type globalFlags struct {
	flagset    *flag.FlagSet
	network    string
	horizonURL string
}

func newGlobalFlags() *globalFlags {
	f := &globalFlags{
		flagset: flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	f.flagset.StringVar(
		&f.network,
		"network",
		"testnet",
		"specifies the ledger network to use",
	)
	f.flagset.StringVar(
		&f.horizonURL,
		"horizon-url",
		"",
		"specifies the query endpoint URL. this overrides the network default",
	)
	return f
}

func main() {
	f := newGlobalFlags()
	err := f.flagset.Parse(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}

	if len(f.flagset.Args()) > 0 {
		switch f.flagset.Arg(0) {
		case "challenge":
			runChallenge(f)
		case "submit":
			runSubmit(f)
		case "history":
			runHistory(f)
		default:
			fmt.Printf("Unknown subcommand: %s\n", f.flagset.Arg(0))
			os.Exit(1)
		}
	} else {
		fmt.Printf("You must specify a subcommand (challenge, submit, or history)\n")
		os.Exit(1)
	}
}

func createClient(f *globalFlags) *gohorizon.Client {
	network := gohorizon.NetworkByName(f.network)
	if network == gohorizon.NetworkInvalid {
		fmt.Printf("Invalid network specified: %s\n", f.network)
		os.Exit(1)
	}
	options := []gohorizon.ClientOptionFunc{
		gohorizon.WithNetwork(network),
	}
	if f.horizonURL != "" {
		options = append(options, gohorizon.WithHorizonURL(f.horizonURL))
	}
	client, err := gohorizon.NewClient(options...)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	return client
}
