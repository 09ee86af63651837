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

	"github.com/lumenaut-io/gohorizon/horizon"
)

type historyFlags struct {
	flagset *flag.FlagSet
	account string
	user    string
	limit   uint
	pages   int
}

func newHistoryFlags() *historyFlags {
	f := &historyFlags{
		flagset: flag.NewFlagSet("history", flag.ExitOnError),
	}
	f.flagset.StringVar(
		&f.account,
		"account",
		"",
		"account ID whose transaction history to scan",
	)
	f.flagset.StringVar(
		&f.user,
		"user",
		"",
		"only show memos whose user tag matches",
	)
	f.flagset.UintVar(
		&f.limit,
		"limit",
		50,
		"records per page",
	)
	f.flagset.IntVar(
		&f.pages,
		"pages",
		1,
		"maximum pages to fetch",
	)
	return f
}

func runHistory(f *globalFlags) {
	historyFlags := newHistoryFlags()
	err := historyFlags.flagset.Parse(f.flagset.Args()[1:])
	if err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
	client := createClient(f)
	ctx := context.Background()
	resp, err := client.Horizon().Transactions().
		ForAccount(historyFlags.account).
		Order(horizon.OrderDesc).
		Limit(historyFlags.limit).
		Call(ctx)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	page, ok := resp.(*horizon.Page)
	if !ok {
		fmt.Printf("ERROR: expected a record collection\n")
		os.Exit(1)
	}
	for i := 0; i < historyFlags.pages; i++ {
		for _, record := range page.Records {
			printHistoryRecord(record, historyFlags.user)
		}
		if len(page.Records) == 0 || page.NextHref == "" {
			break
		}
		page, err = page.NextPage(ctx)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
	}
}

func printHistoryRecord(record *horizon.Record, user string) {
	memo, ok := record.GetString("memo")
	if !ok || memo == "" {
		return
	}
	hash, _ := record.GetString("hash")
	// Memos written by the submit subcommand are JSON objects tagged with
	// a user field
	var tagged map[string]string
	if err := json.Unmarshal([]byte(memo), &tagged); err == nil {
		if user != "" && tagged["user"] != user {
			return
		}
		fmt.Printf(
			"%s user=%s amount=%s\n",
			hash,
			tagged["user"],
			tagged["amount"],
		)
		return
	}
	if user != "" {
		return
	}
	fmt.Printf("%s memo=%s\n", hash, memo)
}
