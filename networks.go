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

package gohorizon

import "golang.org/x/crypto/blake2b"

// Network definitions
var (
	NetworkTestnet = Network{
		Name:       "testnet",
		Passphrase: "Lumenaut Test Network ; August 2025",
		HorizonURL: "https://horizon-testnet.lumenaut.io",
	}
	NetworkPublic = Network{
		Name:       "public",
		Passphrase: "Lumenaut Public Network ; August 2025",
		HorizonURL: "https://horizon.lumenaut.io",
	}

	NetworkInvalid = Network{
		Name: "invalid",
	} // NetworkInvalid is used as a return value for lookup functions when a network isn't found
)

// List of valid networks for use in lookup functions
var networks = []Network{
	NetworkTestnet,
	NetworkPublic,
}

// NetworkByName returns a predefined network by name
func NetworkByName(name string) Network {
	for _, network := range networks {
		if network.Name == name {
			return network
		}
	}
	return NetworkInvalid
}

// NetworkByPassphrase returns a predefined network by passphrase
func NetworkByPassphrase(passphrase string) Network {
	for _, network := range networks {
		if network.Passphrase == passphrase {
			return network
		}
	}
	return NetworkInvalid
}

// Network represents a ledger network. The passphrase scopes signatures to
// one network: the network ID derived from it is mixed into every
// transaction signature base
type Network struct {
	Name       string
	Passphrase string
	HorizonURL string
}

// ID returns the network identifier, the blake2b-256 hash of the network
// passphrase
func (n Network) ID() []byte {
	hash := blake2b.Sum256([]byte(n.Passphrase))
	return hash[:]
}

func (n Network) String() string {
	return n.Name
}
