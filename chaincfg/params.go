// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the Bitcoin network variants this module
// recognizes and the BIP-32/SLIP-132 extended-key version bytes used to
// tell them apart.
package chaincfg

import "fmt"

// Network names one of the network variants a descriptor can target.
type Network string

const (
	Bitcoin  Network = "bitcoin"
	Testnet  Network = "testnet"
	Testnet4 Network = "testnet4"
	Signet   Network = "signet"
	Regtest  Network = "regtest"
)

// Kind is the two-way split that BIP-32 version bytes actually encode.
// xpub/tpub and their SLIP-132 siblings only distinguish "mainnet" from
// "every test network", so Testnet, Testnet4, Signet and Regtest are
// indistinguishable from an extended key's version bytes alone.
type Kind uint8

const (
	KindMain Kind = iota
	KindTest
)

func (k Kind) String() string {
	if k == KindMain {
		return "main"
	}
	return "test"
}

// Params describes a single network variant.
type Params struct {
	Name Network
	Kind Kind
}

var (
	MainNetParams       = Params{Name: Bitcoin, Kind: KindMain}
	TestNet3Params      = Params{Name: Testnet, Kind: KindTest}
	TestNet4Params      = Params{Name: Testnet4, Kind: KindTest}
	SigNetParams        = Params{Name: Signet, Kind: KindTest}
	RegressionNetParams = Params{Name: Regtest, Kind: KindTest}
)

var paramsByNetwork = map[Network]*Params{
	Bitcoin:  &MainNetParams,
	Testnet:  &TestNet3Params,
	Testnet4: &TestNet4Params,
	Signet:   &SigNetParams,
	Regtest:  &RegressionNetParams,
}

// ParamsFor returns the Params for a known network name.
func ParamsFor(n Network) (*Params, error) {
	p, ok := paramsByNetwork[n]
	if !ok {
		return nil, fmt.Errorf("chaincfg: unknown network %q", n)
	}
	return p, nil
}

// Kind reports the main/test split for n.
func (n Network) Kind() Kind {
	if n == Bitcoin {
		return KindMain
	}
	return KindTest
}

// TrialOrder is the fallback order network detection walks when a
// descriptor's extended keys don't settle the question on their own: try
// every network, preferring mainnet first.
var TrialOrder = []Network{Bitcoin, Testnet, Testnet4, Signet, Regtest}

// TestFamilyTrialOrder is the order tried once the prefix scan has
// already established the descriptor belongs to the test family.
var TestFamilyTrialOrder = []Network{Testnet, Signet, Testnet4, Regtest}
