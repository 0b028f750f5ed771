// Package analyzer bundles a parsed descriptor with its detected
// network and lazily computed keys and spend paths, mirroring the
// CoreWallet/DescriptorAnalyzer split of the system this module's
// design is grounded on. It holds no persistent state beyond what a
// single analysis call needs.
package analyzer

import (
	"fmt"
	"sort"

	"github.com/toole-brendan/deadbolt/chaincfg"
	"github.com/toole-brendan/deadbolt/descriptor"
	"github.com/toole-brendan/deadbolt/keys"
	"github.com/toole-brendan/deadbolt/policy"
	"github.com/toole-brendan/deadbolt/weight"
)

// DescriptorAnalyzer is a parsed descriptor together with its inferred
// network. Keys and spend paths are computed on first access and
// cached.
type DescriptorAnalyzer struct {
	desc    *descriptor.Descriptor
	network chaincfg.Network

	keysLoaded bool
	keys       []*keys.PubKey
	keysErr    error

	spendPathsLoaded bool
	spendPaths       []*policy.SpendPath
	spendPathsErr    error
}

// New parses raw as a descriptor and infers its network, returning an
// analyzer over the result.
func New(raw string) (*DescriptorAnalyzer, error) {
	desc, err := descriptor.Parse(raw)
	if err != nil {
		return nil, err
	}
	network, err := descriptor.DetectNetwork(raw)
	if err != nil {
		return nil, err
	}
	return &DescriptorAnalyzer{desc: desc, network: network}, nil
}

// Descriptor returns the parsed descriptor.
func (a *DescriptorAnalyzer) Descriptor() *descriptor.Descriptor { return a.desc }

// Network returns the descriptor's inferred network.
func (a *DescriptorAnalyzer) Network() chaincfg.Network { return a.network }

// Keys returns the descriptor's user-facing signing keys: every
// distinct master fingerprint referenced, excluding unspendable (NUMS)
// markers.
func (a *DescriptorAnalyzer) Keys() ([]*keys.PubKey, error) {
	if !a.keysLoaded {
		a.keys, a.keysErr = a.desc.ExtractKeys()
		a.keysLoaded = true
	}
	return a.keys, a.keysErr
}

// SpendPaths returns the descriptor's spend paths, each calibrated with
// real weight-unit estimates, ordered ascending by combined timelock
// and then by total weight.
func (a *DescriptorAnalyzer) SpendPaths() ([]*policy.SpendPath, error) {
	if !a.spendPathsLoaded {
		a.spendPaths, a.spendPathsErr = a.computeSpendPaths()
		a.spendPathsLoaded = true
	}
	return a.spendPaths, a.spendPathsErr
}

func (a *DescriptorAnalyzer) computeSpendPaths() ([]*policy.SpendPath, error) {
	var paths []*policy.SpendPath
	var err error

	if a.desc.Template == descriptor.P2TR {
		paths, err = policy.ExtractTaprootSpendPaths(a.desc.TrInternalKey, a.desc.TrLeaves)
	} else {
		at := addrType(a.desc.Template)
		if at == "" {
			return nil, fmt.Errorf("analyzer: unsupported template %q", a.desc.Template)
		}
		script := a.desc.Script
		switch a.desc.Template {
		case descriptor.P2PKH, descriptor.P2WPKH, descriptor.P2SHWPKH:
			// Single-key templates hold a bare key field, not a policy
			// expression.
			script = "pk(" + script + ")"
		}
		var node policy.Node
		node, err = policy.Parse(script)
		if err == nil {
			paths, err = policy.ExtractSpendPaths(node, at)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := weight.Calibrate(paths); err != nil {
		return nil, err
	}
	if err := sortSpendPaths(paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// sortSpendPaths orders paths ascending by combined timelock, breaking
// ties by ascending total weight.
func sortSpendPaths(paths []*policy.SpendPath) error {
	type key struct {
		timelock uint64
		weight   uint64
	}
	keys := make([]key, len(paths))
	for i, sp := range paths {
		rel, err := sp.RelTimelock.ToConsensus()
		if err != nil {
			return err
		}
		abs, err := sp.AbsTimelock.ToConsensus()
		if err != nil {
			return err
		}
		keys[i] = key{
			timelock: uint64(rel) + uint64(abs),
			weight:   uint64(sp.WuBase) + uint64(sp.WuIn) + uint64(sp.WuOut),
		}
	}
	sort.SliceStable(paths, func(i, j int) bool {
		if keys[i].timelock != keys[j].timelock {
			return keys[i].timelock < keys[j].timelock
		}
		return keys[i].weight < keys[j].weight
	})
	return nil
}

func addrType(t descriptor.Template) string {
	switch t {
	case descriptor.P2PKH:
		return "P2PKH"
	case descriptor.P2WPKH:
		return "P2WPKH"
	case descriptor.P2SH:
		return "P2SH"
	case descriptor.P2WSH:
		return "P2WSH"
	case descriptor.P2TR:
		return "P2TR"
	case descriptor.P2SHWPKH:
		return "P2SH-WPKH"
	case descriptor.P2SHWSH:
		return "P2SH-WSH"
	default:
		return ""
	}
}
