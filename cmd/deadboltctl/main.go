// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// deadboltctl analyzes and synthesizes Bitcoin output descriptors from
// the command line.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/jessevdk/go-flags"

	"github.com/toole-brendan/deadbolt/chaincfg"
	"github.com/toole-brendan/deadbolt/deadbolt"
	"github.com/toole-brendan/deadbolt/descbuilder"
	"github.com/toole-brendan/deadbolt/descriptor"
	"github.com/toole-brendan/deadbolt/keys"
	"github.com/toole-brendan/deadbolt/policy"
)

var log btclog.Logger

func init() {
	backend := btclog.NewBackend(os.Stderr)
	log = backend.Logger("DDBT")
	log.SetLevel(btclog.LevelInfo)
}

type analyzeCmd struct {
	Descriptor string `short:"d" long:"descriptor" description:"output descriptor string to analyze" required:"true"`
}

func (c *analyzeCmd) Execute(_ []string) error {
	result, err := deadbolt.AnalyzeDescriptor(c.Descriptor)
	if err != nil {
		return err
	}

	fmt.Printf("network:  %s\n", result.Network)
	fmt.Printf("template: %s\n", result.Template)

	fmt.Printf("keys (%d):\n", len(result.Keys))
	for _, k := range result.Keys {
		fmt.Printf("  %s  %s\n", k.Fingerprint(), k.Xpub())
	}

	fmt.Printf("spend paths (%d):\n", len(result.SpendPaths))
	for i, sp := range result.SpendPaths {
		rel, _ := sp.RelTimelock.ToConsensus()
		abs, _ := sp.AbsTimelock.ToConsensus()
		fmt.Printf("  [%d] id=%08x threshold=%d/%d mfps=%s rel=%d abs=%d vbytes=%.1f tr_depth=%d\n",
			i, sp.ID, sp.Threshold, len(sp.MFPs), strings.Join(sp.MFPs, ","), rel, abs, sp.VBytes(), sp.TrDepth)
	}
	return nil
}

type buildCmd struct {
	Template string   `short:"t" long:"template" description:"pkh, wpkh, sh, wsh, sh-wpkh, sh-wsh, or tr" required:"true"`
	Key      []string `short:"k" long:"key" description:"a signer as mfp=[origin]xpub..., repeatable" required:"true"`
	Path     []string `short:"p" long:"path" description:"a spend path as mfp1;mfp2:threshold[:older=N][:after=N][:keypath][:priority=N], repeatable" required:"true"`
	Testnet  bool     `long:"testnet" description:"synthesize a test-family NUMS key instead of a mainnet one"`
}

func (c *buildCmd) Execute(_ []string) error {
	tmpl, err := parseTemplate(c.Template)
	if err != nil {
		return err
	}

	keySet := descbuilder.KeyLookup{}
	for _, spec := range c.Key {
		mfp, k, err := parseKeySpec(spec)
		if err != nil {
			return err
		}
		keySet[mfp] = k
	}

	defs := make([]policy.SpendPathDef, 0, len(c.Path))
	for _, spec := range c.Path {
		def, err := parsePathSpec(spec)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}

	kind := chaincfg.KindMain
	if c.Testnet {
		kind = chaincfg.KindTest
	}

	out, err := deadbolt.BuildDescriptor(tmpl, keySet, defs, kind)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func parseTemplate(s string) (descriptor.Template, error) {
	switch strings.ToLower(s) {
	case "pkh":
		return descriptor.P2PKH, nil
	case "wpkh":
		return descriptor.P2WPKH, nil
	case "sh":
		return descriptor.P2SH, nil
	case "wsh":
		return descriptor.P2WSH, nil
	case "sh-wpkh":
		return descriptor.P2SHWPKH, nil
	case "sh-wsh":
		return descriptor.P2SHWSH, nil
	case "tr":
		return descriptor.P2TR, nil
	default:
		return descriptor.Unknown, fmt.Errorf("deadboltctl: unknown template %q", s)
	}
}

// parseKeySpec splits a "mfp=[origin]xpub..." flag value into the
// fingerprint it should be looked up by and the parsed key.
func parseKeySpec(spec string) (string, *keys.PubKey, error) {
	mfp, field, ok := strings.Cut(spec, "=")
	if !ok {
		return "", nil, fmt.Errorf("deadboltctl: key spec %q must be mfp=[origin]xpub...", spec)
	}
	k, err := keys.Parse(field)
	if err != nil {
		return "", nil, fmt.Errorf("deadboltctl: key spec %q: %w", spec, err)
	}
	return strings.ToLower(mfp), k, nil
}

// parsePathSpec parses one --path flag value:
// "mfp1;mfp2:threshold[:older=N][:after=N][:keypath][:priority=N]".
func parsePathSpec(spec string) (policy.SpendPathDef, error) {
	fields := strings.Split(spec, ":")
	if len(fields) < 2 {
		return policy.SpendPathDef{}, fmt.Errorf("deadboltctl: path spec %q must be mfps:threshold[:option...]", spec)
	}

	threshold, err := strconv.Atoi(fields[1])
	if err != nil {
		return policy.SpendPathDef{}, fmt.Errorf("deadboltctl: path spec %q: invalid threshold: %w", spec, err)
	}
	def := policy.SpendPathDef{
		Threshold: threshold,
		MFPs:      strings.Split(fields[0], ";"),
	}

	for _, opt := range fields[2:] {
		switch {
		case opt == "keypath":
			def.IsKeyPath = true
		case strings.HasPrefix(opt, "older="):
			n, err := strconv.ParseUint(strings.TrimPrefix(opt, "older="), 10, 32)
			if err != nil {
				return policy.SpendPathDef{}, fmt.Errorf("deadboltctl: path spec %q: %w", spec, err)
			}
			def.RelTimelock = policy.RelativeTimelockFromConsensus(uint32(n))
		case strings.HasPrefix(opt, "after="):
			n, err := strconv.ParseUint(strings.TrimPrefix(opt, "after="), 10, 32)
			if err != nil {
				return policy.SpendPathDef{}, fmt.Errorf("deadboltctl: path spec %q: %w", spec, err)
			}
			def.AbsTimelock = policy.AbsoluteTimelockFromConsensus(uint32(n))
		case strings.HasPrefix(opt, "priority="):
			n, err := strconv.Atoi(strings.TrimPrefix(opt, "priority="))
			if err != nil {
				return policy.SpendPathDef{}, fmt.Errorf("deadboltctl: path spec %q: %w", spec, err)
			}
			def.Priority = n
		default:
			return policy.SpendPathDef{}, fmt.Errorf("deadboltctl: path spec %q: unknown option %q", spec, opt)
		}
	}
	return def, nil
}

func main() {
	parser := flags.NewParser(nil, flags.Default)
	if _, err := parser.AddCommand("analyze", "Analyze a descriptor",
		"Parses a descriptor, infers its network, and enumerates its spend paths with calibrated weights.",
		&analyzeCmd{}); err != nil {
		log.Errorf("registering analyze command: %v", err)
		os.Exit(1)
	}
	if _, err := parser.AddCommand("build", "Synthesize a descriptor",
		"Compiles a template, a set of keys, and a list of spend-path definitions into a descriptor string.",
		&buildCmd{}); err != nil {
		log.Errorf("registering build command: %v", err)
		os.Exit(1)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
