// Package descriptor parses BIP-380 output descriptors: the outer
// template wrapper (pkh/wpkh/sh/wsh/tr and the sh(wpkh)/sh(wsh) legacy
// combinations), the descriptor's checksum, and network detection from
// the extended keys it references.
package descriptor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/toole-brendan/deadbolt/chaincfg"
)

// Descriptor is a parsed output descriptor, split into its template
// wrapper and the inner script expression(s) the policy package
// interprets.
type Descriptor struct {
	Raw      string
	Checksum string
	Template Template

	// Script holds the inner policy expression for every non-Taproot
	// template: the body of sortedmulti(...), thresh(...), or a single
	// key field for pkh/wpkh/sh(wpkh).
	Script string

	// TrInternalKey and TrLeaves are populated only for Template == P2TR.
	TrInternalKey string
	TrLeaves      []string
}

var xpubLikeRe = regexp.MustCompile(`\b([tuvxyzTUVXYZ]pub[1-9A-HJ-NP-Za-km-z]+)\b`)

// Parse parses a BIP-380 descriptor string, validating its checksum if
// one is present.
func Parse(s string) (*Descriptor, error) {
	raw := s
	body, checksum, hasChecksum := strings.Cut(s, "#")
	if hasChecksum {
		if len(checksum) != 8 {
			return nil, fmt.Errorf("descriptor: checksum must be 8 characters, got %q", checksum)
		}
		ok, err := descsumCheck(body, checksum)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("descriptor: checksum mismatch for %q", body)
		}
	}

	name, inner, err := splitWrapper(body)
	if err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}

	d := &Descriptor{Raw: raw, Checksum: checksum}

	switch name {
	case "pkh":
		d.Template = P2PKH
		d.Script = inner
	case "wpkh":
		d.Template = P2WPKH
		d.Script = inner
	case "wsh":
		d.Template = P2WSH
		d.Script = inner
	case "sh":
		innerName, innerInner, innerErr := splitWrapper(inner)
		switch {
		case innerErr == nil && innerName == "wpkh":
			d.Template = P2SHWPKH
			d.Script = innerInner
		case innerErr == nil && innerName == "wsh":
			d.Template = P2SHWSH
			d.Script = innerInner
		default:
			d.Template = P2SH
			d.Script = inner
		}
	case "tr":
		d.Template = P2TR
		args := splitArgs(inner)
		if len(args) == 0 || len(args) > 2 {
			return nil, fmt.Errorf("descriptor: tr() expects 1 or 2 arguments, got %d", len(args))
		}
		d.TrInternalKey = strings.TrimSpace(args[0])
		if len(args) == 2 {
			d.TrLeaves = flattenTree(strings.TrimSpace(args[1]))
		}
	default:
		d.Template = Unknown
		d.Script = inner
	}

	return d, nil
}

// splitWrapper splits "name(inner)" into its name and inner content,
// requiring the parentheses to be balanced and to span the entire
// string.
func splitWrapper(s string) (name, inner string, err error) {
	idx := strings.IndexByte(s, '(')
	if idx < 0 {
		return "", "", fmt.Errorf("expected a function-style wrapper in %q", s)
	}
	if !strings.HasSuffix(s, ")") {
		return "", "", fmt.Errorf("unbalanced wrapper in %q", s)
	}
	depth := 0
	for i := idx; i < len(s); i++ {
		switch s[i] {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
			if depth == 0 && i != len(s)-1 {
				return "", "", fmt.Errorf("unexpected trailing content in %q", s)
			}
		}
	}
	if depth != 0 {
		return "", "", fmt.Errorf("unbalanced wrapper in %q", s)
	}
	return s[:idx], s[idx+1 : len(s)-1], nil
}

// splitArgs splits a comma-separated argument list, respecting nested
// (), {} and [] groupings so that a key's own "[fp/path]" origin or a
// nested function call is never split apart.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, s[start:])
	return args
}

// flattenTree flattens a Taproot tapscript tree expression, possibly
// nested as "{A,B}", into an ordered list of leaf script strings.
func flattenTree(s string) []string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		parts := splitArgs(s[1 : len(s)-1])
		var leaves []string
		for _, p := range parts {
			leaves = append(leaves, flattenTree(strings.TrimSpace(p))...)
		}
		return leaves
	}
	return []string{s}
}

// DetectNetwork infers the network a descriptor targets from the
// base58 extended-key prefixes it contains. xpub/ypub/zpub identify
// mainnet; tpub/upub/vpub identify the test family, within which
// Testnet, Testnet4, Signet and Regtest are indistinguishable from key
// material alone, so the first of chaincfg.TestFamilyTrialOrder is
// reported. A descriptor with no extended keys at all (for example a
// Taproot NUMS-only descriptor) is equally ambiguous and defaults to
// the first of chaincfg.TrialOrder.
func DetectNetwork(raw string) (chaincfg.Network, error) {
	matches := xpubLikeRe.FindAllString(raw, -1)
	var mainnet, testnet bool
	for _, m := range matches {
		switch strings.ToLower(m[:1]) {
		case "x", "y", "z":
			mainnet = true
		case "t", "u", "v":
			testnet = true
		}
	}
	switch {
	case mainnet && testnet:
		return "", fmt.Errorf("descriptor: mixes mainnet and test-network extended keys")
	case mainnet:
		return chaincfg.Bitcoin, nil
	case testnet:
		return chaincfg.TestFamilyTrialOrder[0], nil
	default:
		return chaincfg.TrialOrder[0], nil
	}
}
