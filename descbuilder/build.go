// Package descbuilder compiles a template, a set of keys, and a list of
// spend-path definitions into a canonical output descriptor string: the
// synthesis dual of package policy's spend-path extraction.
package descbuilder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/toole-brendan/deadbolt/chaincfg"
	"github.com/toole-brendan/deadbolt/descriptor"
	"github.com/toole-brendan/deadbolt/keys"
	"github.com/toole-brendan/deadbolt/policy"
)

// KeyLookup resolves a spend-path definition's master fingerprints to
// the keys the caller supplied, keyed by lowercase hex fingerprint.
type KeyLookup map[string]*keys.PubKey

// Build synthesizes a canonical descriptor string for tmpl from keySet
// and defs. defs must be non-empty. The result has already been
// re-parsed to validate it and carries a trailing checksum.
func Build(tmpl descriptor.Template, keySet KeyLookup, defs []policy.SpendPathDef, kind chaincfg.Kind) (string, error) {
	if len(defs) == 0 {
		return "", builderErrorf("at least one spend path definition is required")
	}

	var body string
	var err error
	switch tmpl {
	case descriptor.P2PKH, descriptor.P2WPKH, descriptor.P2SHWPKH:
		body, err = buildSingleKey(tmpl, keySet, defs)
	case descriptor.P2WSH, descriptor.P2SHWSH, descriptor.P2SH:
		body, err = buildScript(tmpl, keySet, defs)
	case descriptor.P2TR:
		body, err = buildTaproot(keySet, defs, kind)
	default:
		return "", builderErrorf("unsupported template %q", tmpl)
	}
	if err != nil {
		return "", err
	}
	return finalize(body)
}

// finalize re-parses body to catch any structurally invalid
// construction before it reaches a caller, then appends the canonical
// checksum.
func finalize(body string) (string, error) {
	if _, err := descriptor.Parse(body); err != nil {
		return "", builderErrorf("synthesized descriptor failed to re-parse: %v", err)
	}
	return descriptor.AppendChecksum(body)
}

func resolveKey(keySet KeyLookup, mfp string) (*keys.PubKey, error) {
	k, ok := keySet[mfp]
	if !ok {
		return nil, builderErrorf("key not found for MFP %s", mfp)
	}
	return k, nil
}

func buildSingleKey(tmpl descriptor.Template, keySet KeyLookup, defs []policy.SpendPathDef) (string, error) {
	if len(defs) != 1 {
		return "", builderErrorf("%s requires exactly one spend path, got %d", tmpl, len(defs))
	}
	def := defs[0]
	if def.Threshold != 1 || len(def.MFPs) != 1 {
		return "", builderErrorf("%s requires a single 1-of-1 signer", tmpl)
	}
	relConsensus, err := def.RelTimelock.ToConsensus()
	if err != nil {
		return "", err
	}
	absConsensus, err := def.AbsTimelock.ToConsensus()
	if err != nil {
		return "", err
	}
	if relConsensus != 0 || absConsensus != 0 {
		return "", builderErrorf("%s does not support timelocks", tmpl)
	}

	key, err := resolveKey(keySet, def.MFPs[0])
	if err != nil {
		return "", err
	}
	term := key.String() + multipathSuffix(0, 1)

	switch tmpl {
	case descriptor.P2PKH:
		return "pkh(" + term + ")", nil
	case descriptor.P2WPKH:
		return "wpkh(" + term + ")", nil
	case descriptor.P2SHWPKH:
		return "sh(wpkh(" + term + "))", nil
	default:
		return "", builderErrorf("unsupported single-key template %q", tmpl)
	}
}

func buildScript(tmpl descriptor.Template, keySet KeyLookup, defs []policy.SpendPathDef) (string, error) {
	var script string
	var err error

	if len(defs) == 1 && len(defs[0].MFPs) > 1 {
		def := defs[0]
		relConsensus, rerr := def.RelTimelock.ToConsensus()
		if rerr != nil {
			return "", rerr
		}
		absConsensus, aerr := def.AbsTimelock.ToConsensus()
		if aerr != nil {
			return "", aerr
		}
		if relConsensus == 0 && absConsensus == 0 {
			slots := &slotAllocator{}
			script, err = sortedMultiTerm(def, keySet, slots)
		}
	}

	if script == "" && err == nil {
		slots := &slotAllocator{}
		exprs := make([]string, 0, len(defs))
		for _, def := range defs {
			expr, perr := buildPathExpr(def, keySet, slots, false)
			if perr != nil {
				return "", perr
			}
			exprs = append(exprs, expr)
		}
		script = buildBalancedOrTree(exprs)
	}
	if err != nil {
		return "", err
	}

	switch tmpl {
	case descriptor.P2WSH:
		return "wsh(" + script + ")", nil
	case descriptor.P2SHWSH:
		return "sh(wsh(" + script + "))", nil
	case descriptor.P2SH:
		return "sh(" + script + ")", nil
	default:
		return "", builderErrorf("unsupported script template %q", tmpl)
	}
}

func sortedMultiTerm(def policy.SpendPathDef, keySet KeyLookup, slots *slotAllocator) (string, error) {
	terms := make([]string, 0, len(def.MFPs))
	for _, mfp := range def.MFPs {
		k, err := resolveKey(keySet, mfp)
		if err != nil {
			return "", err
		}
		a, b := slots.take()
		terms = append(terms, k.String()+multipathSuffix(a, b))
	}
	return fmt.Sprintf("sortedmulti(%d,%s)", def.Threshold, strings.Join(terms, ",")), nil
}

// buildPathExpr renders one spend-path definition's signer-and-timelock
// condition into this module's miniscript-subset text: a bare signer
// term when no timelock applies, otherwise AND-combined via nested
// and_v(). tap selects multi_a() over sortedmulti() for the multi-key
// case, matching BIP-342's signature-aggregation opcode chain.
func buildPathExpr(def policy.SpendPathDef, keySet KeyLookup, slots *slotAllocator, tap bool) (string, error) {
	signer, err := signerTerm(def, keySet, slots, tap)
	if err != nil {
		return "", err
	}
	clauses := []string{signer}

	relConsensus, err := def.RelTimelock.ToConsensus()
	if err != nil {
		return "", err
	}
	if relConsensus != 0 {
		clauses = append(clauses, fmt.Sprintf("older(%d)", relConsensus))
	}
	absConsensus, err := def.AbsTimelock.ToConsensus()
	if err != nil {
		return "", err
	}
	if absConsensus != 0 {
		clauses = append(clauses, fmt.Sprintf("after(%d)", absConsensus))
	}

	expr := clauses[len(clauses)-1]
	for i := len(clauses) - 2; i >= 0; i-- {
		expr = fmt.Sprintf("and_v(v:%s,%s)", clauses[i], expr)
	}
	return expr, nil
}

func signerTerm(def policy.SpendPathDef, keySet KeyLookup, slots *slotAllocator, tap bool) (string, error) {
	if len(def.MFPs) == 0 {
		return "", builderErrorf("spend path has no signers")
	}
	if len(def.MFPs) == 1 {
		k, err := resolveKey(keySet, def.MFPs[0])
		if err != nil {
			return "", err
		}
		a, b := slots.take()
		return "pk(" + k.String() + multipathSuffix(a, b) + ")", nil
	}

	terms := make([]string, 0, len(def.MFPs))
	for _, mfp := range def.MFPs {
		k, err := resolveKey(keySet, mfp)
		if err != nil {
			return "", err
		}
		a, b := slots.take()
		terms = append(terms, k.String()+multipathSuffix(a, b))
	}
	name := "sortedmulti"
	if tap {
		name = "multi_a"
	}
	return fmt.Sprintf("%s(%d,%s)", name, def.Threshold, strings.Join(terms, ",")), nil
}

// buildBalancedOrTree combines independent spend-path expressions under
// or_i(), pairing adjacent expressions and carrying an odd one forward
// a level at a time, so the compiled script stays balanced regardless
// of how many paths there are.
func buildBalancedOrTree(exprs []string) string {
	for len(exprs) > 1 {
		next := make([]string, 0, (len(exprs)+1)/2)
		i := 0
		for ; i+1 < len(exprs); i += 2 {
			next = append(next, fmt.Sprintf("or_i(%s,%s)", exprs[i], exprs[i+1]))
		}
		if i < len(exprs) {
			next = append(next, exprs[i])
		}
		exprs = next
	}
	return exprs[0]
}

// buildBalancedTapTree assembles leaf expressions into a Taproot
// tapscript tree using brace syntax, recursively splitting the leaf
// list at its midpoint so depth stays balanced. Unlike
// buildBalancedOrTree this needs no or_i() wrapper: distinct tapscript
// leaves are already mutually exclusive at spend time.
func buildBalancedTapTree(leaves []string) string {
	if len(leaves) == 1 {
		return leaves[0]
	}
	mid := len(leaves) / 2
	left := buildBalancedTapTree(leaves[:mid])
	right := buildBalancedTapTree(leaves[mid:])
	return "{" + left + "," + right + "}"
}

func buildTaproot(keySet KeyLookup, defs []policy.SpendPathDef, kind chaincfg.Kind) (string, error) {
	var keyPathDef *policy.SpendPathDef
	var scriptDefs []policy.SpendPathDef
	for i := range defs {
		def := defs[i]
		if !def.IsKeyPath {
			scriptDefs = append(scriptDefs, def)
			continue
		}
		if keyPathDef != nil {
			return "", builderErrorf("more than one spend path is marked as the key path")
		}
		relConsensus, err := def.RelTimelock.ToConsensus()
		if err != nil {
			return "", err
		}
		absConsensus, err := def.AbsTimelock.ToConsensus()
		if err != nil {
			return "", err
		}
		if def.Threshold != 1 || len(def.MFPs) != 1 || relConsensus != 0 || absConsensus != 0 {
			return "", builderErrorf("a key-path spend must be a single untimed signer")
		}
		keyPathDef = &def
	}

	slots := &slotAllocator{}
	var internalKeyTerm string
	if keyPathDef != nil {
		k, err := resolveKey(keySet, keyPathDef.MFPs[0])
		if err != nil {
			return "", err
		}
		a, b := slots.take()
		internalKeyTerm = k.String() + multipathSuffix(a, b)
	} else {
		if len(scriptDefs) == 0 {
			return "", builderErrorf("no spend paths to synthesize")
		}
		allKeys := make([]*keys.PubKey, 0, len(keySet))
		for _, k := range keySet {
			allKeys = append(allKeys, k)
		}
		numsKey, err := keys.GenerateUnspendableXpub(allKeys, kind)
		if err != nil {
			return "", err
		}
		internalKeyTerm = numsKey.String() + multipathSuffix(0, 1)
		slots.next = 2
	}

	if len(scriptDefs) == 0 {
		return "tr(" + internalKeyTerm + ")", nil
	}

	byPriority := make(map[int][]policy.SpendPathDef)
	var priorities []int
	for _, def := range scriptDefs {
		if _, ok := byPriority[def.Priority]; !ok {
			priorities = append(priorities, def.Priority)
		}
		byPriority[def.Priority] = append(byPriority[def.Priority], def)
	}
	sort.Ints(priorities)

	var tree string
	for i, p := range priorities {
		leaves := make([]string, 0, len(byPriority[p])+1)
		for _, def := range byPriority[p] {
			expr, err := buildPathExpr(def, keySet, slots, true)
			if err != nil {
				return "", err
			}
			leaves = append(leaves, expr)
		}
		if i > 0 {
			leaves = append(leaves, tree)
		}
		tree = buildBalancedTapTree(leaves)
	}

	return "tr(" + internalKeyTerm + "," + tree + ")", nil
}
