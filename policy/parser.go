package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/toole-brendan/deadbolt/keys"
)

// Parse parses a spending-condition expression in this module's
// miniscript subset: pk, multi, sortedmulti, multi_a, thresh, and_v,
// or_i, older and after.
func Parse(s string) (Node, error) {
	s = strings.TrimSpace(s)
	name, inner, err := splitWrapper(s)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	args := splitArgs(inner)

	switch name {
	case "pk":
		if len(args) != 1 {
			return nil, fmt.Errorf("policy: pk() takes exactly one key, got %d", len(args))
		}
		key, err := parseKey(args[0])
		if err != nil {
			return nil, err
		}
		return Signature{Key: key}, nil

	case "multi", "sortedmulti", "multi_a":
		if len(args) < 2 {
			return nil, fmt.Errorf("policy: %s() requires a threshold and at least one key", name)
		}
		threshold, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return nil, fmt.Errorf("policy: invalid threshold in %s(): %w", name, err)
		}
		keyRefs := make([]KeyRef, 0, len(args)-1)
		for _, a := range args[1:] {
			k, err := parseKey(a)
			if err != nil {
				return nil, err
			}
			keyRefs = append(keyRefs, k)
		}
		variant := VariantMulti
		switch name {
		case "sortedmulti":
			variant = VariantSortedMulti
		case "multi_a":
			variant = VariantMultiA
		}
		if threshold < 1 || threshold > len(keyRefs) {
			return nil, fmt.Errorf("policy: %s() threshold %d out of range for %d keys", name, threshold, len(keyRefs))
		}
		return Multisig{Threshold: threshold, Keys: keyRefs, Variant: variant}, nil

	case "thresh":
		if len(args) < 2 {
			return nil, fmt.Errorf("policy: thresh() requires a threshold and at least one item")
		}
		threshold, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return nil, fmt.Errorf("policy: invalid threshold in thresh(): %w", err)
		}
		items := make([]Node, 0, len(args)-1)
		for _, a := range args[1:] {
			item, err := Parse(a)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if threshold < 1 || threshold > len(items) {
			return nil, fmt.Errorf("policy: thresh() threshold %d out of range for %d items", threshold, len(items))
		}
		return Thresh{Threshold: threshold, Items: items}, nil

	case "and_v":
		if len(args) != 2 {
			return nil, fmt.Errorf("policy: and_v() takes exactly two items, got %d", len(args))
		}
		left := strings.TrimPrefix(strings.TrimSpace(args[0]), "v:")
		leftNode, err := Parse(left)
		if err != nil {
			return nil, err
		}
		rightNode, err := Parse(args[1])
		if err != nil {
			return nil, err
		}
		return Thresh{Threshold: 2, Items: []Node{leftNode, rightNode}}, nil

	case "or_i":
		if len(args) < 2 {
			return nil, fmt.Errorf("policy: or_i() takes at least two branches, got %d", len(args))
		}
		nodes := make([]Node, 0, len(args))
		for _, a := range args {
			item, err := Parse(a)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, item)
		}
		// or_i is a strictly binary choice. A grammar instance with more
		// than two branches (not something this module's own synthesizer
		// ever emits) is folded into nested binary Or nodes, right to left.
		result := nodes[len(nodes)-1]
		for i := len(nodes) - 2; i >= 0; i-- {
			result = Or{Items: []Node{nodes[i], result}}
		}
		return result, nil

	case "older":
		if len(args) != 1 {
			return nil, fmt.Errorf("policy: older() takes exactly one value")
		}
		v, err := strconv.ParseUint(strings.TrimSpace(args[0]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("policy: invalid older() value: %w", err)
		}
		return RelTimelock{Value: uint32(v)}, nil

	case "after":
		if len(args) != 1 {
			return nil, fmt.Errorf("policy: after() takes exactly one value")
		}
		v, err := strconv.ParseUint(strings.TrimSpace(args[0]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("policy: invalid after() value: %w", err)
		}
		return AbsTimelock{Value: uint32(v)}, nil

	default:
		return nil, fmt.Errorf("policy: unsupported expression %q", name)
	}
}

func parseKey(field string) (KeyRef, error) {
	field = strings.TrimSpace(field)
	if isRawHexKey(field) {
		return KeyRef{Raw: strings.ToLower(field)}, nil
	}
	k, err := keys.Parse(field)
	if err != nil {
		return KeyRef{}, err
	}
	return KeyRef{Key: k}, nil
}

func isRawHexKey(s string) bool {
	if len(s) != 64 && len(s) != 66 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// splitWrapper splits "name(inner)" into its name and inner content.
func splitWrapper(s string) (name, inner string, err error) {
	idx := strings.IndexByte(s, '(')
	if idx < 0 {
		return "", "", fmt.Errorf("expected a function-style expression in %q", s)
	}
	if !strings.HasSuffix(s, ")") {
		return "", "", fmt.Errorf("unbalanced expression in %q", s)
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
		return "", "", fmt.Errorf("unbalanced expression in %q", s)
	}
	return s[:idx], s[idx+1 : len(s)-1], nil
}

// splitArgs splits a comma-separated argument list, respecting nested
// (), {} and [] groupings.
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
