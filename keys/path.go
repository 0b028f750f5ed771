package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// hardenedStart is the child index at which a derivation step is
// considered hardened, per BIP-32.
const hardenedStart = 1 << 31

// ChildNumber is a single step of a BIP-32 derivation path.
type ChildNumber struct {
	Index    uint32
	Hardened bool
}

func (c ChildNumber) String() string {
	if c.Hardened {
		return strconv.FormatUint(uint64(c.Index), 10) + "'"
	}
	return strconv.FormatUint(uint64(c.Index), 10)
}

// Path is a parsed BIP-32 derivation path, master-relative, without the
// leading "m" that some notations include.
type Path []ChildNumber

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, "/")
}

// ParsePath parses a derivation path such as "44'/0'/0'" or "84h/1h/0h".
// An empty string yields an empty, valid path.
func ParsePath(s string) (Path, error) {
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return nil, nil
	}
	segs := strings.Split(s, "/")
	out := make(Path, 0, len(segs))
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("keys: empty path segment in %q", s)
		}
		hardened := false
		switch seg[len(seg)-1] {
		case '\'', 'h', 'H':
			hardened = true
			seg = seg[:len(seg)-1]
		}
		idx, err := strconv.ParseUint(seg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("keys: invalid path segment %q: %w", seg, err)
		}
		if idx >= hardenedStart {
			return nil, fmt.Errorf("keys: path index %d too large", idx)
		}
		out = append(out, ChildNumber{Index: uint32(idx), Hardened: hardened})
	}
	return out, nil
}
