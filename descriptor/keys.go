package descriptor

import (
	"regexp"

	"github.com/toole-brendan/deadbolt/keys"
)

// keyFieldRe matches a single descriptor key field: an optional
// "[fingerprint/path]" origin, an extended public key, and any trailing
// derivation suffix (a plain path, wildcard "*", or multipath "<a;b>").
var keyFieldRe = regexp.MustCompile(
	`(?:\[[0-9a-fA-F]{8}(?:/[0-9]+['hH]?)*\])?[tuvxyzTUVXYZ]pub[1-9A-HJ-NP-Za-km-z]+(?:/(?:\*|<[0-9]+;[0-9]+>|[0-9]+['hH]?))*`,
)

// ExtractKeys returns every extended public key referenced in the
// descriptor, in first-seen order, deduplicated by master fingerprint
// and excluding any key whose point is the NUMS unspendable point (the
// descriptor builder in this module always synthesizes that key itself,
// so it is never treated as wallet-owned key material).
func (d *Descriptor) ExtractKeys() ([]*keys.PubKey, error) {
	var fields []string
	switch d.Template {
	case P2TR:
		fields = append(fields, keyFieldRe.FindAllString(d.TrInternalKey, -1)...)
		for _, leaf := range d.TrLeaves {
			fields = append(fields, keyFieldRe.FindAllString(leaf, -1)...)
		}
	default:
		fields = keyFieldRe.FindAllString(d.Script, -1)
	}

	seen := make(map[string]bool)
	var out []*keys.PubKey
	for _, f := range fields {
		k, err := keys.Parse(f)
		if err != nil {
			return nil, err
		}
		if k.IsUnspendable() {
			continue
		}
		fp := k.Fingerprint()
		if fp != "" {
			if seen[fp] {
				continue
			}
			seen[fp] = true
		}
		out = append(out, k)
	}
	return out, nil
}
