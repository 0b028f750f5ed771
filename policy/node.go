package policy

import (
	"encoding/hex"
	"fmt"

	"github.com/toole-brendan/deadbolt/keys"
)

// KeyRef is a key as it appears inside a policy expression: usually a
// full descriptor key (with key-origin metadata), but occasionally a
// bare hex-encoded public key with no declared origin.
type KeyRef struct {
	Key *keys.PubKey
	Raw string
}

// FingerprintHex returns the key's identifying fingerprint: its
// key-origin master fingerprint when one was declared, otherwise the
// BIP-32-style hash160 fingerprint of the key material itself.
func (k KeyRef) FingerprintHex() (string, error) {
	if k.Key != nil {
		if k.Key.HasOrigin() {
			return k.Key.Fingerprint(), nil
		}
		pub, err := k.Key.ECPubKey()
		if err != nil {
			return "", err
		}
		return keys.Hash160FingerprintHex(pub.SerializeCompressed())
	}
	raw, err := hex.DecodeString(k.Raw)
	if err != nil {
		return "", fmt.Errorf("policy: invalid raw key %q: %w", k.Raw, err)
	}
	return keys.Hash160FingerprintHex(raw)
}

// MultisigVariant records which descriptor function produced a Multisig
// node, since it determines how the weight package must compile the
// node into a real script (multi/sortedmulti use CHECKMULTISIG; multi_a
// uses the CHECKSIGADD chain BIP-342 requires inside a tapscript leaf),
// even though it makes no difference to spend-path semantics.
type MultisigVariant int

const (
	VariantMulti MultisigVariant = iota
	VariantSortedMulti
	VariantMultiA
)

// Node is one fragment of a spending-condition policy tree.
type Node interface {
	isNode()
}

// Multisig is a flat k-of-n threshold over explicit keys: multi(),
// sortedmulti(), or multi_a().
type Multisig struct {
	Threshold int
	Keys      []KeyRef
	Variant   MultisigVariant
}

// Signature is a single-key leaf: pk(KEY).
type Signature struct {
	Key KeyRef
}

// RelTimelock is a relative-timelock leaf: older(N).
type RelTimelock struct {
	Value uint32
}

// AbsTimelock is an absolute-timelock leaf: after(N).
type AbsTimelock struct {
	Value uint32
}

// Thresh is a conjunction or a generic k-of-n threshold over
// sub-policies (and_v()/thresh()). Every item must independently
// contribute to the same spend path; satisfying a Thresh node never
// requires choosing between its children the way an Or node does.
type Thresh struct {
	Threshold int
	Items     []Node
}

// Or is a binary choice between two independently satisfiable
// sub-policies (or_i()). Each branch is its own distinct spend path.
// An or_i() with more than two arguments is folded into nested Or
// nodes by Parse, so Items always has exactly two elements.
type Or struct {
	Items []Node
}

func (Multisig) isNode()    {}
func (Signature) isNode()   {}
func (RelTimelock) isNode() {}
func (AbsTimelock) isNode() {}
func (Thresh) isNode()      {}
func (Or) isNode()          {}
