// Package keys models the extended public keys that appear inside an
// output descriptor: their key-origin metadata, their BIP-32 material,
// and the NUMS point used as an unspendable Taproot internal key.
package keys

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/toole-brendan/deadbolt/chaincfg"
)

// numsHex is the compressed (0x02-prefixed) encoding of the NUMS
// (nothing-up-my-sleeve) point used as an unspendable Taproot internal
// key, per BIP-341's reference implementation notes.
const numsHex = "0250929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"

var numsPubKey = sync.OnceValue(func() *btcec.PublicKey {
	raw, err := hex.DecodeString(numsHex)
	if err != nil {
		panic("keys: invalid embedded NUMS point: " + err.Error())
	}
	pk, err := btcec.ParsePubKey(raw)
	if err != nil {
		panic("keys: invalid embedded NUMS point: " + err.Error())
	}
	return pk
})

// Origin is the key-origin information BIP-380 descriptors attach to a
// key in brackets: "[fingerprint/path]".
type Origin struct {
	Fingerprint [4]byte
	Path        Path
}

func (o Origin) String() string {
	s := hex.EncodeToString(o.Fingerprint[:])
	if len(o.Path) > 0 {
		s += "/" + o.Path.String()
	}
	return s
}

// FingerprintHex returns the origin fingerprint as lowercase hex.
func (o Origin) FingerprintHex() string {
	return hex.EncodeToString(o.Fingerprint[:])
}

// PubKey is an extended public key extracted from a descriptor, together
// with its key-origin metadata and network kind.
type PubKey struct {
	hasOrigin     bool
	origin        Origin
	xkey          *hdkeychain.ExtendedKey
	kind          chaincfg.Kind
	isUnspendable bool
}

// Fingerprint returns the key-origin master fingerprint as lowercase hex.
// It is empty if the key carries no origin.
func (k *PubKey) Fingerprint() string {
	if !k.hasOrigin {
		return ""
	}
	return k.origin.FingerprintHex()
}

// HasOrigin reports whether the key carried a "[fingerprint/path]" prefix.
func (k *PubKey) HasOrigin() bool { return k.hasOrigin }

// Origin returns the key's origin metadata.
func (k *PubKey) Origin() Origin { return k.origin }

// DerivationPath returns the origin's derivation path.
func (k *PubKey) DerivationPath() Path { return k.origin.Path }

// Kind reports whether this key belongs to the mainnet or test family.
func (k *PubKey) Kind() chaincfg.Kind { return k.kind }

// IsUnspendable reports whether the key's public point is the NUMS point.
func (k *PubKey) IsUnspendable() bool { return k.isUnspendable }

// ExtendedKey returns the underlying BIP-32 extended key.
func (k *PubKey) ExtendedKey() *hdkeychain.ExtendedKey { return k.xkey }

// ECPubKey returns the raw secp256k1 public key.
func (k *PubKey) ECPubKey() (*btcec.PublicKey, error) {
	return k.xkey.ECPubKey()
}

// Xpub renders the extended key in its canonical xpub/tpub base58 form,
// independent of whichever SLIP-132 prefix the source text used.
func (k *PubKey) Xpub() string {
	return k.xkey.String()
}

// String renders the key in descriptor form: "[fp/path]xpub..." if an
// origin is present, otherwise the bare xpub.
func (k *PubKey) String() string {
	if !k.hasOrigin {
		return k.Xpub()
	}
	return "[" + k.origin.String() + "]" + k.Xpub()
}

// IsCompatibleWithNetwork reports whether this key's version bytes match
// the given network's main/test kind.
func (k *PubKey) IsCompatibleWithNetwork(n chaincfg.Network) bool {
	return k.kind == n.Kind()
}

// Parse parses a single key field from a descriptor: an optional
// "[fingerprint/path]" origin followed by an extended public key, itself
// optionally followed by a derivation suffix (a plain path, a wildcard
// "*", or a multipath "<a;b>/*" range) which is accepted but discarded,
// since a PubKey tracks the key's own origin, not how a particular
// descriptor re-derives from it.
func Parse(field string) (*PubKey, error) {
	rest := field
	var origin Origin
	hasOrigin := false
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("keys: unterminated key origin in %q", field)
		}
		inner := rest[1:end]
		rest = rest[end+1:]
		mfpHex, pathStr, _ := strings.Cut(inner, "/")
		if len(mfpHex) != 8 {
			return nil, fmt.Errorf("keys: key origin fingerprint must be 8 hex chars, got %q", mfpHex)
		}
		raw, err := hex.DecodeString(mfpHex)
		if err != nil {
			return nil, fmt.Errorf("keys: invalid key origin fingerprint %q: %w", mfpHex, err)
		}
		path, err := ParsePath(pathStr)
		if err != nil {
			return nil, err
		}
		copy(origin.Fingerprint[:], raw)
		origin.Path = path
		hasOrigin = true
	}

	// Strip any trailing derivation suffix: "/*", "/<0;1>/*", or a plain
	// path. The key material itself always ends at the first "/".
	xkeyStr := rest
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		xkeyStr = rest[:idx]
	}

	xkey, err := hdkeychain.NewKeyFromString(xkeyStr)
	if err != nil {
		return nil, fmt.Errorf("keys: invalid extended key %q: %w", xkeyStr, err)
	}
	if xkey.IsPrivate() {
		return nil, fmt.Errorf("keys: extended private keys are not supported: %q", xkeyStr)
	}

	var version [4]byte
	copy(version[:], xkey.Version())
	prefix, err := chaincfg.PrefixForVersion(version)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	kind := chaincfg.KindOfPrefix(prefix)

	normalized, err := normalize(xkey, kind)
	if err != nil {
		return nil, err
	}

	pub, err := normalized.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("keys: invalid public key in %q: %w", xkeyStr, err)
	}

	return &PubKey{
		hasOrigin:     hasOrigin,
		origin:        origin,
		xkey:          normalized,
		kind:          kind,
		isUnspendable: pub.IsEqual(numsPubKey()),
	}, nil
}

// normalize rebuilds xkey under the canonical xpub/tpub version bytes for
// kind, preserving every other field. SLIP-132 prefixes (ypub, zpub,
// upub, vpub) only ever hint at an address type a wallet intended to use
// a key for; the key material and its network kind are unchanged, so
// this module always renders keys in the plain xpub/tpub form.
func normalize(xkey *hdkeychain.ExtendedKey, kind chaincfg.Kind) (*hdkeychain.ExtendedKey, error) {
	version, err := chaincfg.VersionBytes(chaincfg.StandardPrefix(kind))
	if err != nil {
		return nil, err
	}
	if bytes.Equal(xkey.Version(), version[:]) {
		return xkey, nil
	}
	pub, err := xkey.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("keys: invalid public key: %w", err)
	}
	var parentFP [4]byte
	parentFPUint := xkey.ParentFingerprint()
	parentFP[0] = byte(parentFPUint >> 24)
	parentFP[1] = byte(parentFPUint >> 16)
	parentFP[2] = byte(parentFPUint >> 8)
	parentFP[3] = byte(parentFPUint)
	return hdkeychain.NewExtendedKey(
		version[:],
		pub.SerializeCompressed(),
		xkey.ChainCode(),
		parentFP[:],
		xkey.Depth(),
		xkey.ChildIndex(),
		false,
	), nil
}

// GenerateUnspendableXpub synthesizes a deterministic, provably
// unspendable extended public key: the NUMS point as the key itself,
// with a chain code derived from the sorted, deduplicated set of
// supplied keys. Passing the same key set always yields the same NUMS
// xpub, so a descriptor built from it is reproducible.
func GenerateUnspendableXpub(keySet []*PubKey, kind chaincfg.Kind) (*PubKey, error) {
	if len(keySet) == 0 {
		return nil, fmt.Errorf("keys: cannot synthesize an unspendable key from an empty key set")
	}
	seen := make(map[string][]byte, len(keySet))
	for _, k := range keySet {
		pub, err := k.ECPubKey()
		if err != nil {
			return nil, fmt.Errorf("keys: invalid public key: %w", err)
		}
		raw := pub.SerializeCompressed()
		seen[string(raw)] = raw
	}
	serialized := make([][]byte, 0, len(seen))
	for _, raw := range seen {
		serialized = append(serialized, raw)
	}
	sort.Slice(serialized, func(i, j int) bool {
		return bytes.Compare(serialized[i], serialized[j]) < 0
	})
	h := sha256.New()
	for _, raw := range serialized {
		h.Write(raw)
	}
	chainCode := h.Sum(nil)

	version, err := chaincfg.VersionBytes(chaincfg.StandardPrefix(kind))
	if err != nil {
		return nil, err
	}
	xkey := hdkeychain.NewExtendedKey(
		version[:],
		numsPubKey().SerializeCompressed(),
		chainCode,
		[]byte{0, 0, 0, 0},
		0,
		0,
		false,
	)
	return &PubKey{
		hasOrigin:     false,
		xkey:          xkey,
		kind:          kind,
		isUnspendable: true,
	}, nil
}

// IsNUMSHex reports whether s is the bare hex encoding (with or without
// the leading 0x02 parity byte) of the NUMS point, as used when a
// Taproot internal key is written directly rather than as an extended
// key.
func IsNUMSHex(s string) bool {
	s = strings.ToLower(strings.TrimPrefix(s, "0x"))
	switch len(s) {
	case 64:
		return s == numsHex[2:]
	case 66:
		return s == numsHex
	default:
		return false
	}
}

// Hash160FingerprintHex computes the BIP-32-style fingerprint
// (RIPEMD160(SHA256(pubkey))[:4]) of a raw public key, used when a
// descriptor embeds a key directly with no "[fingerprint/path]" origin.
// An x-only (32-byte) key is first given a 0x02 parity byte, matching
// the even-y convention BIP-340 keys are normally derived under.
func Hash160FingerprintHex(rawPubKey []byte) (string, error) {
	switch len(rawPubKey) {
	case 32:
		full := make([]byte, 0, 33)
		full = append(full, 0x02)
		full = append(full, rawPubKey...)
		rawPubKey = full
	case 33:
	default:
		return "", fmt.Errorf("keys: unexpected public key length %d", len(rawPubKey))
	}
	pk, err := btcec.ParsePubKey(rawPubKey)
	if err != nil {
		return "", fmt.Errorf("keys: invalid public key: %w", err)
	}
	hash := btcutil.Hash160(pk.SerializeCompressed())
	return hex.EncodeToString(hash[:4]), nil
}
