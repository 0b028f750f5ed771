package chaincfg

import "fmt"

// HDKeyPrefix is the base58 prefix family of a BIP-32 extended public key,
// as distinguished by its four-byte version prefix (SLIP-132).
type HDKeyPrefix string

const (
	PrefixXpub HDKeyPrefix = "xpub" // P2PKH/P2SH, mainnet
	PrefixYpub HDKeyPrefix = "ypub" // P2SH-P2WPKH, mainnet
	PrefixZpub HDKeyPrefix = "zpub" // P2WPKH, mainnet
	PrefixTpub HDKeyPrefix = "tpub" // P2PKH/P2SH, test
	PrefixUpub HDKeyPrefix = "upub" // P2SH-P2WPKH, test
	PrefixVpub HDKeyPrefix = "vpub" // P2WPKH, test
)

// hdVersions maps each recognized prefix to its four-byte version bytes.
var hdVersions = map[HDKeyPrefix][4]byte{
	PrefixXpub: {0x04, 0x88, 0xB2, 0x1E},
	PrefixYpub: {0x04, 0x9D, 0x7C, 0xB2},
	PrefixZpub: {0x04, 0xB2, 0x47, 0x46},
	PrefixTpub: {0x04, 0x35, 0x87, 0xCF},
	PrefixUpub: {0x04, 0x4A, 0x52, 0x62},
	PrefixVpub: {0x04, 0x5F, 0x1C, 0xF6},
}

var prefixByVersion = func() map[[4]byte]HDKeyPrefix {
	m := make(map[[4]byte]HDKeyPrefix, len(hdVersions))
	for prefix, version := range hdVersions {
		m[version] = prefix
	}
	return m
}()

var prefixKind = map[HDKeyPrefix]Kind{
	PrefixXpub: KindMain,
	PrefixYpub: KindMain,
	PrefixZpub: KindMain,
	PrefixTpub: KindTest,
	PrefixUpub: KindTest,
	PrefixVpub: KindTest,
}

// VersionBytes returns the four-byte BIP-32 version prefix for p.
func VersionBytes(p HDKeyPrefix) ([4]byte, error) {
	v, ok := hdVersions[p]
	if !ok {
		return [4]byte{}, fmt.Errorf("chaincfg: unknown hd key prefix %q", p)
	}
	return v, nil
}

// PrefixForVersion identifies the SLIP-132 prefix carried by a decoded
// extended key's four version bytes.
func PrefixForVersion(version [4]byte) (HDKeyPrefix, error) {
	p, ok := prefixByVersion[version]
	if !ok {
		return "", fmt.Errorf("chaincfg: unrecognized extended key version %x", version[:])
	}
	return p, nil
}

// KindOfPrefix reports whether p belongs to a mainnet or test-family key.
func KindOfPrefix(p HDKeyPrefix) Kind {
	return prefixKind[p]
}

// StandardPrefix returns the canonical xpub/tpub prefix for the given
// kind. Keys parsed under a SLIP-132 multisig/segwit prefix (ypub, zpub,
// upub, vpub) are normalized to this form when re-serialized, since this
// module tracks key material, not the address type a prefix once hinted
// at.
func StandardPrefix(k Kind) HDKeyPrefix {
	if k == KindMain {
		return PrefixXpub
	}
	return PrefixTpub
}
