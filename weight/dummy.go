// Package weight estimates the real transaction weight a descriptor's
// spend paths will cost, by assembling dummy transactions that spend
// through each path's compiled script and measuring their serialized
// size per BIP-141.
package weight

import "github.com/toole-brendan/deadbolt/policy"

// Dummy signature payloads. Their content is never verified by anything
// in this module, so only their length needs to match what a real
// signer would produce: a worst-case 71-byte DER-encoded ECDSA
// signature plus a one-byte sighash type for Legacy/Segwitv0 spends,
// and a 64-byte default-sighash Schnorr signature for Taproot spends.
const (
	ecdsaDummySigLen   = 72
	schnorrDummySigLen = 64
)

func dummySig(ctx policy.Context) []byte {
	n := ecdsaDummySigLen
	if ctx == policy.Tap {
		n = schnorrDummySigLen
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xAB
	}
	return b
}
