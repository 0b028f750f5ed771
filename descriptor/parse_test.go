package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/deadbolt/chaincfg"
)

const (
	testnetPKH = "pkh([73c5da0a/44'/1'/0']tpubDC5FSnBiZDMmhiuCmWAYsLwgLYrrT9rAqvTySfuCCrgsWz8wxMXUS9Tb9iVMvcRbvFcAHGkMD5Kx8koh4GquNGNTfohfk7pgjhaPCdXpoba/0/*)"

	mainnetKeyA = "[c449c5c5/48h/0h/0h/2h]xpub6Dtni7dearhzvCuQ3aZYC5VkDEnpjJjoCSJRxs2m6D63r1KzvgvAvQKypzqFpSZ2uaYfNx8HSgi63jcK4ZFgFCTVph1MTMZxP55L1am1Csn"
	mainnetKeyB = "[c61af686/48h/0h/0h/2h]xpub6EDTxSWtzPTBiQtxScLWm1sJ6By9QPrG6J5RvA3ZuKYHP1mfvyeyTG2Gy3CgnQ2ps5p6cgGTvuULfxuqQtSAvkVp9VyASus6pMFoe8mztCj"

	numsHex = "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"
)

func TestParsePKH(t *testing.T) {
	d, err := Parse(testnetPKH)
	require.NoError(t, err)
	assert.Equal(t, P2PKH, d.Template)

	net, err := DetectNetwork(d.Raw)
	require.NoError(t, err)
	assert.Equal(t, chaincfg.Testnet, net)

	ks, err := d.ExtractKeys()
	require.NoError(t, err)
	require.Len(t, ks, 1)
	assert.Equal(t, "73c5da0a", ks[0].Fingerprint())
}

func TestParseWSHMainnetMultisig(t *testing.T) {
	body := "wsh(sortedmulti(2," + mainnetKeyA + "/<0;1>/*," + mainnetKeyB + "/<2;3>/*))"
	d, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, P2WSH, d.Template)

	net, err := DetectNetwork(d.Raw)
	require.NoError(t, err)
	assert.Equal(t, chaincfg.Bitcoin, net)

	ks, err := d.ExtractKeys()
	require.NoError(t, err)
	require.Len(t, ks, 2)
	assert.Equal(t, "c449c5c5", ks[0].Fingerprint())
	assert.Equal(t, "c61af686", ks[1].Fingerprint())
}

func TestParseTaprootNUMSOnly(t *testing.T) {
	d, err := Parse("tr(" + numsHex + ")")
	require.NoError(t, err)
	assert.Equal(t, P2TR, d.Template)
	assert.Equal(t, numsHex, d.TrInternalKey)
	assert.Empty(t, d.TrLeaves)

	ks, err := d.ExtractKeys()
	require.NoError(t, err)
	assert.Empty(t, ks)
}

func TestParseTaprootWithScriptPaths(t *testing.T) {
	tree := "{pk(" + mainnetKeyA + "/<0;1>/*),pk(" + mainnetKeyB + "/<0;1>/*)}"
	d, err := Parse("tr(" + numsHex + "," + tree + ")")
	require.NoError(t, err)
	assert.Equal(t, P2TR, d.Template)
	require.Len(t, d.TrLeaves, 2)
	assert.Contains(t, d.TrLeaves[0], "c449c5c5")
	assert.Contains(t, d.TrLeaves[1], "c61af686")
}

func TestParseInvalidChecksumRejected(t *testing.T) {
	_, err := Parse(testnetPKH + "#aaaaaaaa")
	assert.Error(t, err)
}

func TestAppendChecksumRoundTrips(t *testing.T) {
	withSum, err := AppendChecksum(testnetPKH)
	require.NoError(t, err)
	_, err = Parse(withSum)
	assert.NoError(t, err)
}

func TestDetectNetworkMixedKeysErrors(t *testing.T) {
	_, err := DetectNetwork(mainnetKeyA + " " + "tpubDC5FSnBiZDMmhiuCmWAYsLwgLYrrT9rAqvTySfuCCrgsWz8wxMXUS9Tb9iVMvcRbvFcAHGkMD5Kx8koh4GquNGNTfohfk7pgjhaPCdXpoba")
	assert.Error(t, err)
}
