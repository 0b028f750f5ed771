package descbuilder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/deadbolt/chaincfg"
	"github.com/toole-brendan/deadbolt/descriptor"
	"github.com/toole-brendan/deadbolt/keys"
	"github.com/toole-brendan/deadbolt/policy"
	"github.com/toole-brendan/deadbolt/weight"
)

const (
	rawKeyA = "[c449c5c5/48h/0h/0h/2h]xpub6Dtni7dearhzvCuQ3aZYC5VkDEnpjJjoCSJRxs2m6D63r1KzvgvAvQKypzqFpSZ2uaYfNx8HSgi63jcK4ZFgFCTVph1MTMZxP55L1am1Csn"
	rawKeyB = "[c61af686/48h/0h/0h/2h]xpub6EDTxSWtzPTBiQtxScLWm1sJ6By9QPrG6J5RvA3ZuKYHP1mfvyeyTG2Gy3CgnQ2ps5p6cgGTvuULfxuqQtSAvkVp9VyASus6pMFoe8mztCj"
)

func mustKey(t *testing.T, s string) *keys.PubKey {
	t.Helper()
	k, err := keys.Parse(s)
	require.NoError(t, err)
	return k
}

func TestBuildWSHSimpleMultisigFastPath(t *testing.T) {
	keyA := mustKey(t, rawKeyA)
	keyB := mustKey(t, rawKeyB)
	set := KeyLookup{"c449c5c5": keyA, "c61af686": keyB}
	defs := []policy.SpendPathDef{{Threshold: 2, MFPs: []string{"c449c5c5", "c61af686"}}}

	out, err := Build(descriptor.P2WSH, set, defs, chaincfg.KindMain)
	require.NoError(t, err)
	assert.Contains(t, out, "wsh(sortedmulti(2,")
	assert.Contains(t, out, "#")

	parsed, err := descriptor.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, descriptor.P2WSH, parsed.Template)
}

func TestBuildSingleKeyWPKH(t *testing.T) {
	keyA := mustKey(t, rawKeyA)
	set := KeyLookup{"c449c5c5": keyA}
	defs := []policy.SpendPathDef{{Threshold: 1, MFPs: []string{"c449c5c5"}}}

	out, err := Build(descriptor.P2WPKH, set, defs, chaincfg.KindMain)
	require.NoError(t, err)
	assert.Contains(t, out, "wpkh(")
	assert.Contains(t, out, "/<0;1>/*")
}

func TestBuildRecoveryLadderUsesOrAndTimelocks(t *testing.T) {
	keyA := mustKey(t, rawKeyA)
	keyB := mustKey(t, rawKeyB)
	set := KeyLookup{"c449c5c5": keyA, "c61af686": keyB}
	defs := []policy.SpendPathDef{
		{Threshold: 2, MFPs: []string{"c449c5c5", "c61af686"}},
		{Threshold: 1, MFPs: []string{"c449c5c5"}, RelTimelock: policy.RelativeTimelockFromConsensus(144)},
	}

	out, err := Build(descriptor.P2WSH, set, defs, chaincfg.KindMain)
	require.NoError(t, err)
	assert.Contains(t, out, "or_i(")
	assert.Contains(t, out, "older(144)")

	parsed, err := descriptor.Parse(out)
	require.NoError(t, err)
	node, err := policy.Parse(parsed.Script)
	require.NoError(t, err)
	paths, err := policy.ExtractSpendPaths(node, "P2WSH")
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestBuildTaprootWithKeyPathAndScriptLeaf(t *testing.T) {
	keyA := mustKey(t, rawKeyA)
	keyB := mustKey(t, rawKeyB)
	set := KeyLookup{"c449c5c5": keyA, "c61af686": keyB}
	defs := []policy.SpendPathDef{
		{Threshold: 1, MFPs: []string{"c449c5c5"}, IsKeyPath: true},
		{Threshold: 1, MFPs: []string{"c61af686"}, RelTimelock: policy.RelativeTimelockFromConsensus(144)},
	}

	out, err := Build(descriptor.P2TR, set, defs, chaincfg.KindMain)
	require.NoError(t, err)
	parsed, err := descriptor.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, descriptor.P2TR, parsed.Template)
	assert.False(t, keys.IsNUMSHex(parsed.TrInternalKey))

	paths, err := policy.ExtractTaprootSpendPaths(parsed.TrInternalKey, parsed.TrLeaves)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, policy.TrDepthKeyPath, paths[0].TrDepth)

	require.NoError(t, weight.Calibrate(paths))
	assert.Equal(t, 1, paths[1].TrDepth, "a lone tapscript leaf has no siblings but still carries a real control block")
}

func TestBuildTaprootSynthesizesNUMSWhenNoKeyPath(t *testing.T) {
	keyA := mustKey(t, rawKeyA)
	keyB := mustKey(t, rawKeyB)
	set := KeyLookup{"c449c5c5": keyA, "c61af686": keyB}
	defs := []policy.SpendPathDef{
		{Threshold: 1, MFPs: []string{"c449c5c5"}},
		{Threshold: 1, MFPs: []string{"c61af686"}},
	}

	out, err := Build(descriptor.P2TR, set, defs, chaincfg.KindMain)
	require.NoError(t, err)
	assert.NotContains(t, out, "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0")
	parsed, err := descriptor.Parse(out)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(parsed.TrInternalKey, "["))

	paths, err := policy.ExtractTaprootSpendPaths(parsed.TrInternalKey, parsed.TrLeaves)
	require.NoError(t, err)
	for _, sp := range paths {
		assert.True(t, sp.IsTrScript, "a synthesized NUMS internal key must not produce a key-path entry")
	}
}

func TestBuildMissingKeyFails(t *testing.T) {
	set := KeyLookup{}
	defs := []policy.SpendPathDef{{Threshold: 1, MFPs: []string{"deadbeef"}}}
	_, err := Build(descriptor.P2WPKH, set, defs, chaincfg.KindMain)
	require.Error(t, err)
	var be *BuilderError
	assert.ErrorAs(t, err, &be)
}
