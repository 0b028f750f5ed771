package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyA = "[c449c5c5/48h/0h/0h/2h]xpub6Dtni7dearhzvCuQ3aZYC5VkDEnpjJjoCSJRxs2m6D63r1KzvgvAvQKypzqFpSZ2uaYfNx8HSgi63jcK4ZFgFCTVph1MTMZxP55L1am1Csn"
	keyB = "[c61af686/48h/0h/0h/2h]xpub6EDTxSWtzPTBiQtxScLWm1sJ6By9QPrG6J5RvA3ZuKYHP1mfvyeyTG2Gy3CgnQ2ps5p6cgGTvuULfxuqQtSAvkVp9VyASus6pMFoe8mztCj"
)

func TestExtractSpendPathsSimpleMultisig(t *testing.T) {
	node, err := Parse("sortedmulti(2," + keyA + "," + keyB + ")")
	require.NoError(t, err)

	paths, err := ExtractSpendPaths(node, "P2WSH")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, 2, paths[0].Threshold)
	assert.ElementsMatch(t, []string{"c449c5c5", "c61af686"}, paths[0].MFPs)
	assert.Equal(t, TrDepthNone, paths[0].TrDepth)
}

func TestExtractSpendPathsRecoveryLadder(t *testing.T) {
	// 2-of-2 primary after 1 block, or key A alone after 144 blocks, or key B alone after 1008 blocks.
	expr := "thresh(1," +
		"and_v(v:thresh(2,pk(" + keyA + "),pk(" + keyB + ")),older(1))," +
		"or_i(" +
		"and_v(v:pk(" + keyA + "),older(144))," +
		"and_v(v:pk(" + keyB + "),older(1008))" +
		")" +
		")"
	node, err := Parse(expr)
	require.NoError(t, err)

	paths, err := ExtractSpendPaths(node, "P2WSH")
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Equal(t, 2, paths[0].Threshold)
	assert.Equal(t, uint32(144), paths[1].RelTimelock.Value)
	assert.Equal(t, uint32(1008), paths[2].RelTimelock.Value)
}

func TestExtractTaprootSpendPathsKeyPathAndLeaves(t *testing.T) {
	leaves := []string{
		"pk(" + keyA + ")",
		"pk(" + keyB + ")",
	}
	paths, err := ExtractTaprootSpendPaths(keyA, leaves)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Equal(t, TrDepthKeyPath, paths[0].TrDepth)
	assert.False(t, paths[0].IsTrScript)
	assert.True(t, paths[1].IsTrScript)
	assert.Equal(t, TrDepthUnmeasured, paths[1].TrDepth)
}

func TestExtractTaprootSpendPathsNUMSOnlyHasNoKeyPath(t *testing.T) {
	nums := "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"
	paths, err := ExtractTaprootSpendPaths(nums, nil)
	require.Error(t, err)
	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, InvariantMissingSpendPath, ie.Kind)
	assert.Empty(t, paths)
}

func TestExtractSpendPathsReportsMissingPolicyForBareChoiceLeaf(t *testing.T) {
	// An Or nested under a Thresh (as Parse produces for
	// thresh(1,or_i(...))) is never branched on by walkChoice, so
	// accumulate must reject it rather than silently drop the choice.
	node := Thresh{Threshold: 1, Items: []Node{Or{Items: []Node{Signature{}, Signature{}}}}}
	b := &builder{}
	err := accumulate(node, b)
	require.Error(t, err)
	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, InvariantMissingPolicy, ie.Kind)
}

func TestSpendPathBuilderReportsMissingThresholdAndFingerprint(t *testing.T) {
	_, err := (&builder{}).build()
	require.Error(t, err)
	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, InvariantMissingThreshold, ie.Kind)

	_, err = (&builder{threshold: 1}).build()
	require.Error(t, err)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, InvariantMissingFingerprint, ie.Kind)
}

func TestSpendPathIDIsDeterministic(t *testing.T) {
	node, err := Parse("sortedmulti(2," + keyA + "," + keyB + ")")
	require.NoError(t, err)
	p1, err := ExtractSpendPaths(node, "P2WSH")
	require.NoError(t, err)
	p2, err := ExtractSpendPaths(node, "P2WSH")
	require.NoError(t, err)
	assert.Equal(t, p1[0].ID, p2[0].ID)
}

func TestAbsoluteTimelockBoundary(t *testing.T) {
	_, err := AbsoluteTimelock{Kind: AbsoluteBlocks, Value: 500_000_000}.ToConsensus()
	assert.Error(t, err)
	_, err = AbsoluteTimelock{Kind: AbsoluteTimestamp, Value: 499_999_999}.ToConsensus()
	assert.Error(t, err)
	v, err := AbsoluteTimelock{Kind: AbsoluteBlocks, Value: 800_000}.ToConsensus()
	require.NoError(t, err)
	assert.Equal(t, uint32(800_000), v)
}

func TestRelativeTimelockTimeRoundTrip(t *testing.T) {
	rt := RelativeTimelockFromConsensus(0x00400000 | (86400 / 512))
	assert.Equal(t, RelativeTime, rt.Kind)
	v, err := rt.ToConsensus()
	require.NoError(t, err)
	back := RelativeTimelockFromConsensus(v)
	assert.InDelta(t, rt.Value, back.Value, 511)
}
