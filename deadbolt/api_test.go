package deadbolt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/deadbolt/chaincfg"
	"github.com/toole-brendan/deadbolt/descbuilder"
	"github.com/toole-brendan/deadbolt/descriptor"
	"github.com/toole-brendan/deadbolt/keys"
	"github.com/toole-brendan/deadbolt/policy"
)

const (
	rawKeyA = "[c449c5c5/48h/0h/0h/2h]xpub6Dtni7dearhzvCuQ3aZYC5VkDEnpjJjoCSJRxs2m6D63r1KzvgvAvQKypzqFpSZ2uaYfNx8HSgi63jcK4ZFgFCTVph1MTMZxP55L1am1Csn"
	rawKeyB = "[c61af686/48h/0h/0h/2h]xpub6EDTxSWtzPTBiQtxScLWm1sJ6By9QPrG6J5RvA3ZuKYHP1mfvyeyTG2Gy3CgnQ2ps5p6cgGTvuULfxuqQtSAvkVp9VyASus6pMFoe8mztCj"
)

func TestAnalyzeDescriptorReportsKindOnBadSyntax(t *testing.T) {
	_, err := AnalyzeDescriptor("not_a_descriptor(")
	require.Error(t, err)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindInvalidDescriptorSyntax, de.Kind)
}

func TestAnalyzeDescriptorReportsNetworkDetectionFailed(t *testing.T) {
	_, err := AnalyzeDescriptor("wsh(sortedmulti(2," + rawKeyA + ",[73c5da0a/44h/1h/0h]tpubDC5FSnBiZDMmhiuCmWAYsLwgLYrrT9rAqvTySfuCCrgsWz8wxMXUS9Rb7PPqCT1M7Ar7pMoDMcR2a1HXA2yDgPi8NsXxtRwiGkUVkuyUaak))")
	require.Error(t, err)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindNetworkDetectionFailed, de.Kind)
}

func TestBuildDescriptorReportsBuilderErrorKind(t *testing.T) {
	set := descbuilder.KeyLookup{}
	defs := []policy.SpendPathDef{{Threshold: 1, MFPs: []string{"deadbeef"}}}
	_, err := BuildDescriptor(descriptor.P2WPKH, set, defs, chaincfg.KindMain)
	require.Error(t, err)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindBuilderError, de.Kind)
}

func TestCalculateSpendPathIDStableUnderPermutation(t *testing.T) {
	id1, err := CalculateSpendPathID(2, []string{"c449c5c5", "c61af686"}, 144, 0)
	require.NoError(t, err)
	id2, err := CalculateSpendPathID(2, []string{"c61af686", "c449c5c5"}, 144, 0)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := CalculateSpendPathID(2, []string{"c449c5c5", "c61af686"}, 145, 0)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestValidateKeyAcceptsMatchingOriginAndNetwork(t *testing.T) {
	k, err := keys.Parse(rawKeyA)
	require.NoError(t, err)
	err = ValidateKey("c449c5c5", "48h/0h/0h/2h", k.Xpub(), chaincfg.Bitcoin)
	assert.NoError(t, err)
}

func TestValidateKeyRejectsMismatchedFingerprint(t *testing.T) {
	k, err := keys.Parse(rawKeyA)
	require.NoError(t, err)
	err = ValidateKey("deadbeef", "48h/0h/0h/2h", k.Xpub(), chaincfg.Bitcoin)
	require.Error(t, err)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindUnsupportedKey, de.Kind)
}

func TestClassifySpendPathErrorMapsInvariantKinds(t *testing.T) {
	cases := []struct {
		kind policy.InvariantKind
		want Kind
	}{
		{policy.InvariantMissingThreshold, KindMissingThreshold},
		{policy.InvariantMissingFingerprint, KindMissingFingerprint},
		{policy.InvariantMissingPolicy, KindMissingPolicy},
		{policy.InvariantMissingSpendPath, KindMissingSpendPath},
		{policy.InvariantMissingSpendWeight, KindMissingSpendWeight},
	}
	for _, c := range cases {
		err := classifySpendPathError(&policy.InvariantError{Kind: c.kind, Msg: "test"}, "desc")
		var de *Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, c.want, de.Kind)
	}
}

func TestClassifySpendPathErrorFallsBackOnUntaggedError(t *testing.T) {
	err := classifySpendPathError(assert.AnError, "desc")
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindUnsupportedDescriptor, de.Kind)
}

func TestDecodeLegacyTimelocksRoundTrip(t *testing.T) {
	rel := DecodeLegacyRelTimelock(144)
	assert.Equal(t, policy.RelativeBlocks, rel.Kind)
	assert.EqualValues(t, 144, rel.Value)

	abs := DecodeLegacyAbsTimelock(700_000)
	assert.Equal(t, policy.AbsoluteBlocks, abs.Kind)
	assert.EqualValues(t, 700_000, abs.Value)
}
