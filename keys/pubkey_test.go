package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/deadbolt/chaincfg"
)

const (
	testnetKeyField = "[73c5da0a/44h/1h/0h]tpubDC5FSnBiZDMmhiuCmWAYsLwgLYrrT9rAqvTySfuCCrgsWz8wxMXUS9Tb9iVMvcRbvFcAHGkMD5Kx8koh4GquNGNTfohfk7pgjhaPCdXpoba"
	mainnetKeyA     = "[c449c5c5/48h/0h/0h/2h]xpub6Dtni7dearhzvCuQ3aZYC5VkDEnpjJjoCSJRxs2m6D63r1KzvgvAvQKypzqFpSZ2uaYfNx8HSgi63jcK4ZFgFCTVph1MTMZxP55L1am1Csn"
)

func TestParseNormalizesHardenedMarker(t *testing.T) {
	k, err := Parse(testnetKeyField)
	require.NoError(t, err)
	assert.Equal(t, "73c5da0a", k.Fingerprint())
	assert.Equal(t, "44'/1'/0'", k.DerivationPath().String())
	assert.Equal(t, chaincfg.KindTest, k.Kind())
	assert.False(t, k.IsUnspendable())
}

func TestParseRejectsPrivateKeys(t *testing.T) {
	_, err := Parse("tprv8ZgxMBicQKsPd9TeAdPADNnSyH9SSUUbTVeFszDE23Ki6TBB5nCV78ZdF4dXVtVzAUqukDQ9KJgEMvXLaP79WIpXdnLaY9phAXQN9sXBynJ")
	assert.Error(t, err)
}

func TestParseRejectsBadFingerprint(t *testing.T) {
	_, err := Parse("[zz]xpub6Dtni7dearhzvCuQ3aZYC5VkDEnpjJjoCSJRxs2m6D63r1KzvgvAvQKypzqFpSZ2uaYfNx8HSgi63jcK4ZFgFCTVph1MTMZxP55L1am1Csn")
	assert.Error(t, err)
}

func TestIsCompatibleWithNetwork(t *testing.T) {
	k, err := Parse(testnetKeyField)
	require.NoError(t, err)
	assert.False(t, k.IsCompatibleWithNetwork(chaincfg.Bitcoin))
	assert.True(t, k.IsCompatibleWithNetwork(chaincfg.Signet))
	assert.True(t, k.IsCompatibleWithNetwork(chaincfg.Testnet))
}

func TestGenerateUnspendableXpubIsDeterministic(t *testing.T) {
	a, err := Parse(mainnetKeyA)
	require.NoError(t, err)

	nums1, err := GenerateUnspendableXpub([]*PubKey{a}, chaincfg.KindMain)
	require.NoError(t, err)
	nums2, err := GenerateUnspendableXpub([]*PubKey{a}, chaincfg.KindMain)
	require.NoError(t, err)

	assert.Equal(t, nums1.Xpub(), nums2.Xpub())
	assert.True(t, nums1.IsUnspendable())
}

func TestGenerateUnspendableXpubRequiresKeys(t *testing.T) {
	_, err := GenerateUnspendableXpub(nil, chaincfg.KindMain)
	assert.Error(t, err)
}

func TestIsNUMSHex(t *testing.T) {
	assert.True(t, IsNUMSHex("0250929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"))
	assert.True(t, IsNUMSHex("50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"))
	assert.False(t, IsNUMSHex("abcd"))
}
