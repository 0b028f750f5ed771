package policy

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSignatureLeaf(t *testing.T) {
	node, err := Parse("pk(" + keyA + ")")
	require.NoError(t, err)
	script, err := Compile(node, Segwitv0)
	require.NoError(t, err)

	disasm, err := txscript.DisasmString(script)
	require.NoError(t, err)
	assert.Contains(t, disasm, "OP_CHECKSIG")
}

func TestCompileMultisigLegacyUsesCheckMultisig(t *testing.T) {
	node, err := Parse("sortedmulti(2," + keyA + "," + keyB + ")")
	require.NoError(t, err)
	script, err := Compile(node, Legacy)
	require.NoError(t, err)

	disasm, err := txscript.DisasmString(script)
	require.NoError(t, err)
	assert.Contains(t, disasm, "OP_CHECKMULTISIG")
}

func TestCompileMultisigTapUsesCheckSigAdd(t *testing.T) {
	node, err := Parse("multi_a(2," + keyA + "," + keyB + ")")
	require.NoError(t, err)
	script, err := Compile(node, Tap)
	require.NoError(t, err)

	disasm, err := txscript.DisasmString(script)
	require.NoError(t, err)
	assert.Contains(t, disasm, "OP_CHECKSIGADD")
	assert.Contains(t, disasm, "OP_NUMEQUAL")
}

func TestCompileOrBranches(t *testing.T) {
	node, err := Parse("or_i(pk(" + keyA + "),pk(" + keyB + "))")
	require.NoError(t, err)
	script, err := Compile(node, Segwitv0)
	require.NoError(t, err)

	disasm, err := txscript.DisasmString(script)
	require.NoError(t, err)
	assert.Contains(t, disasm, "OP_IF")
	assert.Contains(t, disasm, "OP_ELSE")
	assert.Contains(t, disasm, "OP_ENDIF")
}

func TestCompileThreshGenericUsesAddChain(t *testing.T) {
	node, err := Parse("thresh(2,pk(" + keyA + "),pk(" + keyB + "),older(144))")
	require.NoError(t, err)
	script, err := Compile(node, Segwitv0)
	require.NoError(t, err)

	disasm, err := txscript.DisasmString(script)
	require.NoError(t, err)
	assert.Contains(t, disasm, "OP_ADD")
	assert.Contains(t, disasm, "OP_EQUAL")
}

func TestCompileRejectsXOnlyKeyOutsideTap(t *testing.T) {
	// A bare 32-byte x-only key is only valid script material inside a
	// tapscript leaf.
	node := Signature{Key: KeyRef{Raw: "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"}}
	_, err := Compile(node, Segwitv0)
	assert.Error(t, err)
}
