package weight

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/toole-brendan/deadbolt/policy"
)

var (
	dummyHash160 = make([]byte, 20)
	dummyHash256 = make([]byte, 32)
)

func init() {
	for i := range dummyHash160 {
		dummyHash160[i] = 0xCD
	}
	for i := range dummyHash256 {
		dummyHash256[i] = 0xCD
	}
}

// outputScript builds the scriptPubKey a dummy output of the given
// address type would carry.
func outputScript(addrType string) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	switch addrType {
	case "P2PKH":
		b.AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).AddData(dummyHash160).
			AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG)
	case "P2WPKH":
		b.AddOp(txscript.OP_0).AddData(dummyHash160)
	case "P2SH", "P2SH-WPKH", "P2SH-WSH":
		b.AddOp(txscript.OP_HASH160).AddData(dummyHash160).AddOp(txscript.OP_EQUAL)
	case "P2WSH":
		b.AddOp(txscript.OP_0).AddData(dummyHash256)
	case "P2TR":
		b.AddOp(txscript.OP_1).AddData(dummyHash256)
	default:
		return nil, &policy.InvariantError{Kind: policy.InvariantMissingSpendWeight, Msg: fmt.Sprintf("unsupported address type %q", addrType)}
	}
	return b.Script()
}

// controlBlock synthesizes a placeholder Taproot control block of the
// length a real one would have at the given tree depth: one leaf
// version/parity byte, one 32-byte internal key, and depth further
// 32-byte sibling hashes (BIP-341).
func controlBlock(depth int) []byte {
	cb := make([]byte, 33+32*depth)
	for i := range cb {
		cb[i] = 0xC0
	}
	return cb
}

// balancedDepths returns, for n tapscript leaves assembled into a
// balanced binary tree by repeatedly splitting the leaf set in half,
// the tr_depth of each leaf in leaf order: one more than its sibling
// hash count, so a lone leaf (no siblings) still reports depth 1 and
// never collides with TrDepthKeyPath. It approximates the real tree
// shape of an analyzed descriptor (whose brace-nested tree structure
// is not retained past parsing). It matches the shape this module's
// own descriptor synthesizer builds when every script path shares one
// priority; when several priority layers are folded together, the
// real leaf depths can differ from the ones returned here.
func balancedDepths(n int) []int {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []int{1}
	}
	left := n / 2
	right := n - left
	out := make([]int, 0, n)
	for _, d := range balancedDepths(left) {
		out = append(out, d+1)
	}
	for _, d := range balancedDepths(right) {
		out = append(out, d+1)
	}
	return out
}

// spendScripts builds the scriptSig and witness a dummy spend of sp
// would carry.
func spendScripts(sp *policy.SpendPath) (scriptSig []byte, witness [][]byte, err error) {
	switch {
	case sp.AddrType == "P2TR" && sp.TrDepth == policy.TrDepthKeyPath:
		return nil, [][]byte{dummySig(policy.Tap)}, nil

	case sp.AddrType == "P2TR" && sp.IsTrScript:
		items, err := collectWitnessItems(sp.Root(), sp.BranchPath(), policy.Tap)
		if err != nil {
			return nil, nil, err
		}
		tapscript, err := policy.Compile(sp.Root(), policy.Tap)
		if err != nil {
			return nil, nil, err
		}
		depth := sp.TrDepth
		if depth < 1 {
			depth = 1
		}
		witness := append(append([][]byte{}, items...), tapscript, controlBlock(depth-1))
		return nil, witness, nil

	case sp.AddrType == "P2WPKH":
		return nil, [][]byte{dummySig(policy.Segwitv0), dummyCompressedPubKey()}, nil

	case sp.AddrType == "P2WSH":
		items, err := collectWitnessItems(sp.Root(), sp.BranchPath(), policy.Segwitv0)
		if err != nil {
			return nil, nil, err
		}
		script, err := policy.Compile(sp.Root(), policy.Segwitv0)
		if err != nil {
			return nil, nil, err
		}
		return nil, append(append([][]byte{}, items...), script), nil

	case sp.AddrType == "P2PKH":
		b := txscript.NewScriptBuilder()
		b.AddData(dummySig(policy.Legacy)).AddData(dummyCompressedPubKey())
		script, err := b.Script()
		return script, nil, err

	case sp.AddrType == "P2SH-WPKH":
		b := txscript.NewScriptBuilder()
		redeem, err := (func() ([]byte, error) {
			ib := txscript.NewScriptBuilder()
			ib.AddOp(txscript.OP_0).AddData(dummyHash160)
			return ib.Script()
		})()
		if err != nil {
			return nil, nil, err
		}
		b.AddData(redeem)
		script, err := b.Script()
		if err != nil {
			return nil, nil, err
		}
		return script, [][]byte{dummySig(policy.Segwitv0), dummyCompressedPubKey()}, nil

	case sp.AddrType == "P2SH-WSH":
		witnessScript, err := policy.Compile(sp.Root(), policy.Segwitv0)
		if err != nil {
			return nil, nil, err
		}
		items, err := collectWitnessItems(sp.Root(), sp.BranchPath(), policy.Segwitv0)
		if err != nil {
			return nil, nil, err
		}
		ib := txscript.NewScriptBuilder()
		ib.AddOp(txscript.OP_0).AddData(dummyHash256)
		redeem, err := ib.Script()
		if err != nil {
			return nil, nil, err
		}
		b := txscript.NewScriptBuilder()
		b.AddData(redeem)
		script, err := b.Script()
		if err != nil {
			return nil, nil, err
		}
		return script, append(append([][]byte{}, items...), witnessScript), nil

	case sp.AddrType == "P2SH":
		redeem, err := policy.Compile(sp.Root(), policy.Legacy)
		if err != nil {
			return nil, nil, err
		}
		items, err := collectWitnessItems(sp.Root(), sp.BranchPath(), policy.Legacy)
		if err != nil {
			return nil, nil, err
		}
		b := txscript.NewScriptBuilder()
		for _, item := range items {
			b.AddData(item)
		}
		b.AddData(redeem)
		script, err := b.Script()
		return script, nil, err

	default:
		return nil, nil, &policy.InvariantError{Kind: policy.InvariantMissingSpendWeight, Msg: fmt.Sprintf("unsupported address type %q", sp.AddrType)}
	}
}

func dummyCompressedPubKey() []byte {
	b := make([]byte, 33)
	b[0] = 0x02
	for i := 1; i < 33; i++ {
		b[i] = 0xEF
	}
	return b
}
