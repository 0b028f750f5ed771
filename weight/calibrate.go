package weight

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/toole-brendan/deadbolt/policy"
)

// Calibrate assigns Taproot tree depths and populates the weight-unit
// fields of every spend path in paths, which must all have come from
// the same descriptor (so that Taproot leaf indices line up).
func Calibrate(paths []*policy.SpendPath) error {
	assignTaprootDepths(paths)
	for _, sp := range paths {
		if err := calibrateOne(sp); err != nil {
			return err
		}
	}
	return nil
}

func assignTaprootDepths(paths []*policy.SpendPath) {
	maxLeaf := -1
	for _, sp := range paths {
		if sp.IsTrScript && sp.LeafIndex() > maxLeaf {
			maxLeaf = sp.LeafIndex()
		}
	}
	if maxLeaf < 0 {
		return
	}
	depths := balancedDepths(maxLeaf + 1)
	for _, sp := range paths {
		if sp.IsTrScript {
			sp.SetTrDepth(depths[sp.LeafIndex()])
		}
	}
}

// calibrateOne solves the affine weight model
//
//	weight(nIn, nOut) = base + nIn*wuIn + nOut*wuOut
//
// from three dummy transactions shaped (1,1), (1,2) and (2,1), each
// spending sp through every input.
func calibrateOne(sp *policy.SpendPath) error {
	w11, err := dummyTxWeight(sp, 1, 1)
	if err != nil {
		return err
	}
	w12, err := dummyTxWeight(sp, 1, 2)
	if err != nil {
		return err
	}
	w21, err := dummyTxWeight(sp, 2, 1)
	if err != nil {
		return err
	}

	wuOut := w12 - w11
	wuIn := w21 - w11
	wuBase := w11 - wuIn - wuOut

	sp.WuBase = uint32(wuBase)
	sp.WuIn = uint32(wuIn)
	sp.WuOut = uint32(wuOut)
	return nil
}

func dummyTxWeight(sp *policy.SpendPath, numIn, numOut int) (int64, error) {
	scriptSig, witness, err := spendScripts(sp)
	if err != nil {
		return 0, err
	}
	pkScript, err := outputScript(sp.AddrType)
	if err != nil {
		return 0, err
	}

	tx := wire.NewMsgTx(2)
	for i := 0; i < numIn; i++ {
		prevOut := wire.OutPoint{Hash: chainhash.Hash{}, Index: uint32(i)}
		tx.AddTxIn(wire.NewTxIn(&prevOut, scriptSig, witness))
	}
	for i := 0; i < numOut; i++ {
		tx.AddTxOut(wire.NewTxOut(0, pkScript))
	}

	return int64(3*tx.SerializeSizeStripped() + tx.SerializeSize()), nil
}
