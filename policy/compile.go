package policy

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// Context selects which script dialect Compile targets: Legacy and
// Segwitv0 share OP_CHECKMULTISIG-style multisig and 33-byte compressed
// keys; Tap uses the BIP-342 OP_CHECKSIGADD chain and 32-byte x-only
// keys.
type Context int

const (
	Legacy Context = iota
	Segwitv0
	Tap
)

// Compile renders a policy node into its corresponding Bitcoin script,
// suitable for measuring the real weight of a transaction that spends
// it. It targets accurate byte sizes, not a literal reproduction of
// rust-miniscript's exact compiled form: sub-conditions are verified in
// sequence and a final OP_1 supplies the top-level truth value, rather
// than threading miniscript's verify/non-verify fragment types through
// every combinator.
func Compile(node Node, ctx Context) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	if err := compile(b, node, ctx, false); err != nil {
		return nil, err
	}
	return b.Script()
}

func compile(b *txscript.ScriptBuilder, node Node, ctx Context, verify bool) error {
	switch n := node.(type) {
	case Signature:
		key, err := keyBytes(n.Key, ctx)
		if err != nil {
			return err
		}
		b.AddData(key)
		if verify {
			b.AddOp(txscript.OP_CHECKSIGVERIFY)
		} else {
			b.AddOp(txscript.OP_CHECKSIG)
		}

	case Multisig:
		if err := compileMultisig(b, n, ctx, verify); err != nil {
			return err
		}

	case RelTimelock:
		b.AddInt64(int64(n.Value))
		b.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
		b.AddOp(txscript.OP_DROP)
		if !verify {
			b.AddOp(txscript.OP_1)
		}

	case AbsTimelock:
		b.AddInt64(int64(n.Value))
		b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
		b.AddOp(txscript.OP_DROP)
		if !verify {
			b.AddOp(txscript.OP_1)
		}

	case Thresh:
		if n.Threshold == len(n.Items) {
			for _, item := range n.Items {
				if err := compile(b, item, ctx, true); err != nil {
					return err
				}
			}
			if !verify {
				b.AddOp(txscript.OP_1)
			}
			return nil
		}
		for i, item := range n.Items {
			if err := compile(b, item, ctx, false); err != nil {
				return err
			}
			if i > 0 {
				b.AddOp(txscript.OP_ADD)
			}
		}
		b.AddInt64(int64(n.Threshold))
		if verify {
			b.AddOp(txscript.OP_EQUALVERIFY)
		} else {
			b.AddOp(txscript.OP_EQUAL)
		}

	case Or:
		return compileOr(b, n, ctx, verify)

	default:
		return fmt.Errorf("policy: cannot compile node of type %T", node)
	}
	return nil
}

func compileOr(b *txscript.ScriptBuilder, or Or, ctx Context, verify bool) error {
	if len(or.Items) < 2 {
		return fmt.Errorf("policy: or_i requires at least two branches")
	}
	b.AddOp(txscript.OP_IF)
	if err := compile(b, or.Items[0], ctx, verify); err != nil {
		return err
	}
	b.AddOp(txscript.OP_ELSE)
	if len(or.Items) == 2 {
		if err := compile(b, or.Items[1], ctx, verify); err != nil {
			return err
		}
	} else {
		if err := compileOr(b, Or{Items: or.Items[1:]}, ctx, verify); err != nil {
			return err
		}
	}
	b.AddOp(txscript.OP_ENDIF)
	return nil
}

func compileMultisig(b *txscript.ScriptBuilder, m Multisig, ctx Context, verify bool) error {
	if ctx == Tap {
		for i, k := range m.Keys {
			key, err := keyBytes(k, ctx)
			if err != nil {
				return err
			}
			b.AddData(key)
			if i == 0 {
				b.AddOp(txscript.OP_CHECKSIG)
			} else {
				b.AddOp(txscript.OP_CHECKSIGADD)
			}
		}
		b.AddInt64(int64(m.Threshold))
		if verify {
			b.AddOp(txscript.OP_NUMEQUALVERIFY)
		} else {
			b.AddOp(txscript.OP_NUMEQUAL)
		}
		return nil
	}

	b.AddInt64(int64(m.Threshold))
	for _, k := range m.Keys {
		key, err := keyBytes(k, ctx)
		if err != nil {
			return err
		}
		b.AddData(key)
	}
	b.AddInt64(int64(len(m.Keys)))
	if verify {
		b.AddOp(txscript.OP_CHECKMULTISIGVERIFY)
	} else {
		b.AddOp(txscript.OP_CHECKMULTISIG)
	}
	return nil
}

// keyBytes returns a key's serialized form for the given script
// context: 32-byte x-only for Tap, 33-byte compressed otherwise.
func keyBytes(k KeyRef, ctx Context) ([]byte, error) {
	var raw []byte
	if k.Key != nil {
		pub, err := k.Key.ECPubKey()
		if err != nil {
			return nil, err
		}
		raw = pub.SerializeCompressed()
	} else {
		decoded, err := hex.DecodeString(k.Raw)
		if err != nil {
			return nil, err
		}
		raw = decoded
	}
	switch len(raw) {
	case 32:
		if ctx != Tap {
			return nil, fmt.Errorf("policy: x-only key used outside a tapscript context")
		}
		return raw, nil
	case 33:
		if ctx == Tap {
			return raw[1:], nil
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("policy: unexpected key length %d", len(raw))
	}
}
