package weight

import (
	"fmt"

	"github.com/toole-brendan/deadbolt/policy"
)

// collectWitnessItems walks a policy tree, returning the stack items a
// dummy spend of the given branch would push: one signature per signing
// leaf reached, an empty placeholder for each unselected leg of a
// generic k-of-n threshold, an empty item absorbing OP_CHECKMULTISIG's
// off-by-one bug, and a single one-byte selector per Or node traversed.
// Item order does not reflect real script execution order; only the
// item count and sizes matter for a weight estimate.
func collectWitnessItems(root policy.Node, branchPath []int, ctx policy.Context) ([][]byte, error) {
	idx := 0
	var walk func(policy.Node) ([][]byte, error)
	walk = func(node policy.Node) ([][]byte, error) {
		switch n := node.(type) {
		case policy.Signature:
			return [][]byte{dummySig(ctx)}, nil

		case policy.Multisig:
			items := make([][]byte, 0, n.Threshold+1)
			if ctx != policy.Tap {
				items = append(items, []byte{})
			}
			for i := 0; i < n.Threshold; i++ {
				items = append(items, dummySig(ctx))
			}
			return items, nil

		case policy.RelTimelock, policy.AbsTimelock:
			return nil, nil

		case policy.Thresh:
			var all [][]byte
			if n.Threshold == len(n.Items) {
				for _, item := range n.Items {
					w, err := walk(item)
					if err != nil {
						return nil, err
					}
					all = append(all, w...)
				}
				return all, nil
			}
			for i, item := range n.Items {
				if i < n.Threshold {
					w, err := walk(item)
					if err != nil {
						return nil, err
					}
					all = append(all, w...)
				} else {
					all = append(all, []byte{})
				}
			}
			return all, nil

		case policy.Or:
			if idx >= len(branchPath) {
				return nil, fmt.Errorf("weight: branch path exhausted at an or node")
			}
			chosen := branchPath[idx]
			idx++
			if len(n.Items) != 2 {
				return nil, fmt.Errorf("weight: or node has %d branches, want 2", len(n.Items))
			}
			w, err := walk(n.Items[chosen])
			if err != nil {
				return nil, err
			}
			selector := []byte{}
			if chosen == 0 {
				selector = []byte{1}
			}
			return append(w, selector), nil

		default:
			return nil, fmt.Errorf("weight: unsupported policy node %T", node)
		}
	}
	return walk(root)
}
