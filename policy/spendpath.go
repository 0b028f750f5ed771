package policy

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/toole-brendan/deadbolt/keys"
)

// Taproot depth sentinels. A non-Taproot spend path always carries
// TrDepth == TrDepthNone. A Taproot key-path spend carries TrDepthKeyPath.
// A Taproot script-path spend carries its tapscript tree depth, which
// package weight assigns during calibration, so it starts out at
// TrDepthUnmeasured until that happens.
const (
	TrDepthNone       = -1
	TrDepthKeyPath    = 0
	TrDepthUnmeasured = -2
)

// SpendPath is one distinct way to satisfy a descriptor's spending
// condition: a signer threshold over a set of key fingerprints, plus
// whatever timelocks gate it.
type SpendPath struct {
	ID          uint32
	PolicyPath  map[string][]int
	Threshold   int
	MFPs        []string
	RelTimelock RelativeTimelock
	AbsTimelock AbsoluteTimelock
	WuBase      uint32
	WuIn        uint32
	WuOut       uint32
	AddrType    string
	TrDepth     int
	IsTrScript  bool

	branchPath []int
	leaf       Node
	root       Node
	leafIndex  int
}

// Leaf returns the resolved policy subtree this spend path was built
// from, used by the weight package to compile the witness a dummy
// signing pass attaches.
func (sp *SpendPath) Leaf() Node { return sp.leaf }

// Root returns the policy tree this spend path was extracted from: the
// whole descriptor body for a non-Taproot spend path, or the single
// tapscript leaf's expression for a Taproot script-path spend. The
// weight package compiles this (not Leaf) into the real script a dummy
// signing pass attaches, since an Or-bearing leaf's script is shared
// across every spend path that descends into it.
func (sp *SpendPath) Root() Node { return sp.root }

// BranchPath returns the sequence of Or-node branch indices chosen to
// reach this spend path from the policy root.
func (sp *SpendPath) BranchPath() []int { return sp.branchPath }

// LeafIndex returns the position of this spend path's tapscript leaf
// among a Taproot descriptor's leaves, or -1 for a non-script-path
// spend path. Spend paths sharing a leaf share a tree depth.
func (sp *SpendPath) LeafIndex() int { return sp.leafIndex }

// SetTrDepth assigns the tapscript tree depth once it has been derived
// for this spend path's leaf.
func (sp *SpendPath) SetTrDepth(depth int) { sp.TrDepth = depth }

// VBytes returns the calibrated virtual size of a transaction spending
// this path alone, against a single matching input/output shape.
func (sp *SpendPath) VBytes() float64 {
	return float64(sp.WuBase+sp.WuIn+sp.WuOut) / 4.0
}

// SpendPathDef is the caller-supplied description of one spend path a
// descriptor should be synthesized to contain.
type SpendPathDef struct {
	Threshold   int
	MFPs        []string
	RelTimelock RelativeTimelock
	AbsTimelock AbsoluteTimelock
	IsKeyPath   bool
	Priority    int
}

// calculateID computes a spend path's deterministic identifier: the
// SHA-256 of its threshold, sorted deduplicated fingerprints, and
// consensus-encoded timelocks, truncated to the first four bytes
// (little-endian).
func calculateID(threshold int, mfps []string, rel RelativeOrAbsolute) (uint32, error) {
	relConsensus, err := rel.rel.ToConsensus()
	if err != nil {
		return 0, err
	}
	absConsensus, err := rel.abs.ToConsensus()
	if err != nil {
		return 0, err
	}

	dedup := make(map[string]struct{}, len(mfps))
	for _, m := range mfps {
		dedup[m] = struct{}{}
	}
	sorted := make([]string, 0, len(dedup))
	for m := range dedup {
		sorted = append(sorted, m)
	}
	sort.Strings(sorted)

	h := sha256.New()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(threshold))
	h.Write(buf[:])
	for _, m := range sorted {
		h.Write([]byte(m))
	}
	binary.LittleEndian.PutUint32(buf[:], relConsensus)
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], absConsensus)
	h.Write(buf[:])

	sum := h.Sum(nil)
	return binary.LittleEndian.Uint32(sum[:4]), nil
}

// RelativeOrAbsolute bundles the two timelocks calculateID hashes,
// avoiding a four-argument helper signature.
type RelativeOrAbsolute struct {
	rel RelativeTimelock
	abs AbsoluteTimelock
}

// CalculateSpendPathID computes a spend path's deterministic identifier
// directly from consensus-encoded fields, independent of any parsed
// descriptor. The result is stable under any permutation of mfps.
func CalculateSpendPathID(threshold int, mfps []string, relConsensus, absConsensus uint32) (uint32, error) {
	rel := RelativeTimelockFromConsensus(relConsensus)
	abs := AbsoluteTimelockFromConsensus(absConsensus)
	return calculateID(threshold, mfps, RelativeOrAbsolute{rel, abs})
}

func (sp *SpendPath) assignID() error {
	id, err := calculateID(sp.Threshold, sp.MFPs, RelativeOrAbsolute{sp.RelTimelock, sp.AbsTimelock})
	if err != nil {
		return err
	}
	sp.ID = id
	return nil
}

// builder accumulates threshold/fingerprint/timelock state while
// walking a single resolved spend-path subtree.
type builder struct {
	thresholdSet bool
	threshold    int
	mfps         []string
	rel          RelativeTimelock
	abs          AbsoluteTimelock
}

func (b *builder) setThreshold(t int) error {
	if b.thresholdSet {
		return fmt.Errorf("policy: spend path already has an explicit threshold")
	}
	b.threshold = t
	b.thresholdSet = true
	return nil
}

func (b *builder) addThreshold(t int) error {
	if b.thresholdSet {
		return fmt.Errorf("policy: spend path already has an explicit threshold")
	}
	b.threshold += t
	return nil
}

func (b *builder) addMFP(fp string) { b.mfps = append(b.mfps, fp) }

func (b *builder) setRel(r RelativeTimelock) error {
	if b.rel.Value != 0 {
		return fmt.Errorf("policy: spend path already has a relative timelock")
	}
	b.rel = r
	return nil
}

func (b *builder) setAbs(a AbsoluteTimelock) error {
	if b.abs.Value != 0 {
		return fmt.Errorf("policy: spend path already has an absolute timelock")
	}
	b.abs = a
	return nil
}

func (b *builder) build() (*SpendPath, error) {
	if b.threshold <= 0 {
		return nil, &InvariantError{Kind: InvariantMissingThreshold, Msg: "spend path has no signer threshold"}
	}
	if len(b.mfps) == 0 {
		return nil, &InvariantError{Kind: InvariantMissingFingerprint, Msg: "spend path has no key fingerprints"}
	}
	return &SpendPath{
		Threshold:   b.threshold,
		MFPs:        b.mfps,
		RelTimelock: b.rel,
		AbsTimelock: b.abs,
		TrDepth:     TrDepthNone,
		leafIndex:   -1,
	}, nil
}

// accumulate walks a resolved (choice-free) policy subtree, folding
// every leaf's contribution into b.
func accumulate(node Node, b *builder) error {
	switch n := node.(type) {
	case Multisig:
		if err := b.setThreshold(n.Threshold); err != nil {
			return err
		}
		for _, k := range n.Keys {
			fp, err := k.FingerprintHex()
			if err != nil {
				return err
			}
			b.addMFP(fp)
		}
	case Signature:
		if !b.thresholdSet {
			if err := b.addThreshold(1); err != nil {
				return err
			}
		}
		fp, err := n.Key.FingerprintHex()
		if err != nil {
			return err
		}
		b.addMFP(fp)
	case RelTimelock:
		if err := b.setRel(RelativeTimelockFromConsensus(n.Value)); err != nil {
			return err
		}
	case AbsTimelock:
		if err := b.setAbs(AbsoluteTimelockFromConsensus(n.Value)); err != nil {
			return err
		}
	case Thresh:
		if n.Threshold != len(n.Items) {
			if err := b.setThreshold(n.Threshold); err != nil {
				return err
			}
		}
		for _, item := range n.Items {
			if err := accumulate(item, b); err != nil {
				return err
			}
		}
	case Or:
		return &InvariantError{Kind: InvariantMissingPolicy, Msg: "choice node found where a single spend path was expected"}
	default:
		return &InvariantError{Kind: InvariantMissingPolicy, Msg: fmt.Sprintf("unrecognized policy node %T", node)}
	}
	return nil
}

func parseSubtree(node Node) (*SpendPath, error) {
	b := &builder{}
	if err := accumulate(node, b); err != nil {
		return nil, err
	}
	return b.build()
}

// walkChoice descends through Or nodes, recording the branch taken at
// each one, and calls parseSubtree once it reaches a choice-free
// subtree, appending the result to out.
func walkChoice(node Node, branchPath []int, policyPath map[string][]int, out *[]*SpendPath) error {
	if or, ok := node.(Or); ok {
		for i, item := range or.Items {
			childBranch := append(append([]int{}, branchPath...), i)
			childPolicy := make(map[string][]int, len(policyPath)+1)
			for k, v := range policyPath {
				childPolicy[k] = v
			}
			childPolicy[fmt.Sprintf("or@%d", len(childBranch)-1)] = []int{i}
			if err := walkChoice(item, childBranch, childPolicy, out); err != nil {
				return err
			}
		}
		return nil
	}

	sp, err := parseSubtree(node)
	if err != nil {
		return err
	}
	sp.branchPath = append([]int{}, branchPath...)
	sp.PolicyPath = policyPath
	sp.leaf = node
	if err := sp.assignID(); err != nil {
		return err
	}
	*out = append(*out, sp)
	return nil
}

// ExtractSpendPaths walks a non-Taproot policy tree (the body of a
// pkh/wpkh/sh/wsh descriptor), returning one spend path per reachable
// leaf of its Or structure.
func ExtractSpendPaths(root Node, addrType string) ([]*SpendPath, error) {
	var out []*SpendPath
	if err := walkChoice(root, nil, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &InvariantError{Kind: InvariantMissingSpendPath, Msg: "policy tree yielded no spend paths"}
	}
	for _, sp := range out {
		sp.AddrType = addrType
		sp.root = root
	}
	return out, nil
}

// ExtractTaprootSpendPaths builds the spend paths for a tr() descriptor:
// an optional key-path spend (absent when the internal key is the NUMS
// unspendable point), followed by one or more spend paths per tapscript
// leaf.
func ExtractTaprootSpendPaths(internalKeyField string, leafExprs []string) ([]*SpendPath, error) {
	var out []*SpendPath

	if !isNumsInternalKey(internalKeyField) {
		fp, err := internalKeyFingerprint(internalKeyField)
		if err != nil {
			return nil, err
		}
		sp := &SpendPath{
			Threshold: 1,
			MFPs:      []string{fp},
			AddrType:  "P2TR",
			TrDepth:   TrDepthKeyPath,
			leafIndex: -1,
		}
		if err := sp.assignID(); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}

	for leafIdx, leafExpr := range leafExprs {
		node, err := Parse(leafExpr)
		if err != nil {
			return nil, err
		}
		var leafPaths []*SpendPath
		if err := walkChoice(node, nil, nil, &leafPaths); err != nil {
			return nil, err
		}
		for _, sp := range leafPaths {
			sp.AddrType = "P2TR"
			sp.IsTrScript = true
			sp.TrDepth = TrDepthUnmeasured
			sp.root = node
			sp.leafIndex = leafIdx
			out = append(out, sp)
		}
	}
	if len(out) == 0 {
		return nil, &InvariantError{Kind: InvariantMissingSpendPath, Msg: "taproot descriptor yielded no spend paths"}
	}
	return out, nil
}

// isNumsInternalKey reports whether a Taproot internal key field
// represents the BIP-341 NUMS point, either written directly as a raw
// hex key (the common hand-written form) or as a synthesized extended
// public key whose key material happens to be the NUMS point (the form
// this module's own synthesizer emits).
func isNumsInternalKey(field string) bool {
	if keys.IsNUMSHex(field) {
		return true
	}
	k, err := keys.Parse(field)
	if err != nil {
		return false
	}
	return k.IsUnspendable()
}

func internalKeyFingerprint(field string) (string, error) {
	if isRawHexKey(field) {
		raw, err := hex.DecodeString(field)
		if err != nil {
			return "", err
		}
		return keys.Hash160FingerprintHex(raw)
	}
	k, err := keys.Parse(field)
	if err != nil {
		return "", err
	}
	if k.HasOrigin() {
		return k.Fingerprint(), nil
	}
	pub, err := k.ECPubKey()
	if err != nil {
		return "", err
	}
	return keys.Hash160FingerprintHex(pub.SerializeCompressed())
}
