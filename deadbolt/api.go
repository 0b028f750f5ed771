package deadbolt

import (
	"errors"
	"strings"

	"github.com/toole-brendan/deadbolt/analyzer"
	"github.com/toole-brendan/deadbolt/chaincfg"
	"github.com/toole-brendan/deadbolt/descbuilder"
	"github.com/toole-brendan/deadbolt/descriptor"
	"github.com/toole-brendan/deadbolt/keys"
	"github.com/toole-brendan/deadbolt/policy"
)

// AnalyzeResult is the full report produced by AnalyzeDescriptor.
type AnalyzeResult struct {
	Descriptor string
	Network    chaincfg.Network
	Template   descriptor.Template
	Keys       []*keys.PubKey
	SpendPaths []*policy.SpendPath
}

// AnalyzeDescriptor parses raw, infers its network, extracts its keys,
// and enumerates its spend paths with calibrated weight estimates.
func AnalyzeDescriptor(raw string) (*AnalyzeResult, error) {
	a, err := analyzer.New(raw)
	if err != nil {
		return nil, classifyParseError(err)
	}

	ks, err := a.Keys()
	if err != nil {
		return nil, wrapf(KindUnsupportedKey, err, "extracting keys from %q", raw)
	}

	paths, err := a.SpendPaths()
	if err != nil {
		return nil, classifySpendPathError(err, raw)
	}

	return &AnalyzeResult{
		Descriptor: raw,
		Network:    a.Network(),
		Template:   a.Descriptor().Template,
		Keys:       ks,
		SpendPaths: paths,
	}, nil
}

// classifyParseError distinguishes a syntactic parse failure from a
// network-detection failure, since analyzer.New folds both into one
// error return.
func classifyParseError(err error) error {
	if strings.Contains(err.Error(), "network") {
		return wrapf(KindNetworkDetectionFailed, err, "no network admits the descriptor")
	}
	return wrapf(KindInvalidDescriptorSyntax, err, "parsing descriptor")
}

// invariantKinds maps a policy.InvariantError's kind to the matching
// deadbolt.Kind the caller-facing taxonomy names for it.
var invariantKinds = map[policy.InvariantKind]Kind{
	policy.InvariantMissingThreshold:   KindMissingThreshold,
	policy.InvariantMissingFingerprint: KindMissingFingerprint,
	policy.InvariantMissingPolicy:      KindMissingPolicy,
	policy.InvariantMissingSpendPath:   KindMissingSpendPath,
	policy.InvariantMissingSpendWeight: KindMissingSpendWeight,
}

// classifySpendPathError maps a failure from spend-path extraction or
// weight calibration to its specific Kind when the underlying failure
// is a tagged internal builder invariant violation, falling back to
// KindUnsupportedDescriptor for anything else.
func classifySpendPathError(err error, raw string) error {
	var ie *policy.InvariantError
	if errors.As(err, &ie) {
		if kind, ok := invariantKinds[ie.Kind]; ok {
			return wrapf(kind, err, "extracting spend paths from %q", raw)
		}
	}
	return wrapf(KindUnsupportedDescriptor, err, "extracting spend paths from %q", raw)
}

// BuildDescriptor synthesizes a canonical descriptor string for tmpl
// from keySet and defs.
func BuildDescriptor(tmpl descriptor.Template, keySet descbuilder.KeyLookup, defs []policy.SpendPathDef, kind chaincfg.Kind) (string, error) {
	out, err := descbuilder.Build(tmpl, keySet, defs, kind)
	if err != nil {
		var be *descbuilder.BuilderError
		if errors.As(err, &be) {
			return "", wrapf(KindBuilderError, err, "%s", be.Msg)
		}
		return "", wrapf(KindBuilderError, err, "synthesizing descriptor")
	}
	return out, nil
}

// CalculateSpendPathID computes a spend path's deterministic identifier
// from its threshold, fingerprints, and consensus-encoded timelocks.
func CalculateSpendPathID(threshold int, mfps []string, relConsensus, absConsensus uint32) (uint32, error) {
	id, err := policy.CalculateSpendPathID(threshold, mfps, relConsensus, absConsensus)
	if err != nil {
		return 0, wrapf(KindUnsupportedDescriptor, err, "calculating spend path id")
	}
	return id, nil
}

// ValidateKey reports whether xpub, together with mfp and
// derivationPath as its origin, parses as a well-formed extended key
// compatible with network. mfp and derivationPath may be empty to
// validate a bare key with no origin.
func ValidateKey(mfp, derivationPath, xpub string, network chaincfg.Network) error {
	field := xpub
	if mfp != "" {
		origin := mfp
		if derivationPath != "" {
			origin += "/" + derivationPath
		}
		field = "[" + origin + "]" + xpub
	}

	k, err := keys.Parse(field)
	if err != nil {
		return wrapf(KindUnsupportedKey, err, "parsing key %q", xpub)
	}
	if mfp != "" && !strings.EqualFold(k.Fingerprint(), mfp) {
		return wrapf(KindUnsupportedKey, nil, "key origin fingerprint %q does not match expected %q", k.Fingerprint(), mfp)
	}
	if !k.IsCompatibleWithNetwork(network) {
		return wrapf(KindUnsupportedKey, nil, "key kind does not match network %s", network)
	}
	return nil
}

// DecodeLegacyRelTimelock decodes a raw older() sequence value into its
// kind and semantic value.
func DecodeLegacyRelTimelock(v uint32) policy.RelativeTimelock {
	return policy.RelativeTimelockFromConsensus(v)
}

// DecodeLegacyAbsTimelock decodes a raw after() value into its kind and
// semantic value.
func DecodeLegacyAbsTimelock(v uint32) policy.AbsoluteTimelock {
	return policy.AbsoluteTimelockFromConsensus(v)
}
