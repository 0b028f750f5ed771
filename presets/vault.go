// Package presets packages common institutional custody shapes as
// ready-made policy.SpendPathDef lists, so a caller doesn't have to
// hand-assemble thresholds and timelocks for well-known patterns.
package presets

import (
	"fmt"

	"github.com/toole-brendan/deadbolt/policy"
)

// CentralBankVaultConfig describes a two-tier institutional custody
// policy: a hot signer set usable immediately, and a smaller cold
// signer set usable only after a relative-timelock recovery delay.
type CentralBankVaultConfig struct {
	HotMFPs        []string
	HotThreshold   int
	ColdMFPs       []string
	ColdThreshold  int
	RecoveryBlocks uint32
}

// StandardCentralBankConfig returns the canonical institutional custody
// shape: 11-of-15 hot signers for day-to-day spending, 3-of-5 cold
// recovery after roughly 30 days (4320 blocks at Bitcoin's 10-minute
// target). Callers fill in HotMFPs/ColdMFPs.
func StandardCentralBankConfig() CentralBankVaultConfig {
	return CentralBankVaultConfig{
		HotThreshold:   11,
		ColdThreshold:  3,
		RecoveryBlocks: 4320,
	}
}

// SpendPathDefs renders cfg as the spend-path definitions a descriptor
// synthesizer needs: an untimed hot path at the higher priority (kept
// shallower in a Taproot tree) and a relative-timelocked cold recovery
// path at the lower priority.
func (cfg CentralBankVaultConfig) SpendPathDefs() ([]policy.SpendPathDef, error) {
	if len(cfg.HotMFPs) < cfg.HotThreshold {
		return nil, fmt.Errorf("presets: insufficient hot signers: need %d, have %d", cfg.HotThreshold, len(cfg.HotMFPs))
	}
	if len(cfg.ColdMFPs) < cfg.ColdThreshold {
		return nil, fmt.Errorf("presets: insufficient cold signers: need %d, have %d", cfg.ColdThreshold, len(cfg.ColdMFPs))
	}
	if cfg.RecoveryBlocks == 0 {
		return nil, fmt.Errorf("presets: recovery delay must be non-zero")
	}
	return []policy.SpendPathDef{
		{Threshold: cfg.HotThreshold, MFPs: cfg.HotMFPs, Priority: 1},
		{
			Threshold:   cfg.ColdThreshold,
			MFPs:        cfg.ColdMFPs,
			RelTimelock: policy.RelativeTimelockFromConsensus(cfg.RecoveryBlocks),
			Priority:    0,
		},
	}, nil
}

// RecoveryLadderConfig describes a three-rung personal custody policy:
// a full-threshold path usable immediately, a reduced-threshold path
// usable after a short delay, and a single-signer path usable after a
// long delay — the shape a user falls back to if some signers become
// unreachable.
type RecoveryLadderConfig struct {
	FullMFPs      []string
	FullThreshold int

	ReducedMFPs      []string
	ReducedThreshold int
	ReducedDelay     uint32

	LastResortMFP   string
	LastResortDelay uint32
}

// SpendPathDefs renders cfg as three spend-path definitions in
// ascending delay (and so, per the consuming layer's ordering rule,
// ascending presentation order).
func (cfg RecoveryLadderConfig) SpendPathDefs() ([]policy.SpendPathDef, error) {
	if len(cfg.FullMFPs) < cfg.FullThreshold {
		return nil, fmt.Errorf("presets: insufficient full-rung signers: need %d, have %d", cfg.FullThreshold, len(cfg.FullMFPs))
	}
	if len(cfg.ReducedMFPs) < cfg.ReducedThreshold {
		return nil, fmt.Errorf("presets: insufficient reduced-rung signers: need %d, have %d", cfg.ReducedThreshold, len(cfg.ReducedMFPs))
	}
	if cfg.LastResortMFP == "" {
		return nil, fmt.Errorf("presets: a last-resort signer is required")
	}
	if cfg.ReducedDelay == 0 || cfg.LastResortDelay <= cfg.ReducedDelay {
		return nil, fmt.Errorf("presets: ladder delays must be non-zero and strictly increasing")
	}
	return []policy.SpendPathDef{
		{Threshold: cfg.FullThreshold, MFPs: cfg.FullMFPs, Priority: 2},
		{
			Threshold:   cfg.ReducedThreshold,
			MFPs:        cfg.ReducedMFPs,
			RelTimelock: policy.RelativeTimelockFromConsensus(cfg.ReducedDelay),
			Priority:    1,
		},
		{
			Threshold:   1,
			MFPs:        []string{cfg.LastResortMFP},
			RelTimelock: policy.RelativeTimelockFromConsensus(cfg.LastResortDelay),
			Priority:    0,
		},
	}, nil
}
