package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/types"
)

// Deployment holds the static per-deployment tables the accounting core is
// constructed with. It replaces the generated global lookup maps of the
// deployment tooling with an injected value, so tests can supply fixtures.
type Deployment struct {
	// Network is a free-form network label ("mainnet", "polygon", ...)
	Network string

	// ProtocolTag is the canonical transaction-source name; auxiliary event
	// data containing this tag is normalized to it
	ProtocolTag string

	// Native names the zero-address pseudo asset
	Native NativeAsset

	// Registry is the lowercase address of the verified exchange registry;
	// its deployment events seed new pools and vaults
	Registry string

	// Coves lists the lowercase addresses of the known cove satellite
	// contracts; more arrive via registry events and watch commands
	Coves []string

	// Pools maps lowercase pool address to its static configuration
	Pools map[string]*PoolConfig

	// Oracles maps lowercase token address to its price oracle proxy
	Oracles map[string]*OracleConfig

	// StaticPrices maps lowercase token address to a timeless fallback USD price
	StaticPrices map[string]decimal.Decimal

	// DailyPrices maps lowercase token address to UTC-day-bucket USD prices
	DailyPrices map[string]map[int64]decimal.Decimal

	// ShortTail is the set of lowercase addresses of core pool assets;
	// everything else is a long-tail cove asset
	ShortTail map[string]bool

	// Revenue is the governance revenue-split step function
	Revenue RevenueSchedule
}

// NativeAsset names the chain's native asset observed as the zero address
type NativeAsset struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// PoolConfig is the static configuration of one pool
type PoolConfig struct {
	Variant       types.PoolVariant
	PermitRouter  string
	FarmingHelper string
	FeeSplits     []string
	StartBlock    uint64
}

// OracleConfig is the static configuration of one token's price oracle proxy
type OracleConfig struct {
	Proxy string
	// ActiveFrom is the earliest event timestamp at which the oracle may be
	// read; before it the fallback tables apply
	ActiveFrom int64
}

// RevenueSchedule is the step function for the protocol's revenue fraction
type RevenueSchedule struct {
	CutoverAt      int64
	FractionBefore decimal.Decimal
	FractionAfter  decimal.Decimal
}

// FractionAt returns the revenue fraction in force at ts
func (s RevenueSchedule) FractionAt(ts int64) decimal.Decimal {
	if ts >= s.CutoverAt {
		return s.FractionAfter
	}
	return s.FractionBefore
}

// DefaultRevenueSchedule returns the historical governance split: half the
// fee-split revenue before 2023-08-01 00:00 UTC, all of it after.
func DefaultRevenueSchedule() RevenueSchedule {
	return RevenueSchedule{
		CutoverAt:      1690848000,
		FractionBefore: decimal.RequireFromString("0.5"),
		FractionAfter:  decimal.NewFromInt(1),
	}
}

// PoolFor returns the static configuration for a pool address, or nil
func (d *Deployment) PoolFor(addr string) *PoolConfig {
	return d.Pools[strings.ToLower(addr)]
}

// OracleFor returns the oracle configuration for a token address, or nil
func (d *Deployment) OracleFor(token string) *OracleConfig {
	return d.Oracles[strings.ToLower(token)]
}

// TokenByOracle returns the inverse oracle index: lowercase proxy address to
// lowercase token address
func (d *Deployment) TokenByOracle() map[string]string {
	out := make(map[string]string, len(d.Oracles))
	for token, oracle := range d.Oracles {
		out[strings.ToLower(oracle.Proxy)] = token
	}
	return out
}

// StaticPrice looks up the timeless fallback USD price for a token
func (d *Deployment) StaticPrice(token string) (decimal.Decimal, bool) {
	p, ok := d.StaticPrices[strings.ToLower(token)]
	return p, ok
}

// DailyPrice looks up the fallback USD price for a token at the UTC day
// bucket containing ts
func (d *Deployment) DailyPrice(token string, ts int64) (decimal.Decimal, bool) {
	buckets, ok := d.DailyPrices[strings.ToLower(token)]
	if !ok {
		return decimal.Zero, false
	}
	p, ok := buckets[types.BucketStart(ts, types.OneDay)]
	return p, ok
}

// IsShortTail reports whether the token is a core pool asset
func (d *Deployment) IsShortTail(token string) bool {
	return d.ShortTail[strings.ToLower(token)]
}

// NormalizeSource derives the canonical transaction-source name from the
// auxiliary data attached to a swap event
func (d *Deployment) NormalizeSource(aux []byte) string {
	name := strings.TrimRight(string(aux), "\x00")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown"
	}
	if d.ProtocolTag != "" && strings.Contains(name, d.ProtocolTag) {
		return d.ProtocolTag
	}
	return name
}

// manifestFile is the JSON shape written by the deployment tooling
type manifestFile struct {
	Network     string      `json:"network"`
	ProtocolTag string      `json:"protocolTag"`
	Native      NativeAsset `json:"native"`
	Registry    string      `json:"registry,omitempty"`
	Coves       []string    `json:"coves,omitempty"`
	Pools       map[string]struct {
		Variant       string   `json:"variant"`
		PermitRouter  string   `json:"permitRouter,omitempty"`
		FarmingHelper string   `json:"farmingHelper,omitempty"`
		FeeSplits     []string `json:"feeSplits,omitempty"`
		StartBlock    uint64   `json:"startBlock"`
	} `json:"pools"`
	Oracles map[string]struct {
		Proxy      string `json:"proxy"`
		ActiveFrom int64  `json:"activeFrom"`
	} `json:"oracles"`
	StaticPrices map[string]string           `json:"staticPrices"`
	DailyPrices  map[string]map[string]string `json:"dailyPrices"`
	ShortTail    []string                    `json:"shortTail"`
	Revenue      *struct {
		CutoverAt      int64  `json:"cutoverAt"`
		FractionBefore string `json:"fractionBefore"`
		FractionAfter  string `json:"fractionAfter"`
	} `json:"revenue,omitempty"`
}

// LoadDeployment reads and validates a deployment manifest
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var file manifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	d := &Deployment{
		Network:      file.Network,
		ProtocolTag:  file.ProtocolTag,
		Native:       file.Native,
		Registry:     strings.ToLower(file.Registry),
		Pools:        make(map[string]*PoolConfig, len(file.Pools)),
		Oracles:      make(map[string]*OracleConfig, len(file.Oracles)),
		StaticPrices: make(map[string]decimal.Decimal, len(file.StaticPrices)),
		DailyPrices:  make(map[string]map[int64]decimal.Decimal, len(file.DailyPrices)),
		ShortTail:    make(map[string]bool, len(file.ShortTail)),
		Revenue:      DefaultRevenueSchedule(),
	}

	for addr, p := range file.Pools {
		cfg := &PoolConfig{
			Variant:       types.PoolVariant(p.Variant),
			PermitRouter:  strings.ToLower(p.PermitRouter),
			FarmingHelper: strings.ToLower(p.FarmingHelper),
			StartBlock:    p.StartBlock,
		}
		for _, fs := range p.FeeSplits {
			cfg.FeeSplits = append(cfg.FeeSplits, strings.ToLower(fs))
		}
		d.Pools[strings.ToLower(addr)] = cfg
	}

	for token, o := range file.Oracles {
		d.Oracles[strings.ToLower(token)] = &OracleConfig{
			Proxy:      strings.ToLower(o.Proxy),
			ActiveFrom: o.ActiveFrom,
		}
	}

	for token, price := range file.StaticPrices {
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid static price for %s: %w", token, err)
		}
		d.StaticPrices[strings.ToLower(token)] = p
	}

	for token, buckets := range file.DailyPrices {
		parsed := make(map[int64]decimal.Decimal, len(buckets))
		for bucket, price := range buckets {
			var ts int64
			if _, err := fmt.Sscanf(bucket, "%d", &ts); err != nil {
				return nil, fmt.Errorf("invalid price bucket %q for %s", bucket, token)
			}
			p, err := decimal.NewFromString(price)
			if err != nil {
				return nil, fmt.Errorf("invalid daily price for %s at %s: %w", token, bucket, err)
			}
			parsed[ts] = p
		}
		d.DailyPrices[strings.ToLower(token)] = parsed
	}

	for _, addr := range file.ShortTail {
		d.ShortTail[strings.ToLower(addr)] = true
	}

	for _, addr := range file.Coves {
		d.Coves = append(d.Coves, strings.ToLower(addr))
	}

	if file.Revenue != nil {
		before, err := decimal.NewFromString(file.Revenue.FractionBefore)
		if err != nil {
			return nil, fmt.Errorf("invalid revenue fractionBefore: %w", err)
		}
		after, err := decimal.NewFromString(file.Revenue.FractionAfter)
		if err != nil {
			return nil, fmt.Errorf("invalid revenue fractionAfter: %w", err)
		}
		d.Revenue = RevenueSchedule{
			CutoverAt:      file.Revenue.CutoverAt,
			FractionBefore: before,
			FractionAfter:  after,
		}
	}

	return d, nil
}
