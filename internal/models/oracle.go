package models

// PriceAggregatorProxy tracks a stable price-feed proxy and the underlying
// aggregator implementation it currently points to. Aggregators rotate behind
// the proxy; LastCheckedAt throttles the recheck, ConfirmedAt records when the
// current pointer was last confirmed or first observed.
type PriceAggregatorProxy struct {
	Proxy         string `json:"proxy"`
	Aggregator    string `json:"aggregator"`
	LastCheckedAt int64  `json:"lastCheckedAt"`
	ConfirmedAt   int64  `json:"confirmedAt"`
}

func (p *PriceAggregatorProxy) EntityKind() string { return KindAggregatorProxy }
func (p *PriceAggregatorProxy) EntityID() string   { return NormalizeAddress(p.Proxy) }
