package engine

import (
	"math/rand/v2"
	"time"

	"github.com/kiwari-pos/opsdash/internal/model"
	"github.com/shopspring/decimal"
)

// SalesFeed produces the sales figures for each background refresh. It is
// called under the engine's writer lock and must not call back into the
// engine.
type SalesFeed interface {
	Next(now time.Time, current *Snapshot) model.SalesSummary
}

// SalesFeedFunc adapts a function to SalesFeed.
type SalesFeedFunc func(now time.Time, current *Snapshot) model.SalesSummary

func (f SalesFeedFunc) Next(now time.Time, current *Snapshot) model.SalesSummary {
	return f(now, current)
}

// HoldFeed keeps the figures as they are. Ticks still stamp LastSync.
type HoldFeed struct{}

func (HoldFeed) Next(_ time.Time, current *Snapshot) model.SalesSummary {
	return current.Sales
}

// DriftFeed simulates live storefront traffic: visitors wander up and down,
// a fraction of them convert and the revenue grows by their basket value.
// Not safe for concurrent use; give each engine its own.
type DriftFeed struct {
	rng *rand.Rand

	// MaxVisitors caps the simulated visitor count.
	MaxVisitors int
	// Basket is the mean value of a simulated sale.
	Basket decimal.Decimal
}

// NewDriftFeed returns a DriftFeed with a deterministic seed.
func NewDriftFeed(seed uint64) *DriftFeed {
	return &DriftFeed{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		MaxVisitors: 200,
		Basket:      decimal.NewFromInt(45000),
	}
}

func (f *DriftFeed) Next(_ time.Time, current *Snapshot) model.SalesSummary {
	s := current.Sales

	visitors := s.ActiveVisitors + f.rng.IntN(21) - 10
	s.ActiveVisitors = min(max(visitors, 0), f.MaxVisitors)

	// Roughly one sale per 25 visitors per tick.
	sales := 0
	for range s.ActiveVisitors / 25 {
		if f.rng.IntN(4) == 0 {
			sales++
		}
	}
	for range sales {
		// Basket value between 50% and 150% of the mean, rounded to 500.
		factor := decimal.NewFromFloat(0.5 + f.rng.Float64())
		amount := f.Basket.Mul(factor).Div(decimal.NewFromInt(500)).Round(0).Mul(decimal.NewFromInt(500))
		s.Revenue = s.Revenue.Add(amount)
		s.OrderCount++
	}

	if s.OrderCount > 0 {
		s.AverageOrderValue = s.Revenue.Div(decimal.NewFromInt(int64(s.OrderCount))).Round(2)
	}
	if s.ActiveVisitors > 0 {
		s.ConversionRate = decimal.NewFromInt(int64(sales * 100)).
			Div(decimal.NewFromInt(int64(s.ActiveVisitors))).Round(2)
	} else {
		s.ConversionRate = decimal.Zero
	}
	return s
}
