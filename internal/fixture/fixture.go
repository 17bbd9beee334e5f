// Package fixture provides the demo dataset and a loader that simulates the
// latency of the external document store.
package fixture

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kiwari-pos/opsdash/internal/clock"
	"github.com/kiwari-pos/opsdash/internal/engine"
)

//go:embed demo.json
var demoJSON []byte

type document struct {
	Anchor  time.Time      `json:"anchor"`
	Dataset engine.Dataset `json:"dataset"`
}

// Demo decodes a fresh copy of the demo dataset. Timestamps are shifted so
// that the dataset's anchor lands on now, which keeps "new customer" and
// expiry windows meaningful whenever the demo is loaded.
func Demo(now time.Time) (engine.Dataset, error) {
	var doc document
	if err := json.Unmarshal(demoJSON, &doc); err != nil {
		return engine.Dataset{}, fmt.Errorf("decode demo dataset: %w", err)
	}
	if !now.IsZero() {
		Rebase(&doc.Dataset, now.Sub(doc.Anchor))
	}
	return doc.Dataset, nil
}

// Rebase moves every timestamp in ds by d.
func Rebase(ds *engine.Dataset, d time.Duration) {
	shift := func(t time.Time) time.Time {
		if t.IsZero() {
			return t
		}
		return t.Add(d)
	}
	shiftPtr := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		s := shift(*t)
		return &s
	}

	for i := range ds.Orders {
		o := &ds.Orders[i]
		o.CreatedAt = shift(o.CreatedAt)
		o.UpdatedAt = shift(o.UpdatedAt)
		o.EstimatedReady = shiftPtr(o.EstimatedReady)
	}
	for i := range ds.Inventory {
		ds.Inventory[i].LastUpdated = shift(ds.Inventory[i].LastUpdated)
	}
	for i := range ds.Customers {
		ds.Customers[i].JoinDate = shift(ds.Customers[i].JoinDate)
	}
	for i := range ds.Notifications {
		n := &ds.Notifications[i]
		n.CreatedAt = shift(n.CreatedAt)
		n.ExpiresAt = shiftPtr(n.ExpiresAt)
	}
	if ds.Sales != nil {
		ds.Sales.UpdatedAt = shift(ds.Sales.UpdatedAt)
	}
}

// Loader serves the demo dataset after a simulated network delay.
type Loader struct {
	clock   clock.Clock
	latency time.Duration
}

// NewLoader creates a Loader. A zero latency answers immediately.
func NewLoader(clk clock.Clock, latency time.Duration) *Loader {
	return &Loader{clock: clk, latency: latency}
}

// Load implements engine.Loader.
func (l *Loader) Load(ctx context.Context) (engine.Dataset, error) {
	if l.latency > 0 {
		select {
		case <-l.clock.After(l.latency):
		case <-ctx.Done():
			return engine.Dataset{}, ctx.Err()
		}
	}
	return Demo(l.clock.Now())
}
