package parking

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
)

// Factory builds instrumented lots that share one telemetry provider and a
// common set of options. Presentation layers use it to (re)create the lot.
type Factory struct {
	telemetry Telemetry
	opts      []LotOption
}

func NewFactory(telemetry Telemetry, opts ...LotOption) *Factory {
	return &Factory{telemetry: telemetry, opts: opts}
}

// New applies the factory options first, so per-call options win.
func (f *Factory) New(totalSpots, queueCapacity int, opts ...LotOption) (*InstrumentedLot, error) {
	all := make([]LotOption, 0, len(f.opts)+len(opts))
	all = append(all, f.opts...)
	all = append(all, opts...)

	lot, err := NewLot(totalSpots, queueCapacity, all...)
	if err != nil {
		return nil, err
	}
	return NewInstrumentedLot(lot, f.telemetry)
}

// Retire stops the lot from reporting occupancy gauges. Call it when the lot
// is replaced; requests still in flight on it no longer affect the gauges.
func (il *InstrumentedLot) Retire(_ context.Context) {
	if err := il.gauges.Unregister(); err != nil {
		otel.Handle(err)
	}
}

// Holder shares the current lot between presentation layers so a lot created
// through one surface is seen by the others.
type Holder struct {
	mu  sync.RWMutex
	lot *InstrumentedLot
}

// NewHolder accepts a nil lot; Current then reports nil until Replace.
func NewHolder(lot *InstrumentedLot) *Holder {
	return &Holder{lot: lot}
}

func (h *Holder) Current() *InstrumentedLot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lot
}

// Replace installs lot and retires the one it replaces.
func (h *Holder) Replace(ctx context.Context, lot *InstrumentedLot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lot != nil && h.lot != lot {
		h.lot.Retire(ctx)
	}
	h.lot = lot
}
