package icon

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	loads     metric.Int64Counter
	errors    metric.Int64Counter
	evictions metric.Int64Counter
	duration  metric.Float64Histogram
}

func newInstruments(meter metric.Meter, entries func() int64) (*instruments, error) {
	var (
		m   instruments
		err error
	)
	if m.hits, err = meter.Int64Counter("icon.cache.hits",
		metric.WithDescription("Icon lookups served from cache"), metric.WithUnit("{lookup}")); err != nil {
		return nil, err
	}
	if m.misses, err = meter.Int64Counter("icon.cache.misses",
		metric.WithDescription("Icon lookups that waited on a load"), metric.WithUnit("{lookup}")); err != nil {
		return nil, err
	}
	if m.evictions, err = meter.Int64Counter("icon.cache.evictions",
		metric.WithDescription("Icons dropped by size or idle eviction"), metric.WithUnit("{icon}")); err != nil {
		return nil, err
	}
	if m.loads, err = meter.Int64Counter("icon.load.total",
		metric.WithDescription("Load pipeline runs"), metric.WithUnit("{load}")); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter("icon.load.errors",
		metric.WithDescription("Failed load pipeline runs"), metric.WithUnit("{load}")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("icon.load.duration_ms",
		metric.WithDescription("Load pipeline duration in milliseconds"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if _, err = meter.Int64ObservableGauge("icon.cache.entries",
		metric.WithDescription("Icons currently cached"), metric.WithUnit("{icon}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(entries())
			return nil
		})); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *instruments) lookup(ctx context.Context, hit bool) {
	if hit {
		m.hits.Add(ctx, 1)
		return
	}
	m.misses.Add(ctx, 1)
}

func (m *instruments) loaded(ctx context.Context, d time.Duration, err error) {
	opt := metric.WithAttributes(attribute.Bool("error", err != nil))
	m.loads.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1)
	}
	m.duration.Record(ctx, float64(d.Microseconds())/1000, opt)
}

func (m *instruments) evicted() {
	m.evictions.Add(context.Background(), 1)
}
