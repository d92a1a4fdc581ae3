package statecache

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/statekit/observability"
)

func TestCacheRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := observability.NewCacheMetrics(provider.Meter("statecache-test"))
	if err != nil {
		t.Fatal(err)
	}

	store := newScriptedStore()
	c, _ := newTestCache(t, store, WithMetrics(m))
	c.Subscribe([]string{FieldItemID}, func(Values, Values) { panic("boom") })

	if err := waitResult(t, c.Set(Values{FieldItemID: "i"}, true)); err != nil {
		t.Fatal(err)
	}
	store.setErrTo(errStore)
	waitResult(t, c.Set(Values{FieldItemID: "j"}, true))
	c.Clear(context.Background(), false)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[metric.Name] += dp.Value
				}
			}
		}
	}

	// Clear flushes the requeued write, which fails again.
	if totals["statecache.flush.total"] != 3 {
		t.Errorf("flush.total = %d, want 3", totals["statecache.flush.total"])
	}
	if totals["statecache.init.total"] != 1 {
		t.Errorf("init.total = %d, want 1", totals["statecache.init.total"])
	}
	if totals["statecache.subscriber.panics"] != 3 {
		t.Errorf("subscriber.panics = %d, want 3", totals["statecache.subscriber.panics"])
	}
	if totals["statecache.clear.total"] != 1 {
		t.Errorf("clear.total = %d, want 1", totals["statecache.clear.total"])
	}
}
