package ledger

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveOp_IncrementsCounter(t *testing.T) {
	LedgerOpsTotal.Reset()

	done := observeOp("test_op")
	done()

	m := &dto.Metric{}
	counter, err := LedgerOpsTotal.GetMetricWithLabelValues("test_op")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)

	if m.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1, got %f", m.Counter.GetValue())
	}
}

func TestObserveOp_ObservesHistogram(t *testing.T) {
	LedgerOpDuration.Reset()

	done := observeOp("hist_test")
	done()

	ch := make(chan prometheus.Metric, 10)
	LedgerOpDuration.Collect(ch)
	close(ch)

	found := false
	for metric := range ch {
		m := &dto.Metric{}
		_ = metric.Write(m)
		if m.Histogram != nil && m.Histogram.GetSampleCount() == 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected histogram with 1 sample")
	}
}

func TestLedgerBlocksGauge_TracksAppendAndClear(t *testing.T) {
	l := New()
	ctx := context.Background()
	l.Append(ctx, Record{KeySessionID: "g1"})
	l.Append(ctx, Record{KeySessionID: "g2"})

	m := &dto.Metric{}
	_ = LedgerBlocks.Write(m)
	if m.Gauge.GetValue() != 2 {
		t.Errorf("expected gauge 2, got %f", m.Gauge.GetValue())
	}

	l.Clear()
	m = &dto.Metric{}
	_ = LedgerBlocks.Write(m)
	if m.Gauge.GetValue() != 0 {
		t.Errorf("expected gauge 0 after clear, got %f", m.Gauge.GetValue())
	}
}
