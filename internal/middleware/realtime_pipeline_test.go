package middleware

import (
	"context"
	"fmt"
	"testing"
	"time"

	"Quantra/internal/domain/models"
)

type fakeProc struct {
	got  []*models.Tick
	fail bool
}

func (f *fakeProc) Process(_ context.Context, t *models.Tick) error {
	if f.fail {
		return fmt.Errorf("downstream down")
	}
	f.got = append(f.got, t)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string) {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLastPrice(string, float64)  {}
func (nopMetrics) RecordLatency(string, float64)    {}
func (nopMetrics) RecordSignal(string, string)      {}
func (nopMetrics) RecordRegime(string, int)         {}
func (nopMetrics) RecordEquity(string, float64)     {}

func validTick() *models.Tick {
	return &models.Tick{Symbol: "BTCUSDT", Timestamp: time.Now().Unix(), Price: 100, Volume: 1}
}

func TestPipelineForwardsValidTick(t *testing.T) {
	proc := &fakeProc{}
	p := NewRealtimePipeline(proc, nopMetrics{})
	if err := p.Process(context.Background(), validTick()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(proc.got) != 1 {
		t.Fatalf("expected 1 forwarded tick, got %d", len(proc.got))
	}
}

func TestPipelineRejectsInvalidTick(t *testing.T) {
	proc := &fakeProc{}
	p := NewRealtimePipeline(proc, nopMetrics{})
	if err := p.Process(context.Background(), &models.Tick{Symbol: "", Timestamp: 1, Price: 1}); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := p.Process(context.Background(), &models.Tick{Symbol: "X", Timestamp: 1, Price: 0}); err == nil {
		t.Fatalf("expected validation error for zero price")
	}
	if len(proc.got) != 0 {
		t.Fatalf("invalid ticks must not reach downstream")
	}
}

func TestPipelineThrottles(t *testing.T) {
	proc := &fakeProc{}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithMaxRPS(1))
	_ = p.Process(context.Background(), validTick())
	_ = p.Process(context.Background(), validTick()) // within the same second
	if len(proc.got) != 1 {
		t.Fatalf("expected throttle to drop the second tick, got %d", len(proc.got))
	}
}

func TestPipelineBuffersOnFailure(t *testing.T) {
	proc := &fakeProc{fail: true}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithBufferSize(4))
	if err := p.Process(context.Background(), validTick()); err == nil {
		t.Fatalf("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("failed tick must be buffered, depth %d", len(p.bufCh))
	}

	// Downstream recovers; Start drains the buffer.
	proc.fail = false
	p.Start(context.Background())
	defer p.Stop()
	deadline := time.After(2 * time.Second)
	for len(proc.got) == 0 {
		select {
		case <-deadline:
			t.Fatalf("buffered tick was never replayed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
