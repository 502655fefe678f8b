package usecase

import (
	"testing"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
)

func tick(sym string, ts time.Time, price, vol float64) *models.Tick {
	return &models.Tick{Symbol: sym, Timestamp: ts.Unix(), Price: price, Volume: vol}
}

func TestAggregatorBuildsBar(t *testing.T) {
	a := NewCandleAggregator(domrepo.TF1h)
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	if c := a.Add(tick("BTCUSDT", base, 100, 1)); c != nil {
		t.Fatalf("first tick must not emit")
	}
	a.Add(tick("BTCUSDT", base.Add(10*time.Minute), 110, 2))
	a.Add(tick("BTCUSDT", base.Add(20*time.Minute), 95, 1))
	a.Add(tick("BTCUSDT", base.Add(30*time.Minute), 105, 1))

	done := a.Add(tick("BTCUSDT", base.Add(time.Hour), 107, 1))
	if done == nil {
		t.Fatalf("bucket roll must emit the finished bar")
	}
	if done.Open != 100 || done.High != 110 || done.Low != 95 || done.Close != 105 {
		t.Fatalf("bad OHLC %+v", done)
	}
	if done.Volume != 5 {
		t.Fatalf("bad volume %v", done.Volume)
	}
	if !done.Bucket.Equal(base) {
		t.Fatalf("bad bucket %v", done.Bucket)
	}
}

func TestAggregatorPerSymbol(t *testing.T) {
	a := NewCandleAggregator(domrepo.TF1h)
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	a.Add(tick("BTCUSDT", base, 100, 1))
	a.Add(tick("ETHUSDT", base, 10, 1))

	// BTC rolls; ETH stays open
	if done := a.Add(tick("BTCUSDT", base.Add(time.Hour), 101, 1)); done == nil || done.Symbol != "BTCUSDT" {
		t.Fatalf("expected BTC bar, got %+v", done)
	}
	flushed := a.Flush()
	if len(flushed) != 2 {
		t.Fatalf("expected 2 open bars, got %d", len(flushed))
	}
}

func TestAggregatorDropsLateTick(t *testing.T) {
	a := NewCandleAggregator(domrepo.TF1h)
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	a.Add(tick("BTCUSDT", base.Add(time.Hour), 100, 1))
	if c := a.Add(tick("BTCUSDT", base, 90, 1)); c != nil {
		t.Fatalf("late tick must not emit")
	}
	open := a.Flush()
	if len(open) != 1 || open[0].Low != 100 {
		t.Fatalf("late tick must not mutate the open bar: %+v", open)
	}
}

func TestAggregatorIgnoresBadTicks(t *testing.T) {
	a := NewCandleAggregator(domrepo.TF1h)
	if c := a.Add(nil); c != nil {
		t.Fatalf("nil tick must be ignored")
	}
	if c := a.Add(&models.Tick{Symbol: "", Price: 1}); c != nil {
		t.Fatalf("empty symbol must be ignored")
	}
	if c := a.Add(&models.Tick{Symbol: "BTCUSDT", Price: 0}); c != nil {
		t.Fatalf("non-positive price must be ignored")
	}
	if len(a.Flush()) != 0 {
		t.Fatalf("no bars should be open")
	}
}
