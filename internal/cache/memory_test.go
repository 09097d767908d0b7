package cache

import (
	"context"
	"testing"
	"time"

	"chart-terminal/internal/model"
)

func seriesFor(symbol string) *model.ChartSeries {
	return &model.ChartSeries{
		Symbol:     symbol,
		Resolution: model.ResolutionHour,
		Source:     model.SourceStore,
		Points:     []model.PricePoint{{Timestamp: 1, Open: 1, High: 2, Low: 1, Close: 2}},
	}
}

func keyFor(symbol string) Key {
	return Key{Symbol: symbol, Resolution: model.ResolutionHour, Span: time.Hour}
}

func TestMemoryHitAndMiss(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, time.Minute)

	if _, ok := m.Get(ctx, keyFor("SPY")); ok {
		t.Fatal("hit on empty cache")
	}

	m.Set(ctx, keyFor("SPY"), seriesFor("SPY"))
	s, ok := m.Get(ctx, keyFor("SPY"))
	if !ok || s.Symbol != "SPY" {
		t.Fatalf("expected hit for SPY, got ok=%v", ok)
	}

	// Different span is a different key.
	other := Key{Symbol: "SPY", Resolution: model.ResolutionHour, Span: 2 * time.Hour}
	if _, ok := m.Get(ctx, other); ok {
		t.Error("span should be part of the cache key")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, time.Nanosecond)

	m.Set(ctx, keyFor("SPY"), seriesFor("SPY"))
	time.Sleep(time.Millisecond)
	if _, ok := m.Get(ctx, keyFor("SPY")); ok {
		t.Error("expired entry served as a hit")
	}
}

func TestMemoryLRUEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Minute)

	m.Set(ctx, keyFor("A"), seriesFor("A"))
	m.Set(ctx, keyFor("B"), seriesFor("B"))
	m.Set(ctx, keyFor("C"), seriesFor("C"))

	if _, ok := m.Get(ctx, keyFor("A")); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := m.Get(ctx, keyFor("B")); !ok {
		t.Error("entry B evicted prematurely")
	}
	if _, ok := m.Get(ctx, keyFor("C")); !ok {
		t.Error("entry C evicted prematurely")
	}
	if m.Size() != 2 {
		t.Errorf("size = %d, want 2", m.Size())
	}
}

func TestMemoryEmptySeriesIsMiss(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, time.Minute)

	m.Set(ctx, keyFor("SPY"), &model.ChartSeries{Symbol: "SPY"})
	if _, ok := m.Get(ctx, keyFor("SPY")); ok {
		t.Error("empty series should read as a miss")
	}
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, time.Minute)
	m.Set(ctx, keyFor("SPY"), seriesFor("SPY"))
	m.Clear(ctx)
	if m.Size() != 0 {
		t.Errorf("size after clear = %d", m.Size())
	}
}
