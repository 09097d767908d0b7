package timerange

import (
	"testing"
	"time"

	"chart-terminal/internal/model"
)

func TestResolveMapsEveryRange(t *testing.T) {
	tests := []struct {
		rng        Range
		span       time.Duration
		resolution model.Resolution
	}{
		{RangeToday, 24 * time.Hour, model.ResolutionMinute},
		{RangeWeek, 7 * 24 * time.Hour, model.ResolutionFiveMinute},
		{RangeMonth, 30 * 24 * time.Hour, model.ResolutionHour},
		{RangeThreeMonth, 90 * 24 * time.Hour, model.ResolutionHour},
		{RangeYear, 365 * 24 * time.Hour, model.ResolutionDay},
		{RangeFiveYear, 5 * 365 * 24 * time.Hour, model.ResolutionDay},
	}
	for _, tt := range tests {
		p, err := Resolve(tt.rng)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", tt.rng, err)
		}
		if p.Span != tt.span {
			t.Errorf("Resolve(%s) span = %v, want %v", tt.rng, p.Span, tt.span)
		}
		if p.Resolution != tt.resolution {
			t.Errorf("Resolve(%s) resolution = %v, want %v", tt.rng, p.Resolution, tt.resolution)
		}
		if p.RowBudget <= 0 {
			t.Errorf("Resolve(%s) row budget = %d, want positive", tt.rng, p.RowBudget)
		}
	}
}

func TestResolveRejectsUnknownRange(t *testing.T) {
	if _, err := Resolve(Range("2W")); err == nil {
		t.Error("expected error for unknown range")
	}
}

func TestPolicyWindowEndsAtNow(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	p, _ := Resolve(RangeWeek)
	from, to := p.Window(now)
	if !to.Equal(now) {
		t.Errorf("window end = %v, want %v", to, now)
	}
	if got := to.Sub(from); got != p.Span {
		t.Errorf("window length = %v, want %v", got, p.Span)
	}
}

func TestStrideForSpan(t *testing.T) {
	tests := []struct {
		span time.Duration
		want int
	}{
		{30 * time.Minute, 1},
		{time.Hour, 1},
		{time.Hour + time.Minute, 5},
		{4 * time.Hour, 5},
		{8 * time.Hour, 15},
		{12 * time.Hour, 15},
		{18 * time.Hour, 30},
		{24 * time.Hour, 30},
		{25 * time.Hour, 60},
		{30 * 24 * time.Hour, 60},
	}
	for _, tt := range tests {
		if got := StrideForSpan(tt.span); got != tt.want {
			t.Errorf("StrideForSpan(%v) = %d, want %d", tt.span, got, tt.want)
		}
	}
}

func TestFutureWindow(t *testing.T) {
	tests := []struct {
		rng  Range
		want time.Duration
	}{
		{RangeToday, 90 * 24 * time.Hour},
		{RangeWeek, 90 * 24 * time.Hour},
		{RangeMonth, 90 * 24 * time.Hour},
		{RangeThreeMonth, 90 * 24 * time.Hour},
		{RangeYear, 365 * 24 * time.Hour},
		{RangeFiveYear, 1825 * 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := FutureWindow(tt.rng); got != tt.want {
			t.Errorf("FutureWindow(%s) = %v, want %v", tt.rng, got, tt.want)
		}
	}
}
