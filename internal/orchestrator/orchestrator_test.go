package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"chart-terminal/internal/cache"
	"chart-terminal/internal/model"
	"chart-terminal/internal/quotes"
	"chart-terminal/internal/timerange"
)

type fakeStore struct {
	calls   atomic.Int64
	points  []model.PricePoint
	err     error
	release chan struct{} // when non-nil, QuerySeries blocks until closed
}

func (f *fakeStore) QuerySeries(ctx context.Context, symbol string, r model.Resolution, from, to time.Time, limit int) ([]model.PricePoint, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.points, f.err
}

func (f *fakeStore) QuerySeriesBatch(ctx context.Context, symbols []string, r model.Resolution, from, to time.Time, limit int) (map[string][]model.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]model.PricePoint, len(symbols))
	for _, s := range symbols {
		out[s] = f.points
	}
	return out, nil
}

type fakeQuotes struct {
	points []model.PricePoint
	err    error
}

func (f *fakeQuotes) FetchSeries(ctx context.Context, symbol string, r model.Resolution, from, to time.Time, limit int) ([]model.PricePoint, error) {
	return f.points, f.err
}

// freshPoints returns n valid rows whose newest timestamp is now, so the
// gap-fill path stays quiet.
func freshPoints(n int) []model.PricePoint {
	now := time.Now().UnixMilli()
	points := make([]model.PricePoint, n)
	for i := range points {
		points[i] = model.PricePoint{
			Timestamp: now - int64(n-1-i)*60_000,
			Open:      100, High: 101, Low: 99, Close: 100.5,
			Session: model.SessionRegular,
		}
	}
	return points
}

func monthPolicy(t *testing.T) timerange.Policy {
	t.Helper()
	p, err := timerange.Resolve(timerange.RangeMonth)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFetchFallsBackToSyntheticWhenAllSourcesFail(t *testing.T) {
	o := New(
		cache.NewMemory(4, time.Minute),
		nil,
		&fakeStore{err: errors.New("store down")},
		&fakeQuotes{err: &quotes.TimeoutError{Symbol: "SPY"}},
		nil,
		zap.NewNop(),
	)

	s, err := o.Fetch(context.Background(), "SPY", monthPolicy(t))
	if err != nil {
		t.Fatalf("fetch should degrade, not fail: %v", err)
	}
	if !s.IsMock() {
		t.Errorf("source = %s, want mock when every real source fails", s.Source)
	}
	if len(s.Points) == 0 {
		t.Error("synthetic fallback returned no points")
	}
}

func TestFetchServesFromStore(t *testing.T) {
	st := &fakeStore{points: freshPoints(50)}
	o := New(cache.NewMemory(4, time.Minute), nil, st, &fakeQuotes{err: errors.New("unused")}, nil, zap.NewNop())

	s, err := o.Fetch(context.Background(), "SPY", monthPolicy(t))
	if err != nil {
		t.Fatal(err)
	}
	if s.Source != model.SourceStore {
		t.Errorf("source = %s, want store", s.Source)
	}
	if len(s.Points) != 50 {
		t.Errorf("got %d points, want 50", len(s.Points))
	}
}

func TestFetchPopulatesMemoryCache(t *testing.T) {
	st := &fakeStore{points: freshPoints(50)}
	o := New(cache.NewMemory(4, time.Minute), nil, st, nil, nil, zap.NewNop())
	policy := monthPolicy(t)

	if _, err := o.Fetch(context.Background(), "SPY", policy); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Fetch(context.Background(), "SPY", policy); err != nil {
		t.Fatal(err)
	}
	if got := st.calls.Load(); got != 1 {
		t.Errorf("store queried %d times, second fetch should hit the cache", got)
	}
}

func TestFetchInsufficientStoreRowsFallsThrough(t *testing.T) {
	// Fewer rows than the acceptance floor: the quote API should serve.
	st := &fakeStore{points: freshPoints(3)}
	q := &fakeQuotes{points: freshPoints(50)}
	o := New(cache.NewMemory(4, time.Minute), nil, st, q, nil, zap.NewNop())

	s, err := o.Fetch(context.Background(), "SPY", monthPolicy(t))
	if err != nil {
		t.Fatal(err)
	}
	if s.Source != model.SourceQuote {
		t.Errorf("source = %s, want quote when the store is too thin", s.Source)
	}
}

func TestFetchCancelledContextIsStale(t *testing.T) {
	o := New(cache.NewMemory(4, time.Minute), nil, nil, nil, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Fetch(ctx, "SPY", monthPolicy(t)); !errors.Is(err, ErrStaleFetch) {
		t.Errorf("err = %v, want ErrStaleFetch", err)
	}
}

func TestConcurrentFetchesShareOneStoreQuery(t *testing.T) {
	st := &fakeStore{points: freshPoints(50), release: make(chan struct{})}
	o := New(cache.NewMemory(4, time.Minute), nil, st, nil, nil, zap.NewNop())
	policy := monthPolicy(t)

	const n = 4
	var wg sync.WaitGroup
	results := make([]*model.ChartSeries, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := o.Fetch(context.Background(), "SPY", policy)
			if err != nil {
				t.Errorf("fetch %d: %v", i, err)
				return
			}
			results[i] = s
		}(i)
	}

	// Let the stragglers reach the in-flight wait before releasing.
	time.Sleep(50 * time.Millisecond)
	close(st.release)
	wg.Wait()

	if got := st.calls.Load(); got != 1 {
		t.Errorf("store queried %d times for one key, want 1", got)
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Errorf("fetch %d got a different series than fetch 0", i)
		}
	}
}

// ctxStore honors context cancellation while blocked, so a fetch can be
// abandoned mid-query.
type ctxStore struct {
	calls   atomic.Int64
	points  []model.PricePoint
	release chan struct{}
}

func (f *ctxStore) QuerySeries(ctx context.Context, symbol string, r model.Resolution, from, to time.Time, limit int) ([]model.PricePoint, error) {
	f.calls.Add(1)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.release:
		return f.points, nil
	}
}

func (f *ctxStore) QuerySeriesBatch(ctx context.Context, symbols []string, r model.Resolution, from, to time.Time, limit int) (map[string][]model.PricePoint, error) {
	return nil, errors.New("unused")
}

func TestJoinerRetriesAfterOriginatorCancels(t *testing.T) {
	st := &ctxStore{points: freshPoints(50), release: make(chan struct{})}
	o := New(cache.NewMemory(4, time.Minute), nil, st, nil, nil, zap.NewNop())
	policy := monthPolicy(t)

	originatorCtx, cancelOriginator := context.WithCancel(context.Background())
	originatorErr := make(chan error, 1)
	go func() {
		_, err := o.Fetch(originatorCtx, "SPY", policy)
		originatorErr <- err
	}()
	time.Sleep(20 * time.Millisecond) // originator owns the in-flight slot

	joinerDone := make(chan *model.ChartSeries, 1)
	go func() {
		s, err := o.Fetch(context.Background(), "SPY", policy)
		if err != nil {
			t.Errorf("joiner inherited the originator's cancellation: %v", err)
		}
		joinerDone <- s
	}()
	time.Sleep(20 * time.Millisecond) // joiner is waiting on the pending fetch

	cancelOriginator()
	if err := <-originatorErr; !errors.Is(err, ErrStaleFetch) {
		t.Fatalf("originator err = %v, want ErrStaleFetch", err)
	}

	// The joiner's retry re-queries the store under its own live context.
	close(st.release)
	s := <-joinerDone
	if s == nil || s.Source != model.SourceStore {
		t.Fatalf("joiner got %+v, want the store series", s)
	}
}

// mixedCaseStore keys its batch results the way rows are stored, upper
// case, regardless of how the request spells the symbols.
type mixedCaseStore struct {
	fakeStore
}

func (f *mixedCaseStore) QuerySeriesBatch(ctx context.Context, symbols []string, r model.Resolution, from, to time.Time, limit int) (map[string][]model.PricePoint, error) {
	out := make(map[string][]model.PricePoint, len(symbols))
	for _, s := range symbols {
		out[strings.ToUpper(s)] = f.points
	}
	return out, nil
}

func TestFetchBatchIsCaseInsensitive(t *testing.T) {
	st := &mixedCaseStore{fakeStore{points: freshPoints(50)}}
	o := New(cache.NewMemory(8, time.Minute), nil, st, nil, nil, zap.NewNop())

	result, err := o.FetchBatch(context.Background(), []string{"spy", "aapl"}, monthPolicy(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, symbol := range []string{"spy", "aapl"} {
		s, ok := result[symbol]
		if !ok || s.Source != model.SourceStore {
			t.Errorf("%s missed the batch result and degraded to a per-symbol walk", symbol)
		}
	}
	if got := st.calls.Load(); got != 0 {
		t.Errorf("per-symbol store queries = %d, want 0 when the batch serves everything", got)
	}
}

func TestFetchBatchUsesOneQueryAndFallsBackPerSymbol(t *testing.T) {
	st := &fakeStore{points: freshPoints(50)}
	o := New(cache.NewMemory(8, time.Minute), nil, st, nil, nil, zap.NewNop())

	result, err := o.FetchBatch(context.Background(), []string{"SPY", "AAPL"}, monthPolicy(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 2 {
		t.Fatalf("got %d series, want 2", len(result))
	}
	for symbol, s := range result {
		if s.Source != model.SourceStore {
			t.Errorf("%s source = %s, want store", symbol, s.Source)
		}
	}
}
