package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"chart-terminal/internal/cache"
	"chart-terminal/internal/config"
	"chart-terminal/internal/market"
	"chart-terminal/internal/model"
	"chart-terminal/internal/quotes"
	"chart-terminal/internal/store"
	"chart-terminal/internal/synthetic"
	"chart-terminal/internal/timerange"
)

// SeriesStore is the primary structured store surface the orchestrator
// needs. Satisfied by *store.Store.
type SeriesStore interface {
	QuerySeries(ctx context.Context, symbol string, resolution model.Resolution, from, to time.Time, limit int) ([]model.PricePoint, error)
	QuerySeriesBatch(ctx context.Context, symbols []string, resolution model.Resolution, from, to time.Time, limitPerSymbol int) (map[string][]model.PricePoint, error)
}

// QuoteFetcher is the remote live-quote API surface.
type QuoteFetcher interface {
	FetchSeries(ctx context.Context, symbol string, resolution model.Resolution, from, to time.Time, limit int) ([]model.PricePoint, error)
}

// LiveQuoter exposes the freshest streamed quote per symbol.
type LiveQuoter interface {
	Latest(symbol string) (quotes.Quote, bool)
}

// Orchestrator fetches a price series by walking an ordered list of
// sources - memory cache, shared cache, primary store, remote quote API,
// synthetic fallback - stopping at the first source with an acceptable
// row count. Successful results populate the caches. Exactly one fetch
// per (symbol, resolution, span) key is in flight at a time; concurrent
// requests for the same key reuse the pending result.
type Orchestrator struct {
	memory cache.Store
	shared cache.Store // nil when redis is not configured
	store  SeriesStore // nil when the primary store is unavailable
	quotes QuoteFetcher
	live   LiveQuoter // nil when the stream is not running
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	inflight map[cache.Key]*pendingFetch
}

type pendingFetch struct {
	done   chan struct{}
	series *model.ChartSeries
	err    error
}

// New creates an orchestrator. shared, st, qf and live may be nil; the
// source walk simply skips absent tiers.
func New(memory cache.Store, shared cache.Store, st SeriesStore, qf QuoteFetcher, live LiveQuoter, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		memory:   memory,
		shared:   shared,
		store:    st,
		quotes:   qf,
		live:     live,
		log:      log,
		now:      time.Now,
		inflight: make(map[cache.Key]*pendingFetch),
	}
}

// Fetch returns a series for symbol under the given policy. It never
// returns an empty view: when every real source fails the result is the
// synthetic fallback tagged source "mock". The only error paths are a
// cancelled context (ErrStaleFetch) so stale results never overwrite the
// current view.
func (o *Orchestrator) Fetch(ctx context.Context, symbol string, policy timerange.Policy) (*model.ChartSeries, error) {
	key := cache.Key{Symbol: symbol, Resolution: policy.Resolution, Span: policy.Span}

	for {
		o.mu.Lock()
		if pending, ok := o.inflight[key]; ok {
			o.mu.Unlock()
			select {
			case <-pending.done:
				// A stale result belongs to the originator's cancelled
				// context, not ours; take over the walk.
				if errors.Is(pending.err, ErrStaleFetch) && ctx.Err() == nil {
					continue
				}
				return pending.series, pending.err
			case <-ctx.Done():
				return nil, ErrStaleFetch
			}
		}
		pending := &pendingFetch{done: make(chan struct{})}
		o.inflight[key] = pending
		o.mu.Unlock()

		series, err := o.walkSources(ctx, symbol, key, policy)

		pending.series = series
		pending.err = err
		close(pending.done)

		o.mu.Lock()
		delete(o.inflight, key)
		o.mu.Unlock()

		return series, err
	}
}

// walkSources tries each tier in priority order.
func (o *Orchestrator) walkSources(ctx context.Context, symbol string, key cache.Key, policy timerange.Policy) (*model.ChartSeries, error) {
	from, to := policy.Window(o.now())

	// 1. In-memory cache; staleness is the cache's own concern.
	if s, ok := o.memory.Get(ctx, key); ok {
		return s, nil
	}

	// 2. Shared cache, when configured.
	if o.shared != nil {
		if s, ok := o.shared.Get(ctx, key); ok {
			o.memory.Set(ctx, key, s)
			return s, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, ErrStaleFetch
	}

	// 3. Primary structured store.
	if o.store != nil {
		points, err := o.store.QuerySeries(ctx, symbol, policy.Resolution, from, to, policy.RowBudget)
		switch {
		case err == nil && len(points) >= config.MinAcceptableRows:
			points = o.fillRecentGap(ctx, symbol, policy, points, to)
			s := &model.ChartSeries{Symbol: symbol, Resolution: policy.Resolution, Source: model.SourceStore, Points: points}
			o.populateCaches(ctx, key, s)
			return s, nil
		case err != nil:
			var timeout *store.QueryTimeoutError
			if errors.As(err, &timeout) {
				// Predicate already logged with the index hint; fall
				// through to the next source instead of retrying.
			} else if errors.Is(err, context.Canceled) {
				return nil, ErrStaleFetch
			} else {
				o.log.Warn("store query failed", zap.String("symbol", symbol), zap.Error(err))
			}
		default:
			o.log.Debug("store returned insufficient rows",
				zap.String("symbol", symbol), zap.Int("rows", len(points)))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, ErrStaleFetch
	}

	// 4. Remote live-quote API.
	if o.quotes != nil {
		points, err := o.quotes.FetchSeries(ctx, symbol, policy.Resolution, from, to, policy.RowBudget)
		if err == nil && len(points) >= config.MinAcceptableRows {
			s := &model.ChartSeries{Symbol: symbol, Resolution: policy.Resolution, Source: model.SourceQuote, Points: points}
			o.populateCaches(ctx, key, s)
			return s, nil
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, ErrStaleFetch
			}
			o.log.Warn("quote API fetch failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, ErrStaleFetch
	}

	// 5. Synthetic fallback: the UI renders a flagged mock series rather
	// than nothing.
	o.log.Warn("all sources exhausted, serving synthetic series",
		zap.String("symbol", symbol),
		zap.Duration("span", policy.Span),
		zap.Int("rowBudget", policy.RowBudget))
	s := synthetic.Generate(symbol, policy.Resolution, from, to, policy.RowBudget)
	if s == nil || len(s.Points) == 0 {
		return nil, ErrDataUnavailable
	}
	return s, nil
}

// FetchBatch loads series for several symbols with one store query
// instead of one per symbol. Symbols the batch misses fall back to the
// per-symbol walk.
func (o *Orchestrator) FetchBatch(ctx context.Context, symbols []string, policy timerange.Policy) (map[string]*model.ChartSeries, error) {
	from, to := policy.Window(o.now())
	result := make(map[string]*model.ChartSeries, len(symbols))

	remaining := symbols
	if o.store != nil {
		batch, err := o.store.QuerySeriesBatch(ctx, symbols, policy.Resolution, from, to, policy.RowBudget)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, ErrStaleFetch
			}
			o.log.Warn("batch store query failed", zap.Strings("symbols", symbols), zap.Error(err))
		} else {
			remaining = remaining[:0:0]
			for _, symbol := range symbols {
				points := batch[strings.ToUpper(symbol)]
				if len(points) >= config.MinAcceptableRows {
					s := &model.ChartSeries{Symbol: symbol, Resolution: policy.Resolution, Source: model.SourceStore, Points: points}
					key := cache.Key{Symbol: symbol, Resolution: policy.Resolution, Span: policy.Span}
					o.populateCaches(ctx, key, s)
					result[symbol] = s
				} else {
					remaining = append(remaining, symbol)
				}
			}
		}
	}

	for _, symbol := range remaining {
		s, err := o.Fetch(ctx, symbol, policy)
		if err != nil {
			return nil, err
		}
		result[symbol] = s
	}
	return result, nil
}

// fillRecentGap appends the freshest streamed quote as a closing bar
// when the store's newest row is more than one polling interval old.
func (o *Orchestrator) fillRecentGap(ctx context.Context, symbol string, policy timerange.Policy, points []model.PricePoint, to time.Time) []model.PricePoint {
	if len(points) == 0 {
		return points
	}
	newest := points[len(points)-1].Timestamp
	staleAfter := o.now().Add(-time.Duration(config.QuotePollingIntervalMs) * time.Millisecond).UnixMilli()
	if newest >= staleAfter {
		return points
	}

	// Prefer the websocket stream; it costs nothing.
	if o.live != nil {
		if q, ok := o.live.Latest(symbol); ok && q.Timestamp > newest {
			points = append(points, model.PricePoint{
				Timestamp: q.Timestamp,
				Open:      q.Price,
				High:      q.Price,
				Low:       q.Price,
				Close:     q.Price,
				Volume:    q.Size,
				Session:   market.SessionAtMilli(q.Timestamp),
			})
			return points
		}
	}

	// Otherwise ask the quote API for just the gap.
	if o.quotes != nil {
		gapFrom := time.UnixMilli(newest)
		fill, err := o.quotes.FetchSeries(ctx, symbol, policy.Resolution, gapFrom, to, policy.RowBudget)
		if err != nil {
			o.log.Debug("gap fill fetch failed", zap.String("symbol", symbol), zap.Error(err))
			return points
		}
		for _, p := range fill {
			if p.Timestamp > newest {
				points = append(points, p)
			}
		}
	}
	return points
}

// populateCaches writes a fresh result into both cache tiers.
func (o *Orchestrator) populateCaches(ctx context.Context, key cache.Key, s *model.ChartSeries) {
	o.memory.Set(ctx, key, s)
	if o.shared != nil {
		o.shared.Set(ctx, key, s)
	}
}
