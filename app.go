package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"chart-terminal/internal/cache"
	"chart-terminal/internal/chart"
	"chart-terminal/internal/config"
	"chart-terminal/internal/hover"
	"chart-terminal/internal/market"
	"chart-terminal/internal/model"
	"chart-terminal/internal/orchestrator"
	"chart-terminal/internal/quotes"
	"chart-terminal/internal/series"
	"chart-terminal/internal/store"
	"chart-terminal/internal/timerange"
	"chart-terminal/internal/tracker"
)

// HostCallbacks let the embedding host react to chart interaction. All
// callbacks are optional.
type HostCallbacks struct {
	OnTimeRangeChange func(symbol string, r timerange.Range)
	OnCrosshairActive func(active bool)
	OnEventClick      func(ev model.CatalystEvent)
}

// RenderOutput is everything the host needs to paint one chart pass.
type RenderOutput struct {
	Symbol        string                `json:"symbol"`
	Range         timerange.Range       `json:"range"`
	Source        model.Source          `json:"source"`
	Mock          bool                  `json:"mock"`
	Split         model.ViewportSplit   `json:"split"`
	Paths         []chart.PathSegment   `json:"paths"`
	Volume        []chart.VolumeBar     `json:"volume"`
	Candles       []chart.Candle        `json:"candles"`
	FutureEvents  []hover.ProjectedEvent `json:"futureEvents"`
	UpcomingCount int                   `json:"upcomingCount"`
}

// chartInstance is one mounted chart: its visible series, mapper, hover
// engine, and the cancel for its in-flight fetch. Each instance owns its
// interaction state exclusively.
type chartInstance struct {
	symbol    string
	rng       timerange.Range
	kind      hover.ChartKind
	width     float64
	height    float64
	points    []model.PricePoint
	mapper    *chart.Mapper
	engine    *hover.Engine
	projector *hover.Projector
	cancel    context.CancelFunc
}

// App wires the chart pipeline together and exposes it to the host.
type App struct {
	ctx       context.Context
	settings  *config.Settings
	log       *zap.Logger
	store     *store.Store
	stream    *quotes.Stream
	orch      *orchestrator.Orchestrator
	sharedCch *cache.Redis
	tracker   *tracker.Tracker
	cron      *cron.Cron
	callbacks HostCallbacks

	mu     sync.RWMutex
	charts map[string]*chartInstance // keyed by symbol
	now    func() time.Time
}

// NewApp builds the application from loaded settings. A missing primary
// store or shared cache degrades the source walk rather than failing
// startup; the synthetic fallback guarantees charts always render.
func NewApp(ctx context.Context, settings *config.Settings, log *zap.Logger) *App {
	app := &App{
		ctx:      ctx,
		settings: settings,
		log:      log,
		tracker:  tracker.New(),
		charts:   make(map[string]*chartInstance),
		now:      time.Now,
	}

	st, err := store.Open(settings.DatabasePath, log)
	if err != nil {
		log.Warn("primary store unavailable, falling back to remote sources", zap.Error(err))
	} else {
		app.store = st
	}

	memory := cache.NewMemory(config.MemoryCacheMaxEntries, time.Duration(settings.CacheTTLMs)*time.Millisecond)

	var shared cache.Store
	if settings.RedisAddr != "" {
		redisCache, err := cache.NewRedis(settings.RedisAddr, settings.RedisPassword, settings.RedisDB,
			time.Duration(settings.CacheTTLMs)*time.Millisecond, log)
		if err != nil {
			log.Warn("shared cache unavailable", zap.String("addr", settings.RedisAddr), zap.Error(err))
		} else {
			shared = redisCache
			app.sharedCch = redisCache
		}
	}

	quoteClient := quotes.NewClient(settings.QuoteAPIURL, settings.QuoteAPIKey, log)

	var live orchestrator.LiveQuoter
	if settings.QuoteAPIKey != "" {
		app.stream = quotes.NewStream("wss://socket.polygon.io/stocks", settings.QuoteAPIKey, log)
		live = app.stream
	}

	var seriesStore orchestrator.SeriesStore
	if app.store != nil {
		seriesStore = app.store
	}
	app.orch = orchestrator.New(memory, shared, seriesStore, quoteClient, live, log)

	return app
}

// SetCallbacks installs host callbacks. Must be called before charts
// are opened.
func (a *App) SetCallbacks(cb HostCallbacks) {
	a.callbacks = cb
}

// Start launches the quote stream and the background refresh of
// displayed symbols.
func (a *App) Start() error {
	if a.stream != nil {
		go a.stream.Run(a.ctx)
	}

	// Configured symbols warm the caches before their charts open
	for _, sym := range a.settings.Symbols {
		a.tracker.Register(sym, timerange.RangeMonth)
		if a.stream != nil {
			a.stream.Subscribe(sym)
		}
	}

	a.cron = cron.New()
	if _, err := a.cron.AddFunc(a.settings.RefreshCron, a.refreshDisplayed); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	a.cron.Start()
	return nil
}

// Stop shuts the background machinery down.
func (a *App) Stop() {
	if a.cron != nil {
		a.cron.Stop()
	}
	a.mu.Lock()
	for _, inst := range a.charts {
		if inst.cancel != nil {
			inst.cancel()
		}
	}
	a.mu.Unlock()
	if a.sharedCch != nil {
		a.sharedCch.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// OpenChart mounts a chart for a symbol, fetches its data, and returns
// the first render pass.
func (a *App) OpenChart(symbol string, r timerange.Range, width, height float64, kind hover.ChartKind) (*RenderOutput, error) {
	if kind == "" {
		kind = hover.KindLine
	}

	inst := &chartInstance{
		symbol: symbol,
		rng:    r,
		kind:   kind,
		width:  width,
		height: height,
		engine: hover.NewEngine(a.settings.SnapRadiusPx, a.settings.FutureSnapFraction, a.callbacks.OnCrosshairActive),
	}

	a.mu.Lock()
	if prev, ok := a.charts[symbol]; ok && prev.cancel != nil {
		prev.cancel()
	}
	a.charts[symbol] = inst
	a.mu.Unlock()

	a.tracker.Register(symbol, r)
	if a.stream != nil {
		a.stream.Subscribe(symbol)
	}

	return a.renderChart(inst)
}

// SetTimeRange switches a mounted chart to a new display window. Any
// in-flight fetch for the previous range is cancelled so its result can
// never overwrite the new view, and hover state resets to idle.
func (a *App) SetTimeRange(symbol string, r timerange.Range) (*RenderOutput, error) {
	a.mu.Lock()
	inst, ok := a.charts[symbol]
	if !ok {
		a.mu.Unlock()
		return nil, fmt.Errorf("no chart mounted for %s", symbol)
	}
	if inst.cancel != nil {
		inst.cancel()
	}
	inst.rng = r
	inst.engine.Reset()
	a.mu.Unlock()

	a.tracker.Register(symbol, r)
	if a.callbacks.OnTimeRangeChange != nil {
		a.callbacks.OnTimeRangeChange(symbol, r)
	}
	return a.renderChart(inst)
}

// CloseChart unmounts a chart: cancels any in-flight fetch and drops the
// interaction state.
func (a *App) CloseChart(symbol string) {
	a.mu.Lock()
	if inst, ok := a.charts[symbol]; ok {
		if inst.cancel != nil {
			inst.cancel()
		}
		inst.engine.Reset()
		delete(a.charts, symbol)
	}
	a.mu.Unlock()
	a.tracker.Unregister(symbol)
}

// renderChart runs the full pipeline for one chart instance. Instance
// fields are only touched under a.mu; the instance pointer itself is
// shared with concurrent hover handlers.
func (a *App) renderChart(inst *chartInstance) (*RenderOutput, error) {
	fetchCtx, cancel := context.WithCancel(a.ctx)

	a.mu.Lock()
	rng := inst.rng
	width, height := inst.width, inst.height
	kind := inst.kind
	inst.cancel = cancel
	a.mu.Unlock()

	policy, err := timerange.Resolve(rng)
	if err != nil {
		cancel()
		return nil, err
	}

	chartSeries, err := a.orch.Fetch(fetchCtx, inst.symbol, policy)
	if err != nil {
		// Stale fetches are expected during rapid range switching
		return nil, err
	}

	points := make([]model.PricePoint, len(chartSeries.Points))
	copy(points, chartSeries.Points)
	market.TagSessions(points)

	sampled, stride := series.Downsample(points, policy.Span, policy.RowBudget)
	expectedInterval := policy.Resolution.Interval() * time.Duration(stride)
	runs := series.Segment(sampled, expectedInterval)

	split := model.ViewportSplit{PastPercent: a.settings.PastPercent, FuturePercent: a.settings.FuturePercent}
	mapper := chart.NewMapper(sampled, width, height, a.settings.PaddingPercent, split)

	now := a.now()
	events := a.loadEvents(inst.symbol)
	pastEvents, futureEvents := model.SplitEvents(events, now)

	projector := hover.NewProjector(rng, now)
	projected := projector.Project(futureEvents)

	// Swap the view and the engine's data under one lock so a concurrent
	// hover can never pair the new engine state with the old mapper.
	a.mu.Lock()
	inst.points = sampled
	inst.mapper = mapper
	inst.projector = projector
	inst.engine.SetData(sampled, mapper, pastEvents, projected, kind)
	a.mu.Unlock()

	return &RenderOutput{
		Symbol:        inst.symbol,
		Range:         rng,
		Source:        chartSeries.Source,
		Mock:          chartSeries.IsMock(),
		Split:         split,
		Paths:         chart.SmoothRuns(runs, mapper, a.settings.TensionParam),
		Volume:        chart.BuildVolumeBars(sampled, mapper),
		Candles:       chart.BuildCandles(sampled, mapper),
		FutureEvents:  projected,
		UpcomingCount: projector.UpcomingCount(futureEvents),
	}, nil
}

// HasChart reports whether a chart is mounted for the symbol.
func (a *App) HasChart(symbol string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.charts[symbol]
	return ok
}

// HoverMove handles one pointer move for a mounted chart and returns the
// crosshair tuple, if the pointer resolved to one.
func (a *App) HoverMove(symbol string, x, y float64) (hover.Info, bool) {
	// Held across the engine reduce and the describe so the state always
	// matches the points/mapper/projector it is resolved against. Lock
	// order is a.mu then the engine's own mutex, same as renderChart.
	a.mu.RLock()
	defer a.mu.RUnlock()

	inst, ok := a.charts[symbol]
	if !ok || inst.mapper == nil {
		return hover.Info{}, false
	}

	state := inst.engine.Move(x, y)
	return hover.Describe(state, inst.points, inst.mapper, inst.projector, a.now())
}

// HoverLeave resets a chart's hover state to idle.
func (a *App) HoverLeave(symbol string) {
	a.mu.RLock()
	inst, ok := a.charts[symbol]
	a.mu.RUnlock()
	if ok {
		inst.engine.Reset()
	}
}

// ClickEvent forwards an event click to the host.
func (a *App) ClickEvent(ev model.CatalystEvent) {
	if a.callbacks.OnEventClick != nil {
		a.callbacks.OnEventClick(ev)
	}
}

// Events returns a symbol's catalyst events partitioned at read time.
func (a *App) Events(symbol string) (past, future []model.CatalystEvent) {
	return model.SplitEvents(a.loadEvents(symbol), a.now())
}

// loadEvents reads catalyst events from the store; a missing store means
// no events, never an error surfaced to rendering.
func (a *App) loadEvents(symbol string) []model.CatalystEvent {
	if a.store == nil {
		return nil
	}
	events, err := a.store.EventsForSymbol(a.ctx, symbol)
	if err != nil {
		a.log.Warn("failed to load events", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}
	return events
}

// refreshDisplayed re-fetches every displayed symbol, grouped by range
// so each group is one batch store query. Refreshed results land in the
// caches; mounted charts pick them up on their next render.
func (a *App) refreshDisplayed() {
	byRange := make(map[timerange.Range][]string)
	for symbol, r := range a.tracker.Displayed() {
		byRange[r] = append(byRange[r], symbol)
	}

	for r, symbols := range byRange {
		policy, err := timerange.Resolve(r)
		if err != nil {
			continue
		}
		if _, err := a.orch.FetchBatch(a.ctx, symbols, policy); err != nil {
			a.log.Warn("background refresh failed", zap.Strings("symbols", symbols), zap.Error(err))
		}
	}
}

// Health reports which source tiers are live.
func (a *App) Health() map[string]bool {
	return map[string]bool{
		"store":  a.store != nil,
		"shared": a.sharedCch != nil,
		"stream": a.stream != nil,
	}
}
