package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"chart-terminal/internal/config"
	"chart-terminal/internal/model"
)

// Store is the primary structured store for price rows and catalyst
// events, backed by sqlite.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(config.DBConnectionPoolMaxSize)
	db.SetConnMaxIdleTime(time.Duration(config.DBConnectionIdleTimeoutSec * float64(time.Second)))

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// queryTimeout derives the per-query context. This timeout is explicit
// and distinct from incidental network timeouts upstream.
func queryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(config.StoreQueryTimeoutSec*float64(time.Second)))
}

// QuerySeries loads price rows for one symbol, matched case-insensitively,
// constrained to [from, to], ascending by time, capped at limit rows.
// Malformed rows are skipped, counted, and logged; they never abort the
// query.
func (s *Store) QuerySeries(ctx context.Context, symbol string, resolution model.Resolution, from, to time.Time, limit int) ([]model.PricePoint, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx,
		`SELECT ts, open, high, low, close, volume, session
		   FROM price_data
		  WHERE symbol = ? AND resolution = ? AND ts >= ? AND ts <= ?
		  ORDER BY ts ASC
		  LIMIT ?`,
		symbol, string(resolution), from.UnixMilli(), to.UnixMilli(), limit)
	if err != nil {
		return nil, s.classifyQueryErr(err, []string{symbol}, from, to, limit)
	}
	defer rows.Close()

	points, skipped := scanPoints(rows)
	if err := rows.Err(); err != nil {
		return nil, s.classifyQueryErr(err, []string{symbol}, from, to, limit)
	}
	if skipped > 0 {
		s.log.Warn("skipped malformed rows",
			zap.String("symbol", symbol),
			zap.Int("skipped", skipped),
			zap.Int("kept", len(points)))
	}
	return points, nil
}

// QuerySeriesBatch loads rows for several symbols with a single query
// rather than one query per symbol. Result keys are upper-cased so the
// lookup is insensitive to how the caller or the rows spell the symbol.
func (s *Store) QuerySeriesBatch(ctx context.Context, symbols []string, resolution model.Resolution, from, to time.Time, limitPerSymbol int) (map[string][]model.PricePoint, error) {
	if len(symbols) == 0 {
		return map[string][]model.PricePoint{}, nil
	}

	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	query, args, err := sqlx.In(
		`SELECT symbol, ts, open, high, low, close, volume, session
		   FROM price_data
		  WHERE symbol IN (?) AND resolution = ? AND ts >= ? AND ts <= ?
		  ORDER BY symbol, ts ASC`,
		symbols, string(resolution), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to build batch query: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, s.classifyQueryErr(err, symbols, from, to, limitPerSymbol)
	}
	defer rows.Close()

	result := make(map[string][]model.PricePoint, len(symbols))
	skipped := 0
	for rows.Next() {
		var symbol string
		var p model.PricePoint
		var session sql.NullString
		if err := rows.Scan(&symbol, &p.Timestamp, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &session); err != nil {
			skipped++
			continue
		}
		p.Session = model.Session(session.String)
		if !validPoint(p) {
			skipped++
			continue
		}
		key := strings.ToUpper(symbol)
		if len(result[key]) < limitPerSymbol {
			result[key] = append(result[key], p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.classifyQueryErr(err, symbols, from, to, limitPerSymbol)
	}
	if skipped > 0 {
		s.log.Warn("skipped malformed rows in batch query", zap.Strings("symbols", symbols), zap.Int("skipped", skipped))
	}
	return result, nil
}

// LatestTimestamp returns the freshest row time for a symbol, or zero
// when the symbol has no rows.
func (s *Store) LatestTimestamp(ctx context.Context, symbol string, resolution model.Resolution) (int64, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	var ts sql.NullInt64
	err := s.db.GetContext(ctx, &ts,
		`SELECT MAX(ts) FROM price_data WHERE symbol = ? AND resolution = ?`,
		symbol, string(resolution))
	if err != nil {
		return 0, fmt.Errorf("failed to query latest timestamp: %w", err)
	}
	return ts.Int64, nil
}

// InsertPoints upserts price rows for a symbol. Used by the background
// refresh path to persist live-quote fills.
func (s *Store) InsertPoints(ctx context.Context, symbol string, resolution model.Resolution, points []model.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO price_data (symbol, resolution, ts, open, high, low, close, volume, session)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (symbol, resolution, ts) DO UPDATE SET
		   open = excluded.open, high = excluded.high, low = excluded.low,
		   close = excluded.close, volume = excluded.volume, session = excluded.session`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, string(resolution), p.Timestamp,
			p.Open, p.High, p.Low, p.Close, p.Volume, string(p.Session)); err != nil {
			return fmt.Errorf("failed to insert row at %d: %w", p.Timestamp, err)
		}
	}
	return tx.Commit()
}

// EventsForSymbol loads all catalyst events for a ticker, ascending by
// time. Past/future partitioning happens at read time in the caller.
func (s *Store) EventsForSymbol(ctx context.Context, ticker string) ([]model.CatalystEvent, error) {
	ctx, cancel := queryTimeout(ctx)
	defer cancel()

	var events []model.CatalystEvent
	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, ticker, ts, type, impact, COALESCE(title, '')
		   FROM catalyst_events
		  WHERE ticker = ?
		  ORDER BY ts ASC`, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev model.CatalystEvent
		if err := rows.Scan(&ev.ID, &ev.Ticker, &ev.Timestamp, &ev.Type, &ev.Impact, &ev.Title); err != nil {
			s.log.Warn("skipped malformed event row", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// InsertEvent stores one catalyst event, assigning an id when the
// caller left it blank.
func (s *Store) InsertEvent(ctx context.Context, ev model.CatalystEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO catalyst_events (id, ticker, ts, type, impact, title)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Ticker, ev.Timestamp, string(ev.Type), string(ev.Impact), ev.Title)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// classifyQueryErr turns a context deadline into the operator-facing
// timeout error (with its index hint) and logs the query predicate.
func (s *Store) classifyQueryErr(err error, symbols []string, from, to time.Time, limit int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		s.log.Error("store query timeout",
			zap.Strings("symbols", symbols),
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Int("rowBudget", limit))
		return &QueryTimeoutError{Symbols: symbols, From: from, To: to, Limit: limit}
	}
	return fmt.Errorf("failed to query store: %w", err)
}

// scanPoints scans rows into points, dropping malformed rows.
func scanPoints(rows *sqlx.Rows) ([]model.PricePoint, int) {
	var points []model.PricePoint
	skipped := 0
	for rows.Next() {
		var p model.PricePoint
		var session sql.NullString
		if err := rows.Scan(&p.Timestamp, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &session); err != nil {
			skipped++
			continue
		}
		p.Session = model.Session(session.String)
		if !validPoint(p) {
			skipped++
			continue
		}
		points = append(points, p)
	}
	return points, skipped
}

// validPoint enforces the sample invariant: positive timestamp and
// low <= open, close <= high.
func validPoint(p model.PricePoint) bool {
	if p.Timestamp <= 0 {
		return false
	}
	if p.Low > p.Open || p.Low > p.Close || p.High < p.Open || p.High < p.Close {
		return false
	}
	return true
}
