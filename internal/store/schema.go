package store

// Schema for the primary structured store. The (symbol, ts) index is what
// keeps windowed chart queries inside their timeout; the orchestrator's
// timeout classification points operators at it when it is missing.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS price_data (
	symbol     TEXT NOT NULL COLLATE NOCASE,
	resolution TEXT NOT NULL,
	ts         INTEGER NOT NULL,
	open       REAL,
	high       REAL,
	low        REAL,
	close      REAL,
	volume     REAL,
	session    TEXT,
	PRIMARY KEY (symbol, resolution, ts)
);

CREATE INDEX IF NOT EXISTS idx_price_symbol_ts ON price_data (symbol, ts);

CREATE TABLE IF NOT EXISTS catalyst_events (
	id     TEXT PRIMARY KEY,
	ticker TEXT NOT NULL COLLATE NOCASE,
	ts     INTEGER NOT NULL,
	type   TEXT NOT NULL,
	impact TEXT NOT NULL,
	title  TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_ticker_ts ON catalyst_events (ticker, ts);
`
