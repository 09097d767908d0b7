package config

// Pipeline Defaults
const (
	// DefaultTensionParam controls Catmull-Rom to Bezier conversion.
	// Low enough to avoid overshoot on sharp reversals, high enough to
	// remove visible angularity.
	DefaultTensionParam = 0.4

	// DefaultSnapRadiusPx is the pixel radius for snapping hover to a
	// past event on line charts.
	DefaultSnapRadiusPx = 30

	// DefaultFutureSnapFraction is the snap range for future events as a
	// fraction of the future-window width.
	DefaultFutureSnapFraction = 0.05

	// DefaultCacheTTLMs is how long a cached series stays fresh (10 min).
	DefaultCacheTTLMs = 600000

	// DefaultPaddingPercent expands the visible price domain so the curve
	// never touches the chart edges.
	DefaultPaddingPercent = 5.0

	// Row budgets by resolution class
	DefaultRowBudgetIntraday = 5000
	DefaultRowBudgetDaily    = 2000

	// MinAcceptableRows is the smallest result a source may return and
	// still stop the orchestrator's source walk.
	MinAcceptableRows = 10
)

// Data Source Timeouts (seconds unless suffixed)
const (
	StoreQueryTimeoutSec  = 10.0 // Per-query timeout, distinct from incidental network timeouts
	QuoteFetchTimeoutSec  = 10.0 // Remote quote API request timeout
	RedisLookupTimeoutSec = 2.0  // Shared cache lookups must stay cheap
)

// Cache Sizing
const (
	MemoryCacheMaxEntries = 64 // LRU eviction beyond this
	RedisKeyPrefix        = "chartterm:"
)

// Database Connection Pool Configuration
const (
	DBConnectionPoolMaxSize    = 8     // Maximum number of open connections
	DBConnectionIdleTimeoutSec = 180.0 // Close connections idle for 3 minutes
)

// Background Refresh Configuration
const (
	DisplayedRefreshCron   = "@every 30s" // Cadence for refreshing displayed symbols
	QuotePollingIntervalMs = 60000        // A store row older than this triggers a live-quote gap fill
)

// HTTP Connection Pool Configuration
const (
	HTTPPoolConnections = 32
	HTTPPoolMaxSize     = 32
)

// Websocket Quote Stream Configuration
const (
	WebsocketReconnectDelaySec = 5
	WebsocketReadLimitBytes    = 1 << 20
)

// Config Directory and Environment Variables
const (
	// ConfigDirName is the name of the config directory in user's config directory
	ConfigDirName = "chart-terminal"
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.yaml"
	// QuoteAPIKeyEnvVar is the environment variable for the quote API key
	QuoteAPIKeyEnvVar = "CHART_QUOTE_API_KEY"
	// QuoteAPIURLEnvVar overrides the quote API base URL
	QuoteAPIURLEnvVar = "CHART_QUOTE_API_URL"
	// RedisAddrEnvVar overrides the shared cache address
	RedisAddrEnvVar = "CHART_REDIS_ADDR"
	// DatabasePathEnvVar overrides the sqlite database path
	DatabasePathEnvVar = "CHART_DB_PATH"
)
