package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings represents the application settings.
// Every option has an explicit typed field and an explicit default;
// nothing is inferred from missing keys.
type Settings struct {
	// Quote API key is loaded from environment variable CHART_QUOTE_API_KEY
	// first, then from the config file.
	QuoteAPIKey string `yaml:"quote_api_key"`
	QuoteAPIURL string `yaml:"quote_api_url"`

	DatabasePath string `yaml:"database_path"`

	// RedisAddr enables the shared second-level cache when non-empty.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	ListenAddr string `yaml:"listen_addr"`

	// Chart pipeline tuning
	TensionParam       float64 `yaml:"tension_param"`
	SnapRadiusPx       int     `yaml:"snap_radius_px"`
	FutureSnapFraction float64 `yaml:"future_snap_fraction"`
	CacheTTLMs         int64   `yaml:"cache_ttl_ms"`
	RowBudgetIntraday  int     `yaml:"row_budget_intraday"`
	RowBudgetDaily     int     `yaml:"row_budget_daily"`
	PaddingPercent     float64 `yaml:"padding_percent"`

	// Viewport split between historical and projected-future regions.
	// Must sum to 100.
	PastPercent   float64 `yaml:"past_percent"`
	FuturePercent float64 `yaml:"future_percent"`

	RefreshCron string   `yaml:"refresh_cron"`
	Symbols     []string `yaml:"symbols"` // symbols displayed on startup

	EnableDebug bool `yaml:"enable_debug"`
}

// getDefaultSettings returns settings with all defaults applied.
func getDefaultSettings() *Settings {
	return &Settings{
		QuoteAPIURL:        "https://query1.finance.yahoo.com/v8/finance/chart",
		DatabasePath:       "chart-terminal.db",
		ListenAddr:         "localhost:8790",
		TensionParam:       DefaultTensionParam,
		SnapRadiusPx:       DefaultSnapRadiusPx,
		FutureSnapFraction: DefaultFutureSnapFraction,
		CacheTTLMs:         DefaultCacheTTLMs,
		RowBudgetIntraday:  DefaultRowBudgetIntraday,
		RowBudgetDaily:     DefaultRowBudgetDaily,
		PaddingPercent:     DefaultPaddingPercent,
		PastPercent:        80,
		FuturePercent:      20,
		RefreshCron:        DisplayedRefreshCron,
		Symbols:            []string{"SPY"},
	}
}

// SettingsManager manages loading and saving settings.
type SettingsManager struct {
	configFile string
	settings   *Settings
	mu         sync.RWMutex
}

// GetConfigDir returns the user config directory path.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, ConfigDirName), nil
}

// GetConfigPath returns the full path to the config file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// NewSettingsManager creates a new settings manager.
// If configFile is empty, uses the default user config directory.
func NewSettingsManager(configFile string) *SettingsManager {
	if configFile == "" {
		if path, err := GetConfigPath(); err == nil {
			configFile = path
		} else {
			// Fallback to current directory
			configFile = ConfigFileName
		}
	}

	return &SettingsManager{
		configFile: configFile,
		settings:   getDefaultSettings(),
	}
}

// LoadSettings loads settings from file, applying defaults for fields the
// file leaves out and environment overrides on top.
func (sm *SettingsManager) LoadSettings() (*Settings, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	settings := getDefaultSettings()

	if data, err := os.ReadFile(sm.configFile); err == nil {
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applyDefaults(settings)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(settings)

	if settings.PastPercent+settings.FuturePercent != 100 {
		return nil, fmt.Errorf("past_percent (%v) + future_percent (%v) must equal 100",
			settings.PastPercent, settings.FuturePercent)
	}

	sm.settings = settings
	return settings, nil
}

// applyDefaults restores defaults for fields the YAML zeroed out.
func applyDefaults(s *Settings) {
	def := getDefaultSettings()
	if s.QuoteAPIURL == "" {
		s.QuoteAPIURL = def.QuoteAPIURL
	}
	if s.DatabasePath == "" {
		s.DatabasePath = def.DatabasePath
	}
	if s.ListenAddr == "" {
		s.ListenAddr = def.ListenAddr
	}
	if s.TensionParam <= 0 {
		s.TensionParam = def.TensionParam
	}
	if s.SnapRadiusPx <= 0 {
		s.SnapRadiusPx = def.SnapRadiusPx
	}
	if s.FutureSnapFraction <= 0 {
		s.FutureSnapFraction = def.FutureSnapFraction
	}
	if s.CacheTTLMs <= 0 {
		s.CacheTTLMs = def.CacheTTLMs
	}
	if s.RowBudgetIntraday <= 0 {
		s.RowBudgetIntraday = def.RowBudgetIntraday
	}
	if s.RowBudgetDaily <= 0 {
		s.RowBudgetDaily = def.RowBudgetDaily
	}
	if s.PaddingPercent <= 0 {
		s.PaddingPercent = def.PaddingPercent
	}
	if s.PastPercent <= 0 && s.FuturePercent <= 0 {
		s.PastPercent = def.PastPercent
		s.FuturePercent = def.FuturePercent
	}
	if s.RefreshCron == "" {
		s.RefreshCron = def.RefreshCron
	}
	if len(s.Symbols) == 0 {
		s.Symbols = def.Symbols
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(s *Settings) {
	if v := os.Getenv(QuoteAPIKeyEnvVar); v != "" {
		s.QuoteAPIKey = v
	}
	if v := os.Getenv(QuoteAPIURLEnvVar); v != "" {
		s.QuoteAPIURL = v
	}
	if v := os.Getenv(RedisAddrEnvVar); v != "" {
		s.RedisAddr = v
	}
	if v := os.Getenv(DatabasePathEnvVar); v != "" {
		s.DatabasePath = v
	}
}

// SaveSettings writes the current settings back to the config file.
func (sm *SettingsManager) SaveSettings(settings *Settings) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	dir := filepath.Dir(sm.configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(sm.configFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	sm.settings = settings
	return nil
}

// GetSettings returns the currently loaded settings.
func (sm *SettingsManager) GetSettings() *Settings {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.settings
}
