package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config holds server configuration. Provider API keys are injected here at
// startup; a missing key disables that provider client for the lifetime of
// the process rather than failing individual requests.
type Config struct {
	ListenAddr      string `json:"listenAddr"`
	DataDir         string `json:"dataDir"`
	WatchmodeAPIKey string `json:"watchmodeApiKey"`
	TMDBAPIKey      string `json:"tmdbApiKey"`
	// DefaultRegion is an ISO 3166-1 alpha-2 country code used when a
	// request carries none.
	DefaultRegion string `json:"defaultRegion"`
	// CacheTTLMinutes bounds how long upstream responses are reused.
	CacheTTLMinutes int `json:"cacheTtlMinutes"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		ListenAddr:      ":8585",
		DataDir:         "./data",
		DefaultRegion:   "US",
		CacheTTLMinutes: 60,
	}
}

// CacheTTL returns the cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Manager provides concurrency-safe access to the loaded configuration.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// Load reads config.json from the data dir (if present), then applies
// environment overrides. The file is optional; the env vars are the usual way
// to inject credentials in deployments.
func Load(dataDir string) (*Manager, error) {
	cfg := Default()
	if strings.TrimSpace(dataDir) != "" {
		cfg.DataDir = dataDir
	}

	path := filepath.Join(cfg.DataDir, "config.json")
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No file is fine, env and defaults carry the day.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	applyEnv(&cfg)
	return &Manager{path: path, cfg: cfg}, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WATCHMODE_API_KEY"); v != "" {
		cfg.WatchmodeAPIKey = v
	}
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		cfg.TMDBAPIKey = v
	}
	if v := os.Getenv("STREAMSEEK_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("STREAMSEEK_REGION"); v != "" {
		cfg.DefaultRegion = strings.ToUpper(v)
	}
}

// Get returns a snapshot of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update replaces the configuration and persists it next to the data dir.
func (m *Manager) Update(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	m.cfg = cfg
	return nil
}
