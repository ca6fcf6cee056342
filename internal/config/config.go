// Package config loads the process-wide AppConfig: hard-coded defaults
// overlaid with an optional TOML file, overlaid with environment
// variables. It mirrors a table-of-structs convention scaled down to the
// handful of keys this service actually has.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ChromePathEnv is the environment variable consulted after the config
// file in the browser-path precedence chain.
const ChromePathEnv = "CHROME_PATH"

// PoolConfig holds the pool sizing/timeout knobs loadable from a config
// file, expressed in the units the file uses (seconds), converted to
// time.Duration on read.
type PoolConfig struct {
	BasePort            int           `toml:"base-port"`
	MinConnections      int           `toml:"min-connections"`
	MaxConnections      int           `toml:"max-connections"`
	IdleTimeoutSeconds  int           `toml:"idle-timeout-seconds"`
	AcquireTimeoutSecs  int           `toml:"acquire-timeout-seconds"`
	IdleTimeout         time.Duration `toml:"-"`
	AcquireTimeout      time.Duration `toml:"-"`
}

// ChromeConfig holds the browser-path override read from the config file.
type ChromeConfig struct {
	Path string `toml:"path"`
}

// LogConfig holds logging knobs.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds the metrics HTTP listener address.
type MetricsConfig struct {
	ListenAddress string `toml:"listen-address"`
}

// fileConfig is the TOML document shape: a single top-level "html2pdf"
// table, matching the dotted configuration key names
// (html2pdf.chrome.path, html2pdf.pool.min-connections, ...).
type fileConfig struct {
	HTML2PDF struct {
		Chrome  ChromeConfig  `toml:"chrome"`
		Pool    PoolConfig    `toml:"pool"`
		Log     LogConfig     `toml:"log"`
		Metrics MetricsConfig `toml:"metrics"`
	} `toml:"html2pdf"`
}

// AppConfig is the frozen, process-wide configuration assembled by Load.
type AppConfig struct {
	ChromePath string
	Pool       PoolConfig
	Log        LogConfig
	Metrics    MetricsConfig
}

// Defaults returns the hard-coded defaults used before any overlay is
// applied.
func Defaults() AppConfig {
	return AppConfig{
		Pool: PoolConfig{
			BasePort:           9222,
			MinConnections:     0,
			MaxConnections:     4,
			IdleTimeoutSeconds: 60,
			AcquireTimeoutSecs: 30,
			IdleTimeout:        60 * time.Second,
			AcquireTimeout:     30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			ListenAddress: ":9090",
		},
	}
}

// Load assembles the AppConfig: defaults, overlaid by path (if non-empty).
// The CHROME_PATH environment variable supplies the browser path only when
// the file did not set one.
func Load(path string) (*AppConfig, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fc fileConfig
		// Seed defaults so a partially-specified file doesn't zero out
		// unspecified pool fields.
		fc.HTML2PDF.Pool = cfg.Pool
		fc.HTML2PDF.Log = cfg.Log
		fc.HTML2PDF.Metrics = cfg.Metrics
		fc.HTML2PDF.Chrome.Path = cfg.ChromePath
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.ChromePath = fc.HTML2PDF.Chrome.Path
		cfg.Pool = fc.HTML2PDF.Pool
		cfg.Log = fc.HTML2PDF.Log
		cfg.Metrics = fc.HTML2PDF.Metrics
	}

	cfg.Pool.IdleTimeout = time.Duration(cfg.Pool.IdleTimeoutSeconds) * time.Second
	cfg.Pool.AcquireTimeout = time.Duration(cfg.Pool.AcquireTimeoutSecs) * time.Second

	if v := os.Getenv(ChromePathEnv); v != "" && cfg.ChromePath == "" {
		cfg.ChromePath = v
	}

	return &cfg, nil
}
