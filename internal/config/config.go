// Package config handles configuration loading and validation for
// sentryd.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"sentryd/internal/behavior"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	Version int `toml:"version" json:"version" yaml:"version"`

	// Detector configuration for the two anomaly models.
	Detector DetectorConfig `toml:"detector" json:"detector" yaml:"detector"`

	// Thresholds for bucketing raw speeds into categories.
	Thresholds ThresholdsConfig `toml:"thresholds" json:"thresholds" yaml:"thresholds"`

	// Corpus configuration for synthetic training data generation.
	Corpus CorpusConfig `toml:"corpus" json:"corpus" yaml:"corpus"`

	// History configuration for the in-memory threat log.
	History HistoryConfig `toml:"history" json:"history" yaml:"history"`

	// Patterns configuration for the external threat pattern library.
	Patterns PatternsConfig `toml:"patterns" json:"patterns" yaml:"patterns"`

	// Storage configuration for the verdict journal.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// IPC configuration for the control socket.
	IPC IPCConfig `toml:"ipc" json:"ipc" yaml:"ipc"`

	// Metrics configuration for the scrape endpoint.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// DetectorConfig tunes both anomaly detectors.
type DetectorConfig struct {
	// Trees is the isolation forest ensemble size.
	Trees int `toml:"trees" json:"trees" yaml:"trees"`

	// Contamination is the expected anomalous fraction of the corpus.
	Contamination float64 `toml:"contamination" json:"contamination" yaml:"contamination"`

	// Subsample caps the points each tree is built from.
	Subsample int `toml:"subsample" json:"subsample" yaml:"subsample"`

	// Seed makes forest construction reproducible.
	Seed int64 `toml:"seed" json:"seed" yaml:"seed"`

	// Nu is the boundary detector's training outlier fraction, in (0,1).
	Nu float64 `toml:"nu" json:"nu" yaml:"nu"`

	// Gamma is the boundary kernel width. Zero selects the scale rule.
	Gamma float64 `toml:"gamma" json:"gamma" yaml:"gamma"`
}

// ThresholdsConfig holds the category boundaries per channel.
type ThresholdsConfig struct {
	Typing behavior.Thresholds `toml:"typing" json:"typing" yaml:"typing"`
	Mouse  behavior.Thresholds `toml:"mouse" json:"mouse" yaml:"mouse"`
}

// CorpusConfig controls synthetic training data generation.
type CorpusConfig struct {
	NormalCount     int   `toml:"normal_count" json:"normal_count" yaml:"normal_count"`
	SuspiciousCount int   `toml:"suspicious_count" json:"suspicious_count" yaml:"suspicious_count"`
	Seed            int64 `toml:"seed" json:"seed" yaml:"seed"`
}

// HistoryConfig bounds the in-memory threat log.
type HistoryConfig struct {
	Capacity int `toml:"capacity" json:"capacity" yaml:"capacity"`
}

// PatternsConfig points at an optional external pattern library.
type PatternsConfig struct {
	// Path to a JSON pattern library. Empty uses the builtin library.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Watch reloads the library when the file changes.
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`
}

// StorageConfig configures the verdict journal.
type StorageConfig struct {
	// Enabled turns journaling on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite journal file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// KeyPath is the master key file for the integrity chain.
	KeyPath string `toml:"key_path" json:"key_path" yaml:"key_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file when Output includes "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// IPCConfig configures the control socket.
type IPCConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// SocketPath is the Unix socket the daemon listens on.
	SocketPath string `toml:"socket_path" json:"socket_path" yaml:"socket_path"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Addr is the listen address for the /metrics endpoint.
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Detector: DetectorConfig{
			Trees:         100,
			Contamination: 0.1,
			Subsample:     256,
			Seed:          42,
			Nu:            0.1,
		},
		Thresholds: ThresholdsConfig{
			Typing: behavior.DefaultTypingThresholds(),
			Mouse:  behavior.DefaultMouseThresholds(),
		},
		Corpus: CorpusConfig{
			NormalCount:     100,
			SuspiciousCount: 10,
			Seed:            42,
		},
		History: HistoryConfig{
			Capacity: 50,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir(), "journal.db"),
			KeyPath: filepath.Join(dataDir(), "master.key"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: defaultSocketPath(),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9477",
		},
	}
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "sentryd", "config.toml")
}

// dataDir returns the default state directory.
func dataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "sentryd")
}

// defaultSocketPath returns the default control socket location.
func defaultSocketPath() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "sentryd.sock")
	}
	return filepath.Join(os.TempDir(), "sentryd.sock")
}

// ApplyEnvOverrides applies SENTRYD_* environment variables on top of
// the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SENTRYD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SENTRYD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SENTRYD_SOCKET"); v != "" {
		c.IPC.SocketPath = v
	}
	if v := os.Getenv("SENTRYD_JOURNAL"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("SENTRYD_KEY_FILE"); v != "" {
		c.Storage.KeyPath = v
	}
	if v := os.Getenv("SENTRYD_PATTERNS"); v != "" {
		c.Patterns.Path = v
	}
	if v := os.Getenv("SENTRYD_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Detector.Seed = seed
			c.Corpus.Seed = seed
		}
	}
}
