package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, read after the YAML file.
const (
	EnvDBPath        = "FMSGO_DB_PATH"
	EnvServerAddress = "FMSGO_SERVER_ADDRESS"
	EnvLogLevel      = "FMSGO_LOG_LEVEL"
)

// MaxH3Rings caps waypoints.max_rings so a disk query stays under SQLite's bound parameter limit.
const MaxH3Rings = 64

// Config holds the application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Server    ServerConfig    `yaml:"server"`
	Sim       SimConfig       `yaml:"sim"`
	Autopilot AutopilotConfig `yaml:"autopilot"`
	Session   SessionConfig   `yaml:"session"`
	Waypoints WaypointsConfig `yaml:"waypoints"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
	Trace    bool        `yaml:"trace"` // Per-step simulation logs
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path       string `yaml:"path"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"` // Finished flights older than this are pruned
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// SimConfig holds flight simulation settings.
type SimConfig struct {
	PointsPerLeg int      `yaml:"points_per_leg"`
	StepInterval Duration `yaml:"step_interval"` // 0 runs as fast as possible
	Seed         uint64   `yaml:"seed"`          // 0 seeds from the clock
}

// AutopilotConfig holds the initial autopilot targets.
type AutopilotConfig struct {
	Enabled        bool    `yaml:"enabled"`
	TargetAltitude float64 `yaml:"target_altitude"` // Feet
	TargetSpeed    float64 `yaml:"target_speed"`    // Knots
}

// SessionConfig holds settings for a flight session.
type SessionConfig struct {
	CaptureRadius Distance `yaml:"capture_radius"` // Leg sequencing distance
	Record        bool     `yaml:"record"`
	CommandBuffer int      `yaml:"command_buffer"`
}

// WaypointsConfig holds waypoint database settings.
type WaypointsConfig struct {
	H3Resolution int    `yaml:"h3_resolution"`
	MaxRings     int    `yaml:"max_rings"`
	CacheSize    int    `yaml:"cache_size"`
	RegionFile   string `yaml:"region_file"` // GeoJSON polygon; empty uses the built-in region
	ImportFile   string `yaml:"import_file"` // CSV master file imported at startup when changed
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:       "./logs/server.log",
				Level:      "INFO",
				MaxSizeMB:  10,
				MaxBackups: 3,
			},
			Requests: LogSettings{
				Path:       "./logs/requests.log",
				Level:      "INFO",
				MaxSizeMB:  10,
				MaxBackups: 1,
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:      "./data/fmsgo.db",
			Retention: Duration(30 * Day),
		},
		Server: ServerConfig{
			Enabled: true,
			Address: "localhost:1921",
		},
		Sim: SimConfig{
			PointsPerLeg: 100,
			StepInterval: Duration(1 * time.Second),
		},
		Autopilot: AutopilotConfig{
			Enabled:        true,
			TargetAltitude: 10000,
			TargetSpeed:    300,
		},
		Session: SessionConfig{
			CaptureRadius: Distance(5000), // 5km
			Record:        true,
			CommandBuffer: 16,
		},
		Waypoints: WaypointsConfig{
			H3Resolution: 4,
			MaxRings:     8,
			CacheSize:    256,
			ImportFile:   "./data/waypoints.csv",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
// Environment overrides are applied last and never persisted.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)
	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads KEY=VALUE pairs from the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv(EnvServerAddress); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Server.Level = strings.ToUpper(v)
	}
}

var winEnvVar = regexp.MustCompile(`%([A-Za-z0-9_]+)%`)

// expandPath resolves $VAR, ${VAR} and %VAR% references.
func expandPath(p string) string {
	p = winEnvVar.ReplaceAllString(p, "$${$1}")
	return os.ExpandEnv(p)
}

func expandPaths(cfg *Config) {
	cfg.DB.Path = expandPath(cfg.DB.Path)
	cfg.Log.Server.Path = expandPath(cfg.Log.Server.Path)
	cfg.Log.Requests.Path = expandPath(cfg.Log.Requests.Path)
	cfg.Log.Events.Path = expandPath(cfg.Log.Events.Path)
	cfg.Waypoints.RegionFile = expandPath(cfg.Waypoints.RegionFile)
	cfg.Waypoints.ImportFile = expandPath(cfg.Waypoints.ImportFile)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Sim.PointsPerLeg < 1 {
		return fmt.Errorf("invalid sim.points_per_leg %d: must be at least 1", c.Sim.PointsPerLeg)
	}
	if c.Sim.StepInterval < 0 {
		return fmt.Errorf("invalid sim.step_interval %v: must not be negative", time.Duration(c.Sim.StepInterval))
	}
	if c.Waypoints.H3Resolution < 0 || c.Waypoints.H3Resolution > 15 {
		return fmt.Errorf("invalid waypoints.h3_resolution %d: must be within 0..15", c.Waypoints.H3Resolution)
	}
	if c.Waypoints.MaxRings < 0 || c.Waypoints.MaxRings > MaxH3Rings {
		return fmt.Errorf("invalid waypoints.max_rings %d: must be within 0..%d", c.Waypoints.MaxRings, MaxH3Rings)
	}
	if c.Session.CaptureRadius < 0 {
		return fmt.Errorf("invalid session.capture_radius: must not be negative")
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# fmsgo Configuration
# -------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)
# Environment overrides: FMSGO_DB_PATH, FMSGO_SERVER_ADDRESS, FMSGO_LOG_LEVEL

`)
	data = append(header, data...)

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: DEBUG, INFO, WARN, ERROR\n${1}level:"))

	reRes := regexp.MustCompile(`(?m)^(\s+)h3_resolution:`)
	data = reRes.ReplaceAll(data, []byte("${1}# 0 (coarsest) to 15 (finest)\n${1}h3_resolution:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
