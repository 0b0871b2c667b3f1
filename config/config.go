package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configDir  = ".config/scribe"
	configFile = "config.yaml"
	envPrefix  = "SCRIBE_"
)

// Backends understood by storage.Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

// Config is the resolved configuration.
type Config struct {
	Backend        string
	DataDir        string
	Encrypt        bool
	PostgresDSN    string
	RemoteURL      string
	Token          string
	Quiescence     time.Duration
	RequestTimeout time.Duration
	Listen         string
	LogLevel       string
	LogFile        string
}

// rawConfig is the YAML-unmarshaling intermediary; pointers and strings let
// absent keys keep their defaults.
type rawConfig struct {
	Backend        string `yaml:"backend"`
	DataDir        string `yaml:"data_dir"`
	Encrypt        *bool  `yaml:"encrypt"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	RemoteURL      string `yaml:"remote_url"`
	Token          string `yaml:"token"`
	Quiescence     string `yaml:"quiescence"`
	RequestTimeout string `yaml:"request_timeout"`
	Listen         string `yaml:"listen"`
	LogLevel       string `yaml:"log_level"`
	LogFile        string `yaml:"log_file"`
}

func Default() *Config {
	dataDir := "~/.local/share/scribe"
	return &Config{
		Backend:        BackendFile,
		DataDir:        ExpandPath(dataDir),
		Quiescence:     800 * time.Millisecond,
		RequestTimeout: 10 * time.Second,
		Listen:         ":8080",
		LogLevel:       "info",
		LogFile:        filepath.Join(ExpandPath(dataDir), "scribe.log"),
	}
}

// DefaultPath is ~/.config/scribe/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDir, configFile)
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path (DefaultPath when empty) over the defaults, then applies
// SCRIBE_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var raw rawConfig
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			if err := merge(cfg, &raw); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := merge(cfg, fromEnv()); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *rawConfig {
	raw := &rawConfig{
		Backend:        os.Getenv(envPrefix + "BACKEND"),
		DataDir:        os.Getenv(envPrefix + "DATA_DIR"),
		PostgresDSN:    os.Getenv(envPrefix + "POSTGRES_DSN"),
		RemoteURL:      os.Getenv(envPrefix + "REMOTE_URL"),
		Token:          os.Getenv(envPrefix + "TOKEN"),
		Quiescence:     os.Getenv(envPrefix + "QUIESCENCE"),
		RequestTimeout: os.Getenv(envPrefix + "REQUEST_TIMEOUT"),
		Listen:         os.Getenv(envPrefix + "LISTEN"),
		LogLevel:       os.Getenv(envPrefix + "LOG_LEVEL"),
		LogFile:        os.Getenv(envPrefix + "LOG_FILE"),
	}
	if v, ok := os.LookupEnv(envPrefix + "ENCRYPT"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			raw.Encrypt = &b
		}
	}
	return raw
}

func merge(cfg *Config, raw *rawConfig) error {
	if raw.Backend != "" {
		cfg.Backend = strings.ToLower(raw.Backend)
	}
	if raw.DataDir != "" {
		cfg.DataDir = ExpandPath(raw.DataDir)
	}
	if raw.Encrypt != nil {
		cfg.Encrypt = *raw.Encrypt
	}
	if raw.PostgresDSN != "" {
		cfg.PostgresDSN = raw.PostgresDSN
	}
	if raw.RemoteURL != "" {
		cfg.RemoteURL = raw.RemoteURL
	}
	if raw.Token != "" {
		cfg.Token = raw.Token
	}
	if raw.Quiescence != "" {
		d, err := time.ParseDuration(raw.Quiescence)
		if err != nil {
			return fmt.Errorf("quiescence: %w", err)
		}
		cfg.Quiescence = d
	}
	if raw.RequestTimeout != "" {
		d, err := time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if raw.Listen != "" {
		cfg.Listen = raw.Listen
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(raw.LogLevel)
	}
	if raw.LogFile != "" {
		cfg.LogFile = ExpandPath(raw.LogFile)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
		if c.DataDir == "" {
			return errors.New("data_dir is required")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres backend requires postgres_dsn")
		}
	case BackendRemote:
		if c.RemoteURL == "" {
			return errors.New("remote backend requires remote_url")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Encrypt && c.Backend != BackendFile {
		return errors.New("encrypt is only supported by the file backend")
	}
	if c.Quiescence <= 0 {
		return errors.New("quiescence must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
