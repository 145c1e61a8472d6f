// Package config loads agent configuration from a JSON file, with
// environment overrides layered on top for deployments driven by .env files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config is everything the agent needs to run. Durations are stored as
// seconds in JSON to keep the file hand-editable.
type Config struct {
	ListenAddr string `json:"listenAddr"`

	APIURL   string `json:"apiUrl"`
	WSURL    string `json:"wsUrl"`
	APIKey   string `json:"apiKey"`
	AgentKey string `json:"agentKey"`

	PrinterPath   string   `json:"printerPath,omitempty"`
	FallbackPaths []string `json:"fallbackPaths,omitempty"`
	PaperWidth    int      `json:"paperWidth"`

	LayoutDir string `json:"layoutDir"`
	StateDB   string `json:"stateDb"`

	PollIntervalSeconds int `json:"pollIntervalSeconds"`
	GracePeriodSeconds  int `json:"gracePeriodSeconds"`

	LogLevel string `json:"logLevel"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		ListenAddr:          ":8720",
		APIURL:              "http://api.localhost",
		WSURL:               "ws://ws.localhost/agent",
		PaperWidth:          32,
		LayoutDir:           "config/layouts",
		StateDB:             "config/state.db",
		PollIntervalSeconds: 15,
		GracePeriodSeconds:  5,
		LogLevel:            "info",
	}
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSeconds) * time.Second
}

// Load reads the config file, creating it with defaults when missing, then
// applies environment overrides. A .env file next to the working directory is
// honored when present.
func Load(path string) (Config, error) {
	cfg := Default()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return cfg, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// .env is optional; absence is not an error
	godotenv.Load()
	applyEnv(&cfg)

	if cfg.PaperWidth <= 0 {
		cfg.PaperWidth = 32
	}

	// first run mints the key this agent registers with
	if cfg.AgentKey == "" {
		cfg.AgentKey = uuid.NewString()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save writes the config back in the indented form operators edit by hand.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *Config) {
	for env, target := range map[string]*string{
		"PRINT_AGENT_LISTEN_ADDR":  &cfg.ListenAddr,
		"PRINT_AGENT_API_URL":      &cfg.APIURL,
		"PRINT_AGENT_WS_URL":       &cfg.WSURL,
		"PRINT_AGENT_API_KEY":      &cfg.APIKey,
		"PRINT_AGENT_AGENT_KEY":    &cfg.AgentKey,
		"PRINT_AGENT_PRINTER_PATH": &cfg.PrinterPath,
		"PRINT_AGENT_LAYOUT_DIR":   &cfg.LayoutDir,
		"PRINT_AGENT_STATE_DB":     &cfg.StateDB,
		"PRINT_AGENT_LOG_LEVEL":    &cfg.LogLevel,
	} {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
}
