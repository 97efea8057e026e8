// Package config holds the command-line and environment settings shared by
// the ScanSheet server and terminal UI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"

	"github.com/scansheet/scansheet/internal/receipt"
	"github.com/scansheet/scansheet/internal/scanning"
)

// EnvPrefix is prepended to every flag name to form its environment variable
const EnvPrefix = "SCANSHEET"

// ErrInvalid is returned for settings that parse but cannot be used
var ErrInvalid = errors.New("invalid configuration")

// Config is the parsed configuration
type Config struct {
	Port           int
	DBPath         string
	Scanner        string
	GeminiKey      string
	GeminiModel    string
	OllamaURL      string
	OllamaModel    string
	ExtractTimeout int
	AuthUser       string
	AuthPass       string
	LogLevel       string
	NoCamera       bool
	ShowVersion    bool
}

// NewFlagSet registers every setting on a new flag set bound to cfg
func NewFlagSet(name string, cfg *Config) *ff.FlagSet {
	fs := ff.NewFlagSet(name)
	fs.IntVar(&cfg.Port, 0, "port", 8080, "HTTP server port")
	fs.StringVar(&cfg.DBPath, 0, "db", "scansheet.db", "Receipt store path (a .json path uses a plain file instead of BoltDB)")
	fs.StringVar(&cfg.Scanner, 0, "scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
	fs.StringVar(&cfg.GeminiKey, 0, "gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
	fs.StringVar(&cfg.GeminiModel, 0, "gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
	fs.StringVar(&cfg.OllamaURL, 0, "ollama-url", "http://localhost:11434", "Ollama API base URL")
	fs.StringVar(&cfg.OllamaModel, 0, "ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
	fs.IntVar(&cfg.ExtractTimeout, 0, "extract-timeout", 120, "Seconds to wait for the model to read a receipt")
	fs.StringVar(&cfg.AuthUser, 0, "auth-user", "", "Basic auth username (optional)")
	fs.StringVar(&cfg.AuthPass, 0, "auth-pass", "", "Basic auth password (optional)")
	fs.StringVar(&cfg.LogLevel, 0, "log-level", "info", "Log level: debug, info, warn or error")
	fs.BoolVar(&cfg.NoCamera, 0, "no-camera", "Disable browser camera capture; uploads only")
	fs.BoolVar(&cfg.ShowVersion, 0, "version", "Show version information")
	return fs
}

// Parse loads .env if present, then parses args and SCANSHEET_* variables
// into a Config. The returned flag set is for rendering help.
func Parse(name string, args []string) (*Config, *ff.FlagSet, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	cfg := &Config{}
	fs := NewFlagSet(name, cfg)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return nil, fs, err
	}

	if cfg.GeminiKey == "" {
		cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.GeminiKey == "" {
		cfg.GeminiKey = os.Getenv("API_KEY")
	}
	return cfg, fs, nil
}

// Level returns the configured log level
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// Timeout returns the extraction timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.ExtractTimeout) * time.Second
}

// OpenSlot opens the storage slot named by DBPath
func (c *Config) OpenSlot() (receipt.Slot, error) {
	if strings.TrimSpace(c.DBPath) == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrInvalid)
	}
	if strings.HasSuffix(strings.ToLower(c.DBPath), ".json") {
		return receipt.NewFileSlot(c.DBPath)
	}
	return receipt.NewBoltSlot(c.DBPath)
}

// NewScanner builds the configured extraction backend
func (c *Config) NewScanner() (scanning.Scanner, error) {
	switch c.Scanner {
	case "gemini":
		if c.GeminiKey == "" {
			return nil, fmt.Errorf("%w: Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable", ErrInvalid)
		}
		slog.Info("Initializing Gemini scanner...", "model", c.GeminiModel)
		return scanning.NewGemini(c.GeminiKey, c.GeminiModel, c.Timeout())
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", c.OllamaURL, "model", c.OllamaModel)
		return scanning.NewOllama(c.OllamaURL, c.OllamaModel, c.Timeout())
	default:
		return nil, fmt.Errorf("%w: scanner type %q, want gemini or ollama", ErrInvalid, c.Scanner)
	}
}
