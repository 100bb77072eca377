package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPrompt is the instruction sent with every analysis batch,
// describing the desired report structure.
const DefaultPrompt = `Analyze this screenshot. If you see code, explain it and provide improvements ` +
	`and provide the code as per the needs mentioned. If you see questions, answer them ` +
	`comprehensively. Be detailed and practical then choose the option from the MCQ or MSQ ` +
	`which is the most appropriate answer or else if its a fill in blanks then provide the ` +
	`suitable answer, at last give all the answer with their question number.`

// Config holds everything supplied at startup: transport credentials,
// the local storage folder, the chunk limit and the hotkey bindings.
type Config struct {
	TelegramToken  string  `yaml:"telegram_token"`
	TelegramChatID string  `yaml:"telegram_chat_id"`
	GeminiAPIKey   string  `yaml:"gemini_api_key"`
	StorageDir     string  `yaml:"storage_dir"`
	ChunkLimit     int     `yaml:"chunk_limit"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	Prompt         string  `yaml:"prompt"`
	ToggleHotkey   string  `yaml:"toggle_hotkey"`
	CaptureHotkey  string  `yaml:"capture_hotkey"`
	ExitHotkey     string  `yaml:"exit_hotkey"`
}

// Load reads the optional YAML config file, applies environment
// overrides, fills defaults and validates. A missing file is fine;
// everything can come from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// fall through to env and defaults
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.TelegramToken, "TELEGRAM_TOKEN")
	setString(&c.TelegramChatID, "TELEGRAM_CHAT_ID")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.StorageDir, "SCREENSHOT_FOLDER")
	setString(&c.Model, "GEMINI_MODEL")
	setString(&c.ToggleHotkey, "TOGGLE_HOTKEY")
	setString(&c.CaptureHotkey, "CAPTURE_HOTKEY")
	setString(&c.ExitHotkey, "EXIT_HOTKEY")

	if v := os.Getenv("CHUNK_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkLimit = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.StorageDir == "" {
		c.StorageDir = "screenshots"
	}
	if c.ChunkLimit == 0 {
		// Telegram caps messages at 4096 characters; 4000 leaves
		// headroom.
		c.ChunkLimit = 4000
	}
	if c.Model == "" {
		c.Model = "gemini-1.5-flash"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.ToggleHotkey == "" {
		c.ToggleHotkey = "f8"
	}
	if c.CaptureHotkey == "" {
		c.CaptureHotkey = "f9"
	}
	if c.ExitHotkey == "" {
		c.ExitHotkey = "f10"
	}
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram_token is required (set TELEGRAM_TOKEN)")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("telegram_chat_id is required (set TELEGRAM_CHAT_ID)")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("gemini_api_key is required (set GEMINI_API_KEY)")
	}
	if c.ChunkLimit <= 0 {
		return fmt.Errorf("chunk_limit must be positive, got %d", c.ChunkLimit)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
