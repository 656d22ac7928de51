package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Relay    RelayClientConfig `yaml:"relay"`
	Session  SessionConfig     `yaml:"session"`
	Usage    UsageConfig       `yaml:"usage"`
	Capture  CaptureConfig     `yaml:"capture"`
	Voice    VoiceConfig       `yaml:"voice"`
	OpenAI   OpenAIConfig      `yaml:"openai"`
	Server   ServerConfig      `yaml:"server"`
	Pushover PushoverConfig    `yaml:"pushover"`
	Log      LogConfig         `yaml:"log"`
}

type RelayClientConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	NoInputTimeout time.Duration `yaml:"no_input_timeout"`
	// Pointers so an explicit false in the file survives setDefaults.
	ForwardEmptyTranscript *bool         `yaml:"forward_empty_transcript"`
	ChargeFallback         *bool         `yaml:"charge_fallback"`
	Pause                  time.Duration `yaml:"pause"`
}

type UsageConfig struct {
	Limit      int         `yaml:"limit"`
	Store      string      `yaml:"store"`
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type CaptureConfig struct {
	Source     string        `yaml:"source"`
	FileDir    string        `yaml:"file_dir"`
	SampleRate int           `yaml:"sample_rate"`
	MaxRecord  time.Duration `yaml:"max_record"`
	Language   string        `yaml:"language"`
	AuthToken  string        `yaml:"auth_token"`
	RateLimit  int           `yaml:"rate_limit"`
	Prompt     string        `yaml:"prompt"`
}

type VoiceConfig struct {
	Engine    string   `yaml:"engine"`
	Command   string   `yaml:"command"`
	Preferred []string `yaml:"preferred"`
	Pitch     float64  `yaml:"pitch"`
	Rate      float64  `yaml:"rate"`
	Voices    []string `yaml:"voices"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	DevTools       bool     `yaml:"dev_tools"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Title   string `yaml:"title"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes the YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Relay.URL == "" {
		c.Relay.URL = "http://localhost:5050"
	}
	if c.Relay.Timeout == 0 {
		c.Relay.Timeout = 30 * time.Second
	}
	if c.Session.NoInputTimeout == 0 {
		c.Session.NoInputTimeout = 10 * time.Second
	}
	if c.Session.ForwardEmptyTranscript == nil {
		c.Session.ForwardEmptyTranscript = boolPtr(true)
	}
	if c.Session.ChargeFallback == nil {
		c.Session.ChargeFallback = boolPtr(true)
	}
	if c.Session.Pause == 0 {
		c.Session.Pause = time.Second
	}
	if c.Usage.Limit == 0 {
		c.Usage.Limit = 3
	}
	if c.Usage.Store == "" {
		c.Usage.Store = "sqlite"
	}
	if c.Usage.SQLitePath == "" {
		c.Usage.SQLitePath = "./data/assistant.db"
	}
	if c.Usage.Redis.Addr == "" {
		c.Usage.Redis.Addr = "localhost:6379"
	}
	if c.Usage.Redis.Prefix == "" {
		c.Usage.Redis.Prefix = "voice-assistant:"
	}
	if c.Capture.Source == "" {
		c.Capture.Source = "http"
	}
	if c.Capture.FileDir == "" {
		c.Capture.FileDir = "./audio"
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Capture.MaxRecord == 0 {
		c.Capture.MaxRecord = 10 * time.Second
	}
	if c.Capture.Language == "" {
		c.Capture.Language = "en-US"
	}
	if c.Capture.RateLimit == 0 {
		c.Capture.RateLimit = 30
	}
	if c.Capture.Prompt == "" {
		c.Capture.Prompt = "you> "
	}
	if c.Voice.Engine == "" {
		c.Voice.Engine = "console"
	}
	if c.Voice.Command == "" {
		c.Voice.Command = "espeak-ng"
	}
	if len(c.Voice.Preferred) == 0 {
		c.Voice.Preferred = []string{"daniel", "english"}
	}
	if c.Voice.Pitch == 0 {
		c.Voice.Pitch = 1.1
	}
	if c.Voice.Rate == 0 {
		c.Voice.Rate = 1.0
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	switch c.Usage.Store {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("usage.store %q: want sqlite, redis or memory", c.Usage.Store)
	}
	switch c.Capture.Source {
	case "http", "console", "microphone", "file":
	default:
		return fmt.Errorf("capture.source %q: want http, console, microphone or file", c.Capture.Source)
	}
	switch c.Voice.Engine {
	case "console", "espeak":
	default:
		return fmt.Errorf("voice.engine %q: want console or espeak", c.Voice.Engine)
	}
	if c.Usage.Limit < 0 {
		return fmt.Errorf("usage.limit must be >= 0")
	}
	if c.Session.NoInputTimeout < 0 {
		return fmt.Errorf("session.no_input_timeout must be >= 0")
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
