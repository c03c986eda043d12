package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration for the Jarvis assistant.
// It is loaded from ~/.jarvis/config.yaml and can be overridden by environment variables.
type Config struct {
	Assistant  AssistantConfig  `mapstructure:"assistant" yaml:"assistant"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge" yaml:"knowledge"`
	Similarity SimilarityConfig `mapstructure:"similarity" yaml:"similarity"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding" yaml:"embedding"`
	Sentiment  SentimentConfig  `mapstructure:"sentiment" yaml:"sentiment"`
	Voice      VoiceConfig      `mapstructure:"voice" yaml:"voice"`
	Hardware   HardwareConfig   `mapstructure:"hardware" yaml:"hardware"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// AssistantConfig controls the conversational loop.
type AssistantConfig struct {
	// Name is how the assistant refers to itself in prompts.
	Name string `mapstructure:"name" yaml:"name"`
	// Greet enables the time-of-day greeting on start.
	Greet bool `mapstructure:"greet" yaml:"greet"`
	// LearnOnMiss enables the learning flow when nothing else answers.
	LearnOnMiss bool `mapstructure:"learn_on_miss" yaml:"learn_on_miss"`
	// ScreenshotPath is where the screenshot action writes its image.
	ScreenshotPath string `mapstructure:"screenshot_path" yaml:"screenshot_path"`
	// ExitWords end the session when heard anywhere in an utterance.
	ExitWords []string `mapstructure:"exit_words" yaml:"exit_words"`
}

// KnowledgeConfig contains configuration for the learned question/answer store.
type KnowledgeConfig struct {
	// Backend selects the persistence backend ("json" or "sqlite").
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is the knowledge file (json) or database (sqlite) location.
	Path string `mapstructure:"path" yaml:"path"`
	// WriteRetries is the number of retries for transient write failures.
	WriteRetries int `mapstructure:"write_retries" yaml:"write_retries"`
	// RetryDelayMs is the base Fibonacci backoff delay in milliseconds.
	RetryDelayMs int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
	// CommitTimeoutSec bounds saving a freshly learned answer, retries included.
	CommitTimeoutSec int `mapstructure:"commit_timeout_sec" yaml:"commit_timeout_sec"`
}

// SimilarityConfig contains the knowledge matching parameters.
type SimilarityConfig struct {
	// Threshold is the score a stored question must strictly exceed to match (default 0.70).
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "local", "ollama" or "openai".
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Dimensions is the vector size of the local hashing embedder.
	Dimensions int `mapstructure:"dimensions" yaml:"dimensions"`
	// Endpoint is the API base URL for remote providers.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// Model is the embedding model for remote providers.
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// APIKey authenticates against OpenAI-compatible providers.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// TimeoutSec bounds each remote embedding request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	// CacheSize is the number of embeddings memoised in process (0 disables).
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size"`
}

// SentimentConfig configures the mood gate.
type SentimentConfig struct {
	// NegativeThreshold is the compound score magnitude at which input counts as negative.
	NegativeThreshold float64 `mapstructure:"negative_threshold" yaml:"negative_threshold"`
	// Reassurances replaces the built-in reassurance pool when non-empty.
	Reassurances []string `mapstructure:"reassurances" yaml:"reassurances,omitempty"`
}

// VoiceConfig selects the utterance source and speech sink.
type VoiceConfig struct {
	// Mode is "console" (typed input) or "websocket" (voice orchestrator bridge).
	Mode string `mapstructure:"mode" yaml:"mode"`
	// WebSocketURL is the voice orchestrator endpoint used in websocket mode.
	WebSocketURL string `mapstructure:"websocket_url" yaml:"websocket_url"`
}

// HardwareConfig configures the serial-attached LED and speaker.
type HardwareConfig struct {
	// SerialDevice is the device path (e.g. /dev/ttyACM0). Empty disables hardware actions.
	SerialDevice string `mapstructure:"serial_device" yaml:"serial_device"`
	// BaudRate is the serial line speed (8N1).
	BaudRate int `mapstructure:"baud_rate" yaml:"baud_rate"`
	// BlinkTimes is how many times the LED toggles.
	BlinkTimes int `mapstructure:"blink_times" yaml:"blink_times"`
	// BlinkDelayMs is the on/off interval in milliseconds.
	BlinkDelayMs int `mapstructure:"blink_delay_ms" yaml:"blink_delay_ms"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the path to the log file
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	jarvisDir := filepath.Join(homeDir, ".jarvis")

	return &Config{
		Assistant: AssistantConfig{
			Name:           "Jarvis",
			Greet:          true,
			LearnOnMiss:    true,
			ScreenshotPath: "screenshot.png",
			ExitWords:      []string{"exit", "stop"},
		},
		Knowledge: KnowledgeConfig{
			Backend:          "json",
			Path:             filepath.Join(jarvisDir, "knowledge_base.json"),
			WriteRetries:     3,
			RetryDelayMs:     100,
			CommitTimeoutSec: 10,
		},
		Similarity: SimilarityConfig{
			Threshold: 0.70,
		},
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Dimensions: 512,
			Endpoint:   "http://127.0.0.1:11434",
			Model:      "nomic-embed-text",
			TimeoutSec: 30,
			CacheSize:  1000,
		},
		Sentiment: SentimentConfig{
			NegativeThreshold: 0.25,
		},
		Voice: VoiceConfig{
			Mode:         "console",
			WebSocketURL: "ws://localhost:8765/ws/voice",
		},
		Hardware: HardwareConfig{
			SerialDevice: "",
			BaudRate:     9600,
			BlinkTimes:   5,
			BlinkDelayMs: 500,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(jarvisDir, "logs", "jarvis.log"),
		},
	}
}

// Load reads configuration from the default location (~/.jarvis/config.yaml)
// and merges with environment variables. If no config file exists, it creates
// one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".jarvis", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: JARVIS_SIMILARITY_THRESHOLD=0.8
	v.SetEnvPrefix("JARVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Knowledge.Path = expandPath(cfg.Knowledge.Path)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills zero values left by hand-edited config files.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Assistant.Name == "" {
		c.Assistant.Name = defaults.Assistant.Name
	}
	if c.Assistant.ScreenshotPath == "" {
		c.Assistant.ScreenshotPath = defaults.Assistant.ScreenshotPath
	}
	if len(c.Assistant.ExitWords) == 0 {
		c.Assistant.ExitWords = defaults.Assistant.ExitWords
	}
	if c.Knowledge.Backend == "" {
		c.Knowledge.Backend = defaults.Knowledge.Backend
	}
	if c.Knowledge.Path == "" {
		c.Knowledge.Path = defaults.Knowledge.Path
	}
	if c.Knowledge.RetryDelayMs == 0 {
		c.Knowledge.RetryDelayMs = defaults.Knowledge.RetryDelayMs
	}
	if c.Knowledge.CommitTimeoutSec == 0 {
		c.Knowledge.CommitTimeoutSec = defaults.Knowledge.CommitTimeoutSec
	}
	if c.Similarity.Threshold == 0 {
		c.Similarity.Threshold = defaults.Similarity.Threshold
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = defaults.Embedding.Provider
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = defaults.Embedding.Dimensions
	}
	if c.Embedding.TimeoutSec == 0 {
		c.Embedding.TimeoutSec = defaults.Embedding.TimeoutSec
	}
	if c.Sentiment.NegativeThreshold == 0 {
		c.Sentiment.NegativeThreshold = defaults.Sentiment.NegativeThreshold
	}
	if c.Voice.Mode == "" {
		c.Voice.Mode = defaults.Voice.Mode
	}
	if c.Hardware.BaudRate == 0 {
		c.Hardware.BaudRate = defaults.Hardware.BaudRate
	}
	if c.Hardware.BlinkTimes == 0 {
		c.Hardware.BlinkTimes = defaults.Hardware.BlinkTimes
	}
	if c.Hardware.BlinkDelayMs == 0 {
		c.Hardware.BlinkDelayMs = defaults.Hardware.BlinkDelayMs
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// Save writes the current configuration to the default config file location.
func (c *Config) Save() error {
	return c.SaveToPath(c.GetConfigPath())
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// GetDataDir returns the Jarvis data directory path (~/.jarvis).
func (c *Config) GetDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".jarvis")
}

// GetConfigPath returns the full path to the config file.
func (c *Config) GetConfigPath() string {
	return filepath.Join(c.GetDataDir(), "config.yaml")
}

// EnsureDirectories creates the directories holding the knowledge store and log file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Knowledge.Path),
	}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	validBackends := map[string]bool{"json": true, "sqlite": true}
	if !validBackends[c.Knowledge.Backend] {
		return fmt.Errorf("invalid knowledge backend '%s', must be one of: json, sqlite", c.Knowledge.Backend)
	}
	if c.Knowledge.Path == "" {
		return fmt.Errorf("knowledge.path cannot be empty")
	}
	if c.Knowledge.WriteRetries < 0 {
		return fmt.Errorf("knowledge.write_retries cannot be negative")
	}

	if c.Similarity.Threshold <= 0 || c.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity.threshold must be in (0, 1], got %v", c.Similarity.Threshold)
	}

	validProviders := map[string]bool{"local": true, "ollama": true, "openai": true}
	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider '%s', must be one of: local, ollama, openai", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "local" && c.Embedding.Dimensions < 8 {
		return fmt.Errorf("embedding.dimensions must be at least 8")
	}

	if c.Sentiment.NegativeThreshold <= 0 || c.Sentiment.NegativeThreshold >= 1 {
		return fmt.Errorf("sentiment.negative_threshold must be in (0, 1), got %v", c.Sentiment.NegativeThreshold)
	}

	if c.Voice.Mode != "console" && c.Voice.Mode != "websocket" {
		return fmt.Errorf("invalid voice mode '%s', must be 'console' or 'websocket'", c.Voice.Mode)
	}
	if c.Voice.Mode == "websocket" && c.Voice.WebSocketURL == "" {
		return fmt.Errorf("voice.websocket_url is required in websocket mode")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
