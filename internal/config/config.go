package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the Holy AI backend
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Database   DatabaseConfig   `mapstructure:"database"`
	RAG        RAGConfig        `mapstructure:"rag"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// OpenAIConfig holds the embedding and chat provider configuration
type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	EmbedModel string `mapstructure:"embed_model"`
	ChatModel  string `mapstructure:"chat_model"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// QdrantConfig holds vector search configuration
type QdrantConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

// ElevenLabsConfig holds speech provider configuration
type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	VoiceID string `mapstructure:"voice_id"`
	BaseURL string `mapstructure:"base_url"`
}

// DatabaseConfig holds the optional conversation store configuration
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RAGConfig holds answer pipeline defaults
type RAGConfig struct {
	TopK           int     `mapstructure:"top_k"`
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	Temperature    float32 `mapstructure:"temperature"`
	HistoryLimit   int     `mapstructure:"history_limit"`
}

// envAliases maps config keys to the environment variables the frontend
// build already uses. The first name wins.
var envAliases = map[string][]string{
	"openai.api_key":      {"OPENAI_API_KEY"},
	"openai.base_url":     {"OPENAI_BASE_URL"},
	"openai.embed_model":  {"OPENAI_EMBED_MODEL"},
	"openai.chat_model":   {"OPENAI_CHAT_MODEL"},
	"openai.batch_size":   {"OPENAI_BATCH_SIZE"},
	"qdrant.url":          {"QDRANT_URL", "VITE_QDRANT_URL"},
	"qdrant.api_key":      {"QDRANT_API_KEY", "VITE_QDRANT_API_KEY"},
	"qdrant.collection":   {"QDRANT_COLLECTION", "VITE_QDRANT_COLLECTION"},
	"elevenlabs.api_key":  {"ELEVENLABS_API_KEY", "VITE_ELEVENLABS_API_KEY"},
	"elevenlabs.voice_id": {"ELEVENLABS_VOICE_ID", "VITE_ELEVENLABS_VOICE_ID"},
	"elevenlabs.base_url": {"ELEVENLABS_BASE_URL"},
	"database.url":        {"DATABASE_URL"},
}

// Load loads configuration from .env, file and environment
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside local development
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("HOLYAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.embed_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.batch_size", 96)

	v.SetDefault("qdrant.collection", "data")

	v.SetDefault("elevenlabs.voice_id", "JBFqnCBsd6RMkjVDRZzb")
	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")

	v.SetDefault("rag.top_k", 6)
	v.SetDefault("rag.score_threshold", 0.1)
	v.SetDefault("rag.temperature", 0.2)
	v.SetDefault("rag.history_limit", 10)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StoreEnabled reports whether conversation persistence is configured
func (c *Config) StoreEnabled() bool {
	return c.Database.URL != ""
}

// Validation is the outcome of checking the environment at startup
type Validation struct {
	Errors   []string
	Warnings []string
}

// OK reports whether every required value is present
func (v Validation) OK() bool {
	return len(v.Errors) == 0
}

// Validate reports missing required credentials as errors and disabled
// optional features as warnings.
func (c *Config) Validate() Validation {
	var res Validation

	if c.OpenAI.APIKey == "" {
		res.Errors = append(res.Errors, "OPENAI_API_KEY is required for AI chat functionality")
	}
	if c.Qdrant.URL == "" {
		res.Errors = append(res.Errors, "QDRANT_URL is required for vector search")
	}
	if c.Qdrant.APIKey == "" {
		res.Errors = append(res.Errors, "QDRANT_API_KEY is required for vector search")
	}

	if c.ElevenLabs.APIKey == "" {
		res.Warnings = append(res.Warnings, "ELEVENLABS_API_KEY not set - voice features will not work")
	}
	if c.Database.URL == "" {
		res.Warnings = append(res.Warnings, "DATABASE_URL not set - conversation history disabled")
	}
	if c.OpenAI.BatchSize <= 0 {
		res.Warnings = append(res.Warnings, "OPENAI_BATCH_SIZE must be positive - using 96")
	}

	return res
}

// Status describes which providers are configured, without exposing secrets
type Status struct {
	OpenAI           bool   `json:"openai"`
	Qdrant           bool   `json:"qdrant"`
	QdrantCollection string `json:"qdrant_collection"`
	ElevenLabs       bool   `json:"eleven_labs"`
	Store            bool   `json:"store"`
	StoreOptional    bool   `json:"store_optional"`
	Configured       bool   `json:"configured"`
}

// Status summarizes provider configuration
func (c *Config) Status() Status {
	return Status{
		OpenAI:           c.OpenAI.APIKey != "",
		Qdrant:           c.Qdrant.URL != "" && c.Qdrant.APIKey != "",
		QdrantCollection: c.Qdrant.Collection,
		ElevenLabs:       c.ElevenLabs.APIKey != "",
		Store:            c.StoreEnabled(),
		StoreOptional:    true,
		Configured:       c.Validate().OK(),
	}
}
