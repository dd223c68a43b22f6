// Package config reads the environment-style settings shared by the
// folio binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/barekit/folio/pkg/memory"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go/option"
)

// Environment keys.
const (
	KeyAPIKey           = "OPENAI_API_KEY"
	KeyBaseURL          = "OPENAI_BASE_URL"
	KeyChatModel        = "FOLIO_CHAT_MODEL"
	KeyEmbeddingModel   = "FOLIO_EMBEDDING_MODEL"
	KeyOwner            = "FOLIO_OWNER"
	KeyKnowledgeBase    = "FOLIO_KNOWLEDGE_BASE"
	KeyContent          = "FOLIO_CONTENT"
	KeyAddr             = "FOLIO_ADDR"
	KeyEmbedTimeout     = "FOLIO_EMBED_TIMEOUT"
	KeyGenerateTimeout  = "FOLIO_GENERATE_TIMEOUT"
	KeyLogLevel         = "FOLIO_LOG_LEVEL"
	KeyMemoryType       = "FOLIO_MEMORY_TYPE"
	KeyMemoryDSN        = "FOLIO_MEMORY_DSN"
	KeyMemoryUsername   = "FOLIO_MEMORY_USERNAME"
	KeyMemoryPassword   = "FOLIO_MEMORY_PASSWORD"
	KeyMemoryDB         = "FOLIO_MEMORY_DB"
	KeyPublish          = "FOLIO_PUBLISH"
	KeyQdrantHost       = "QDRANT_HOST"
	KeyQdrantPort       = "QDRANT_PORT"
	KeyQdrantCollection = "QDRANT_COLLECTION"
	KeyPostgresDSN      = "POSTGRES_DSN"
)

// Publish targets for the knowledge base builder.
const (
	PublishNone     = "none"
	PublishQdrant   = "qdrant"
	PublishPostgres = "postgres"
)

// DefaultLogLevel is used until the configured level is known.
const DefaultLogLevel = slog.LevelInfo

// EnvFiles are loaded in order; earlier files win.
var EnvFiles = []string{".env.local", ".env"}

// ConfigurationError reports a missing required setting.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s is not set", e.Key)
}

// Config holds every setting read from the environment.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Owner          string

	KnowledgeBasePath string
	ContentPath       string
	Addr              string

	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
	LogLevel        slog.Level

	Memory memory.Config

	Publish          []string
	QdrantHost       string
	QdrantPort       int
	QdrantCollection string
	PostgresDSN      string
}

// Load reads the env files, if present, then the process environment.
func Load() (*Config, error) {
	for _, file := range EnvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		APIKey:            get(KeyAPIKey, ""),
		BaseURL:           get(KeyBaseURL, ""),
		ChatModel:         get(KeyChatModel, "gpt-4o-mini"),
		EmbeddingModel:    get(KeyEmbeddingModel, "text-embedding-3-small"),
		Owner:             get(KeyOwner, ""),
		KnowledgeBasePath: get(KeyKnowledgeBase, "knowledge-base.json"),
		ContentPath:       get(KeyContent, "content.json"),
		Addr:              get(KeyAddr, ":8080"),
		Memory: memory.Config{
			Type:             memory.Type(get(KeyMemoryType, string(memory.TypeInMemory))),
			ConnectionString: get(KeyMemoryDSN, ""),
			Username:         get(KeyMemoryUsername, ""),
			Password:         get(KeyMemoryPassword, ""),
			DBName:           get(KeyMemoryDB, ""),
		},
		QdrantHost:       get(KeyQdrantHost, "localhost"),
		QdrantCollection: get(KeyQdrantCollection, "folio_knowledge"),
		PostgresDSN:      get(KeyPostgresDSN, ""),
	}

	var err error
	if cfg.EmbedTimeout, err = parseDuration(KeyEmbedTimeout, get(KeyEmbedTimeout, "15s")); err != nil {
		return nil, err
	}
	if cfg.GenerateTimeout, err = parseDuration(KeyGenerateTimeout, get(KeyGenerateTimeout, "120s")); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = ParseLevel(get(KeyLogLevel, "info")); err != nil {
		return nil, err
	}
	if cfg.QdrantPort, err = strconv.Atoi(get(KeyQdrantPort, "6334")); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyQdrantPort, err)
	}
	if cfg.Publish, err = parsePublish(get(KeyPublish, PublishNone)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireAPIKey returns a *ConfigurationError when no API key is set.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return &ConfigurationError{Key: KeyAPIKey}
	}
	return nil
}

// OpenAIOptions returns the client options for the configured backend.
func (c *Config) OpenAIOptions() []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	return opts
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}
	return level, nil
}

// NewLogger returns a text logger on stderr at the given level.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}

// parsePublish accepts a comma separated list of publish targets.
func parsePublish(s string) ([]string, error) {
	var targets []string
	for _, t := range strings.Split(s, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		switch t {
		case "", PublishNone:
		case PublishQdrant, PublishPostgres:
			targets = append(targets, t)
		default:
			return nil, fmt.Errorf("invalid %s: unknown target %q", KeyPublish, t)
		}
	}
	return targets, nil
}
