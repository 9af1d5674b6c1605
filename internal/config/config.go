package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"FF_LISTEN_ADDR" default:":8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"FF_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"FF_DB_MAX_CONNS" default:"8"`

	GeneratorEndpoint string `envconfig:"FF_GENERATOR_ENDPOINT" default:""`
	GeneratorModel    string `envconfig:"FF_GENERATOR_MODEL" default:""`
	GeneratorAPIKey   string `envconfig:"FF_GENERATOR_API_KEY" default:""`

	PageSize    int   `envconfig:"FF_PAGE_SIZE" default:"30"`
	AdInterval  int   `envconfig:"FF_AD_INTERVAL" default:"8"`
	MinUnseen   int   `envconfig:"FF_MIN_UNSEEN" default:"5"`
	FetchLimit  int   `envconfig:"FF_FETCH_LIMIT" default:"2000"`
	TopicTarget int64 `envconfig:"FF_TOPIC_TARGET" default:"200"`

	SimilarityThreshold float64 `envconfig:"FF_SIMILARITY_THRESHOLD" default:"0.70"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("FF_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("FF_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("FF_DB_MIN_CONNS (%d) cannot exceed FF_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("FF_PAGE_SIZE must be >= 1")
	}
	if c.AdInterval < 1 {
		return fmt.Errorf("FF_AD_INTERVAL must be >= 1")
	}
	if c.MinUnseen < 0 {
		return fmt.Errorf("FF_MIN_UNSEEN must be >= 0")
	}
	if c.TopicTarget < 0 {
		return fmt.Errorf("FF_TOPIC_TARGET must be >= 0")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("FF_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
