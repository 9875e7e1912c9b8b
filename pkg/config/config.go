// Package config loads the coursegraph settings from file, environment and
// flags through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openswoop/coursegraph/pkg/database"
	"github.com/openswoop/coursegraph/pkg/embed"
	"github.com/openswoop/coursegraph/pkg/notify"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/spf13/viper"
)

const (
	Name      = "coursegraph"
	EnvPrefix = "COURSEGRAPH"

	BackendFirestore = "firestore"
	BackendSqlite    = "sqlite"
)

var ErrMissingCredentials = errors.New("missing credentials")

type Config struct {
	Backend         string        `mapstructure:"backend"`
	Project         string        `mapstructure:"project"`
	Database        string        `mapstructure:"database"`
	Credentials     string        `mapstructure:"credentials"`
	Collection      string        `mapstructure:"collection"`
	SqlitePath      string        `mapstructure:"sqlite_path"`
	APIKeyFile      string        `mapstructure:"api_key_file"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	EmbeddingDims   int           `mapstructure:"embedding_dims"`
	Concurrency     int           `mapstructure:"concurrency"`
	UserAgent       string        `mapstructure:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	SitemapIndex    string        `mapstructure:"sitemap_index"`
	CacheDir        string        `mapstructure:"cache_dir"`
	LogMode         string        `mapstructure:"log_mode"`
	BigQueryDataset string        `mapstructure:"bigquery_dataset"`
	Topic           string        `mapstructure:"topic"`
}

// SetDefaults registers every key so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	dataDir := ""
	if dir, err := os.UserCacheDir(); err == nil {
		dataDir = filepath.Join(dir, Name)
	}

	v.SetDefault("backend", BackendFirestore)
	v.SetDefault("project", "")
	v.SetDefault("database", "")
	v.SetDefault("credentials", "serviceAccountKey.json")
	v.SetDefault("collection", database.DefaultCollection)
	v.SetDefault("sqlite_path", filepath.Join(dataDir, "coursegraph.db"))
	v.SetDefault("api_key_file", "gemini_api_key.txt")
	v.SetDefault("embedding_model", embed.DefaultModel)
	v.SetDefault("embedding_dims", embed.DefaultDimensions)
	v.SetDefault("concurrency", scrape.DefaultConcurrency)
	v.SetDefault("user_agent", scrape.UserAgent)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("sitemap_index", scrape.SitemapIndexUrl)
	v.SetDefault("cache_dir", "")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("bigquery_dataset", database.DefaultDataset)
	v.SetDefault("topic", notify.DefaultTopic)
}

// Configure points v at the config file, or at coursegraph.yaml in the
// working directory and ~/.config/coursegraph, and enables environment
// overrides. A missing config file is not an error.
func Configure(v *viper.Viper, file string) error {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ValidateStore checks the settings the selected backend needs.
func (c Config) ValidateStore() error {
	switch c.Backend {
	case BackendFirestore:
		if c.Project == "" && c.Credentials == "" {
			return fmt.Errorf("firestore needs a project or a credentials file: %w", ErrMissingCredentials)
		}
		if c.Credentials != "" {
			if _, err := os.Stat(c.Credentials); err != nil {
				return fmt.Errorf("credentials file %s: %w", c.Credentials, ErrMissingCredentials)
			}
		}
	case BackendSqlite:
		if c.SqlitePath == "" {
			return errors.New("sqlite backend needs sqlite_path")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

// ValidateEmbedding checks that the embedding key file is configured. Its
// contents are checked when the key is loaded.
func (c Config) ValidateEmbedding() error {
	if c.APIKeyFile == "" {
		return fmt.Errorf("api_key_file is not set: %w", ErrMissingCredentials)
	}
	return nil
}
