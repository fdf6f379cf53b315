package config

import (
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	domainerr "postimport/internal/domain/errors"
)

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Storage  StorageConfig  `yaml:"storage"`
	Record   RecordConfig   `yaml:"record"`
	Sink     SinkConfig     `yaml:"sink"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
}

type SourceConfig struct {
	Root          string `yaml:"root"`
	RepoURL       string `yaml:"repo_url"`
	Branch        string `yaml:"branch"`
	Update        bool   `yaml:"update"`
	IncludeDrafts bool   `yaml:"include_drafts"`
}

type StorageConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Bucket           string `yaml:"bucket"`
	Region           string `yaml:"region"`
	AccessKeyID      string `yaml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key"`
	PublicBaseURL    string `yaml:"public_base_url"`
	RetryMaxAttempts int    `yaml:"retry_max_attempts"`
}

type RecordConfig struct {
	Path string `yaml:"path"`
}

type SinkDriver string

const (
	SinkBolt     SinkDriver = "bolt"
	SinkSQLite   SinkDriver = "sqlite"
	SinkPostgres SinkDriver = "postgres"
)

type SinkConfig struct {
	Driver SinkDriver `yaml:"driver"`
	Path   string     `yaml:"path"`
	DSN    string     `yaml:"dsn"`
}

type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultRepoURL is the corpus cloned when no repo_url is configured.
const DefaultRepoURL = "https://github.com/soffes/blog.git"

func Default() Config {
	return Config{
		Source: SourceConfig{
			Root:    "tmp/repo",
			RepoURL: DefaultRepoURL,
			Branch:  "master",
			Update:  true,
		},
		Storage: StorageConfig{
			Enabled:          true,
			Region:           "us-east-1",
			RetryMaxAttempts: 3,
		},
		Record: RecordConfig{
			Path: ".postimport/record.db",
		},
		Sink: SinkConfig{
			Driver: SinkBolt,
			Path:   ".postimport/posts.db",
		},
		Pipeline: PipelineConfig{
			Workers: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ApplyEnv overlays the environment variables the importer has always read.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("AWS_S3_BUCKET_NAME"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("AWS_S3_REGION"); v != "" {
		c.Storage.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Storage.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Sink.DSN = v
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Source.Root) == "" {
		ve.Add("source.root", "must not be empty")
	}
	if c.Source.Update {
		if strings.TrimSpace(c.Source.RepoURL) == "" {
			ve.Add("source.repo_url", "must not be empty when update is enabled")
		}
		if strings.TrimSpace(c.Source.Branch) == "" {
			ve.Add("source.branch", "must not be empty when update is enabled")
		}
	}

	if c.Storage.Enabled {
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			ve.Add("storage.bucket", "must not be empty")
		}
		if strings.TrimSpace(c.Storage.Region) == "" {
			ve.Add("storage.region", "must not be empty")
		}
	}
	if base := strings.TrimSpace(c.Storage.PublicBaseURL); base != "" && !isValidAbsURL(base) {
		ve.Add("storage.public_base_url", "must be a valid absolute URL")
	}
	if c.Storage.RetryMaxAttempts < 0 {
		ve.Add("storage.retry_max_attempts", "must not be negative")
	}

	if strings.TrimSpace(c.Record.Path) == "" {
		ve.Add("record.path", "must not be empty")
	}

	switch c.Sink.Driver {
	case "", SinkBolt, SinkSQLite:
		if strings.TrimSpace(c.Sink.Path) == "" {
			ve.Add("sink.path", "must not be empty")
		}
	case SinkPostgres:
		if strings.TrimSpace(c.Sink.DSN) == "" {
			ve.Add("sink.dsn", "must not be empty")
		}
	default:
		ve.Add("sink.driver", "must be 'bolt', 'sqlite' or 'postgres'")
	}

	if c.Pipeline.Workers < 1 {
		ve.Add("pipeline.workers", "must be at least 1")
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Load reads path over Default and applies the environment. A missing file
// yields the defaults. Callers validate after applying their own overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.ApplyEnv()
	if cfg.Sink.Driver == "" {
		cfg.Sink.Driver = SinkBolt
	}
	return cfg, nil
}
