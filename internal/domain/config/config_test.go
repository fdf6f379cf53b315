package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerr "postimport/internal/domain/errors"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tmp/repo", cfg.Source.Root)
	assert.Equal(t, SinkBolt, cfg.Sink.Driver)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
}

func TestDefaultSourceValidates(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultRepoURL, cfg.Source.RepoURL)
	assert.True(t, cfg.Source.Update)

	// the bucket comes from AWS_S3_BUCKET_NAME in a bare run
	cfg.Storage.Bucket = "assets"
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postimport.yaml")
	data := []byte(`
source:
  root: corpus
  update: false
storage:
  bucket: from-file
sink:
  driver: sqlite
  path: data/posts.sqlite
pipeline:
  workers: 4
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("AWS_S3_BUCKET_NAME", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "corpus", cfg.Source.Root)
	assert.False(t, cfg.Source.Update)
	assert.Equal(t, "master", cfg.Source.Branch)
	assert.Equal(t, "from-env", cfg.Storage.Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, SinkSQLite, cfg.Sink.Driver)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Source.RepoURL = ""
	cfg.Storage.Bucket = ""
	cfg.Sink.Driver = "mongo"
	cfg.Pipeline.Workers = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerr.ErrInvalid))

	var ve domainerr.ValidationError
	require.True(t, errors.As(err, &ve))
	fields := make([]string, 0, len(ve.Items))
	for _, it := range ve.Items {
		fields = append(fields, it.Field)
	}
	assert.Contains(t, fields, "source.repo_url")
	assert.Contains(t, fields, "storage.bucket")
	assert.Contains(t, fields, "sink.driver")
	assert.Contains(t, fields, "pipeline.workers")
}

func TestValidatePostgresNeedsDSN(t *testing.T) {
	cfg := Default()
	cfg.Source.Update = false
	cfg.Storage.Enabled = false
	cfg.Sink.Driver = SinkPostgres

	assert.Error(t, cfg.Validate())

	cfg.Sink.DSN = "postgres://localhost/posts"
	assert.NoError(t, cfg.Validate())
}
