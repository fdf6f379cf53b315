// Package app wires configuration into a ready-to-run import pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"postimport/internal/assets"
	"postimport/internal/domain/config"
	"postimport/internal/index"
	"postimport/internal/ingest"
	"postimport/internal/logging"
	"postimport/internal/sink"
	"postimport/internal/source"
	"postimport/internal/watch"
)

type App struct {
	cfg     config.Config
	logs    *logging.Provider
	closers []io.Closer

	pipeline *ingest.Pipeline
	// rerun skips the repository sync; used by watch mode.
	rerun *ingest.Pipeline
}

// New opens the configured sink and upload record. The caller must Close the
// returned App.
func New(cfg config.Config, logs *logging.Provider) (*App, error) {
	a := &App{cfg: cfg, logs: logs}

	var bolt *index.Store
	postSink, err := a.openSink(&bolt)
	if err != nil {
		a.Close()
		return nil, err
	}

	uploader, err := a.newUploader(bolt)
	if err != nil {
		a.Close()
		return nil, err
	}

	syncer := source.NewSyncer(source.Options{
		RepoURL: cfg.Source.RepoURL,
		Branch:  cfg.Source.Branch,
		Update:  cfg.Source.Update,
	}, logs.GetLogger("source"))

	common := []ingest.Option{
		ingest.WithUploader(uploader, cfg.Storage.Enabled),
		ingest.WithWorkers(cfg.Pipeline.Workers),
		ingest.WithLogger(logs.GetLogger("ingest")),
	}
	a.pipeline = ingest.NewPipeline(postSink, append(common, ingest.WithSyncer(syncer))...)
	a.rerun = ingest.NewPipeline(postSink, common...)
	return a, nil
}

func (a *App) openSink(bolt **index.Store) (ingest.Sink, error) {
	switch a.cfg.Sink.Driver {
	case config.SinkSQLite:
		s, err := sink.OpenSQLite(a.cfg.Sink.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite sink: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil
	case config.SinkPostgres:
		s, err := sink.OpenPostgres(a.cfg.Sink.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres sink: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil
	case config.SinkBolt, "":
		s, err := index.Open(index.OpenOptions{Path: a.cfg.Sink.Path})
		if err != nil {
			return nil, fmt.Errorf("open bolt sink: %w", err)
		}
		a.closers = append(a.closers, s)
		*bolt = s
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sink driver %q", a.cfg.Sink.Driver)
	}
}

// newUploader reuses the bolt sink as the upload record when both point at
// the same file, since bbolt allows one open handle per file.
func (a *App) newUploader(bolt *index.Store) (*assets.Uploader, error) {
	st := a.cfg.Storage
	opts := []assets.Option{
		assets.WithPublicBaseURL(st.PublicBaseURL),
		assets.WithLogger(a.logs.GetLogger("assets")),
	}
	if !st.Enabled {
		opts = append(opts, assets.WithDryRun(true))
		return assets.NewUploader(st.Bucket, nil, nil, opts...), nil
	}

	record := bolt
	if record == nil || !samePath(a.cfg.Record.Path, a.cfg.Sink.Path) {
		s, err := index.Open(index.OpenOptions{Path: a.cfg.Record.Path})
		if err != nil {
			return nil, fmt.Errorf("open upload record: %w", err)
		}
		a.closers = append(a.closers, s)
		record = s
	}

	putter := assets.NewS3Putter(assets.S3Config{
		Bucket:           st.Bucket,
		Region:           st.Region,
		AccessKeyID:      st.AccessKeyID,
		SecretAccessKey:  st.SecretAccessKey,
		RetryMaxAttempts: st.RetryMaxAttempts,
	})
	return assets.NewUploader(st.Bucket, putter, record, opts...), nil
}

func samePath(a, b string) bool {
	pa, errA := filepath.Abs(a)
	pb, errB := filepath.Abs(b)
	return errA == nil && errB == nil && pa == pb
}

// Import syncs the repository and imports every document once.
func (a *App) Import(ctx context.Context) (ingest.Result, error) {
	return a.pipeline.Run(ctx, a.cfg.Source.Root, a.cfg.Source.IncludeDrafts)
}

// Watch imports once, then re-imports without syncing whenever the corpus
// directory changes, until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	if _, err := a.Import(ctx); err != nil {
		return err
	}
	dir := ingest.CorpusDir(a.cfg.Source.Root, a.cfg.Source.IncludeDrafts)
	w := watch.New(dir, func(ctx context.Context) error {
		_, err := a.rerun.Run(ctx, a.cfg.Source.Root, a.cfg.Source.IncludeDrafts)
		return err
	}, watch.WithLogger(a.logs.GetLogger("watch")))
	return w.Run(ctx)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
