package assets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/singleflight"
	domainerr "postimport/internal/domain/errors"
	"postimport/internal/logging"
)

// Record is the durable set of logical keys that already live in storage.
type Record interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
}

// Putter writes a local file to object storage as a publicly readable object.
type Putter interface {
	PutPublic(ctx context.Context, localPath, key string) error
}

// Uploader uploads each logical key at most once. A key found in the record
// is trusted as uploaded; the remote object is never re-checked.
type Uploader struct {
	putter  Putter
	record  Record
	baseURL string
	dryRun  bool
	log     logging.Logger

	inflight singleflight.Group
}

type Option func(*Uploader)

// WithPublicBaseURL overrides the https://<bucket>.s3.amazonaws.com prefix.
func WithPublicBaseURL(base string) Option {
	return func(u *Uploader) {
		if base = strings.TrimSpace(base); base != "" {
			u.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithDryRun skips storage writes and record inserts but still returns URLs.
func WithDryRun(dry bool) Option {
	return func(u *Uploader) { u.dryRun = dry }
}

func WithLogger(l logging.Logger) Option {
	return func(u *Uploader) { u.log = logging.OrNoOp(l) }
}

func NewUploader(bucket string, putter Putter, record Record, opts ...Option) *Uploader {
	u := &Uploader{
		putter:  putter,
		record:  record,
		baseURL: BucketURL(bucket),
		log:     logging.NoOp(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// BucketURL is the public virtual-hosted address of an S3 bucket.
func BucketURL(bucket string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
}

// URL is where key resolves publicly, whether or not this process uploaded it.
func (u *Uploader) URL(key string) string {
	return u.baseURL + "/" + strings.TrimLeft(key, "/")
}

func (u *Uploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", domainerr.ErrSourceAssetMissing, localPath)
	}

	// concurrent callers for the same key wait for a single upload
	_, err, _ = u.inflight.Do(key, func() (any, error) {
		return nil, u.ensureUploaded(ctx, localPath, key)
	})
	if err != nil {
		return "", err
	}
	return u.URL(key), nil
}

func (u *Uploader) ensureUploaded(ctx context.Context, localPath, key string) error {
	if u.dryRun {
		return nil
	}

	done, err := u.record.Contains(ctx, key)
	if err != nil {
		return fmt.Errorf("upload record lookup %s: %w", key, err)
	}
	if done {
		return nil
	}

	u.log.Info("Uploading", "key", key)
	if err := u.putter.PutPublic(ctx, localPath, key); err != nil {
		return fmt.Errorf("%w: %s: %v", domainerr.ErrUploadTransport, key, err)
	}
	if err := u.record.Add(ctx, key); err != nil {
		return fmt.Errorf("upload record insert %s: %w", key, err)
	}
	return nil
}
