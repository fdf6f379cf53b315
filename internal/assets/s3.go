package assets

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the putter needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket           string
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	RetryMaxAttempts int
}

// S3Putter builds its client on first use and reuses it afterwards.
type S3Putter struct {
	cfg S3Config

	mu     sync.Mutex
	client S3API
}

func NewS3Putter(cfg S3Config) *S3Putter {
	return &S3Putter{cfg: cfg}
}

// NewS3PutterWithClient uses an existing client instead of building one.
func NewS3PutterWithClient(bucket string, client S3API) *S3Putter {
	return &S3Putter{cfg: S3Config{Bucket: bucket}, client: client}
}

func (p *S3Putter) getClient(ctx context.Context) (S3API, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(p.cfg.Region),
	}
	if p.cfg.RetryMaxAttempts > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(p.cfg.RetryMaxAttempts))
	}
	if p.cfg.AccessKeyID != "" && p.cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.cfg.AccessKeyID, p.cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	p.client = s3.NewFromConfig(awsCfg)
	return p.client, nil
}

func (p *S3Putter) PutPublic(ctx context.Context, localPath, key string) error {
	client, err := p.getClient(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    types.ObjectCannedACLPublicRead,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", p.cfg.Bucket, key, err)
	}
	return nil
}
