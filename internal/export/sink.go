package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vetdesk/internal/pkg/logger"
)

// Sink is where a rendered export ends up. Put returns its location.
type Sink interface {
	Put(ctx context.Context, f File) (string, error)
}

// DirSink writes exports into a local directory.
type DirSink struct {
	Dir string
}

// Put writes f under its own name, or under name-N when another process has
// already exported into the same second. Existing files are never overwritten.
func (d DirSink) Put(ctx context.Context, f File) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", err
	}

	ext := filepath.Ext(f.Name)
	base := strings.TrimSuffix(f.Name, ext)
	name := f.Name
	for n := 2; ; n++ {
		path := filepath.Join(d.Dir, name)
		fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) && n <= maxRenames {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := fh.Write(f.Data); err != nil {
			fh.Close()
			return "", err
		}
		return path, fh.Close()
	}
}

const maxRenames = 100

// S3API is the subset of the S3 client used by S3Sink.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads exports to a bucket under an optional key prefix.
type S3Sink struct {
	client S3API
	bucket string
	prefix string
}

func NewS3SinkWithClient(client S3API, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Sink loads the default AWS configuration for region.
func NewS3Sink(ctx context.Context, bucket, prefix, region string) (*S3Sink, error) {
	if region == "" {
		region = os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3SinkWithClient(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

func (s *S3Sink) Put(ctx context.Context, f File) (string, error) {
	key := s.prefix + f.Name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(f.Data),
		ContentType: aws.String(f.ContentType),
		Metadata: map[string]string{
			"exported_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	loc := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	logger.Info("export uploaded", "location", loc, "bytes", len(f.Data))
	return loc, nil
}
