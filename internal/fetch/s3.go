package fetch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3GetObjectAPI is the subset of *s3.Client used by S3Fetcher.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher retrieves objects addressed as s3://bucket/key.
type S3Fetcher struct {
	client   S3GetObjectAPI
	maxBytes int64
}

// NewS3Fetcher returns an S3Fetcher. maxBytes <= 0 means DefaultMaxBytes.
func NewS3Fetcher(client S3GetObjectAPI, maxBytes int64) *S3Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &S3Fetcher{client: client, maxBytes: maxBytes}
}

// S3URL formats bucket and key as s3://bucket/key. The key is kept verbatim,
// matching the AWS CLI, so ParseS3URL returns it byte for byte.
func S3URL(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// ParseS3URL splits s3://bucket/key into its bucket and key. Everything after
// the first slash is the key; '?', '#' and '%' are literal key characters.
func ParseS3URL(rawURL string) (bucket, key string, err error) {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok || !strings.EqualFold(scheme, "s3") {
		return "", "", fmt.Errorf("not an s3 url: %q", rawURL)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url %q: expected s3://bucket/key", rawURL)
	}
	return bucket, key, nil
}

// Fetch downloads the object named by rawURL.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Downloading from S3")
	result, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: S3 GetObject: %w", ErrFetch, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(io.LimitReader(result.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: s3://%s/%s exceeds %d bytes", ErrFetch, bucket, key, f.maxBytes)
	}
	return data, nil
}
