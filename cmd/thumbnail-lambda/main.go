// Package main provides a Lambda entry point for per-object thumbnail generation.
//
// One invocation per S3 object: the image is read through the S3 fetcher,
// resized by the thumbnail Creator and written back to
// {dir}/thumbnails/{baseName}.{ext} in the same bucket.
//
// Memory: 512 MB
// Timeout: 2 minutes
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnailer/internal/config"
	"github.com/fpang/thumbnailer/internal/fetch"
	"github.com/fpang/thumbnailer/internal/lambdaboot"
	"github.com/fpang/thumbnailer/internal/logging"
	"github.com/fpang/thumbnailer/internal/metrics"
	"github.com/fpang/thumbnailer/internal/s3util"
	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// Set at build time via -ldflags.
var (
	commitHash string
	buildTime  string
)

// ThumbnailEvent is the input payload, one event per object.
type ThumbnailEvent struct {
	Key    string `json:"key"`
	Bucket string `json:"bucket,omitempty"` // Optional override; defaults to THUMBNAIL_BUCKET.
	Size   int    `json:"size,omitempty"`
	Format string `json:"format,omitempty"`
}

// ThumbnailResult is returned to the caller (typically a Step Functions Map state).
type ThumbnailResult struct {
	ThumbnailKey string `json:"thumbnailKey"`
	OriginalKey  string `json:"originalKey"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	PassThrough  bool   `json:"passThrough"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// processor holds everything a single invocation needs.
type processor struct {
	cfg     config.Config
	creator *thumbnail.Creator
	uploads s3util.PutObjectAPI
	metrics io.Writer

	coldStart bool
}

func (p *processor) handle(ctx context.Context, event ThumbnailEvent) (ThumbnailResult, error) {
	start := time.Now()
	if p.coldStart {
		p.coldStart = false
		log.Info().Str("function", "thumbnail-lambda").Msg("Cold start, first invocation")
	}

	bucket := p.cfg.Bucket
	if event.Bucket != "" {
		bucket = event.Bucket
	}

	logger := log.With().
		Str("bucket", bucket).
		Str("key", event.Key).
		Logger()
	logger.Info().Msg("Processing thumbnail request")

	result := ThumbnailResult{OriginalKey: event.Key}
	fail := func(err error) (ThumbnailResult, error) {
		result.Error = err.Error()
		return result, err
	}

	if event.Key == "" || bucket == "" {
		return fail(fmt.Errorf("%w: bucket and key are required", thumbnail.ErrInvalidArgument))
	}

	size := p.cfg.DefaultSize
	if event.Size != 0 {
		size = event.Size
	}
	format := p.cfg.DefaultFormat
	if event.Format != "" {
		f, err := thumbnail.ParseFormat(event.Format)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", thumbnail.ErrInvalidArgument, err))
		}
		format = f
	}

	src := thumbnail.URLSource{URL: fetch.S3URL(bucket, event.Key), Fetcher: p.creator.Options().Fetcher}
	res, err := p.creator.Create(ctx, src, size, format)
	p.record(res, err, time.Since(start))
	if err != nil {
		if softFailure(err) {
			// The pipeline continues without a thumbnail for this object.
			logger.Warn().Err(err).Msg("Thumbnail generation failed (soft failure)")
			result.Error = fmt.Sprintf("thumbnail generation failed: %v", err)
			return result, nil
		}
		logger.Error().Err(err).Msg("Thumbnail generation failed")
		return fail(err)
	}

	thumbKey := s3util.ThumbnailKey(event.Key, format)
	if err := s3util.UploadThumbnail(ctx, p.uploads, bucket, thumbKey, res); err != nil {
		logger.Error().Err(err).Str("thumbKey", thumbKey).Msg("Failed to upload thumbnail")
		return fail(err)
	}

	logger.Info().
		Str("thumbKey", thumbKey).
		Int("thumbSize", len(res.Data)).
		Str("dimensions", res.Output.String()).
		Bool("passThrough", res.PassThrough).
		Dur("duration", time.Since(start)).
		Msg("Thumbnail generated and uploaded")

	result.ThumbnailKey = thumbKey
	result.Width = res.Output.Width
	result.Height = res.Output.Height
	result.PassThrough = res.PassThrough
	result.Success = true
	return result, nil
}

// softFailure reports errors caused by the object itself rather than by the
// environment. Retrying those cannot succeed.
func softFailure(err error) bool {
	return errors.Is(err, thumbnail.ErrDecode) ||
		errors.Is(err, thumbnail.ErrNoShrinkNeeded) ||
		errors.Is(err, thumbnail.ErrEncode)
}

func (p *processor) record(res *thumbnail.Result, err error, d time.Duration) {
	if p.metrics == nil {
		return
	}
	metrics.NewWithWriter(p.metrics, metrics.Namespace).
		Thumbnail("s3", res, err, d).
		Flush()
}

func main() {
	initStart := time.Now()
	logging.InitJSON()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Bucket == "" {
		log.Fatal().Str("envVar", config.EnvBucket).Msg("Bucket environment variable is required")
	}

	awsCfg := lambdaboot.InitAWS()
	s3c := lambdaboot.InitS3(awsCfg, cfg.Bucket)

	p := &processor{
		cfg:       cfg,
		creator:   thumbnail.New(cfg.ThumbnailOptions(lambdaboot.NewFetcher(cfg, s3c.Client))),
		uploads:   s3c.Client,
		metrics:   os.Stdout,
		coldStart: true,
	}

	lambdaboot.StartupLog("thumbnail-lambda", initStart, cfg).
		CommitHash(commitHash).
		BuildTime(buildTime).
		S3Bucket("thumbnailBucket", cfg.Bucket).
		Log()

	lambda.Start(p.handle)
}
