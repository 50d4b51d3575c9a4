// Package main serves the thumbnail HTTP API.
//
// Inside Lambda (AWS_LAMBDA_FUNCTION_NAME set) the handler runs behind API
// Gateway through httpadapter; elsewhere it listens on --addr with net/http.
//
// Routes:
//
//	GET  /api/health
//	GET  /api/thumbnail?url=...&size=...&format=...&ratio=...&onNoShrink=...
//	POST /api/thumbnail?size=...&format=...   (image in the body)
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/thumbnailer/internal/config"
	"github.com/fpang/thumbnailer/internal/httpapi"
	"github.com/fpang/thumbnailer/internal/lambdaboot"
	"github.com/fpang/thumbnailer/internal/logging"
	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// Set at build time via -ldflags.
var (
	commitHash string
	buildTime  string
)

// CLI flags
var (
	addrFlag    string
	metricsFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "thumbnail-api",
	Short: "HTTP API for thumbnail generation",
	Long: `Thumbnail API resizes images fetched from http(s) or s3 URLs, or uploaded
in the request body, and returns the encoded thumbnail.

Examples:
  thumbnail-api
  thumbnail-api --addr :9090
  curl 'localhost:8080/api/thumbnail?url=https://example.com/a.jpg&size=240&format=png' -o a.png`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", config.EnvOrDefault("THUMBNAIL_ADDR", ":8080"), "Address to listen on when not running in Lambda")
	rootCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Emit CloudWatch EMF metrics to stdout (always on in Lambda)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	inLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
	if inLambda {
		logging.InitJSON()
	} else {
		logging.Init()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	awsCfg := lambdaboot.InitAWS()
	s3c := lambdaboot.InitS3(awsCfg, cfg.Bucket)
	cfg.OriginVerifySecret = lambdaboot.LoadOriginVerifySecret(context.Background(), ssm.NewFromConfig(awsCfg), cfg.OriginVerifySecret)

	creator := thumbnail.New(cfg.ThumbnailOptions(lambdaboot.NewPublicFetcher(cfg, s3c.Client)))

	opts := httpapi.Options{
		DefaultSize:        cfg.DefaultSize,
		DefaultFormat:      cfg.DefaultFormat,
		S3Bucket:           cfg.Bucket,
		OriginVerifySecret: cfg.OriginVerifySecret,
	}
	if inLambda || metricsFlag {
		opts.Metrics = os.Stdout
	}
	handler := httpapi.New(creator, opts).Handler()

	lambdaboot.StartupLog("thumbnail-api", initStart, cfg).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Feature("originVerify", cfg.OriginVerifySecret != "").
		Feature("metrics", opts.Metrics != nil).
		Log()

	if inLambda {
		adapter := httpadapter.NewV2(handler)
		lambda.Start(adapter.ProxyWithContext)
		return
	}

	srv := &http.Server{
		Addr:         addrFlag,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Str("addr", addrFlag).Msg("Starting thumbnail API")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
