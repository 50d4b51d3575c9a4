// Package lambdaboot holds the cold-start wiring shared by the thumbnail
// Lambda, the HTTP API and the CLI: AWS config, S3, SSM secrets and the
// fetcher router.
package lambdaboot

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnailer/internal/config"
	"github.com/fpang/thumbnailer/internal/fetch"
	"github.com/fpang/thumbnailer/internal/logging"
)

// EnvOriginVerifyParam names the SSM parameter holding the origin-verify
// secret when ORIGIN_VERIFY_SECRET is not set directly.
const EnvOriginVerifyParam = "SSM_ORIGIN_VERIFY_PARAM"

// InitAWS loads the default AWS config. Fatals on error.
func InitAWS() aws.Config {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg
}

// S3Clients holds the S3 client and the default bucket.
type S3Clients struct {
	Client *s3.Client
	Bucket string
}

// InitS3 creates an S3 client. bucket may be empty for processes that only
// read s3:// URLs.
func InitS3(cfg aws.Config, bucket string) S3Clients {
	return S3Clients{
		Client: s3.NewFromConfig(cfg),
		Bucket: bucket,
	}
}

// ParameterAPI is the subset of *ssm.Client used to load secrets.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadOriginVerifySecret returns current when set, otherwise reads the
// parameter named by SSM_ORIGIN_VERIFY_PARAM. An unset parameter name or a
// failed read leaves origin verification disabled.
func LoadOriginVerifySecret(ctx context.Context, client ParameterAPI, current string) string {
	if current != "" {
		return current
	}
	paramName := os.Getenv(EnvOriginVerifyParam)
	if paramName == "" || client == nil {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set, origin verification disabled")
		return ""
	}

	ssmStart := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil || result.Parameter == nil || result.Parameter.Value == nil {
		log.Warn().Err(err).Str("param", paramName).Msg("Origin verify secret not found in SSM, origin verification disabled")
		return ""
	}
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("Origin verify secret loaded from SSM")
	return *result.Parameter.Value
}

// NewFetcher builds the router used for URL sources: http and https always,
// s3 when an S3 client is supplied.
func NewFetcher(cfg config.Config, s3Client fetch.S3GetObjectAPI) *fetch.Router {
	return newRouter(cfg, gzhttp.Transport(http.DefaultTransport), s3Client)
}

// NewPublicFetcher is NewFetcher for servers taking URLs from callers: http
// and https connections to loopback, private, link-local and unspecified
// addresses are refused after DNS resolution.
func NewPublicFetcher(cfg config.Config, s3Client fetch.S3GetObjectAPI) *fetch.Router {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   publicOnly,
	}).DialContext
	return newRouter(cfg, gzhttp.Transport(transport), s3Client)
}

func newRouter(cfg config.Config, transport http.RoundTripper, s3Client fetch.S3GetObjectAPI) *fetch.Router {
	httpClient := &http.Client{
		Timeout:   cfg.FetchTimeout,
		Transport: transport,
	}
	httpFetcher := fetch.NewHTTPFetcher(httpClient, cfg.MaxBytes)

	router := fetch.NewRouter().
		Handle("http", httpFetcher).
		Handle("https", httpFetcher)
	if s3Client != nil {
		router.Handle("s3", fetch.NewS3Fetcher(s3Client, cfg.MaxBytes))
	}
	return router
}

// publicOnly is a net.Dialer Control hook rejecting non-public addresses.
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() {
		return fmt.Errorf("refusing to connect to non-public address %s", addr)
	}
	return nil
}

// StartupLog is a convenience wrapper for the startup logger, pre-filled with
// the thumbnail configuration.
func StartupLog(name string, initStart time.Time, cfg config.Config) *logging.StartupLogger {
	return logging.NewStartupLogger(name).
		InitDuration(time.Since(initStart)).
		Config("defaultSize", strconv.Itoa(cfg.DefaultSize)).
		Config("defaultFormat", cfg.DefaultFormat.String()).
		Config("ratio", cfg.Ratio.String()).
		Config("onNoShrink", cfg.OnNoShrink.String()).
		Feature("autoOrient", cfg.AutoOrient)
}
