// Package httpapi serves thumbnails over HTTP.
//
// Endpoints:
//
//	GET  /api/health     health check
//	GET  /api/thumbnail  thumbnail of the image at ?url= (http, https or s3 in the configured bucket)
//	POST /api/thumbnail  thumbnail of the image in the request body
//
// Both thumbnail endpoints accept size, format, ratio and onNoShrink query
// parameters. The same handler runs locally under net/http and in Lambda
// behind API Gateway.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnailer/internal/fetch"
	"github.com/fpang/thumbnailer/internal/metrics"
	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// maxUploadSize caps POST bodies.
const maxUploadSize int64 = 50 * 1024 * 1024 // 50 MB

// Options configures a Server.
type Options struct {
	DefaultSize   int
	DefaultFormat thumbnail.Format

	// S3Bucket is the only bucket s3:// sources may name. Empty rejects
	// every s3:// source.
	S3Bucket string

	// OriginVerifySecret, when set, must match the x-origin-verify header.
	OriginVerifySecret string

	// Metrics receives one EMF document per thumbnail request. Nil disables metrics.
	Metrics io.Writer
}

// Server turns HTTP requests into thumbnails.
type Server struct {
	creator *thumbnail.Creator
	opts    Options
}

// New returns a Server backed by creator.
func New(creator *thumbnail.Creator, opts Options) *Server {
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = 400
	}
	return &Server{creator: creator, opts: opts}
}

// Handler returns the routed handler wrapped with request logging and origin
// verification.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/thumbnail", s.handleThumbnail)
	return withRequestID(s.withOriginVerify(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "thumbnailer",
	})
}

// thumbnailRequest is the parsed query string of a thumbnail request.
type thumbnailRequest struct {
	size   int
	format thumbnail.Format
	opts   thumbnail.Options
}

func (s *Server) parseRequest(r *http.Request) (thumbnailRequest, error) {
	q := r.URL.Query()
	req := thumbnailRequest{
		size:   s.opts.DefaultSize,
		format: s.opts.DefaultFormat,
		opts:   s.creator.Options(),
	}

	var err error
	if v := q.Get("size"); v != "" {
		if req.size, err = strconv.Atoi(v); err != nil || req.size <= 0 {
			return req, fmt.Errorf("%w: size must be a positive integer", thumbnail.ErrInvalidArgument)
		}
	}
	if v := q.Get("format"); v != "" {
		if req.format, err = thumbnail.ParseFormat(v); err != nil {
			return req, fmt.Errorf("%w: %w", thumbnail.ErrInvalidArgument, err)
		}
	}
	if v := q.Get("ratio"); v != "" {
		if req.opts.Ratio, err = thumbnail.ParseRatio(v); err != nil {
			return req, err
		}
	}
	if v := q.Get("onNoShrink"); v != "" {
		if req.opts.OnNoShrink, err = thumbnail.ParseNoShrinkPolicy(v); err != nil {
			return req, err
		}
	}
	return req, nil
}

// GET /api/thumbnail?url=...&size=...&format=...
// POST /api/thumbnail?size=...&format=... with the image as the body.
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := zerolog.Ctx(r.Context())

	req, err := s.parseRequest(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	var src thumbnail.Source
	operation := "url"
	switch r.Method {
	case http.MethodGet:
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			httpError(w, http.StatusBadRequest, "url is required")
			return
		}
		if err := s.checkSourceURL(rawURL); err != nil {
			logger.Warn().Err(err).Str("url", rawURL).Msg("Rejected source url")
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		src = thumbnail.URLSource{URL: rawURL, Fetcher: req.opts.Fetcher}
	case http.MethodPost:
		operation = "upload"
		src = thumbnail.ReaderSource{R: http.MaxBytesReader(w, r.Body, maxUploadSize)}
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res, err := thumbnail.New(req.opts).Create(r.Context(), src, req.size, req.format)
	s.record(operation, res, err, time.Since(start))
	if err != nil {
		status := statusFor(err)
		logger.Warn().Err(err).Str("source", src.Describe()).Int("status", status).Msg("Thumbnail request failed")
		httpError(w, status, clientMessage(err))
		return
	}

	logger.Info().
		Str("source", src.Describe()).
		Str("output", res.Output.String()).
		Bool("passThrough", res.PassThrough).
		Int("bytes", len(res.Data)).
		Dur("duration", time.Since(start)).
		Msg("Thumbnail served")

	w.Header().Set("Content-Type", res.MIMEType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Thumbnail-Width", strconv.Itoa(res.Output.Width))
	w.Header().Set("X-Thumbnail-Height", strconv.Itoa(res.Output.Height))
	w.Header().Set("X-Thumbnail-Pass-Through", strconv.FormatBool(res.PassThrough))
	w.Write(res.Data)
}

// checkSourceURL allows http and https sources, and s3 sources in the
// configured bucket only.
func (s *Server) checkSourceURL(rawURL string) error {
	scheme, ok := fetch.Scheme(rawURL)
	if !ok {
		return fmt.Errorf("%w: url must be absolute", thumbnail.ErrInvalidArgument)
	}
	switch scheme {
	case "http", "https":
		return nil
	case "s3":
		bucket, _, err := fetch.ParseS3URL(rawURL)
		if err != nil {
			return fmt.Errorf("%w: %w", thumbnail.ErrInvalidArgument, err)
		}
		if s.opts.S3Bucket == "" || bucket != s.opts.S3Bucket {
			return fmt.Errorf("%w: bucket %q is not allowed", thumbnail.ErrInvalidArgument, bucket)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported url scheme %q", thumbnail.ErrInvalidArgument, scheme)
	}
}

func (s *Server) record(operation string, res *thumbnail.Result, err error, d time.Duration) {
	if s.opts.Metrics == nil {
		return
	}
	metrics.NewWithWriter(s.opts.Metrics, metrics.Namespace).
		Thumbnail(operation, res, err, d).
		Flush()
}

// statusFor maps a thumbnail error to an HTTP status.
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, thumbnail.ErrUnsupportedFormat), errors.Is(err, thumbnail.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, thumbnail.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, thumbnail.ErrDecode), errors.Is(err, thumbnail.ErrNoShrinkNeeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, thumbnail.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage keeps fetch and encode internals (URLs, S3 errors) out of
// responses; the full error is logged server-side.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, thumbnail.ErrFetch):
		return "failed to fetch image"
	case errors.Is(err, thumbnail.ErrUnsupportedFormat):
		return "unsupported output format"
	case errors.Is(err, thumbnail.ErrEncode):
		return "thumbnail generation failed"
	case errors.Is(err, thumbnail.ErrDecode):
		return "source is not a decodable image"
	case errors.Is(err, thumbnail.ErrNoShrinkNeeded):
		return "size must be smaller than the source image"
	default:
		return err.Error()
	}
}

// withRequestID attaches a request-scoped logger carrying a fresh request ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		logger := log.With().
			Str("requestId", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// withOriginVerify rejects requests lacking the configured x-origin-verify
// header. CloudFront injects the header, so direct API Gateway calls fail.
func (s *Server) withOriginVerify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.OriginVerifySecret == "" || r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-origin-verify") != s.opts.OriginVerifySecret {
			log.Warn().Str("path", r.URL.Path).Msg("Blocked request: missing or invalid x-origin-verify header")
			httpError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
