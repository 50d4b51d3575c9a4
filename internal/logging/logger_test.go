package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStartupLoggerLog(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	NewStartupLogger("thumbnail-lambda").
		CommitHash("abc123").
		S3Bucket("thumbnailBucket", "media").
		Feature("autoOrient", true).
		Config("defaultSize", "400").
		Log()

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("startup log is not JSON: %v\n%s", err, buf.String())
	}
	if event["message"] != "Cold start complete" {
		t.Errorf("message = %v", event["message"])
	}
	process, _ := event["process"].(map[string]any)
	if process["name"] != "thumbnail-lambda" || process["commitHash"] != "abc123" {
		t.Errorf("process = %v", process)
	}
	features, _ := event["features"].(map[string]any)
	if features["autoOrient"] != true {
		t.Errorf("features = %v", features)
	}
	cfg, _ := event["config"].(map[string]any)
	if cfg["defaultSize"] != "400" {
		t.Errorf("config = %v", cfg)
	}
	resources, _ := event["resources"].(map[string]any)
	buckets, _ := resources["s3Buckets"].(map[string]any)
	if buckets["thumbnailBucket"] != "media" {
		t.Errorf("resources = %v", resources)
	}
}
