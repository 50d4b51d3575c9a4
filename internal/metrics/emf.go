// Package metrics emits CloudWatch Embedded Metrics Format (EMF) documents for
// thumbnail generation. Each document is one JSON line; CloudWatch extracts
// the metrics from the log stream without any API calls.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// Namespace is the CloudWatch namespace for all thumbnail metrics.
const Namespace = "Thumbnailer"

// Standard CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates one EMF document. It is not safe for concurrent use;
// create one per thumbnail.
type Recorder struct {
	out        io.Writer
	namespace  string
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]float64
	properties map[string]interface{}
}

// New creates a Recorder writing to stdout. The FunctionName dimension is
// added when running inside Lambda.
func New(namespace string) *Recorder {
	return NewWithWriter(os.Stdout, namespace)
}

// NewWithWriter creates a Recorder that writes to out.
func NewWithWriter(out io.Writer, namespace string) *Recorder {
	r := &Recorder{
		out:        out,
		namespace:  namespace,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]float64),
		properties: make(map[string]interface{}),
	}
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		r.dimensions["FunctionName"] = fn
	}
	return r
}

// Dimension adds an indexed dimension.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a value with a CloudWatch unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric of 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a searchable, non-metric field.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Thumbnail records the outcome of one thumbnail operation. res may be nil
// when err is set.
func (r *Recorder) Thumbnail(operation string, res *thumbnail.Result, err error, d time.Duration) *Recorder {
	r.Dimension("Operation", operation)
	r.Metric("LatencyMs", float64(d.Milliseconds()), UnitMilliseconds)
	if err != nil {
		r.Count("Failures")
		r.Property("errorClass", ErrorClass(err))
		return r
	}
	r.Count("Thumbnails")
	r.Metric("SourceBytes", float64(res.SourceSize), UnitBytes)
	r.Metric("OutputBytes", float64(len(res.Data)), UnitBytes)
	if res.PassThrough {
		r.Count("PassThrough")
	}
	r.Property("format", res.Format.String())
	r.Property("output", res.Output.String())
	return r
}

// ErrorClass names the thumbnail sentinel wrapped by err.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, thumbnail.ErrInvalidArgument):
		return "InvalidArgument"
	case errors.Is(err, thumbnail.ErrNotFound):
		return "NotFound"
	case errors.Is(err, thumbnail.ErrDecode):
		return "DecodeFailure"
	case errors.Is(err, thumbnail.ErrNoShrinkNeeded):
		return "NoShrinkNeeded"
	case errors.Is(err, thumbnail.ErrFetch):
		return "FetchFailure"
	case errors.Is(err, thumbnail.ErrEncode):
		return "EncodeFailure"
	default:
		return "Internal"
	}
}

// Flush writes the document as a single JSON line. Recorders with no metrics
// write nothing. The Recorder should not be reused afterwards.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]metricDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.metrics[name])
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}
	sort.Strings(dimKeys)

	doc := make(map[string]interface{}, len(r.dimensions)+len(r.values)+len(r.properties)+1)
	doc["_aws"] = emfDirective{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    defs,
		}},
	}
	for k, v := range r.properties {
		doc[k] = v
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: failed to marshal metrics: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, string(data))
}
