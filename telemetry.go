package sbomdiff

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer singleton for this package. The embedding application is
// responsible for installing an SDK and exporters; without one, spans are
// no-ops.
var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/quay/sbomdiff",
		trace.WithSchemaURL(semconv.SchemaURL),
	)
}

var diffDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "sbomdiff",
	Subsystem: "diff",
	Name:      "duration_seconds",
	Help:      "Wall-clock duration of one full diff pipeline run. Cache hits are not observed here.",
}, []string{"success"})

// observeDiff starts timing a pipeline run and returns the stop func. The
// error pointer is read at stop time, so deferred callers record the final
// outcome.
func observeDiff(err *error) func() {
	t := prometheus.NewTimer(nil)
	return func() {
		diffDuration.WithLabelValues(strconv.FormatBool(*err == nil)).Observe(t.ObserveDuration().Seconds())
	}
}
