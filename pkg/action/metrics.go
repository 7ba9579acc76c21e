package action

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kjozsa/jenkins-mcp/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry  = prometheus.NewRegistry()
	namespace = "jenkins_mcp"
)

var (
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Histogram of latencies for requests to the Jenkins API.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"type"},
	)

	requestFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "Total number of failed requests to the Jenkins API.",
		},
		[]string{"type"},
	)

	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Histogram of latencies for MCP tool calls.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"tool"},
	)

	toolFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_failures_total",
			Help:      "Total number of failed MCP tool calls.",
		},
		[]string{"tool"},
	)
)

func init() {
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: namespace,
	}))

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(version.Collector(namespace))
	registry.MustRegister(requestDuration)
	registry.MustRegister(requestFailures)
	registry.MustRegister(toolDuration)
	registry.MustRegister(toolFailures)
}

// requestObserver feeds the request metrics from the Jenkins client.
type requestObserver struct{}

// Observe implements jenkins.Observer.
func (requestObserver) Observe(action string, duration time.Duration, err error) {
	requestDuration.WithLabelValues(action).Observe(duration.Seconds())

	if err != nil {
		requestFailures.WithLabelValues(action).Inc()
	}
}

type promLogger struct {
	logger *slog.Logger
}

func (pl promLogger) Println(v ...interface{}) {
	pl.logger.Error(fmt.Sprintln(v...))
}

func sliceP(v []string) *[]string {
	return &v
}

func boolP(v bool) *bool {
	return &v
}

func stringP(v string) *string {
	return &v
}
