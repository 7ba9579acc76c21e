package version

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// String gets defined by the build system.
	String = "0.0.0-dev"

	// Revision indicates the commit this binary was built from.
	Revision string

	// Date indicates the date this binary was built.
	Date string

	// Go running this binary.
	Go = runtime.Version()
)

// Collector simply exports the version information for Prometheus.
func Collector(namespace string) *prometheus.GaugeVec {
	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "A metric with a constant '1' value labeled by version, revision and goversion from which it was built.",
		},
		[]string{"version", "revision", "goversion"},
	)

	info.WithLabelValues(String, Revision, Go).Set(1)
	return info
}
