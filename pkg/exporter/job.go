package exporter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kjozsa/jenkins-mcp/pkg/internal/jenkins"
	"github.com/prometheus/client_golang/prometheus"
)

// Build states as exported by the build status gauge.
const (
	statusSuccess    = 0.0
	statusFailure    = 1.0
	statusAborted    = 2.0
	statusUnstable   = 3.0
	statusInProgress = 4.0
	statusNotBuilt   = 6.0
)

// JobCollector collects metrics about the jobs visible to the MCP server.
type JobCollector struct {
	client   *jenkins.Client
	logger   *slog.Logger
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	timeout  time.Duration
	builds   bool

	Up          *prometheus.Desc
	Count       *prometheus.Desc
	Buildable   *prometheus.Desc
	LastBuild   *prometheus.Desc
	BuildStatus *prometheus.Desc
	Duration    *prometheus.Desc
	StartTime   *prometheus.Desc
	EndTime     *prometheus.Desc
}

// NewJobCollector returns a new JobCollector. With builds enabled the last
// build of every buildable job gets fetched on each scrape.
func NewJobCollector(logger *slog.Logger, client *jenkins.Client, failures *prometheus.CounterVec, duration *prometheus.HistogramVec, timeout time.Duration, builds bool) *JobCollector {
	if failures != nil {
		failures.WithLabelValues("job").Add(0)
	}

	if timeout <= 0 {
		timeout = jenkins.DefaultTimeout
	}

	labels := []string{"name"}

	return &JobCollector{
		client:   client,
		logger:   logger.With("collector", "job"),
		failures: failures,
		duration: duration,
		timeout:  timeout,
		builds:   builds,

		Up: prometheus.NewDesc(
			"jenkins_mcp_up",
			"1 if the Jenkins job listing succeeded, 0 otherwise",
			nil,
			nil,
		),
		Count: prometheus.NewDesc(
			"jenkins_mcp_jobs",
			"Number of jobs in the Jenkins root view",
			nil,
			nil,
		),
		Buildable: prometheus.NewDesc(
			"jenkins_mcp_job_buildable",
			"1 if the job is buildable, 0 otherwise",
			labels,
			nil,
		),
		LastBuild: prometheus.NewDesc(
			"jenkins_mcp_job_last_build",
			"Build number of the last build",
			labels,
			nil,
		),
		BuildStatus: prometheus.NewDesc(
			"jenkins_mcp_job_build_status",
			"Build status: 0=success, 1=failure, 2=aborted, 3=unstable, 4=in_progress, 6=not_built",
			labels,
			nil,
		),
		Duration: prometheus.NewDesc(
			"jenkins_mcp_job_duration",
			"Duration of last build in ms",
			labels,
			nil,
		),
		StartTime: prometheus.NewDesc(
			"jenkins_mcp_job_start_time",
			"Start time of last build as unix timestamp in ms",
			labels,
			nil,
		),
		EndTime: prometheus.NewDesc(
			"jenkins_mcp_job_end_time",
			"End time of last build as unix timestamp in ms",
			labels,
			nil,
		),
	}
}

// Metrics simply returns the list metric descriptors for generating a documentation.
func (c *JobCollector) Metrics() []*prometheus.Desc {
	return []*prometheus.Desc{
		c.Up,
		c.Count,
		c.Buildable,
		c.LastBuild,
		c.BuildStatus,
		c.Duration,
		c.StartTime,
		c.EndTime,
	}
}

// Describe sends the super-set of all possible descriptors of metrics collected by this Collector.
func (c *JobCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range c.Metrics() {
		ch <- desc
	}
}

// Collect is called by the Prometheus registry when collecting metrics.
func (c *JobCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	now := time.Now()
	jobs, err := c.client.Job.List(ctx)

	if c.duration != nil {
		c.duration.WithLabelValues("job").Observe(time.Since(now).Seconds())
	}

	if err != nil {
		c.logger.Error("Failed to fetch jobs",
			"err", err,
		)

		if c.failures != nil {
			c.failures.WithLabelValues("job").Inc()
		}

		ch <- prometheus.MustNewConstMetric(c.Up, prometheus.GaugeValue, 0)
		return
	}

	c.logger.Debug("Fetched jobs",
		"count", len(jobs),
	)

	ch <- prometheus.MustNewConstMetric(c.Up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.Count, prometheus.GaugeValue, float64(len(jobs)))

	for _, job := range jobs {
		var buildable float64

		if job.Buildable {
			buildable = 1.0
		}

		ch <- prometheus.MustNewConstMetric(
			c.Buildable,
			prometheus.GaugeValue,
			buildable,
			job.Name,
		)

		if c.builds && job.Buildable {
			c.collectBuild(ctx, ch, job.Name)
		}
	}
}

func (c *JobCollector) collectBuild(ctx context.Context, ch chan<- prometheus.Metric, name string) {
	status, err := c.client.Job.Status(ctx, name, jenkins.LastBuild)

	if errors.Is(err, jenkins.ErrBuildNotFound) {
		ch <- prometheus.MustNewConstMetric(
			c.BuildStatus,
			prometheus.GaugeValue,
			statusNotBuilt,
			name,
		)

		return
	}

	if err != nil {
		c.logger.Debug("Failed to fetch last build",
			"job", name,
			"err", err,
		)

		if c.failures != nil {
			c.failures.WithLabelValues("job").Inc()
		}

		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.LastBuild,
		prometheus.GaugeValue,
		float64(status.Number),
		name,
	)

	ch <- prometheus.MustNewConstMetric(
		c.BuildStatus,
		prometheus.GaugeValue,
		buildStatusToValue(status),
		name,
	)

	ch <- prometheus.MustNewConstMetric(
		c.Duration,
		prometheus.GaugeValue,
		float64(status.Duration),
		name,
	)

	ch <- prometheus.MustNewConstMetric(
		c.StartTime,
		prometheus.GaugeValue,
		float64(status.Timestamp),
		name,
	)

	if !status.Building {
		ch <- prometheus.MustNewConstMetric(
			c.EndTime,
			prometheus.GaugeValue,
			float64(status.Timestamp+status.Duration),
			name,
		)
	}
}

func buildStatusToValue(status *jenkins.BuildStatus) float64 {
	if status.Building || status.Result == nil {
		return statusInProgress
	}

	switch *status.Result {
	case jenkins.ResultSuccess:
		return statusSuccess
	case jenkins.ResultFailure:
		return statusFailure
	case jenkins.ResultAborted:
		return statusAborted
	case jenkins.ResultUnstable:
		return statusUnstable
	default:
		return statusNotBuilt
	}
}
