// Package jenkins provides the session aware client for the Jenkins API.
package jenkins

// Build results as reported by Jenkins. A build in progress has no result.
const (
	ResultSuccess  = "SUCCESS"
	ResultFailure  = "FAILURE"
	ResultUnstable = "UNSTABLE"
	ResultAborted  = "ABORTED"
)

// LastBuild is the permalink for the most recent build of a job.
const LastBuild = "lastBuild"

// permalinks are the symbolic build references Jenkins resolves itself.
var permalinks = map[string]bool{
	LastBuild:               true,
	"lastCompletedBuild":    true,
	"lastSuccessfulBuild":   true,
	"lastFailedBuild":       true,
	"lastStableBuild":       true,
	"lastUnstableBuild":     true,
	"lastUnsuccessfulBuild": true,
}

// JenkinsJob defines a single entry of the job listing.
type JenkinsJob struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Buildable bool   `json:"buildable"`
}

// Hudson defines the root type returned by the API.
type Hudson struct {
	Jobs []JenkinsJob `json:"jobs"`
}

// BuildRequest defines a build to be queued.
type BuildRequest struct {
	JobName    string
	Parameters map[string]string
}

// QueuedBuild is the answer to a successfully triggered build.
type QueuedBuild struct {
	Queued   bool   `json:"queued"`
	JobName  string `json:"job_name"`
	Location string `json:"location"`
	QueueID  int64  `json:"queue_id,omitempty"`
}

// BuildStatus defines the state of a specific build.
type BuildStatus struct {
	Number    int     `json:"number"`
	Result    *string `json:"result"`
	Building  bool    `json:"building"`
	URL       string  `json:"url,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
	Duration  int64   `json:"duration,omitempty"`
}

// QueueItem defines a pending or already started queue entry.
type QueueItem struct {
	ID          int64  `json:"id"`
	JobName     string `json:"job_name"`
	Why         string `json:"why,omitempty"`
	Blocked     bool   `json:"blocked"`
	Stuck       bool   `json:"stuck"`
	BuildNumber int64  `json:"build_number,omitempty"`
	BuildURL    string `json:"build_url,omitempty"`
}

// Crumb defines the CSRF token handed out by the crumb issuer.
type Crumb struct {
	Field string `json:"crumbRequestField"`
	Value string `json:"crumb"`
}
