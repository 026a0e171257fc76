package azure

import (
	"net/url"
	"strings"
)

// Route is the shape of video endpoint chosen for a profile.
type Route string

const (
	// RouteVideos posts to a /videos endpoint as is, without api-version.
	RouteVideos Route = "videos-direct"
	// RouteJobs submits to an explicit jobs endpoint.
	RouteJobs Route = "jobs-direct"
	// RoutePublic tries the deployment route and falls back to its jobs
	// sibling.
	RoutePublic Route = "public-then-jobs"
	// RouteConstructed builds the v1 jobs endpoint from a base URL.
	RouteConstructed Route = "jobs-constructed"
)

// Plan is the result of the video endpoint negotiation.
type Plan struct {
	Route Route
	// URL receives the submission, api-version included when it applies.
	URL string
	// Fallback is the jobs URL tried when the public route is rejected.
	Fallback string
	// Jobs is true when URL speaks the asynchronous jobs protocol.
	Jobs bool
}

// PlanVideo decides where a video request goes, based on the endpoint path.
//
//	path ends with /videos or contains /v1/videos  -> videos-direct
//	path contains openai/v1/video/ or ends /jobs   -> jobs-direct
//	bare base URL with a deployment                -> public-then-jobs
//	anything else                                  -> jobs-constructed
func PlanVideo(endpoint, deployment, apiVersion string) Plan {
	endpoint = strings.TrimSpace(endpoint)
	base := strings.TrimRight(endpoint, "/")
	var path string
	isBase := false
	if u, err := url.Parse(endpoint); err == nil {
		path = strings.ToLower(u.Path)
		isBase = path == "" || path == "/"
	}

	var plan Plan
	switch {
	case strings.HasSuffix(path, "/videos") || strings.Contains(path, "/v1/videos"):
		return Plan{Route: RouteVideos, URL: base}
	case strings.Contains(path, "openai/v1/video/") || strings.HasSuffix(path, "/jobs"):
		u := base
		if !strings.HasSuffix(u, "/jobs") {
			u += "/jobs"
		}
		plan = Plan{Route: RouteJobs, URL: u, Jobs: true}
	case isBase && deployment != "":
		public := base + "/openai/deployments/" + deployment + "/video/generations"
		plan = Plan{
			Route:    RoutePublic,
			URL:      public,
			Fallback: withVersion(public+"/jobs", apiVersion),
		}
	default:
		plan = Plan{Route: RouteConstructed, URL: base + "/openai/v1/video/generations/jobs", Jobs: true}
	}
	plan.URL = withVersion(plan.URL, apiVersion)
	return plan
}

func withVersion(u, version string) string {
	if version == "" || strings.Contains(u, "api-version=") {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "api-version=" + version
}

// jobsURL returns the submission URL without its query string.
func jobsURL(u string) (string, string) {
	if i := strings.Index(u, "?"); i >= 0 {
		return u[:i], u[i:]
	}
	return u, ""
}

// statusURL is the polling location of a job submitted to u.
func statusURL(u, id string) string {
	path, query := jobsURL(u)
	return path + "/" + url.PathEscape(id) + query
}

// contentURL is the download location of a generation for jobs URL u.
func contentURL(u, generation string) string {
	path, query := jobsURL(u)
	path = strings.TrimSuffix(path, "/jobs")
	return path + "/" + url.PathEscape(generation) + "/content/video" + query
}

// JobStatus is a normalized job state.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusUnknown   JobStatus = "unknown"
)

// ParseStatus maps the status strings of the different video APIs.
func ParseStatus(s string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued", "pending", "preprocessing", "notstarted":
		return StatusQueued
	case "running", "processing", "in_progress":
		return StatusRunning
	case "succeeded", "completed":
		return StatusSucceeded
	case "failed", "cancelled", "canceled", "error":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Terminal reports whether polling can stop.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Pending reports whether the job is still being worked on.
func (s JobStatus) Pending() bool {
	return s == StatusQueued || s == StatusRunning
}
