package azure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alorbach/sunostyle/pkg/settings"
)

type VideoOptions struct {
	Size    string
	Seconds string
	Model   string
}

// Video holds either the rendered bytes or a URL where they can be fetched.
type Video struct {
	Data  []byte
	URL   string
	MIME  string
	Trace *Trace
}

type jobRequest struct {
	Prompt    string `json:"prompt"`
	NVariants string `json:"n_variants"`
	NSeconds  string `json:"n_seconds"`
	Height    string `json:"height"`
	Width     string `json:"width"`
	Model     string `json:"model"`
}

type syncRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Seconds string `json:"seconds"`
}

type videoCall struct {
	c        *Client
	endpoint string
	key      string
	trace    *Trace
}

// Video generates a clip for prompt. The endpoint shape decides between the
// synchronous video API and the jobs API (see PlanVideo). Jobs are polled
// until they reach a terminal state or the poll timeout elapses.
func (c *Client) Video(ctx context.Context, p settings.Profile, prompt string, opts VideoOptions) (*Video, error) {
	endpoint := strings.TrimSpace(p.Endpoint)
	if endpoint == "" || p.SubscriptionKey == "" {
		return nil, &Error{Capability: "video", Kind: ErrMissingConfig, Detail: "missing video endpoint or key"}
	}
	size := opts.Size
	if size == "" {
		size = "720x1280"
	}
	seconds := opts.Seconds
	if seconds == "" {
		seconds = "4"
	}
	model := firstNonEmpty(opts.Model, p.ModelName, p.Deployment, "sora-2")

	plan := PlanVideo(endpoint, p.Deployment, p.APIVersion)
	v := &videoCall{
		c:        c,
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      p.SubscriptionKey,
		trace: &Trace{
			Route:      plan.Route,
			Model:      model,
			Size:       size,
			Seconds:    seconds,
			APIVersion: p.APIVersion,
		},
	}
	width, height := dimensions(size)
	job := &jobRequest{
		Prompt:    prompt,
		NVariants: "1",
		NSeconds:  seconds,
		Height:    height,
		Width:     width,
		Model:     model,
	}

	c.log("azure: video route %s %s", plan.Route, plan.URL)
	var in any = job
	if !plan.Jobs {
		in = &syncRequest{Model: model, Prompt: prompt, Size: size, Seconds: seconds}
	}
	resp, err := v.post(ctx, plan.URL, in)
	if err != nil {
		return nil, err
	}
	submitURL := plan.URL
	if !plan.Jobs {
		if resp.status == http.StatusOK {
			return v.sync(ctx, resp)
		}
		if !v.fallback(plan, resp) {
			return nil, v.fail(ErrStatus, resp.status, preview(resp.body, 500), resp.body)
		}
		c.log("azure: public video route returned %d, retrying on %s", resp.status, plan.Fallback)
		resp, err = v.post(ctx, plan.Fallback, job)
		if err != nil {
			return nil, err
		}
		submitURL = plan.Fallback
	}
	return v.jobs(ctx, submitURL, resp)
}

// fallback reports whether a public route rejection must be retried on the
// jobs URL.
func (v *videoCall) fallback(plan Plan, resp *response) bool {
	if plan.Fallback == "" {
		return false
	}
	switch resp.status {
	case http.StatusNotFound:
		return true
	case http.StatusBadRequest:
		return strings.Contains(strings.ToLower(string(resp.body)), "private preview")
	}
	return false
}

func (v *videoCall) sync(ctx context.Context, resp *response) (*Video, error) {
	if isBinaryVideo(resp.contentType) {
		return v.done(resp.body, "", resp.contentType), nil
	}
	var data map[string]any
	if err := json.Unmarshal(resp.body, &data); err != nil {
		return nil, v.fail(ErrInvalidResponse, 0, err.Error(), resp.body)
	}

	id := firstNonEmpty(str(data["id"]), str(data["video_id"]))
	raw := str(data["status"])
	if id != "" && ParseStatus(raw).Pending() {
		return v.pollVideo(ctx, id, raw)
	}

	if u := firstNonEmpty(str(data["url"]), str(data["video_url"])); u != "" {
		return v.done(nil, u, ""), nil
	}
	b64 := ""
	if list, ok := data["data"].([]any); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]any); ok {
			b64 = firstNonEmpty(str(first["b64_json"]), str(first["video_b64"]))
		}
	}
	b64 = firstNonEmpty(b64, str(data["b64_json"]), str(data["video_b64"]))
	if b64 != "" {
		return v.decode(b64)
	}
	return nil, v.fail(ErrUnknownFormat, 0, "", resp.body)
}

// pollVideo waits for an asynchronous video created through the direct
// API and fetches its content.
func (v *videoCall) pollVideo(ctx context.Context, id, raw string) (*Video, error) {
	pollURL := v.endpoint + "/" + id
	v.trace.JobID = id
	v.trace.PollURL = pollURL
	v.trace.LastStatus = raw

	var data map[string]any
	status := ParseStatus(raw)
	start := time.Now()
	for !status.Terminal() && time.Since(start) < v.c.pollTimeout {
		if err := wait(ctx, v.c.pollInterval); err != nil {
			return nil, v.fail(ErrRequest, 0, err.Error(), nil, err)
		}
		resp, err := v.get(ctx, pollURL, statusTimeout)
		if err != nil {
			return nil, err
		}
		var polled map[string]any
		if err := json.Unmarshal(resp.body, &polled); err != nil {
			continue
		}
		data = polled
		raw = str(data["status"])
		v.trace.LastStatus = raw
		status = ParseStatus(raw)
	}

	if status != StatusSucceeded {
		detail := "status: " + orUnknown(raw)
		if msg := errorMessage(data); msg != "" {
			detail += ": " + msg
		}
		return nil, v.fail(ErrJobStatus, 0, detail, nil)
	}

	output, _ := data["output"].(map[string]any)
	result, _ := data["result"].(map[string]any)
	if u := firstNonEmpty(str(output["url"]), str(data["video_url"]), str(data["url"]), str(result["url"])); u != "" {
		resp, err := v.get(ctx, u, downloadTimeout)
		if err == nil && resp.ok() {
			return v.done(resp.body, u, resp.contentType), nil
		}
	}
	contentURL := pollURL + "/content"
	if resp, err := v.get(ctx, contentURL, downloadTimeout); err == nil && resp.ok() && len(resp.body) > 0 {
		v.trace.DownloadURL = contentURL
		return v.done(resp.body, "", resp.contentType), nil
	}
	b64 := firstNonEmpty(str(data["b64_json"]), str(data["video_b64"]), str(output["b64_json"]), str(output["video_b64"]))
	if b64 != "" {
		return v.decode(b64)
	}
	js, _ := json.Marshal(data)
	return nil, v.fail(ErrContentRetrieval, 0, "", js)
}

// jobs follows the jobs protocol: submission, polling and download.
func (v *videoCall) jobs(ctx context.Context, submitURL string, resp *response) (*Video, error) {
	if !resp.ok() {
		return nil, v.fail(ErrStatus, resp.status, preview(resp.body, 500), resp.body)
	}
	var job map[string]any
	if err := json.Unmarshal(resp.body, &job); err != nil {
		return nil, v.fail(ErrInvalidResponse, 0, "invalid jobs JSON: "+err.Error(), resp.body)
	}
	id := firstNonEmpty(str(job["id"]), str(job["job_id"]))
	if id == "" {
		return nil, v.fail(ErrNoJobID, 0, "", resp.body)
	}
	pollURL := statusURL(submitURL, id)
	raw := str(job["status"])
	v.trace.JobID = id
	v.trace.PollURL = pollURL
	v.trace.LastStatus = raw

	data := job
	status := ParseStatus(raw)
	start := time.Now()
	for !status.Terminal() && time.Since(start) < v.c.pollTimeout {
		if err := wait(ctx, v.c.pollInterval); err != nil {
			return nil, v.fail(ErrRequest, 0, err.Error(), nil, err)
		}
		resp, err := v.get(ctx, pollURL, statusTimeout)
		if err != nil {
			return nil, err
		}
		var polled map[string]any
		if err := json.Unmarshal(resp.body, &polled); err != nil {
			return nil, v.fail(ErrInvalidResponse, resp.status, "invalid status JSON", resp.body)
		}
		data = polled
		raw = str(data["status"])
		v.trace.LastStatus = raw
		status = ParseStatus(raw)
	}
	if status != StatusSucceeded {
		return nil, v.fail(ErrJobStatus, 0, "job status: "+orUnknown(raw), nil)
	}

	generations, _ := data["generations"].([]any)
	if len(generations) == 0 {
		return nil, v.fail(ErrNoGenerations, 0, "", nil)
	}
	first, _ := generations[0].(map[string]any)
	gen := firstNonEmpty(str(first["id"]), str(first["generation_id"]))
	if gen == "" {
		return nil, v.fail(ErrNoGenerationID, 0, "", nil)
	}

	dl := contentURL(submitURL, gen)
	v.trace.DownloadURL = dl
	vid, err := v.get(ctx, dl, downloadTimeout)
	if err != nil {
		return nil, err
	}
	if !vid.ok() || len(vid.body) == 0 {
		return nil, v.fail(ErrDownload, vid.status, "", nil)
	}
	return v.done(vid.body, "", vid.contentType), nil
}

func (v *videoCall) post(ctx context.Context, u string, in any) (*response, error) {
	resp, err := v.c.send(ctx, http.MethodPost, u, v.key, in, videoTimeout)
	if err != nil {
		return nil, v.fail(ErrRequest, 0, err.Error(), nil, err)
	}
	v.trace.add(resp)
	return resp, nil
}

func (v *videoCall) get(ctx context.Context, u string, timeout time.Duration) (*response, error) {
	resp, err := v.c.send(ctx, http.MethodGet, u, v.key, nil, timeout)
	if err != nil {
		return nil, v.fail(ErrRequest, 0, err.Error(), nil, err)
	}
	v.trace.add(resp)
	return resp, nil
}

func (v *videoCall) decode(b64 string) (*Video, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, v.fail(ErrInvalidResponse, 0, fmt.Sprintf("couldn't decode video payload: %v", err), nil, err)
	}
	return v.done(data, "", ""), nil
}

func (v *videoCall) done(data []byte, u, contentType string) *Video {
	out := &Video{Data: data, URL: u, Trace: v.trace}
	if len(data) > 0 {
		out.MIME = mimeType(data, contentType)
	}
	return out
}

func (v *videoCall) fail(kind error, status int, detail string, body []byte, cause ...error) *Error {
	if len(body) > 0 {
		v.trace.BodyPreview = preview(body, 500)
	}
	e := &Error{
		Capability: "video",
		Kind:       kind,
		Status:     status,
		Detail:     detail,
		Trace:      v.trace,
	}
	if len(cause) > 0 {
		e.Err = cause[0]
	}
	return e
}

func isBinaryVideo(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "video") || strings.Contains(ct, "application/octet-stream")
}

// dimensions splits WxH, falling back to portrait 720x1280.
func dimensions(size string) (string, string) {
	parts := strings.Split(strings.ToLower(size), "x")
	if len(parts) == 2 {
		w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errW == nil && errH == nil {
			return strconv.Itoa(w), strconv.Itoa(h)
		}
	}
	return "720", "1280"
}

func errorMessage(data map[string]any) string {
	switch e := data["error"].(type) {
	case map[string]any:
		return str(e["message"])
	case string:
		return e
	}
	return ""
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
