package azure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/alorbach/sunostyle/pkg/settings"
)

const defaultImageVersion = "2024-02-15-preview"

type ImageOptions struct {
	Size        string
	Quality     string
	Format      string
	Compression int
}

type Image struct {
	Data       []byte
	MIME       string
	APIVersion string
	Trace      *Trace
}

type imageRequest struct {
	Prompt            string `json:"prompt"`
	Size              string `json:"size"`
	Quality           string `json:"quality"`
	OutputCompression int    `json:"output_compression"`
	OutputFormat      string `json:"output_format"`
	N                 int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// SanitizeEndpoint reduces an endpoint to scheme://host.
func SanitizeEndpoint(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" && u.Host != "" {
		return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}
	return raw
}

// Image renders a prompt with the images API of the profile deployment.
// A 404 with an API version other than FallbackImageVersion is retried once
// with the fallback version.
func (c *Client) Image(ctx context.Context, p settings.Profile, prompt string, opts ImageOptions) (*Image, error) {
	endpoint := SanitizeEndpoint(p.Endpoint)
	if !p.Usable() || endpoint == "" {
		return nil, &Error{
			Capability: "image",
			Kind:       ErrMissingConfig,
			Detail:     fmt.Sprintf("endpoint=%s, deployment=%s", orEmpty(endpoint), orEmpty(p.Deployment)),
		}
	}
	version := p.APIVersion
	if version == "" {
		version = defaultImageVersion
	}
	in := &imageRequest{
		Prompt:            prompt,
		Size:              opts.Size,
		Quality:           opts.Quality,
		OutputCompression: opts.Compression,
		OutputFormat:      opts.Format,
		N:                 1,
	}
	if in.Size == "" {
		in.Size = "1024x1024"
	}
	if in.Quality == "" {
		in.Quality = "medium"
	}
	if in.OutputFormat == "" {
		in.OutputFormat = "png"
	}
	if in.OutputCompression == 0 {
		in.OutputCompression = 100
	}

	trace := &Trace{Size: in.Size, APIVersion: version}
	versions := []string{version}
	if version != FallbackImageVersion {
		versions = append(versions, FallbackImageVersion)
	}
	var last *response
	for i, v := range versions {
		u := fmt.Sprintf("%s/openai/deployments/%s/images/generations?api-version=%s", endpoint, p.Deployment, v)
		resp, err := c.send(ctx, http.MethodPost, u, p.SubscriptionKey, in, imageTimeout)
		if err != nil {
			return nil, &Error{Capability: "image", Kind: ErrRequest, Detail: err.Error(), Trace: trace, Err: err}
		}
		trace.add(resp)
		trace.Attempts[len(trace.Attempts)-1].APIVersion = v
		last = resp
		if resp.status == http.StatusOK {
			img, err := decodeImage(resp.body, trace)
			if err != nil {
				return nil, err
			}
			img.APIVersion = v
			return img, nil
		}
		if resp.status != http.StatusNotFound || i == len(versions)-1 {
			break
		}
		c.log("azure: image endpoint returned 404 with %s, retrying with %s", v, FallbackImageVersion)
	}
	trace.BodyPreview = preview(last.body, 500)
	return nil, &Error{
		Capability: "image",
		Kind:       ErrStatus,
		Status:     last.status,
		Detail:     fmt.Sprintf("%s. Attempted versions/urls: %s", preview(last.body, 500), attempted(trace)),
		Trace:      trace,
	}
}

func decodeImage(body []byte, trace *Trace) (*Image, error) {
	var out imageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		trace.BodyPreview = preview(body, 500)
		return nil, &Error{Capability: "image", Kind: ErrInvalidResponse, Detail: err.Error(), Trace: trace}
	}
	if len(out.Data) == 0 {
		return nil, &Error{Capability: "image", Kind: ErrNoImageData, Trace: trace}
	}
	if out.Data[0].B64JSON == "" {
		return nil, &Error{Capability: "image", Kind: ErrMissingPayload, Trace: trace}
	}
	data, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return nil, &Error{Capability: "image", Kind: ErrInvalidResponse, Detail: fmt.Sprintf("couldn't decode b64_json: %v", err), Trace: trace}
	}
	return &Image{
		Data:  data,
		MIME:  mimeType(data, "image/png"),
		Trace: trace,
	}, nil
}

func attempted(t *Trace) string {
	var parts []string
	for _, a := range t.Attempts {
		parts = append(parts, fmt.Sprintf("%s %s (%d)", a.APIVersion, a.URL, a.Status))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func orEmpty(s string) string {
	if s == "" {
		return "<empty>"
	}
	return s
}
