package azure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alorbach/sunostyle/pkg/settings"
	"github.com/sashabaranov/go-openai"
)

const defaultTextVersion = "2024-12-01-preview"

// Text sends a chat completion to the profile deployment and returns the
// content of the first choice.
func (c *Client) Text(ctx context.Context, p settings.Profile, prompt, system string) (string, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(p.Endpoint), "/")
	if !p.Usable() || endpoint == "" {
		return "", &Error{
			Capability: "text",
			Kind:       ErrMissingConfig,
			Detail:     "please configure endpoint, deployment and subscription key",
		}
	}
	version := p.APIVersion
	if version == "" {
		version = defaultTextVersion
	}

	cfg := openai.DefaultAzureConfig(p.SubscriptionKey, endpoint)
	cfg.APIVersion = version
	cfg.AzureModelMapperFunc = func(string) string {
		return p.Deployment
	}
	capture := &errorBody{next: c.client.Transport}
	cfg.HTTPClient = &http.Client{
		Transport: capture,
		Timeout:   textTimeout,
	}
	client := openai.NewClientWithConfig(cfg)

	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	c.log("azure: text %s/openai/deployments/%s (%s)", endpoint, p.Deployment, version)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.Deployment,
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", textError(err, capture)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Capability: "text", Kind: ErrEmptyResponse, Detail: "no choices returned"}
	}
	return resp.Choices[0].Message.Content, nil
}

// errorBody keeps the body of the last non-2xx response so it can be
// reported as returned by the service.
type errorBody struct {
	next   http.RoundTripper
	status int
	body   []byte
}

func (e *errorBody) RoundTrip(req *http.Request) (*http.Response, error) {
	next := e.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}
	b, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("azure: couldn't read error body: %w", err)
	}
	e.status = resp.StatusCode
	e.body = b
	resp.Body = io.NopCloser(bytes.NewReader(b))
	return resp, nil
}

func textError(err error, capture *errorBody) error {
	if capture.status != 0 {
		return &Error{
			Capability: "text",
			Kind:       ErrStatus,
			Status:     capture.status,
			Detail:     strings.TrimSpace(string(capture.body)),
		}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Capability: "text",
			Kind:       ErrStatus,
			Status:     apiErr.HTTPStatusCode,
			Detail:     apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := ""
		if reqErr.Err != nil {
			detail = reqErr.Err.Error()
		}
		return &Error{
			Capability: "text",
			Kind:       ErrStatus,
			Status:     reqErr.HTTPStatusCode,
			Detail:     detail,
		}
	}
	return &Error{Capability: "text", Kind: ErrRequest, Detail: fmt.Sprint(err), Err: err}
}
