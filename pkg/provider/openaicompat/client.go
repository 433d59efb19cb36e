package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/runnerchat/pkg/api"
	"github.com/rhuss/runnerchat/pkg/chat"
	"github.com/rhuss/runnerchat/pkg/debug"
	"github.com/rhuss/runnerchat/pkg/observability"
)

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend. It is safe for concurrent use; each call owns its
// request and response values.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new Client. baseURL is the endpoint root, e.g.
// "http://localhost:11434/v1". A local runner accepts any non-empty apiKey.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	// Normalize: remove trailing slash from base URL.
	baseURL = strings.TrimRight(baseURL, "/")

	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: observability.InstrumentRoundTripper(http.DefaultTransport),
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Complete performs a blocking chat completion and returns the consumed
// first choice with its usage.
func (c *Client) Complete(ctx context.Context, req chat.Request) (*Completion, error) {
	start := time.Now()

	completion, err := c.complete(ctx, req)
	observability.ObserveRequest(observability.ModeComplete, req.Model(), err, start)
	if err != nil {
		return nil, err
	}

	if completion.Usage != nil {
		observability.ObserveUsage(req.Model(), *completion.Usage)
	}
	return completion, nil
}

func (c *Client) complete(ctx context.Context, req chat.Request) (*Completion, error) {
	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	debug.Log("http", "chat completion response", "status", httpResp.StatusCode)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewMalformedResponseError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return ConsumeResponse(&chatResp)
}

// Stream starts a streamed chat completion. The caller must Close the
// returned Stream; closing early releases the connection.
//
// The HTTP client timeout is not applied for streaming requests because a
// stream can legitimately last longer than any fixed timeout. Lifecycle
// control relies on context cancellation instead.
func (c *Client) Stream(ctx context.Context, req chat.Request) (*Stream, error) {
	start := time.Now()

	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		observability.ObserveRequest(observability.ModeStream, req.Model(), err, start)
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	// Use a client without timeout for streaming. The context controls
	// the request lifetime instead.
	streamClient := &http.Client{
		Transport: c.httpClient.Transport,
	}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		apiErr := MapNetworkError(err)
		observability.ObserveRequest(observability.ModeStream, req.Model(), apiErr, start)
		return nil, apiErr
	}

	debug.Log("http", "chat completion stream opened", "status", httpResp.StatusCode)

	// Check for error status codes before starting the stream.
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := MapHTTPError(httpResp)
		httpResp.Body.Close()
		observability.ObserveRequest(observability.ModeStream, req.Model(), apiErr, start)
		return nil, apiErr
	}

	return NewStream(ctx, httpResp.Body, req.Model()), nil
}

// newRequest validates req and builds the POST for /chat/completions.
func (c *Client) newRequest(ctx context.Context, req chat.Request, stream bool) (*http.Request, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(TranslateToChat(req, stream))
	if err != nil {
		return nil, api.NewInvalidRequestError("", fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewTransportError(0, fmt.Sprintf("failed to create HTTP request: %s", err.Error()), err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	debug.Log("http", "sending chat completion request",
		"url", url,
		"model", req.Model(),
		"messages", len(req.Messages()),
		"stream", stream,
	)
	debug.Raw("http", string(body))

	return httpReq, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
