package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultAnthropicBase  = "https://api.anthropic.com/v1"
	anthropicVersion      = "2023-06-01"
	defaultRequestTimeout = 120 * time.Second
)

// BatchState tracks an asynchronous generation job through its lifecycle:
// submitted → polling → {succeeded, failed, timed_out}.
type BatchState string

const (
	StateSubmitted BatchState = "submitted"
	StatePolling   BatchState = "polling"
	StateSucceeded BatchState = "succeeded"
	StateFailed    BatchState = "failed"
	StateTimedOut  BatchState = "timed_out"
)

// ErrBatchFailed reports a terminally failed batch job.
type ErrBatchFailed struct{ Reason string }

func (e *ErrBatchFailed) Error() string {
	return fmt.Sprintf("batch job failed: %s", e.Reason)
}

// ErrBatchTimeout reports a job that did not finish within the poll budget.
type ErrBatchTimeout struct{ Polls int }

func (e *ErrBatchTimeout) Error() string {
	return fmt.Sprintf("batch job still running after %d polls", e.Polls)
}

// AnthropicGenerator talks to an Anthropic-compatible messages API. It
// supports the synchronous messages endpoint and the asynchronous message
// batches endpoint with bounded polling.
type AnthropicGenerator struct {
	apiKey       string
	base         string
	opts         Options
	http         *http.Client
	pollInterval time.Duration
	maxPolls     int
	log          zerolog.Logger
}

var _ Generator = (*AnthropicGenerator)(nil)

// AnthropicOption tweaks client internals, mainly for tests.
type AnthropicOption func(*AnthropicGenerator)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) AnthropicOption {
	return func(a *AnthropicGenerator) { a.base = u }
}

// WithPolling overrides the fixed inter-poll delay and the poll budget.
func WithPolling(interval time.Duration, maxPolls int) AnthropicOption {
	return func(a *AnthropicGenerator) { a.pollInterval, a.maxPolls = interval, maxPolls }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) AnthropicOption {
	return func(a *AnthropicGenerator) { a.http = c }
}

// NewAnthropic builds a generator for the given API key.
func NewAnthropic(apiKey string, opts Options, log zerolog.Logger, options ...AnthropicOption) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-6"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	a := &AnthropicGenerator{
		apiKey:       apiKey,
		base:         defaultAnthropicBase,
		opts:         opts,
		http:         &http.Client{Timeout: defaultRequestTimeout},
		pollInterval: 5 * time.Second,
		maxPolls:     120,
		log:          log,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicParams struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *anthropicResponse) text() string {
	var out string
	for _, block := range r.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

func (a *AnthropicGenerator) params(system, user string) anthropicParams {
	return anthropicParams{
		Model:     a.opts.Model,
		MaxTokens: a.opts.MaxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: user}},
	}
}

// Generate sends one blocking messages request.
func (a *AnthropicGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(a.params(system, user))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := a.post(ctx, "/messages", body)
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic API error (%s): %s", resp.Error.Type, resp.Error.Message)
	}
	text := resp.text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return text, nil
}

type batchRequest struct {
	Requests []batchRequestItem `json:"requests"`
}

type batchRequestItem struct {
	CustomID string          `json:"custom_id"`
	Params   anthropicParams `json:"params"`
}

type batchStatus struct {
	ID               string `json:"id"`
	ProcessingStatus string `json:"processing_status"`
	ResultsURL       string `json:"results_url"`
	Error            *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type batchResultLine struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string            `json:"type"` // succeeded, errored, canceled, expired
		Message anthropicResponse `json:"message"`
		Error   *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"result"`
}

// GenerateBatch submits the request as a one-item message batch and polls
// until the job ends. The poll loop runs at a fixed interval up to the
// configured budget; exhausting the budget yields ErrBatchTimeout and a
// terminal job failure yields ErrBatchFailed. The context cancels both the
// in-flight HTTP calls and the waits between polls.
func (a *AnthropicGenerator) GenerateBatch(ctx context.Context, system, user string) (string, error) {
	customID := uuid.NewString()
	body, err := json.Marshal(batchRequest{
		Requests: []batchRequestItem{{CustomID: customID, Params: a.params(system, user)}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal batch request: %w", err)
	}

	respBody, err := a.post(ctx, "/messages/batches", body)
	if err != nil {
		return "", err
	}
	var status batchStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return "", fmt.Errorf("unmarshal batch status: %w", err)
	}
	if status.Error != nil {
		return "", &ErrBatchFailed{Reason: status.Error.Message}
	}
	if status.ID == "" {
		return "", fmt.Errorf("batch submission returned no job id")
	}

	state := StateSubmitted
	a.log.Info().Str("batch_id", status.ID).Str("state", string(state)).Msg("batch job submitted")

	state = StatePolling
	for poll := 0; poll < a.maxPolls; poll++ {
		select {
		case <-time.After(a.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		respBody, err := a.get(ctx, "/messages/batches/"+status.ID)
		if err != nil {
			return "", err
		}
		if err := json.Unmarshal(respBody, &status); err != nil {
			return "", fmt.Errorf("unmarshal batch status: %w", err)
		}

		a.log.Debug().Str("batch_id", status.ID).Int("poll", poll+1).
			Str("processing_status", status.ProcessingStatus).Msg("batch poll")

		if status.ProcessingStatus != "ended" {
			continue
		}

		text, err := a.fetchBatchResult(ctx, status.ResultsURL, customID)
		if err != nil {
			state = StateFailed
			a.log.Error().Str("batch_id", status.ID).Str("state", string(state)).Err(err).
				Msg("batch job failed")
			return "", err
		}
		state = StateSucceeded
		a.log.Info().Str("batch_id", status.ID).Str("state", string(state)).Msg("batch job done")
		return text, nil
	}

	state = StateTimedOut
	a.log.Error().Str("batch_id", status.ID).Str("state", string(state)).
		Int("polls", a.maxPolls).Msg("batch job timed out")
	return "", &ErrBatchTimeout{Polls: a.maxPolls}
}

// fetchBatchResult downloads the JSONL results and extracts this request's
// generated text.
func (a *AnthropicGenerator) fetchBatchResult(ctx context.Context, resultsURL, customID string) (string, error) {
	if resultsURL == "" {
		return "", &ErrBatchFailed{Reason: "job ended without a results URL"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultsURL, nil)
	if err != nil {
		return "", fmt.Errorf("build results request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch batch results: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch batch results: status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var result batchResultLine
		if err := json.Unmarshal(line, &result); err != nil {
			return "", fmt.Errorf("unmarshal batch result line: %w", err)
		}
		if result.CustomID != customID {
			continue
		}
		if result.Result.Type != "succeeded" {
			reason := result.Result.Type
			if result.Result.Error != nil {
				reason = result.Result.Error.Message
			}
			return "", &ErrBatchFailed{Reason: reason}
		}
		text := result.Result.Message.text()
		if text == "" {
			return "", &ErrBatchFailed{Reason: "succeeded result carries no text"}
		}
		return text, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read batch results: %w", err)
	}
	return "", &ErrBatchFailed{Reason: "no result line for submitted request"}
}

func (a *AnthropicGenerator) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.setHeaders(req)
	return a.do(req)
}

func (a *AnthropicGenerator) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	a.setHeaders(req)
	return a.do(req)
}

func (a *AnthropicGenerator) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

func (a *AnthropicGenerator) do(req *http.Request) ([]byte, error) {
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("anthropic HTTP %d: %s", resp.StatusCode, truncate(string(body), 500))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
