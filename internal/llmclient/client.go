// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package llmclient implements LLMClient (spec.md §4.5): a multi-endpoint,
// failover-and-retry HTTP client speaking an OpenAI-style chat completion
// API. Grounded on the original analyzer's LLMClient
// (repositories/llm_client.py): ordered endpoint list, per-endpoint
// retries with backoff, 4xx-vs-5xx/network fatal-vs-retryable
// classification, prompt truncation guard, and a deterministic mock mode.
package llmclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tiktoken-go/tokenizer"
	"golang.org/x/net/http2"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/pegcompare/internal/errs"
)

const (
	defaultMaxPromptChars   = 80_000
	defaultTruncateBuffer   = 200
	truncationMarker        = "[truncated]"
	mockResponseText        = `{"summary":"mock analysis","issues":[],"recommendations":[],"confidence":0.5}`
)

// Options mirrors spec.md §4.5's opts table.
type Options struct {
	Endpoints      []string
	Model          string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	MaxRetries     int
	BackoffBase    float64
	Mock           bool
	MaxPromptChars int
	TruncateBuffer int
}

// DefaultOptions fills in spec.md's stated defaults, leaving Endpoints
// and Model for the caller to supply.
func DefaultOptions() Options {
	return Options{
		Temperature:    0.2,
		MaxTokens:      4096,
		Timeout:        180 * time.Second,
		MaxRetries:     3,
		BackoffBase:    1.0,
		MaxPromptChars: defaultMaxPromptChars,
		TruncateBuffer: defaultTruncateBuffer,
	}
}

// Client is the HTTP-backed multi-endpoint chat completion caller.
type Client struct {
	HTTP *http.Client
}

// New builds a Client around httpClient. Callers should construct that
// client with NewHTTPClient so connections are reused http2-style across
// the (potentially many) failover attempts a single Complete call can make.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &Client{HTTP: httpClient}
}

// NewHTTPClient builds the shared *http.Client LLM endpoints are called
// through. The transport is an http2.Transport with AllowHTTP set so that
// endpoints speaking plaintext h2c are reached directly instead of falling
// back to HTTP/1.1; TLS endpoints still negotiate http2 via ALPN as usual.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends prompt to the first healthy endpoint in opts.Endpoints,
// returning plain text. Upstream code parses any embedded JSON itself.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if opts.MaxPromptChars == 0 {
		opts.MaxPromptChars = defaultMaxPromptChars
	}
	if opts.TruncateBuffer == 0 {
		opts.TruncateBuffer = defaultTruncateBuffer
	}
	prompt = truncatePrompt(prompt, opts.MaxPromptChars, opts.TruncateBuffer)

	if opts.Mock {
		return mockResponseText, nil
	}

	if len(opts.Endpoints) == 0 {
		return "", errs.New(errs.LLMUnavailable, "no endpoints configured")
	}

	var lastErr error
	for _, endpoint := range opts.Endpoints {
		text, err := c.tryEndpoint(ctx, endpoint, prompt, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if fatal, ok := err.(*errs.Error); ok && fatal.Kind == errs.LLMBadResponse {
			// Fatal classification: a 4xx (non-429) response. Do not
			// advance past it silently — but still try the next
			// endpoint, since a different backend may be healthy.
			log.WithError(err).WithField("endpoint", endpoint).Warn("llm endpoint returned a fatal response, trying next endpoint")
			continue
		}
		log.WithError(err).WithField("endpoint", endpoint).Warn("llm endpoint exhausted retries, trying next endpoint")
	}
	return "", errs.Newf(errs.LLMUnavailable, "all endpoints exhausted").WithCause(lastErr)
}

func (c *Client) tryEndpoint(ctx context.Context, endpoint, prompt string, opts Options) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: opts.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", errs.Newf(errs.Internal, "failed to encode chat request").WithCause(err)
	}

	url := strings.TrimRight(endpoint, "/") + "/v1/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			sleepBackoff(attempt, opts.BackoffBase)
		}

		reqCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		text, retryable, err := c.doRequest(reqCtx, url, body)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", errs.Newf(errs.LLMUnavailable, "endpoint %q exhausted %d retries", endpoint, opts.MaxRetries).WithCause(lastErr)
}

func sleepBackoff(attempt int, base float64) {
	if base <= 0 {
		base = 1.0
	}
	backoff := base * float64(int(1)<<uint(attempt))
	jitter := rand.Float64() * backoff * 0.25
	time.Sleep(time.Duration((backoff + jitter) * float64(time.Second)))
}

// doRequest performs one attempt, returning (text, retryable, err).
// retryable is only meaningful when err != nil.
func (c *Client) doRequest(ctx context.Context, url string, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, errs.Newf(errs.Internal, "failed to build request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", true, errs.Newf(errs.LLMUnavailable, "network error calling %q", url).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, errs.Newf(errs.LLMUnavailable, "failed to read response body").WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, errs.Newf(errs.LLMBadResponse, "endpoint returned status %d", resp.StatusCode).
			WithDetails(map[string]any{"status_code": resp.StatusCode})
	}

	text := extractContent(respBody)
	if text == "" {
		return "", false, errs.New(errs.LLMBadResponse, "response contained no content field")
	}
	return text, false, nil
}

// extractContent reads choices[0].message.content, falling back to a bare
// "content" field, mirroring the two response shapes the original client
// tolerates.
func extractContent(body []byte) string {
	root := gjson.ParseBytes(body)
	if v := root.Get("choices.0.message.content"); v.Exists() {
		return v.String()
	}
	if v := root.Get("content"); v.Exists() {
		return v.String()
	}
	return ""
}

// truncatePrompt enforces the prompt size guard from spec.md §4.5.
func truncatePrompt(prompt string, maxChars, buffer int) string {
	if len(prompt) <= maxChars {
		return prompt
	}
	cut := maxChars - buffer
	if cut < 0 {
		cut = 0
	}
	if cut > len(prompt) {
		cut = len(prompt)
	}
	return prompt[:cut] + truncationMarker
}

// EstimateTokens gives a rough token count for budgeting purposes, using
// tiktoken-go in place of the original char-ratio heuristic.
func EstimateTokens(text, model string) (int, error) {
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return 0, errs.Newf(errs.Internal, "failed to load tokenizer").WithCause(err)
		}
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, errs.Newf(errs.Internal, "failed to tokenize prompt").WithCause(err)
	}
	return len(ids), nil
}
