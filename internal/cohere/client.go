// Package cohere is a thin client for the Cohere v2 chat API.
// It exposes only the operations this service proxies: chat and translation.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/metyhq/mety-api/internal/metrics"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 60 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second

	chatPath = "/v2/chat"
)

// ErrUpstream indicates a provider or network failure. The original cause is
// wrapped; handlers must surface only this generic error.
var ErrUpstream = errors.New("upstream provider failure")

// translatePromptFormat instructs the model to translate only, no commentary.
const translatePromptFormat = `You are a professional translator. Translate the following text into %s. Provide ONLY the translation, nothing else.

Text to translate:
%s`

// Client calls the Cohere chat API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	metrics    metrics.Recorder
}

// New creates a Client for the given base URL, API key, and default model.
func New(baseURL, apiKey, model string, recorder metrics.Recorder) *Client {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: ClientTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   DialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: TLSHandshakeTimeout,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		metrics: recorder,
	}
}

// chatRequest is the Cohere v2 chat request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the Cohere v2 chat response we consume.
type chatResponse struct {
	Message struct {
		Content []contentBlock `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Chat sends a single user message and returns the first text-typed content
// block of the response. An empty string with a nil error means the provider
// returned no text content (a soft failure, not an error).
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.chat(ctx, "chat", message)
}

// TranslateToFrench translates text to French using a fixed
// translate-only prompt.
func (c *Client) TranslateToFrench(ctx context.Context, text string) (string, error) {
	return c.Translate(ctx, text, "French")
}

// Translate translates content into the given target language.
func (c *Client) Translate(ctx context.Context, content, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf(translatePromptFormat, targetLanguage, content)
	return c.chat(ctx, "translate", prompt)
}

// chat performs the HTTP round trip shared by all operations.
func (c *Client) chat(ctx context.Context, operation, message string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstreamDuration(time.Since(start))
	if err != nil {
		c.metrics.IncUpstreamCall(operation, "error")
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.IncUpstreamCall(operation, "error")
		// Drain for connection reuse; the body may carry provider details
		// we deliberately do not surface to callers.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.metrics.IncUpstreamCall(operation, "error")
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	c.metrics.IncUpstreamCall(operation, "success")

	for _, block := range parsed.Message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	// No text content: soft failure.
	return "", nil
}
