// Package ai sends captured markup to an OpenAI-compatible chat endpoint and
// returns the rewritten markup. The rewrite is an opaque text-to-text
// transform: it knows nothing about local asset paths, so the clone pipeline
// re-applies its mapping to whatever comes back.
package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const defaultSystemPrompt = `You are an expert front-end developer. Rewrite the HTML document you are given, improving its structure and copy while preserving every element that references an external resource (link, script, img, icon) exactly as it appears. Return only the complete HTML document, nothing else.`

// Message is a single chat message in the completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request payload for the completion endpoint.
type chatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

type chatChoice struct {
	FinishReason string  `json:"finish_reason"`
	Index        int     `json:"index"`
	Message      Message `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// Config holds the rewrite endpoint settings.
type Config struct {
	Endpoint     string
	Model        string
	SystemPrompt string
	Temperature  float64
}

// Rewriter is the HTTP client for the markup-rewrite endpoint.
type Rewriter struct {
	client      *http.Client
	config      Config
	rateLimiter *RateLimiter
}

// NewRewriter creates a Rewriter for the configured endpoint.
func NewRewriter(config Config) (*Rewriter, error) {
	if config.Endpoint == "" {
		return nil, errors.New("rewrite endpoint is required")
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}

	return &Rewriter{
		client:      &http.Client{Timeout: 360 * time.Second},
		config:      config,
		rateLimiter: NewRateLimiter(5, 12*time.Second),
	}, nil
}

// Rewrite posts the markup to the endpoint and returns the rewritten
// document, retrying transient failures with exponential backoff.
func (r *Rewriter) Rewrite(markup string) (string, error) {
	maxRetries := 5
	baseDelay := 1 * time.Second
	var resp *http.Response

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if !r.rateLimiter.GetToken() {
			log.Debug("rate limit exceeded, waiting for token")
			time.Sleep(1 * time.Second)
			continue
		}

		if attempt > 0 {
			log.Debug("retrying rewrite request", "attempt", attempt, "max_retries", maxRetries)
		}

		req, err := r.prepareRequest(markup)
		if err != nil {
			return "", fmt.Errorf("failed to prepare rewrite request: %w", err)
		}

		var reqErr error
		resp, reqErr = r.client.Do(req)
		if reqErr == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if attempt == maxRetries {
			if reqErr != nil {
				return "", fmt.Errorf("failed to reach rewrite endpoint after %d attempts: %w", maxRetries, reqErr)
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return "", fmt.Errorf("rewrite endpoint returned status %d after %d attempts: %s",
				resp.StatusCode, maxRetries, string(body))
		}

		if reqErr == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			log.Error("rewrite endpoint returned non-OK status",
				"status", resp.StatusCode,
				"response", truncate(string(body), 200),
				"attempt", attempt)
		} else {
			log.Error("failed to send rewrite request", "error", reqErr, "attempt", attempt)
		}

		// Exponential backoff with jitter.
		delay := baseDelay * time.Duration(1<<uint(attempt))
		delay += time.Duration(rand.Int63n(int64(delay) / 2))
		log.Debug("backing off before retry", "delay", delay)
		time.Sleep(delay)
	}

	if resp == nil {
		return "", fmt.Errorf("no valid response after %d attempts", maxRetries)
	}
	defer resp.Body.Close()

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("failed to decode rewrite response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("rewrite endpoint returned empty choices array")
	}

	rewritten := stripCodeFence(chat.Choices[0].Message.Content)
	if strings.TrimSpace(rewritten) == "" {
		return "", errors.New("rewrite endpoint returned empty document")
	}

	log.Debug("markup rewritten", "bytes", len(rewritten))
	return rewritten, nil
}

func (r *Rewriter) prepareRequest(markup string) (*http.Request, error) {
	payload := chatRequest{
		Model: r.config.Model,
		Messages: []Message{
			{Role: "system", Content: r.config.SystemPrompt},
			{Role: "user", Content: markup},
		},
		Stream:      false,
		Temperature: r.config.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.config.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// stripCodeFence unwraps a document the model wrapped in a markdown fence.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```html")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
