package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/kaptinlin/jsonrepair"
)

// message is a single chat message in the completion request.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the payload for an OpenAI-compatible chat completions
// endpoint.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

// chatResponse is the subset of the completion response we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// contactPayload is the strict JSON shape the model is asked to return.
type contactPayload struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
}

const promptTemplate = `You are an expert at extracting contact information from website content.

Website URL: %s

Website Content:
%s

Task: Extract ALL email addresses and phone numbers from this content.

Requirements:
1. Extract ONLY valid email addresses (format: user@domain.com)
2. Extract ONLY valid phone numbers (international format preferred, e.g., +370 123 45678)
3. Return results in JSON format ONLY
4. Do not include any explanations, just the JSON

Expected JSON format:
{
    "emails": ["email1@example.com", "email2@example.com"],
    "phones": ["+370 123 45678", "+44 20 1234 5678"]
}

If no emails or phones found, return empty arrays.`

// Each list in the model's answer is truncated to this many entries.
const maxAIResults = 5

// RateLimiter is a token bucket limiting how often the AI endpoint is hit.
type RateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a rate limiter holding maxTokens tokens, refilling
// one token every refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// GetToken takes a token from the bucket, refilling first based on elapsed
// time. It returns false when the bucket is empty.
func (r *RateLimiter) GetToken() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if add := int(now.Sub(r.lastRefill) / r.refillRate); add > 0 {
		r.tokens = min(r.maxTokens, r.tokens+add)
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// AIExtractor sends cleaned page text to a chat completions endpoint and
// parses the contact JSON it returns. Every failure degrades to an empty
// result; a bad AI answer never fails the row being processed.
type AIExtractor struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	model       string
	textLimit   int
	rateLimiter *RateLimiter
}

// NewAIExtractor builds an extractor for the given endpoint. textLimit caps
// how much page text is sent with each prompt.
func NewAIExtractor(endpoint, apiKey, model string, textLimit int) (*AIExtractor, error) {
	if endpoint == "" {
		return nil, errors.New("AI endpoint is required")
	}
	return &AIExtractor{
		client:      &http.Client{Timeout: 120 * time.Second},
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		textLimit:   textLimit,
		rateLimiter: NewRateLimiter(5, 12*time.Second),
	}, nil
}

// Extract implements Extractor.
func (a *AIExtractor) Extract(ctx context.Context, pageURL, html string) (Result, error) {
	text := CleanText(html, a.textLimit)
	if text == "" {
		return Result{}, nil
	}

	content, err := a.complete(ctx, pageURL, text)
	if err != nil {
		log.Error("AI extraction failed", "url", pageURL, "error", err)
		return Result{}, nil
	}

	payload, err := parseContactPayload(content)
	if err != nil {
		log.Error("AI returned unparseable contact data", "url", pageURL, "error", err)
		return Result{}, nil
	}

	if len(payload.Emails) > maxAIResults {
		payload.Emails = payload.Emails[:maxAIResults]
	}
	if len(payload.Phones) > maxAIResults {
		payload.Phones = payload.Phones[:maxAIResults]
	}

	log.Info("AI extracted contacts", "url", pageURL,
		"emails", len(payload.Emails), "phones", len(payload.Phones))
	return Merge(Result{Emails: payload.Emails, Phones: payload.Phones}, Result{}), nil
}

// complete performs the chat completion call with rate limiting and
// exponential backoff on transport or server errors.
func (a *AIExtractor) complete(ctx context.Context, pageURL, text string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []message{
			{Role: "user", Content: fmt.Sprintf(promptTemplate, pageURL, text)},
		},
		Stream:      false,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	for !a.rateLimiter.GetToken() {
		log.Debug("AI rate limit reached, waiting for token", "url", pageURL)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
		}
	}

	var content string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if a.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+a.apiKey)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("AI API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode AI API response: %w", err))
		}
		if parsed.Error != nil {
			return backoff.Permanent(fmt.Errorf("AI API error: %s", parsed.Error.Message))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(errors.New("AI API returned empty choices array"))
		}
		content = parsed.Choices[0].Message.Content
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return content, nil
}

// parseContactPayload pulls the {"emails":[],"phones":[]} object out of a
// model answer, tolerating markdown fences and slightly malformed JSON.
func parseContactPayload(content string) (contactPayload, error) {
	content = stripFences(content)

	var payload contactPayload
	if err := json.Unmarshal([]byte(content), &payload); err == nil {
		return payload, nil
	}

	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return contactPayload{}, fmt.Errorf("response is not JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return contactPayload{}, fmt.Errorf("repaired response is not contact JSON: %w", err)
	}
	return payload, nil
}

// stripFences removes a surrounding ```json ... ``` (or plain ```) block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```json"); i != -1 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j != -1 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	if i := strings.Index(s, "```"); i != -1 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j != -1 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	return s
}
