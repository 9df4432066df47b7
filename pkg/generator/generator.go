// Package generator wraps the hosted text model used to draft activities.
package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/practice-api/pkg/circuitbreaker"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("generator returned no text")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	http     *http.Client
	endpoint string
	apiKey   string
	cb       *circuitbreaker.CircuitBreaker
	metrics  *metrics.Metrics
}

func NewGeminiClient(cfg Config, m *metrics.Metrics) *GeminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Model != "" {
		endpoint = fmt.Sprintf("%s/models/%s:generateContent", endpoint, cfg.Model)
	}
	return &GeminiClient{
		http:     &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "generator",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		}),
		metrics: m,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := c.cb.Execute(func() error {
		var err error
		text, err = c.call(ctx, prompt)
		return err
	})
	c.observe(err)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	return text, nil
}

func (c *GeminiClient) observe(err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		status = "rejected"
	case err != nil:
		status = "error"
	}
	c.metrics.GeneratorCalls.WithLabelValues(status).Inc()
}

func (c *GeminiClient) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("invalid generator response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("generator status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("generator status %d", resp.StatusCode)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Cached memoizes answers per prompt for ttl.
type Cached struct {
	next  Generator
	cache *cache.Cache
}

func NewCached(next Generator, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *Cached) Generate(ctx context.Context, prompt string) (string, error) {
	sum := sha256.Sum256([]byte(prompt))
	key := hex.EncodeToString(sum[:])
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	text, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, text)
	return text, nil
}

// StripCodeFence removes the markdown fence models like to wrap JSON in.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
