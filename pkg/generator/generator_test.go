package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/pkg/metrics"
)

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  hi there \n"}]}}]}`))
	}))
	defer srv.Close()

	m := metrics.New("test")
	c := NewGeminiClient(Config{Endpoint: srv.URL, Model: "test-model", APIKey: "secret"}, m)
	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeneratorCalls.WithLabelValues("success")))
}

func TestGeminiClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(Config{Endpoint: srv.URL}, nil)
	_, err := c.Generate(context.Background(), "hello")
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(Config{Endpoint: srv.URL}, nil)
	_, err := c.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

type countingGenerator struct {
	calls atomic.Int32
}

func (g *countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	return "answer to " + prompt, nil
}

func TestCached_ReusesAnswers(t *testing.T) {
	inner := &countingGenerator{}
	c := NewCached(inner, 0)

	a, err := c.Generate(context.Background(), "p1")
	require.NoError(t, err)
	b, err := c.Generate(context.Background(), "p1")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p2")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
}
