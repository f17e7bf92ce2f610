package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/JaimeStill/warden/pkg/formatting"
)

// Analyzer produces a raw moderation signal for one request.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Signal, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, req Request) (Signal, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (Signal, error) {
	return f(ctx, req)
}

type httpAnalyzer struct {
	client   *retryablehttp.Client
	endpoint string
	token    string
}

// NewHTTPAnalyzer creates an Analyzer that POSTs requests as JSON to endpoint
// and decodes the response body as a Signal. Transient failures are retried.
func NewHTTPAnalyzer(endpoint, token string, retryMax int, logger *slog.Logger) Analyzer {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.Logger = logger.With("analyzer", "http")

	return &httpAnalyzer{
		client:   client,
		endpoint: endpoint,
		token:    token,
	}
}

func (a *httpAnalyzer) Analyze(ctx context.Context, req Request) (Signal, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Signal{}, fmt.Errorf("marshal request: %w", err)
	}

	r, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return Signal{}, fmt.Errorf("build request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		r.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(r)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %w", ErrAnalyzerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Signal{}, fmt.Errorf("%w: status %d", ErrAnalyzerUnavailable, resp.StatusCode)
	}

	var sig Signal
	if err := json.NewDecoder(resp.Body).Decode(&sig); err != nil {
		return Signal{}, fmt.Errorf("%w: %w", ErrAnalyzerResponse, err)
	}
	return sig, nil
}

const agentPrompt = `You are a content moderation analyzer for a research publishing platform.
Assess the submission below and respond with JSON only, using this shape:
{"should_block": bool, "warnings": [string], "moderation": {"flagged": bool, "categories": {"<category>": score}}, "plagiarism": {"score": score, "sources": [string]}}
Scores are between 0 and 1. Categories include harassment, hate, sexual, violence, self_harm and spam.

Title: %s

Text:
%s`

type agentAnalyzer struct {
	cfg gaconfig.AgentConfig
}

// NewAgentAnalyzer creates an Analyzer backed by an LLM agent.
func NewAgentAnalyzer(cfg gaconfig.AgentConfig) Analyzer {
	return &agentAnalyzer{cfg: cfg}
}

func (a *agentAnalyzer) Analyze(ctx context.Context, req Request) (Signal, error) {
	ag, err := agent.New(&a.cfg)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: create agent: %w", ErrAnalyzerUnavailable, err)
	}

	prompt := fmt.Sprintf(agentPrompt, strings.TrimSpace(req.Title), req.Text)

	resp, err := ag.Chat(ctx, prompt)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: chat call: %w", ErrAnalyzerUnavailable, err)
	}

	sig, err := formatting.Parse[Signal](resp.Content())
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %w", ErrAnalyzerResponse, err)
	}
	return sig, nil
}
