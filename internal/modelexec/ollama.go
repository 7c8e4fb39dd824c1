package modelexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rfoley/loom/internal/orchestrator"
)

// ollamaGenerateRequest is the /api/generate request body.
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateResponse is what ollama returns for a non-streaming
// generate call.
type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int64  `json:"prompt_eval_count,omitempty"`
	EvalCount       int64  `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

// OllamaExecutor executes tasks against a local Ollama server.
type OllamaExecutor struct {
	host   string
	client *http.Client
}

// NewOllamaExecutor creates an executor for the given server host
// (e.g. http://localhost:11434). The client has no timeout of its own;
// the per-task deadline comes in through the request context.
func NewOllamaExecutor(host string) *OllamaExecutor {
	return &OllamaExecutor{
		host:   strings.TrimRight(host, "/"),
		client: &http.Client{},
	}
}

// Execute runs one non-streaming generate call and maps the eval
// counts to billed token counts.
func (e *OllamaExecutor) Execute(ctx context.Context, req orchestrator.ExecRequest) (*orchestrator.ExecResult, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  req.Model,
		Prompt: req.Input,
		System: systemPrompt(req),
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("encode ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama call for task %s: %w", req.TaskID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var gen ollamaGenerateResponse
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if gen.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", gen.Error)
	}

	return &orchestrator.ExecResult{
		TokensInput:  gen.PromptEvalCount,
		TokensOutput: gen.EvalCount,
		Result:       gen.Response,
	}, nil
}

// Healthy reports whether the server answers within the timeout.
func (e *OllamaExecutor) Healthy(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.host+"/", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
