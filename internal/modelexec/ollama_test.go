package modelexec

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rfoley/loom/internal/orchestrator"
)

func TestOllamaExecute(t *testing.T) {
	var gotReq ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:           gotReq.Model,
			Response:        "generated output",
			Done:            true,
			PromptEvalCount: 120,
			EvalCount:       340,
		})
	}))
	defer srv.Close()

	exec := NewOllamaExecutor(srv.URL)
	result, err := exec.Execute(context.Background(), orchestrator.ExecRequest{
		TaskID:    "t1",
		ProjectID: "p1",
		Stage:     3,
		AgentName: "scaffold-agent-1",
		Model:     "codellama:13b",
		Input:     "init the repo",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotReq.Model != "codellama:13b" || gotReq.Prompt != "init the repo" {
		t.Errorf("unexpected upstream request: %+v", gotReq)
	}
	if gotReq.Stream {
		t.Error("expected non-streaming request")
	}
	if gotReq.System == "" {
		t.Error("expected a system prompt")
	}

	if result.Result != "generated output" {
		t.Errorf("result = %q", result.Result)
	}
	if result.TokensInput != 120 || result.TokensOutput != 340 {
		t.Errorf("tokens = %d/%d, want 120/340", result.TokensInput, result.TokensOutput)
	}
}

func TestOllamaExecute_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	exec := NewOllamaExecutor(srv.URL)
	_, err := exec.Execute(context.Background(), orchestrator.ExecRequest{Model: "mistral:7b"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestOllamaExecute_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Error: "out of memory"})
	}))
	defer srv.Close()

	exec := NewOllamaExecutor(srv.URL)
	_, err := exec.Execute(context.Background(), orchestrator.ExecRequest{Model: "mistral:7b"})
	if err == nil {
		t.Fatal("expected error for error payload")
	}
}

func TestOllamaExecute_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	exec := NewOllamaExecutor(srv.URL)
	_, err := exec.Execute(ctx, orchestrator.ExecRequest{Model: "mistral:7b"})
	if err == nil {
		t.Fatal("expected error after context deadline")
	}
}

func TestOllamaHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if !NewOllamaExecutor(srv.URL).Healthy(time.Second) {
		t.Error("expected healthy server")
	}
	if NewOllamaExecutor("http://127.0.0.1:1").Healthy(50 * time.Millisecond) {
		t.Error("expected unreachable server to be unhealthy")
	}
}
