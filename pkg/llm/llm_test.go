package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockProvider(t *testing.T) {
	mock := &MockProvider{Response: "Checking accounts are for everyday use."}
	resp, err := mock.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "What is a checking account?"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Checking accounts are for everyday use." {
		t.Errorf("unexpected content %q", resp.Content)
	}
}

func TestScriptedMockProvider(t *testing.T) {
	mock := NewScriptedMockProvider("first", "second")
	ctx := context.Background()

	resp, err := mock.Chat(ctx, ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("expected first response, got %q", resp.Content)
	}

	resp, err = mock.Chat(ctx, ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "second" {
		t.Errorf("expected second response, got %q", resp.Content)
	}

	if _, err := mock.Chat(ctx, ChatRequest{}); err == nil {
		t.Error("expected error once responses are exhausted")
	}
	if mock.CallCount != 3 {
		t.Errorf("expected 3 calls recorded, got %d", mock.CallCount)
	}
}

func TestScriptedMockProviderToolCall(t *testing.T) {
	mock := NewScriptedMockProvider()
	mock.AddToolCallResponse("knowledge_base_query", `{"query":"mortgage rates"}`)

	resp, err := mock.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Function.Name != "knowledge_base_query" {
		t.Errorf("unexpected tool name %q", resp.ToolCalls[0].Function.Name)
	}
}

func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3.2:3b" {
			t.Errorf("unexpected model %q", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaResponse{
			Message:         Message{Role: RoleAssistant, Content: "Savings accounts earn interest."},
			Done:            true,
			EvalCount:       7,
			PromptEvalCount: 11,
		})
	}))
	defer server.Close()

	provider := NewOllama(server.URL)
	resp, err := provider.Chat(context.Background(), ChatRequest{
		Model:    "llama3.2:3b",
		Messages: []Message{{Role: RoleUser, Content: "What is a savings account?"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Savings accounts earn interest." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 18 {
		t.Errorf("expected usage 18, got %d", resp.Usage.TotalTokens)
	}
}

func TestOllamaChatErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	provider := NewOllama(server.URL)
	if _, err := provider.Chat(context.Background(), ChatRequest{Model: "missing"}); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
