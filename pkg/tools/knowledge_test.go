package tools

import (
	"context"
	"strings"
	"testing"

	"bankcrew/pkg/errors"
	"bankcrew/pkg/rag"
)

type stubSearcher struct {
	results []rag.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]rag.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func TestKnowledgeToolCall(t *testing.T) {
	searcher := &stubSearcher{results: []rag.Result{
		{Text: "Checking accounts carry a monthly fee.", Source: "accounts.txt", Score: 0.9},
	}}
	tool := NewKnowledgeTool(searcher)

	out, err := tool.Call(context.Background(), "What are checking account fees?")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(out, "Source: accounts.txt") {
		t.Errorf("expected source citation, got %q", out)
	}
	if !strings.Contains(out, "Checking accounts carry a monthly fee.") {
		t.Errorf("expected chunk content, got %q", out)
	}
	if searcher.queries[0] != "What are checking account fees?" {
		t.Errorf("unexpected query passed through: %q", searcher.queries[0])
	}
}

func TestKnowledgeToolJSONInput(t *testing.T) {
	searcher := &stubSearcher{results: []rag.Result{{Text: "x", Source: "a.txt"}}}
	tool := NewKnowledgeTool(searcher)

	if _, err := tool.Call(context.Background(), `{"query": "mortgage rates"}`); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if searcher.queries[0] != "mortgage rates" {
		t.Errorf("expected query extracted from JSON, got %q", searcher.queries[0])
	}
}

func TestKnowledgeToolEmptyQuery(t *testing.T) {
	tool := NewKnowledgeTool(&stubSearcher{})
	if _, err := tool.Call(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestKnowledgeToolDegradesOnFailure(t *testing.T) {
	searcher := &stubSearcher{err: errors.New(errors.CodeVectorStore, "store down", nil)}
	tool := NewKnowledgeTool(searcher)

	out, err := tool.Call(context.Background(), "anything")
	if err != nil {
		t.Fatalf("expected degraded message, got error: %v", err)
	}
	if !strings.Contains(out, "No relevant information found") {
		t.Errorf("expected degraded message, got %q", out)
	}
}

func TestKnowledgeToolNoResults(t *testing.T) {
	tool := NewKnowledgeTool(&stubSearcher{})
	out, err := tool.Call(context.Background(), "obscure question")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(out, "No relevant information found") {
		t.Errorf("expected empty-index message, got %q", out)
	}
}

func TestKnowledgeToolDefinition(t *testing.T) {
	def := NewKnowledgeTool(&stubSearcher{}).Definition()
	if def.Function.Name != KnowledgeToolName {
		t.Errorf("unexpected tool name %q", def.Function.Name)
	}
	params, ok := def.Function.Parameters.(map[string]interface{})
	if !ok {
		t.Fatal("expected parameters to be a JSON schema map")
	}
	if params["type"] != "object" {
		t.Errorf("unexpected schema type %v", params["type"])
	}
}
