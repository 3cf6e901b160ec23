// Package tools holds the executable tools agents can call.
package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"bankcrew/pkg/errors"
	"bankcrew/pkg/llm"
	"bankcrew/pkg/rag"
)

// KnowledgeToolName is the function name the LLM calls to query the
// knowledge base.
const KnowledgeToolName = "knowledge_base_query"

const knowledgeToolDescription = "Search the banking knowledge base for information about " +
	"accounts, loans, mortgages, and other banking products. " +
	"Input is a natural language question."

// emptyIndexMessage is returned instead of an error when retrieval comes up
// empty, so the agent can answer from its own knowledge and say so.
const emptyIndexMessage = "No relevant information found in the knowledge base. " +
	"Answer from general banking knowledge and state that the knowledge base had no match."

// Searcher is the retrieval surface the tool needs from the RAG index.
type Searcher interface {
	Search(ctx context.Context, query string) ([]rag.Result, error)
}

// KnowledgeTool exposes the RAG index as an agent tool.
type KnowledgeTool struct {
	index  Searcher
	logger *slog.Logger
}

// NewKnowledgeTool creates a KnowledgeTool over a searchable index.
func NewKnowledgeTool(index Searcher) *KnowledgeTool {
	return &KnowledgeTool{
		index:  index,
		logger: slog.Default().With("tool", KnowledgeToolName),
	}
}

// Name returns the tool name the LLM calls.
func (t *KnowledgeTool) Name() string {
	return KnowledgeToolName
}

// Description returns the tool description shown to the LLM.
func (t *KnowledgeTool) Description() string {
	return knowledgeToolDescription
}

type knowledgeQuery struct {
	Query string `json:"query"`
}

// Call runs a retrieval. Input is either a JSON object with a "query" field
// or a plain question string.
func (t *KnowledgeTool) Call(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	var parsed knowledgeQuery
	if err := json.Unmarshal([]byte(input), &parsed); err == nil && parsed.Query != "" {
		query = strings.TrimSpace(parsed.Query)
	}
	if query == "" {
		return "", errors.New(errors.CodeInvalidInput, "knowledge query is empty", nil)
	}

	results, err := t.index.Search(ctx, query)
	if err != nil {
		// Retrieval failures degrade to a message rather than halting the
		// crew run; the agent still answers from the model.
		t.logger.WarnContext(ctx, "knowledge base unavailable", "error", err)
		return emptyIndexMessage, nil
	}
	if len(results) == 0 {
		return emptyIndexMessage, nil
	}
	return rag.FormatResults(results), nil
}

// Definition returns the function schema for LLM tool calling.
func (t *KnowledgeTool) Definition() llm.Tool {
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        KnowledgeToolName,
			Description: knowledgeToolDescription,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Natural language question about banking products or services",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}
