// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for banking crew telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Agent attributes
	AttrAgentName      = "bankcrew.agent.name"
	AttrAgentRole      = "bankcrew.agent.role"
	AttrAgentModel     = "bankcrew.agent.model"
	AttrAgentRunID     = "bankcrew.agent.run_id"
	AttrAgentIteration = "bankcrew.agent.iteration"
	AttrAgentMaxIter   = "bankcrew.agent.max_iterations"

	// Task attributes
	AttrTaskID     = "bankcrew.task.id"
	AttrTaskName   = "bankcrew.task.name"
	AttrTaskAgent  = "bankcrew.task.agent"
	AttrTaskStatus = "bankcrew.task.status"

	// Crew attributes
	AttrCrewRunID     = "bankcrew.crew.run_id"
	AttrCrewProcess   = "bankcrew.crew.process"
	AttrCrewTaskCount = "bankcrew.crew.task_count"

	// Tool attributes
	AttrToolName       = "bankcrew.tool.name"
	AttrToolCallID     = "bankcrew.tool.call_id"
	AttrToolArgs       = "bankcrew.tool.arguments"
	AttrToolResult     = "bankcrew.tool.result"
	AttrToolDurationMs = "bankcrew.tool.duration_ms"
	AttrToolSuccess    = "bankcrew.tool.success"

	// Retrieval attributes
	AttrRetrievalQuery      = "bankcrew.retrieval.query"
	AttrRetrievalCollection = "bankcrew.retrieval.collection"
	AttrRetrievalFetched    = "bankcrew.retrieval.fetched_count"
	AttrRetrievalReturned   = "bankcrew.retrieval.returned_count"
	AttrRetrievalChunks     = "bankcrew.retrieval.indexed_chunks"
	AttrRetrievalFiles      = "bankcrew.retrieval.indexed_files"

	// LLM attributes (extending standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
	AttrLLMToolCalls    = "gen_ai.tool_calls"
)

// AgentAttributes returns common attributes for agent spans.
func AgentAttributes(name, role, model, runID string, iteration, maxIter int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrAgentName, name),
		attribute.String(AttrAgentRunID, runID),
	}
	if role != "" {
		attrs = append(attrs, attribute.String(AttrAgentRole, role))
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrAgentModel, model))
	}
	if iteration > 0 {
		attrs = append(attrs, attribute.Int(AttrAgentIteration, iteration))
	}
	if maxIter > 0 {
		attrs = append(attrs, attribute.Int(AttrAgentMaxIter, maxIter))
	}
	return attrs
}

// TaskAttributes returns attributes for task spans.
func TaskAttributes(id, name, agent, status string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrTaskID, id),
		attribute.String(AttrTaskName, name),
	}
	if agent != "" {
		attrs = append(attrs, attribute.String(AttrTaskAgent, agent))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(AttrTaskStatus, status))
	}
	return attrs
}

// CrewAttributes returns attributes for crew kickoff spans.
func CrewAttributes(runID, process string, taskCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCrewRunID, runID),
		attribute.String(AttrCrewProcess, process),
		attribute.Int(AttrCrewTaskCount, taskCount),
	}
}

// ToolCallAttributes returns attributes for a tool call span.
func ToolCallAttributes(name, callID string, durationMs float64, success bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.String(AttrToolCallID, callID),
		attribute.Float64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
}

// ToolCallArgsResult returns attributes with tool arguments and result (truncated for safety).
func ToolCallArgsResult(args, result string, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = 500
	}
	attrs := []attribute.KeyValue{}
	if args != "" {
		if len(args) > maxLen {
			args = args[:maxLen] + "..."
		}
		attrs = append(attrs, attribute.String(AttrToolArgs, args))
	}
	if result != "" {
		if len(result) > maxLen {
			result = result[:maxLen] + "..."
		}
		attrs = append(attrs, attribute.String(AttrToolResult, result))
	}
	return attrs
}

// RetrievalAttributes returns attributes for knowledge retrieval spans.
func RetrievalAttributes(collection string, fetched, returned int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRetrievalCollection, collection),
		attribute.Int(AttrRetrievalFetched, fetched),
		attribute.Int(AttrRetrievalReturned, returned),
	}
}

// IndexAttributes returns attributes for index build spans.
func IndexAttributes(collection string, files, chunks int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRetrievalCollection, collection),
		attribute.Int(AttrRetrievalFiles, files),
		attribute.Int(AttrRetrievalChunks, chunks),
	}
}

// LLMAttributes returns attributes for LLM call spans.
func LLMAttributes(model, provider string, msgCount int, toolCallCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	if toolCallCount > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMToolCalls, toolCallCount))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Float64(AttrLLMDurationMs, durationMs),
	}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	return attrs
}
