// Package agent executes one task against an LLM provider, running the
// bounded tool-calling loop that lets the model consult the knowledge base
// before answering.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bankcrew/pkg/core"
	"bankcrew/pkg/errors"
	"bankcrew/pkg/guardrails"
	"bankcrew/pkg/llm"
	"bankcrew/pkg/resilience"
	"bankcrew/pkg/telemetry"
)

// Tool is an executable tool that also carries its LLM function schema.
type Tool interface {
	core.Tool
	Definition() llm.Tool
}

// Agent binds an agent spec to an LLM provider and a toolset.
type Agent struct {
	spec          core.AgentSpec
	provider      llm.Provider
	model         string
	temperature   float64
	tools         []Tool
	maxIterations int
	emitter       core.EventEmitter
	filter        *guardrails.PIIFilter
	retry         resilience.RetryConfig
	tracer        trace.Tracer
	logger        *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithTools sets the tools the agent may call.
func WithTools(tools ...Tool) Option {
	return func(a *Agent) { a.tools = tools }
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(a *Agent) { a.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(a *Agent) { a.temperature = temp }
}

// WithMaxIterations bounds the tool-calling loop.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithEmitter sets the event emitter.
func WithEmitter(emitter core.EventEmitter) Option {
	return func(a *Agent) {
		if emitter != nil {
			a.emitter = emitter
		}
	}
}

// WithPIIFilter sets the output filter. Pass nil to disable filtering.
func WithPIIFilter(filter *guardrails.PIIFilter) Option {
	return func(a *Agent) { a.filter = filter }
}

// WithRetry overrides the retry policy for LLM calls.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(a *Agent) { a.retry = rc }
}

// New creates an Agent from its spec.
func New(spec core.AgentSpec, provider llm.Provider, opts ...Option) *Agent {
	a := &Agent{
		spec:          spec,
		provider:      provider,
		maxIterations: 5,
		emitter:       core.NoopEventEmitter{},
		filter:        guardrails.NewPIIFilter(guardrails.FilterMask),
		retry:         resilience.DefaultRetryConfig(),
		tracer:        otel.Tracer("bankcrew/agent"),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent name from its spec.
func (a *Agent) Name() string { return a.spec.Name }

// Role returns the agent role from its spec.
func (a *Agent) Role() string { return a.spec.Role }

// systemPrompt composes the persona the model acts as.
func (a *Agent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s\n", strings.TrimSpace(a.spec.Role), strings.TrimSpace(a.spec.Backstory))
	fmt.Fprintf(&b, "Your personal goal is: %s", strings.TrimSpace(a.spec.Goal))
	return b.String()
}

// taskPrompt composes the user message for a task, including prior task
// output as context.
func taskPrompt(task *core.Task, context string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(task.Description))
	b.WriteString("\n\nThis is the expected output for your final answer: ")
	b.WriteString(strings.TrimSpace(task.ExpectedOutput))
	if context != "" {
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(context)
	}
	return b.String()
}

// Execute runs the task to completion, calling tools as the model requests
// them, and returns the final answer.
func (a *Agent) Execute(ctx context.Context, task *core.Task, taskContext string) (string, error) {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := a.tracer.Start(ctx, "Agent.Execute")
	defer span.End()
	span.SetAttributes(telemetry.AgentAttributes(a.spec.Name, a.spec.Role, a.model, runID, 0, a.maxIterations)...)
	span.SetAttributes(telemetry.TaskAttributes(task.ID, task.Name, a.spec.Name, string(task.Status))...)

	initMetrics()
	runCounter.Add(ctx, 1)
	start := time.Now()
	log := a.logger

	log.InfoContext(ctx, "agent.task.start",
		slog.String("agent", a.spec.Name),
		slog.String("task", task.Name),
		slog.String("run_id", runID),
	)
	a.emitter.Emit(ctx, core.NewEvent(core.EventAgentTaskStarted, a.spec.Name, task.ID, map[string]any{
		"run_id": runID,
		"task":   task.Name,
	}))

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.systemPrompt()},
		{Role: llm.RoleUser, Content: taskPrompt(task, taskContext)},
	}
	toolDefs := make([]llm.Tool, len(a.tools))
	toolsByName := make(map[string]Tool, len(a.tools))
	for i, tool := range a.tools {
		toolDefs[i] = tool.Definition()
		toolsByName[tool.Name()] = tool
	}

	var answer string
	answered := false
	for iteration := 0; iteration < a.maxIterations; iteration++ {
		resp, err := a.chat(ctx, messages, toolDefs, iteration)
		if err != nil {
			errorCounter.Add(ctx, 1)
			telemetry.GlobalErrorMetrics(ctx).RecordError(ctx, err, "agent")
			a.emitter.Emit(ctx, core.NewEvent(core.EventAgentError, a.spec.Name, task.ID, map[string]any{
				"error": err.Error(),
			}))
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			answer = strings.TrimSpace(resp.Content)
			answered = true
			break
		}

		a.emitter.Emit(ctx, core.NewEvent(core.EventAgentThinking, a.spec.Name, task.ID, map[string]any{
			"tool_calls": len(resp.ToolCalls),
		}))
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			result := a.callTool(ctx, log, task, toolsByName, call)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	if answer == "" {
		var err error
		if answered {
			err = errors.New(errors.CodeLLMError, "model returned an empty answer", nil).
				WithContext("agent", a.spec.Name).
				WithRecoverable(true)
		} else {
			err = errors.New(errors.CodeTimeout, "agent exhausted tool-calling iterations without an answer", nil).
				WithContext("agent", a.spec.Name).
				WithContext("max_iterations", a.maxIterations)
		}
		errorCounter.Add(ctx, 1)
		return "", err
	}

	if a.filter != nil {
		filtered := a.filter.Filter(ctx, answer)
		if filtered.Modified {
			log.WarnContext(ctx, "agent.output.pii_masked",
				slog.String("agent", a.spec.Name),
				slog.Int("redactions", len(filtered.Redactions)),
			)
		}
		answer = filtered.Content
	}

	runLatencyMs.Record(ctx, time.Since(start).Seconds()*1000)
	log.InfoContext(ctx, "agent.task.complete",
		slog.String("agent", a.spec.Name),
		slog.String("task", task.Name),
		slog.String("run_id", runID),
		slog.Duration("duration", time.Since(start)),
	)
	a.emitter.Emit(ctx, core.NewEvent(core.EventAgentTaskCompleted, a.spec.Name, task.ID, map[string]any{
		"run_id": runID,
	}))
	return answer, nil
}

func (a *Agent) chat(ctx context.Context, messages []llm.Message, tools []llm.Tool, iteration int) (*llm.ChatResponse, error) {
	llmCtx, llmSpan := a.tracer.Start(ctx, "Agent.LLM.Chat")
	defer llmSpan.End()
	llmSpan.SetAttributes(telemetry.LLMAttributes(a.model, "ollama", len(messages), 0)...)

	llmStart := time.Now()
	res, err := a.retry.DoWithResult(llmCtx, func() (interface{}, error) {
		resp, err := a.provider.Chat(llmCtx, llm.ChatRequest{
			Model:       a.model,
			Messages:    messages,
			Tools:       tools,
			Temperature: a.temperature,
		})
		if err != nil {
			return nil, errors.AsCrewError(err).WithContext("iteration", iteration)
		}
		return resp, nil
	})
	durationMs := time.Since(llmStart).Seconds() * 1000
	llmLatencyMs.Record(ctx, durationMs)
	if err != nil {
		return nil, err
	}

	resp := res.(*llm.ChatResponse)
	llmSpan.SetAttributes(telemetry.LLMAttributes(a.model, "ollama", len(messages), len(resp.ToolCalls))...)
	llmSpan.SetAttributes(telemetry.LLMUsageAttributes(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, durationMs)...)
	return resp, nil
}

// callTool runs one requested tool. Failures come back as tool output so
// the model can react instead of the task aborting.
func (a *Agent) callTool(ctx context.Context, log *slog.Logger, task *core.Task, tools map[string]Tool, call llm.ToolCall) string {
	toolCtx, toolSpan := a.tracer.Start(ctx, "Agent.Tool.Call")
	defer toolSpan.End()

	name := call.Function.Name
	start := time.Now()

	tool, ok := tools[name]
	if !ok {
		toolSpan.SetAttributes(telemetry.ToolCallAttributes(name, call.ID, 0, false)...)
		return fmt.Sprintf("Error: tool %q is not available", name)
	}

	result, err := tool.Call(toolCtx, call.Function.Arguments)
	durationMs := time.Since(start).Seconds() * 1000
	toolLatencyMs.Record(ctx, durationMs)
	toolSpan.SetAttributes(telemetry.ToolCallAttributes(name, call.ID, durationMs, err == nil)...)
	toolSpan.SetAttributes(telemetry.ToolCallArgsResult(call.Function.Arguments, result, 512)...)

	a.emitter.Emit(ctx, core.NewEvent(core.EventAgentToolCall, a.spec.Name, task.ID, map[string]any{
		"tool":    name,
		"success": err == nil,
	}))

	if err != nil {
		telemetry.GlobalErrorMetrics(ctx).RecordError(ctx, err, "agent-tool")
		log.WarnContext(ctx, "agent.tool.error",
			slog.String("agent", a.spec.Name),
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}

	log.InfoContext(ctx, "agent.tool.call",
		slog.String("agent", a.spec.Name),
		slog.String("tool", name),
		slog.Float64("duration_ms", durationMs),
	)
	return result
}
