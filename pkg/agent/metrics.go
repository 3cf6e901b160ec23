package agent

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce   sync.Once
	runCounter    metric.Int64Counter
	errorCounter  metric.Int64Counter
	runLatencyMs  metric.Float64Histogram
	llmLatencyMs  metric.Float64Histogram
	toolLatencyMs metric.Float64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("bankcrew/agent")
		runCounter, _ = meter.Int64Counter("bankcrew.agent.runs",
			metric.WithDescription("Number of agent task executions"))
		errorCounter, _ = meter.Int64Counter("bankcrew.agent.errors",
			metric.WithDescription("Number of failed agent task executions"))
		runLatencyMs, _ = meter.Float64Histogram("bankcrew.agent.run.latency",
			metric.WithDescription("Agent task execution latency"),
			metric.WithUnit("ms"))
		llmLatencyMs, _ = meter.Float64Histogram("bankcrew.agent.llm.latency",
			metric.WithDescription("LLM chat call latency"),
			metric.WithUnit("ms"))
		toolLatencyMs, _ = meter.Float64Histogram("bankcrew.agent.tool.latency",
			metric.WithDescription("Tool call latency"),
			metric.WithUnit("ms"))
	})
}
