// Package crew orchestrates the banking advisory agents: sequential task
// execution with context chaining, plus the train, replay, and test modes
// built on the run store.
package crew

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bankcrew/pkg/agent"
	"bankcrew/pkg/core"
	"bankcrew/pkg/errors"
	"bankcrew/pkg/llm"
	"bankcrew/pkg/telemetry"
)

// contextSeparator joins prior task outputs fed into the next task.
const contextSeparator = "\n\n----------\n\n"

// Crew holds the configured agents and the ordered task list.
type Crew struct {
	agentSpecs []core.AgentSpec
	taskSpecs  []core.TaskSpec
	provider   llm.Provider
	store      *Store
	emitter    core.EventEmitter
	outputDir  string
	agentOpts  []agent.Option
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Crew.
type Option func(*Crew)

// WithStore attaches the run store used by replay, train, and test.
func WithStore(store *Store) Option {
	return func(c *Crew) { c.store = store }
}

// WithEmitter sets the event emitter shared with all agents.
func WithEmitter(emitter core.EventEmitter) Option {
	return func(c *Crew) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

// WithOutputDir sets the directory task output files are written under.
func WithOutputDir(dir string) Option {
	return func(c *Crew) { c.outputDir = dir }
}

// WithAgentOptions passes options through to every agent, tools included.
func WithAgentOptions(opts ...agent.Option) Option {
	return func(c *Crew) { c.agentOpts = append(c.agentOpts, opts...) }
}

// New builds a Crew from the agent and task documents.
func New(agentSpecs []core.AgentSpec, taskSpecs []core.TaskSpec, provider llm.Provider, opts ...Option) (*Crew, error) {
	if err := core.ValidateSpecs(taskSpecs, agentSpecs); err != nil {
		return nil, err
	}

	c := &Crew{
		agentSpecs: agentSpecs,
		taskSpecs:  taskSpecs,
		provider:   provider,
		emitter:    core.NoopEventEmitter{},
		logger:     slog.Default().With("component", "crew"),
		tracer:     otel.Tracer("bankcrew/crew"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// buildAgents renders the agent templates with this run's inputs and
// constructs the agents. Agent documents carry the same placeholders task
// documents do.
func (c *Crew) buildAgents(inputs map[string]string) (map[string]*agent.Agent, error) {
	agents := make(map[string]*agent.Agent, len(c.agentSpecs))
	for _, spec := range c.agentSpecs {
		rendered, err := renderAgentSpec(spec, inputs)
		if err != nil {
			return nil, err
		}
		agentOpts := append([]agent.Option{agent.WithEmitter(c.emitter)}, c.agentOpts...)
		agents[spec.Name] = agent.New(rendered, c.provider, agentOpts...)
	}
	return agents, nil
}

func renderAgentSpec(spec core.AgentSpec, inputs map[string]string) (core.AgentSpec, error) {
	var err error
	if spec.Role, err = core.RenderTemplate(spec.Role, inputs); err != nil {
		return spec, errors.AsCrewError(err).WithContext("agent", spec.Name)
	}
	if spec.Goal, err = core.RenderTemplate(spec.Goal, inputs); err != nil {
		return spec, errors.AsCrewError(err).WithContext("agent", spec.Name)
	}
	if spec.Backstory, err = core.RenderTemplate(spec.Backstory, inputs); err != nil {
		return spec, errors.AsCrewError(err).WithContext("agent", spec.Name)
	}
	return spec, nil
}

// TaskResult is the outcome of one executed task.
type TaskResult struct {
	Task       string
	Agent      string
	Output     string
	OutputFile string
}

// RunResult is the outcome of a full crew run. Final is the output of the
// last task.
type RunResult struct {
	RunID   string
	Results []TaskResult
	Final   string
}

// normalizeInputs fills in the defaults every task template may reference.
func normalizeInputs(inputs map[string]string) map[string]string {
	out := make(map[string]string, len(inputs)+1)
	for k, v := range inputs {
		out[k] = v
	}
	if _, ok := out["current_year"]; !ok {
		out["current_year"] = strconv.Itoa(time.Now().Year())
	}
	return out
}

// Kickoff runs every task in declaration order, feeding each task the
// outputs of the tasks before it.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*RunResult, error) {
	return c.run(ctx, "run", c.taskSpecs, inputs, nil)
}

func (c *Crew) run(ctx context.Context, kind string, taskSpecs []core.TaskSpec, inputs map[string]string, priorOutputs map[string]string) (*RunResult, error) {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := c.tracer.Start(ctx, "Crew.Kickoff")
	defer span.End()
	span.SetAttributes(telemetry.CrewAttributes(runID, "sequential", len(taskSpecs))...)

	inputs = normalizeInputs(inputs)
	agents, err := c.buildAgents(inputs)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	c.logger.InfoContext(ctx, "crew.run.start",
		slog.String("run_id", runID),
		slog.String("kind", kind),
		slog.Int("tasks", len(taskSpecs)),
	)
	c.emitter.Emit(ctx, core.NewEvent(core.EventCrewStarted, "", "", map[string]any{
		"run_id": runID,
		"tasks":  len(taskSpecs),
	}))

	if c.store != nil {
		if err := c.store.BeginRun(ctx, runID, kind, inputs["topic"]); err != nil {
			c.logger.WarnContext(ctx, "crew.store.begin_error", slog.String("error", err.Error()))
		}
	}

	result := &RunResult{RunID: runID}
	var contextParts []string
	for position, spec := range taskSpecs {
		if prior, ok := priorOutputs[spec.Name]; ok {
			// Replay: reuse the stored output instead of re-executing.
			contextParts = append(contextParts, prior)
			result.Results = append(result.Results, TaskResult{
				Task:   spec.Name,
				Agent:  spec.Agent,
				Output: prior,
			})
			result.Final = prior
			continue
		}

		task, err := c.buildTask(spec, inputs)
		if err != nil {
			c.finishRun(ctx, runID, "failed")
			return nil, err
		}

		ag := agents[spec.Agent]
		task.Start()
		output, err := ag.Execute(ctx, task, strings.Join(contextParts, contextSeparator))
		if err != nil {
			task.Fail(err.Error())
			c.saveTask(ctx, runID, position, task)
			c.finishRun(ctx, runID, "failed")
			return nil, errors.AsCrewError(err).
				WithContext("task", spec.Name).
				WithContext("run_id", runID)
		}
		task.Complete(output)
		c.saveTask(ctx, runID, position, task)

		tr := TaskResult{Task: spec.Name, Agent: spec.Agent, Output: output}
		if spec.OutputFile != "" {
			path, err := c.writeOutputFile(spec.OutputFile, output)
			if err != nil {
				c.finishRun(ctx, runID, "failed")
				return nil, err
			}
			tr.OutputFile = path
		}
		result.Results = append(result.Results, tr)
		result.Final = output
		contextParts = append(contextParts, output)
	}

	c.finishRun(ctx, runID, "completed")
	c.logger.InfoContext(ctx, "crew.run.complete",
		slog.String("run_id", runID),
		slog.Duration("duration", time.Since(start)),
	)
	c.emitter.Emit(ctx, core.NewEvent(core.EventCrewCompleted, "", "", map[string]any{
		"run_id": runID,
	}))
	return result, nil
}

func (c *Crew) buildTask(spec core.TaskSpec, inputs map[string]string) (*core.Task, error) {
	description, err := core.RenderTemplate(spec.Description, inputs)
	if err != nil {
		return nil, errors.AsCrewError(err).WithContext("task", spec.Name)
	}
	expected, err := core.RenderTemplate(spec.ExpectedOutput, inputs)
	if err != nil {
		return nil, errors.AsCrewError(err).WithContext("task", spec.Name)
	}
	return core.NewTask(spec.Name, description, expected, spec.Agent), nil
}

func (c *Crew) writeOutputFile(name, content string) (string, error) {
	path := name
	if c.outputDir != "" {
		path = filepath.Join(c.outputDir, name)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.New(errors.CodeInternal, "creating output directory", err).
				WithContext("path", path)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.New(errors.CodeInternal, "writing task output file", err).
			WithContext("path", path)
	}
	return path, nil
}

func (c *Crew) saveTask(ctx context.Context, runID string, position int, task *core.Task) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveTaskOutput(ctx, runID, position, task); err != nil {
		c.logger.WarnContext(ctx, "crew.store.save_error",
			slog.String("task", task.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Crew) finishRun(ctx context.Context, runID, status string) {
	if c.store == nil {
		return
	}
	if err := c.store.FinishRun(ctx, runID, status); err != nil {
		c.logger.WarnContext(ctx, "crew.store.finish_error", slog.String("error", err.Error()))
	}
}

// AnswerQuestion runs a single dynamic task that answers one banking
// question with the knowledge base, outside the configured task list.
func (c *Crew) AnswerQuestion(ctx context.Context, question, topic string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New(errors.CodeInvalidInput, "question is empty", nil)
	}
	if topic == "" {
		topic = "Banking Services"
	}

	spec := core.TaskSpec{
		Name:           "answer_question",
		Description:    "Answer the following banking question using the Knowledge Base Query Tool:\n\n{question}",
		ExpectedOutput: "A detailed and accurate answer based on the banking knowledge base",
		Agent:          c.questionAgent(),
	}

	inputs := map[string]string{"question": question, "topic": topic}
	result, err := c.run(ctx, "rag", []core.TaskSpec{spec}, inputs, nil)
	if err != nil {
		return "", err
	}
	return result.Final, nil
}

// questionAgent picks the agent for dynamic question tasks: the financial
// advisor when configured, the first agent otherwise.
func (c *Crew) questionAgent() string {
	for _, spec := range c.agentSpecs {
		if spec.Name == "financial_advisor" {
			return spec.Name
		}
	}
	return c.agentSpecs[0].Name
}

// FeedbackFunc collects human feedback on one task output during training.
type FeedbackFunc func(taskName, output string) (string, error)

// Train runs the crew n times, collecting feedback after each iteration and
// persisting it to the run store and the given JSON file.
func (c *Crew) Train(ctx context.Context, iterations int, filename string, inputs map[string]string, feedback FeedbackFunc) error {
	if iterations <= 0 {
		return errors.New(errors.CodeInvalidInput, "training iterations must be positive", nil)
	}
	if c.store == nil {
		return errors.New(errors.CodeConfig, "training requires a run store", nil)
	}

	trainID := "train-" + uuid.NewString()
	if err := c.store.BeginRun(ctx, trainID, "train", inputs["topic"]); err != nil {
		return err
	}

	type feedbackEntry struct {
		Iteration int    `json:"iteration"`
		Task      string `json:"task"`
		Output    string `json:"output"`
		Feedback  string `json:"feedback"`
	}
	var entries []feedbackEntry

	for i := 0; i < iterations; i++ {
		c.logger.InfoContext(ctx, "crew.train.iteration", slog.Int("iteration", i+1), slog.Int("total", iterations))
		result, err := c.Kickoff(core.WithRunID(ctx, fmt.Sprintf("%s-iter-%d", trainID, i+1)), inputs)
		if err != nil {
			c.store.FinishRun(ctx, trainID, "failed")
			return err
		}
		for _, tr := range result.Results {
			fb := ""
			if feedback != nil {
				fb, err = feedback(tr.Task, tr.Output)
				if err != nil {
					c.store.FinishRun(ctx, trainID, "failed")
					return errors.New(errors.CodeInternal, "collecting training feedback", err)
				}
			}
			if err := c.store.SaveFeedback(ctx, trainID, i+1, tr.Task, tr.Output, fb); err != nil {
				c.logger.WarnContext(ctx, "crew.train.store_error", slog.String("error", err.Error()))
			}
			entries = append(entries, feedbackEntry{Iteration: i + 1, Task: tr.Task, Output: tr.Output, Feedback: fb})
		}
	}

	if filename != "" {
		if err := writeJSONFile(filename, entries); err != nil {
			c.store.FinishRun(ctx, trainID, "failed")
			return err
		}
	}
	return c.store.FinishRun(ctx, trainID, "completed")
}

// Replay re-executes the latest stored run from the named task onward,
// reusing the stored outputs of every task before it.
func (c *Crew) Replay(ctx context.Context, taskName string, inputs map[string]string) (*RunResult, error) {
	if c.store == nil {
		return nil, errors.New(errors.CodeConfig, "replay requires a run store", nil)
	}

	runID, err := c.store.LatestRunID(ctx, "run")
	if err != nil {
		return nil, err
	}
	if runID == "" {
		return nil, errors.New(errors.CodeNotFound, "no stored run to replay", nil)
	}
	records, err := c.store.TaskOutputs(ctx, runID)
	if err != nil {
		return nil, err
	}

	fromIdx := -1
	for i, spec := range c.taskSpecs {
		if spec.Name == taskName {
			fromIdx = i
			break
		}
	}
	if fromIdx < 0 {
		return nil, errors.New(errors.CodeNotFound, "task not found in task document", nil).
			WithContext("task", taskName)
	}

	prior := make(map[string]string)
	for _, rec := range records {
		if rec.Position < fromIdx && rec.Status == string(core.TaskStatusCompleted) {
			prior[rec.TaskName] = rec.Output
		}
	}
	// Every task before the replay point must have a stored output.
	for i := 0; i < fromIdx; i++ {
		if _, ok := prior[c.taskSpecs[i].Name]; !ok {
			return nil, errors.New(errors.CodeNotFound, "stored run is missing an output before the replay point", nil).
				WithContext("task", c.taskSpecs[i].Name).
				WithContext("run_id", runID)
		}
	}

	c.logger.InfoContext(ctx, "crew.replay.start",
		slog.String("source_run", runID),
		slog.String("from_task", taskName),
	)
	return c.run(ctx, "replay", c.taskSpecs, inputs, prior)
}
