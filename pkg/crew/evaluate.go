package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"bankcrew/pkg/core"
	"bankcrew/pkg/errors"
	"bankcrew/pkg/llm"
)

// evaluationPrompt asks the evaluator model for a single 1-10 score.
const evaluationPrompt = `You are an expert evaluator of AI agent outputs.

Task description:
%s

Expected output:
%s

Actual output:
%s

Rate how well the actual output satisfies the task on a scale of 1 to 10,
where 10 is a complete, accurate, well-structured answer. Respond with the
numeric score first, optionally followed by a short justification.`

var (
	leadingScoreRe = regexp.MustCompile(`^\s*(?:10|[0-9])(?:\.[0-9]+)?`)
	scoreRe        = regexp.MustCompile(`(?:10|[0-9])(?:\.[0-9]+)?`)
)

// parseScore extracts the evaluator's numeric score. The prompt asks for the
// score first, so a leading number wins; chatty replies fall back to the last
// number so scale phrasing like "1 to 10" does not shadow the verdict.
func parseScore(content string) string {
	if m := strings.TrimSpace(leadingScoreRe.FindString(content)); m != "" {
		return m
	}
	all := scoreRe.FindAllString(content, -1)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

// TestReport aggregates evaluator scores across test iterations.
type TestReport struct {
	RunID      string
	Iterations int
	Scores     []Score
	TaskMeans  map[string]float64
	Mean       float64
}

// Test runs the crew the given number of times and has the evaluator model
// score every task output from 1 to 10.
func (c *Crew) Test(ctx context.Context, iterations int, evaluator llm.Provider, evalModel string, inputs map[string]string) (*TestReport, error) {
	if iterations <= 0 {
		return nil, errors.New(errors.CodeInvalidInput, "test iterations must be positive", nil)
	}
	if c.store == nil {
		return nil, errors.New(errors.CodeConfig, "testing requires a run store", nil)
	}

	testID := "test-" + uuid.NewString()
	if err := c.store.BeginRun(ctx, testID, "test", inputs["topic"]); err != nil {
		return nil, err
	}

	report := &TestReport{RunID: testID, Iterations: iterations, TaskMeans: make(map[string]float64)}
	rendered := normalizeInputs(inputs)

	for i := 0; i < iterations; i++ {
		c.logger.InfoContext(ctx, "crew.test.iteration", slog.Int("iteration", i+1), slog.Int("total", iterations))
		result, err := c.Kickoff(ctx, inputs)
		if err != nil {
			c.store.FinishRun(ctx, testID, "failed")
			return nil, err
		}
		for _, tr := range result.Results {
			spec := c.taskSpec(tr.Task)
			score, comment, err := c.evaluate(ctx, evaluator, evalModel, spec.Description, spec.ExpectedOutput, tr.Output, rendered)
			if err != nil {
				c.store.FinishRun(ctx, testID, "failed")
				return nil, err
			}
			sc := Score{Iteration: i + 1, TaskName: tr.Task, Score: score, Comment: comment}
			report.Scores = append(report.Scores, sc)
			if err := c.store.SaveScore(ctx, testID, i+1, tr.Task, score, comment); err != nil {
				c.logger.WarnContext(ctx, "crew.test.store_error", slog.String("error", err.Error()))
			}
		}
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	total := 0.0
	for _, sc := range report.Scores {
		sums[sc.TaskName] += sc.Score
		counts[sc.TaskName]++
		total += sc.Score
	}
	for task, sum := range sums {
		report.TaskMeans[task] = sum / float64(counts[task])
	}
	if len(report.Scores) > 0 {
		report.Mean = total / float64(len(report.Scores))
	}

	if err := c.store.FinishRun(ctx, testID, "completed"); err != nil {
		return nil, err
	}
	return report, nil
}

func (c *Crew) taskSpec(name string) core.TaskSpec {
	for _, spec := range c.taskSpecs {
		if spec.Name == name {
			return spec
		}
	}
	return core.TaskSpec{Name: name}
}

// renderLoose substitutes the placeholders it can resolve and leaves the
// rest in place, unlike core.RenderTemplate which rejects unresolved ones.
func renderLoose(template string, inputs map[string]string) (string, error) {
	out := template
	for _, name := range core.Placeholders(template) {
		if value, ok := inputs[name]; ok {
			out = strings.ReplaceAll(out, "{"+name+"}", value)
		}
	}
	return out, nil
}

func (c *Crew) evaluate(ctx context.Context, evaluator llm.Provider, model, description, expected, output string, inputs map[string]string) (float64, string, error) {
	// Templates may carry placeholders; render them so the evaluator sees
	// the same text the agent did.
	if rendered, err := renderLoose(description, inputs); err == nil {
		description = rendered
	}
	if rendered, err := renderLoose(expected, inputs); err == nil {
		expected = rendered
	}

	resp, err := evaluator.Chat(ctx, llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(evaluationPrompt, description, expected, output)},
		},
	})
	if err != nil {
		return 0, "", errors.New(errors.CodeLLMError, "evaluator call failed", err).WithRecoverable(true)
	}

	content := strings.TrimSpace(resp.Content)
	match := parseScore(content)
	if match == "" {
		return 0, "", errors.New(errors.CodeLLMError, "evaluator returned no numeric score", nil).
			WithContext("response", content)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil || score < 1 || score > 10 {
		return 0, "", errors.New(errors.CodeLLMError, "evaluator score out of range", err).
			WithContext("score", match)
	}
	return score, content, nil
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInternal, "marshaling training data", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(errors.CodeInternal, "creating training data directory", err).
				WithContext("path", path)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.CodeInternal, "writing training data", err).
			WithContext("path", path)
	}
	return nil
}
