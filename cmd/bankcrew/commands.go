package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"bankcrew/pkg/config"
	"bankcrew/pkg/knowledge"
)

// defaultTopic matches the pipeline's stock advisory subject.
const defaultTopic = "Personal Banking"

// ensureIndex builds the vector index if the knowledge files changed since
// the last build, so every entry point works against fresh data.
func ensureIndex(ctx context.Context, cfg *config.Config, app *retrievalApp, force bool) error {
	docs, err := knowledge.LoadDir(cfg.Knowledge.Dir)
	if err != nil {
		return err
	}
	stats, err := app.Index.Build(ctx, docs, force)
	if err != nil {
		return err
	}
	if !stats.Skipped {
		fmt.Fprintf(os.Stderr, "indexed %d documents into %d chunks\n", stats.Documents, stats.Chunks)
	}
	return nil
}

func runCrew(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	topic := cmd.String("topic", defaultTopic, "advisory topic")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}

	app, err := buildCrew(cfg)
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	if err := ensureIndex(ctx, cfg, app.Retrieval, false); err != nil {
		fatal(err)
	}

	result, err := app.Crew.Kickoff(ctx, map[string]string{"topic": *topic})
	if err != nil {
		fatal(err)
	}

	if global.JSON {
		printJSON(result)
		return
	}
	for _, tr := range result.Results {
		fmt.Printf("\n## %s (%s)\n\n%s\n", tr.Task, tr.Agent, tr.Output)
		if tr.OutputFile != "" {
			fmt.Printf("\n[written to %s]\n", tr.OutputFile)
		}
	}
}

func runRag(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("rag", flag.ContinueOnError)
	topic := cmd.String("topic", "Banking Services", "advisory topic for the answering agent")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}

	app, err := buildCrew(cfg)
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	if err := ensureIndex(ctx, cfg, app.Retrieval, false); err != nil {
		fatal(err)
	}

	ask := func(question string) {
		answer, err := app.Crew.AnswerQuestion(ctx, question, *topic)
		if err != nil {
			fatal(err)
		}
		if global.JSON {
			printJSON(map[string]string{"question": question, "answer": answer})
			return
		}
		fmt.Println(answer)
	}

	if question := strings.TrimSpace(strings.Join(cmd.Args(), " ")); question != "" {
		ask(question)
		return
	}

	// No question on the command line: prompt interactively.
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "question> ")
		line, err := reader.ReadString('\n')
		question := strings.TrimSpace(line)
		if question == "exit" || question == "quit" {
			return
		}
		if question != "" {
			ask(question)
		}
		if err != nil {
			return
		}
	}
}

func runTrain(ctx context.Context, _ globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("train", flag.ContinueOnError)
	iterations := cmd.Int("n", 1, "number of training iterations")
	output := cmd.String("o", "trained_agents_data.json", "training data output file")
	topic := cmd.String("topic", defaultTopic, "advisory topic")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}

	app, err := buildCrew(cfg)
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	if err := ensureIndex(ctx, cfg, app.Retrieval, false); err != nil {
		fatal(err)
	}

	reader := bufio.NewReader(os.Stdin)
	err = app.Crew.Train(ctx, *iterations, *output, map[string]string{"topic": *topic}, stdinFeedback(reader))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("training data written to %s\n", *output)
}

func runReplay(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("replay", flag.ContinueOnError)
	taskName := cmd.String("t", "", "task to replay from")
	topic := cmd.String("topic", defaultTopic, "advisory topic")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	if *taskName == "" {
		fatal(fmt.Errorf("usage: bankcrew replay -t <task>"))
	}

	app, err := buildCrew(cfg)
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	if err := ensureIndex(ctx, cfg, app.Retrieval, false); err != nil {
		fatal(err)
	}

	result, err := app.Crew.Replay(ctx, *taskName, map[string]string{"topic": *topic})
	if err != nil {
		fatal(err)
	}
	if global.JSON {
		printJSON(result)
		return
	}
	fmt.Println(result.Final)
}

func runTest(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("test", flag.ContinueOnError)
	iterations := cmd.Int("n", 1, "number of test iterations")
	model := cmd.String("m", cfg.LLM.Model, "evaluator model")
	topic := cmd.String("topic", defaultTopic, "advisory topic")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}

	app, err := buildCrew(cfg)
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	if err := ensureIndex(ctx, cfg, app.Retrieval, false); err != nil {
		fatal(err)
	}

	report, err := app.Crew.Test(ctx, *iterations, newEvaluator(cfg), *model, map[string]string{"topic": *topic})
	if err != nil {
		fatal(err)
	}

	if global.JSON {
		printJSON(report)
		return
	}
	w := newTabWriter()
	writeRow(w, "ITERATION", "TASK", "SCORE", "COMMENT")
	for _, sc := range report.Scores {
		writeRow(w, fmt.Sprintf("%d", sc.Iteration), sc.TaskName, fmt.Sprintf("%.1f", sc.Score), truncate(sc.Comment, 60))
	}
	w.Flush()
	fmt.Printf("\nmean score: %.2f\n", report.Mean)
	for task, mean := range report.TaskMeans {
		fmt.Printf("  %s: %.2f\n", task, mean)
	}
}

func printJSON(value any) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(payload))
}
