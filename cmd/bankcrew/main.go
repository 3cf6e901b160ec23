// Command bankcrew runs the banking advisory crew: the full sequential
// pipeline, single-question retrieval, training, replay, evaluation, and
// knowledge base administration.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bankcrew/pkg/config"
	"bankcrew/pkg/crew"
	"bankcrew/pkg/llm"
	"bankcrew/pkg/mcp"
	"bankcrew/pkg/telemetry"
)

const version = "0.1.0"

type globalFlags struct {
	ConfigArgs []string
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		fatal(err)
	}
	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("bankcrew", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		fatal(err)
	}
	defer shutdown(context.Background())

	switch args[0] {
	case "run":
		runCrew(ctx, global, cfg, args[1:])
	case "rag":
		runRag(ctx, global, cfg, args[1:])
	case "train":
		runTrain(ctx, global, cfg, args[1:])
	case "replay":
		runReplay(ctx, global, cfg, args[1:])
	case "test":
		runTest(ctx, global, cfg, args[1:])
	case "kb":
		runKB(ctx, global, cfg, args[1:])
	case "mcp":
		runMCP(cfg, args[1:])
	case "help":
		printUsage()
	case "version":
		fmt.Println(version)
	default:
		fatal(fmt.Errorf("unknown command %q", args[0]))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	var global globalFlags
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			global.Help = true
		case arg == "--json":
			global.JSON = true
		case arg == "--config":
			if i+1 >= len(args) {
				return global, nil, fmt.Errorf("missing value for --config")
			}
			global.ConfigArgs = append(global.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="):
			global.ConfigArgs = append(global.ConfigArgs, arg)
		case arg == "--set":
			if i+1 >= len(args) {
				return global, nil, fmt.Errorf("missing value for --set")
			}
			global.ConfigArgs = append(global.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--set="):
			global.ConfigArgs = append(global.ConfigArgs, arg)
		default:
			rest = append(rest, args[i:]...)
			return global, rest, nil
		}
	}
	return global, rest, nil
}

func runMCP(cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "serve" {
		fatal(fmt.Errorf("usage: bankcrew mcp serve"))
	}
	app, err := buildRetrieval(cfg)
	if err != nil {
		fatal(err)
	}
	server := mcp.NewServer("bankcrew-knowledge", version, app.KnowledgeTool)
	if err := server.ServeStdio(); err != nil {
		fatal(err)
	}
}

// stdinFeedback prompts on the terminal for feedback after each training
// task output.
func stdinFeedback(reader *bufio.Reader) crew.FeedbackFunc {
	return func(taskName, output string) (string, error) {
		fmt.Printf("\n=== %s ===\n%s\n\nFeedback (enter to skip): ", taskName, output)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

func newEvaluator(cfg *config.Config) llm.Provider {
	return llm.NewOllama(cfg.LLM.BaseURL)
}

func printUsage() {
	fmt.Println(`bankcrew - banking advisory agent crew

Usage:
  bankcrew [global flags] <command> [args]

Global flags:
  --config <path>      Path to bankcrew.yaml
  --set key=value      Override config (repeatable)
  --json               JSON output

Commands:
  run [--topic <text>]                Run the full advisory pipeline
  rag [question]                      Answer questions with the knowledge base
                                      (interactive when no question is given)
  train -n <iterations> [-o <file>]   Run training iterations with feedback
  replay -t <task>                    Replay the latest run from a task onward
  test -n <iterations> [-m <model>]   Evaluate the crew with an LLM judge
  kb info                             Show knowledge base state
  kb rebuild [--force]                Rebuild the vector index
  kb backup                           Back up the index directory
  kb restore <path>                   Restore the index from a backup
  kb delete [--yes]                   Delete the index and its collection
  kb collections                      List vector store collections
  mcp serve                           Serve the knowledge tool over MCP stdio
  version
  help`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, remediate(err))
	os.Exit(1)
}
