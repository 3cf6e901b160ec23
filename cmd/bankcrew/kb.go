package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"bankcrew/pkg/config"
)

func runKB(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 {
		fatal(fmt.Errorf("usage: bankcrew kb <info|rebuild|backup|restore|delete|collections>"))
	}

	app, err := buildRetrieval(cfg)
	if err != nil {
		fatal(err)
	}

	switch args[0] {
	case "info":
		kbInfo(ctx, global, app)
	case "rebuild":
		force, err := parseRebuildFlags(args[1:])
		if err != nil {
			fatal(err)
		}
		if err := ensureIndex(ctx, cfg, app, force); err != nil {
			fatal(err)
		}
		fmt.Println("index rebuilt")
	case "backup":
		dest, err := app.Manager.Backup()
		if err != nil {
			fatal(err)
		}
		fmt.Printf("backup created at %s\n", dest)
	case "restore":
		if len(args) < 2 {
			fatal(fmt.Errorf("usage: bankcrew kb restore <backup-path>"))
		}
		if err := app.Manager.Restore(ctx, args[1]); err != nil {
			fatal(err)
		}
		fmt.Printf("index restored from %s\n", args[1])
	case "delete":
		cmd := flag.NewFlagSet("kb delete", flag.ContinueOnError)
		yes := cmd.Bool("yes", false, "skip the confirmation prompt")
		if err := cmd.Parse(args[1:]); err != nil {
			fatal(err)
		}
		if !*yes && !confirm(fmt.Sprintf("delete collection %q and directory %q?", cfg.Vector.Collection, cfg.Vector.DBPath)) {
			fmt.Println("aborted")
			return
		}
		if err := app.Manager.Delete(ctx); err != nil {
			fatal(err)
		}
		fmt.Println("index deleted")
	case "collections":
		names, err := app.Manager.Collections(ctx)
		if err != nil {
			fatal(err)
		}
		if global.JSON {
			printJSON(names)
			return
		}
		for _, name := range names {
			fmt.Println(name)
		}
	default:
		fatal(fmt.Errorf("unknown kb command %q", args[0]))
	}
}

// parseRebuildFlags parses the kb rebuild arguments. A plain rebuild skips
// when the index is fresh; --force re-embeds the corpus unconditionally.
func parseRebuildFlags(args []string) (bool, error) {
	cmd := flag.NewFlagSet("kb rebuild", flag.ContinueOnError)
	force := cmd.Bool("force", false, "rebuild even when the index is fresh")
	if err := cmd.Parse(args); err != nil {
		return false, err
	}
	return *force, nil
}

func kbInfo(ctx context.Context, global globalFlags, app *retrievalApp) {
	info, err := app.Manager.Info(ctx)
	if err != nil {
		fatal(err)
	}
	if global.JSON {
		printJSON(info)
		return
	}
	w := newTabWriter()
	writeRow(w, "PATH", info.Path)
	writeRow(w, "COLLECTION", info.Collection)
	writeRow(w, "POINTS", fmt.Sprintf("%d", info.Points))
	writeRow(w, "LAST UPDATE", formatTime(info.LastUpdate))
	writeRow(w, "COLLECTIONS", strings.Join(info.Collections, ", "))
	w.Flush()
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	fmt.Scanln(&answer)
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}

func writeRow(w *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		col = strings.TrimSpace(col)
		if col == "" {
			col = "-"
		}
		cols[i] = col
	}
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "never"
	}
	return value.UTC().Format(time.RFC3339)
}
