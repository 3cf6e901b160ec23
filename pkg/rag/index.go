// Package rag builds and queries the banking knowledge index: chunking,
// embedding, vector search with maximal marginal relevance re-ranking, and
// the on-disk index directory with its staleness marker.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bankcrew/pkg/errors"
	"bankcrew/pkg/knowledge"
	"bankcrew/pkg/memory"
	"bankcrew/pkg/resilience"
	"bankcrew/pkg/telemetry"
)

// lastUpdateFile marks when the index was last built; knowledge files
// modified after it make the index stale.
const lastUpdateFile = "last_update"

// Options configures index building and retrieval.
type Options struct {
	Collection     string
	DBPath         string
	TopK           int
	FetchK         int
	LambdaMult     float64
	ScoreThreshold float32
	ChunkSize      int
	ChunkOverlap   int
}

// DefaultOptions returns the retrieval parameters tuned for the banking
// corpus.
func DefaultOptions() Options {
	return Options{
		Collection:     "banking_knowledge",
		DBPath:         "vector_db",
		TopK:           5,
		FetchK:         10,
		LambdaMult:     0.5,
		ScoreThreshold: 0.3,
		ChunkSize:      1000,
		ChunkOverlap:   200,
	}
}

// Index ties a vector store and an embedder together into a searchable
// knowledge index.
type Index struct {
	store    memory.VectorStore
	embedder memory.Embedder
	opts     Options
	logger   *slog.Logger
	tracer   trace.Tracer
	retry    resilience.RetryConfig
}

// NewIndex creates an Index over the given store and embedder.
func NewIndex(store memory.VectorStore, embedder memory.Embedder, opts Options) *Index {
	return &Index{
		store:    store,
		embedder: embedder,
		opts:     opts,
		logger:   slog.Default().With("component", "rag"),
		tracer:   otel.Tracer("bankcrew/rag"),
		retry:    resilience.DefaultRetryConfig(),
	}
}

// BuildStats summarizes an index build.
type BuildStats struct {
	Documents int
	Chunks    int
	Skipped   bool
	Duration  time.Duration
}

// Stale reports whether any document was modified after the last build.
// A missing marker means the index was never built.
func (ix *Index) Stale(docs []knowledge.Document) bool {
	info, err := os.Stat(filepath.Join(ix.opts.DBPath, lastUpdateFile))
	if err != nil {
		return true
	}
	for _, doc := range docs {
		if doc.Modified.After(info.ModTime()) {
			return true
		}
	}
	return false
}

// Build chunks, embeds, and upserts the documents. Unless force is set, a
// fresh index is left untouched.
func (ix *Index) Build(ctx context.Context, docs []knowledge.Document, force bool) (*BuildStats, error) {
	ctx, span := ix.tracer.Start(ctx, "rag.build")
	defer span.End()

	start := time.Now()
	if !force && !ix.Stale(docs) {
		ix.logger.InfoContext(ctx, "index is up to date, skipping build")
		return &BuildStats{Documents: len(docs), Skipped: true}, nil
	}

	if err := knowledge.Validate(docs); err != nil {
		return nil, err
	}

	splitter := knowledge.NewSplitter(ix.opts.ChunkSize, ix.opts.ChunkOverlap)
	var chunks []knowledge.Chunk
	for _, doc := range docs {
		chunks = append(chunks, splitter.SplitDocument(doc)...)
	}
	span.SetAttributes(telemetry.IndexAttributes(ix.opts.Collection, len(docs), len(chunks))...)

	points := make([]memory.Point, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := ix.embed(ctx, chunk.Text)
		if err != nil {
			return nil, errors.AsCrewError(err).
				WithContext("source", chunk.Source).
				WithContext("seq", chunk.Seq)
		}
		points = append(points, memory.Point{
			// Deterministic IDs keep rebuilds idempotent.
			ID:     uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", chunk.Source, chunk.Seq))).String(),
			Vector: vec,
			Payload: map[string]interface{}{
				"text":   chunk.Text,
				"source": chunk.Source,
				"seq":    chunk.Seq,
			},
		})
	}

	if len(points) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "no chunks produced from knowledge documents", nil)
	}

	if err := ix.store.EnsureCollection(ctx, ix.opts.Collection, uint64(len(points[0].Vector))); err != nil {
		return nil, err
	}
	if err := ix.store.Upsert(ctx, ix.opts.Collection, points); err != nil {
		return nil, err
	}

	if err := writeSnapshot(ix.opts.DBPath, points); err != nil {
		return nil, err
	}
	if err := touchMarker(ix.opts.DBPath); err != nil {
		return nil, err
	}

	stats := &BuildStats{Documents: len(docs), Chunks: len(points), Duration: time.Since(start)}
	ix.logger.InfoContext(ctx, "index built",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"duration", stats.Duration,
	)
	return stats, nil
}

// Result is one retrieved chunk with its provenance.
type Result struct {
	Text   string
	Source string
	Score  float32
}

// Search embeds the query, fetches FetchK candidates above the score
// threshold, and re-ranks them with maximal marginal relevance down to TopK.
func (ix *Index) Search(ctx context.Context, query string) ([]Result, error) {
	ctx, span := ix.tracer.Start(ctx, "rag.search")
	defer span.End()

	queryVec, err := ix.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := ix.store.Search(ctx, ix.opts.Collection, queryVec, ix.opts.FetchK, ix.opts.ScoreThreshold)
	if err != nil {
		return nil, err
	}

	picked := maxMarginalRelevance(queryVec, candidates, ix.opts.TopK, ix.opts.LambdaMult)
	span.SetAttributes(telemetry.RetrievalAttributes(ix.opts.Collection, len(candidates), len(picked))...)

	results := make([]Result, 0, len(picked))
	for _, r := range picked {
		text, _ := r.Point.Payload["text"].(string)
		source, _ := r.Point.Payload["source"].(string)
		results = append(results, Result{Text: text, Source: source, Score: r.Score})
	}
	return results, nil
}

// FormatResults renders retrieval results for inclusion in an agent prompt.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("Source: %s\n\nContent:\n%s", r.Source, r.Text)
	}
	return strings.Join(parts, "\n---\n")
}

func (ix *Index) embed(ctx context.Context, text string) ([]float32, error) {
	res, err := ix.retry.DoWithResult(ctx, func() (interface{}, error) {
		return ix.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return res.([]float32), nil
}

func touchMarker(dbPath string) error {
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return errors.New(errors.CodeInternal, "creating index directory", err).
			WithContext("path", dbPath)
	}
	path := filepath.Join(dbPath, lastUpdateFile)
	if err := os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return errors.New(errors.CodeInternal, "writing index marker", err).
			WithContext("path", path)
	}
	return nil
}

// LastUpdate returns when the index was last built, or the zero time when it
// never was.
func LastUpdate(dbPath string) time.Time {
	info, err := os.Stat(filepath.Join(dbPath, lastUpdateFile))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
