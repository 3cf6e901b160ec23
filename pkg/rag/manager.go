package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bankcrew/pkg/errors"
	"bankcrew/pkg/memory"
)

const snapshotFile = "snapshot.json"

// Manager administers the index directory and its collection: inspection,
// backup, restore, and deletion.
type Manager struct {
	store      memory.VectorStore
	dbPath     string
	collection string
	logger     *slog.Logger
}

// NewManager creates a Manager for the given store and index directory.
func NewManager(store memory.VectorStore, dbPath, collection string) *Manager {
	return &Manager{
		store:      store,
		dbPath:     dbPath,
		collection: collection,
		logger:     slog.Default().With("component", "rag.manager"),
	}
}

// Info describes the current state of the index.
type Info struct {
	Path        string
	Collection  string
	Points      uint64
	LastUpdate  time.Time
	Collections []string
}

// Info reports point counts and the last build time.
func (m *Manager) Info(ctx context.Context) (*Info, error) {
	count, err := m.store.Count(ctx, m.collection)
	if err != nil {
		return nil, err
	}
	collections, err := m.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{
		Path:        m.dbPath,
		Collection:  m.collection,
		Points:      count,
		LastUpdate:  LastUpdate(m.dbPath),
		Collections: collections,
	}, nil
}

// Collections lists the collections in the vector store.
func (m *Manager) Collections(ctx context.Context) ([]string, error) {
	return m.store.ListCollections(ctx)
}

// Backup copies the index directory, snapshot included, to a timestamped
// sibling directory and returns its path.
func (m *Manager) Backup() (string, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return "", errors.New(errors.CodeNotFound, "index directory does not exist", err).
			WithContext("path", m.dbPath)
	}
	dest := fmt.Sprintf("%s_backup_%s", strings.TrimRight(m.dbPath, "/"), time.Now().Format("20060102_150405"))
	if err := copyDir(m.dbPath, dest); err != nil {
		return "", err
	}
	m.logger.Info("index backed up", "dest", dest)
	return dest, nil
}

// Restore replaces the index directory with a backup and re-upserts the
// snapshot points into the collection.
func (m *Manager) Restore(ctx context.Context, backupPath string) error {
	points, err := readSnapshot(backupPath)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(m.dbPath); err != nil {
		return errors.New(errors.CodeInternal, "removing index directory", err).
			WithContext("path", m.dbPath)
	}
	if err := copyDir(backupPath, m.dbPath); err != nil {
		return err
	}

	if len(points) > 0 {
		if err := m.store.EnsureCollection(ctx, m.collection, uint64(len(points[0].Vector))); err != nil {
			return err
		}
		if err := m.store.Upsert(ctx, m.collection, points); err != nil {
			return err
		}
	}
	m.logger.Info("index restored", "backup", backupPath, "points", len(points))
	return nil
}

// Delete drops the collection and removes the index directory.
func (m *Manager) Delete(ctx context.Context) error {
	if err := m.store.DeleteCollection(ctx, m.collection); err != nil {
		return err
	}
	if err := os.RemoveAll(m.dbPath); err != nil {
		return errors.New(errors.CodeInternal, "removing index directory", err).
			WithContext("path", m.dbPath)
	}
	m.logger.Info("index deleted", "collection", m.collection, "path", m.dbPath)
	return nil
}

type snapshotPoint struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

// writeSnapshot persists the indexed points so a backup can be restored into
// a fresh vector store.
func writeSnapshot(dbPath string, points []memory.Point) error {
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return errors.New(errors.CodeInternal, "creating index directory", err).
			WithContext("path", dbPath)
	}
	snap := make([]snapshotPoint, len(points))
	for i, p := range points {
		snap[i] = snapshotPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.New(errors.CodeInternal, "marshaling index snapshot", err)
	}
	path := filepath.Join(dbPath, snapshotFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.CodeInternal, "writing index snapshot", err).
			WithContext("path", path)
	}
	return nil
}

func readSnapshot(dbPath string) ([]memory.Point, error) {
	path := filepath.Join(dbPath, snapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeNotFound, "reading index snapshot", err).
			WithContext("path", path)
	}
	var snap []snapshotPoint
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.New(errors.CodeInternal, "parsing index snapshot", err).
			WithContext("path", path)
	}
	points := make([]memory.Point, len(snap))
	for i, p := range snap {
		points[i] = memory.Point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	return points, nil
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.New(errors.CodeInternal, "walking index directory", err).
				WithContext("path", path)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.New(errors.CodeInternal, "opening file for copy", err).
			WithContext("path", src)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return errors.New(errors.CodeInternal, "creating file copy", err).
			WithContext("path", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.New(errors.CodeInternal, "copying file", err).
			WithContext("path", dest)
	}
	return nil
}
