package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "banking.txt", "# Checking Accounts\nLow fees.\n")
	writeFile(t, dir, "aaa.txt", "# Savings Accounts\nInterest.\n")
	writeFile(t, dir, "ignore.md", "not loaded")

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Source != "aaa.txt" || docs[1].Source != "banking.txt" {
		t.Errorf("documents not sorted by name: %q, %q", docs[0].Source, docs[1].Source)
	}
	if docs[0].Modified.IsZero() {
		t.Error("expected modification time to be set")
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestHeadings(t *testing.T) {
	text := "# Checking Accounts\nbody\n## Fees\nmore\nplain line\n###   Mortgages  \n"
	got := Headings(text)
	want := []string{"Checking Accounts", "Fees", "Mortgages"}
	if len(got) != len(want) {
		t.Fatalf("expected %d headings, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestValidate(t *testing.T) {
	good := []Document{{Source: "a.txt", Text: "# Title\nbody"}}
	if err := Validate(good); err != nil {
		t.Errorf("expected valid corpus, got %v", err)
	}
	if err := Validate(nil); err == nil {
		t.Error("expected error for empty corpus")
	}
	if err := Validate([]Document{{Source: "b.txt", Text: "  \n"}}); err == nil {
		t.Error("expected error for empty document")
	}
	if err := Validate([]Document{{Source: "c.txt", Text: "no heading here"}}); err == nil {
		t.Error("expected error for document without headings")
	}
}

func TestSplitShortText(t *testing.T) {
	s := NewSplitter(1000, 200)
	chunks := s.Split("A short paragraph that fits in one chunk.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewSplitter(100, 20)
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Sentence number provides filler text. ")
	}
	chunks := s.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d exceeds size limit: %d chars", i, len(c))
		}
	}
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	s := NewSplitter(60, 10)
	text := "First paragraph stays together.\n\nSecond paragraph stays together."
	chunks := s.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[0], "First paragraph") {
		t.Errorf("unexpected first chunk: %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "Second paragraph") {
		t.Errorf("unexpected second chunk: %q", chunks[1])
	}
}

func TestSplitOverlap(t *testing.T) {
	s := NewSplitter(50, 25)
	text := strings.Repeat("alpha beta gamma delta epsilon ", 10)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Consecutive chunks share trailing words within the overlap window.
	tail := chunks[0][len(chunks[0])-5:]
	if !strings.Contains(chunks[1], strings.TrimSpace(tail)) {
		t.Errorf("expected overlap between chunks: %q not in %q", tail, chunks[1])
	}
}

func TestSplitDocument(t *testing.T) {
	s := NewSplitter(1000, 200)
	doc := Document{Source: "banking.txt", Text: "# Checking\nShort body."}
	chunks := s.SplitDocument(doc)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Source != "banking.txt" || chunks[0].Seq != 0 {
		t.Errorf("unexpected chunk metadata: %+v", chunks[0])
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
