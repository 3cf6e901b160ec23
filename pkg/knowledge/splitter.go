package knowledge

import "strings"

// Chunk is one piece of a split document, carrying enough metadata to cite
// its origin in retrieval results.
type Chunk struct {
	Text   string
	Source string
	Seq    int
}

// Splitter divides text recursively: paragraph breaks first, then lines,
// sentences, words, and finally single characters, merging the pieces back
// into chunks of at most ChunkSize with ChunkOverlap characters of carryover
// between consecutive chunks.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewSplitter returns a splitter with the given chunk size and overlap and
// the standard separator ladder.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   []string{"\n\n", "\n", ". ", " ", ""},
	}
}

// SplitDocument splits a document and tags each chunk with the document
// source and a sequence number.
func (s *Splitter) SplitDocument(doc Document) []Chunk {
	parts := s.Split(doc.Text)
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, Chunk{Text: part, Source: doc.Source, Seq: i})
	}
	return chunks
}

// Split breaks text into chunks of at most ChunkSize characters.
func (s *Splitter) Split(text string) []string {
	pieces := s.split(text, s.Separators)
	return s.merge(pieces)
}

func (s *Splitter) split(text string, separators []string) []string {
	if text == "" {
		return nil
	}

	// Pick the first separator that occurs in the text; the empty string
	// always matches and falls back to character-level splitting.
	sep := separators[len(separators)-1]
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		split := strings.Split(text, sep)
		// Re-attach the separator so no characters are lost on merge.
		for i, part := range split {
			if i < len(split)-1 {
				part += sep
			}
			if part != "" {
				parts = append(parts, part)
			}
		}
	}

	var out []string
	for _, part := range parts {
		if len(part) <= s.ChunkSize || len(rest) == 0 {
			out = append(out, part)
			continue
		}
		out = append(out, s.split(part, rest)...)
	}
	return out
}

// merge joins adjacent pieces into chunks no larger than ChunkSize, carrying
// up to ChunkOverlap characters of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(current, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		// Keep trailing pieces within the overlap window as the seed of
		// the next chunk.
		var kept []string
		keptLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			if keptLen+len(current[i]) > s.ChunkOverlap {
				break
			}
			keptLen += len(current[i])
			kept = append([]string{current[i]}, kept...)
		}
		current = kept
		currentLen = keptLen
	}

	for _, piece := range pieces {
		if currentLen+len(piece) > s.ChunkSize && currentLen > 0 {
			flush()
		}
		current = append(current, piece)
		currentLen += len(piece)
	}
	if currentLen > 0 {
		chunk := strings.TrimSpace(strings.Join(current, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
