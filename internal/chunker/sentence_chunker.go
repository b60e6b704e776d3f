package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"localrag/internal/domain"
)

var sentenceRe = regexp.MustCompile(`(?s)[^.!?]+[.!?]+`)

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

// NewSentenceChunker creates a chunker; non-positive sizes fall back to 5
// sentences per chunk and overlap is kept below the chunk size.
func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{sentencesPerChunk: sentencesPerChunk, overlapSentences: overlapSentences}
}

// Chunk splits document content into overlapping windows of sentences.
func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	sentences := splitSentences(document.Content)
	if len(sentences) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	step := c.sentencesPerChunk - c.overlapSentences
	for start, idx := 0, 0; start < len(sentences); start, idx = start+step, idx+1 {
		end := min(start+c.sentencesPerChunk, len(sentences))
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       strings.Join(sentences[start:end], " "),
			Index:      idx,
		})
		if end == len(sentences) {
			break
		}
	}
	return chunks, nil
}

// splitSentences keeps a trailing fragment without terminal punctuation.
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if s := strings.Join(strings.Fields(text[loc[0]:loc[1]]), " "); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if tail := strings.Join(strings.Fields(text[last:]), " "); tail != "" {
		out = append(out, tail)
	}
	return out
}
