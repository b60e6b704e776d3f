package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localrag/internal/chunker"
	"localrag/internal/domain"
	"localrag/internal/embedding/features"
	"localrag/internal/vectorstore/memory"
)

type expanderFunc func(ctx context.Context, query string) []string

func (f expanderFunc) ExpandQuery(ctx context.Context, query string) []string { return f(ctx, query) }

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func newService(exp QueryExpander) *RAGService {
	return NewRAGService(chunker.NewSentenceChunker(1, 0), features.NewEmbedder(), memory.NewStorage(), Options{Expander: exp, Workers: 2})
}

var corpus = map[string]string{
	"cats.txt":  "Cats are small domesticated felines. They purr when content.",
	"go.txt":    "Go is a statically typed programming language. Goroutines are cheap.",
	"notes.md":  "Markdown is ignored by ingestion.",
	"empty.txt": "",
}

func TestIngestDocuments(t *testing.T) {
	dir := writeDocs(t, corpus)
	svc := newService(nil)

	stats, err := svc.IngestDocuments(context.Background(), []string{filepath.Join(dir, "*")})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestStats{Documents: 3, Chunks: 4}, stats)
}

func TestIngestDocuments_NothingFound(t *testing.T) {
	dir := writeDocs(t, map[string]string{"a.md": "x"})
	_, err := newService(nil).IngestDocuments(context.Background(), []string{filepath.Join(dir, "*")})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestIngestDocuments_MissingFile(t *testing.T) {
	_, err := newService(nil).IngestDocuments(context.Background(), []string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}

func TestQuery_ExactChunkRanksFirst(t *testing.T) {
	dir := writeDocs(t, corpus)
	svc := newService(nil)
	_, err := svc.IngestDocuments(context.Background(), []string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)

	res, err := svc.Query(context.Background(), "Goroutines are cheap.", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Goroutines are cheap."}, res.Variations)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "Goroutines are cheap.", res.Results[0].Chunk.Text)
	assert.InDelta(t, 1.0, res.Results[0].Score, 1e-9)
}

func TestQuery_MergesVariations(t *testing.T) {
	dir := writeDocs(t, corpus)
	var seen string
	svc := newService(expanderFunc(func(_ context.Context, q string) []string {
		seen = q
		return []string{q, "They purr when content.", q}
	}))
	_, err := svc.IngestDocuments(context.Background(), []string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)

	res, err := svc.Query(context.Background(), "Cats are small domesticated felines.", 4)
	require.NoError(t, err)
	assert.Equal(t, "Cats are small domesticated felines.", seen)
	assert.Len(t, res.Variations, 3)
	require.Len(t, res.Results, 4)

	// both exact matches surface with a perfect score, each chunk only once
	top := map[string]bool{res.Results[0].Chunk.Text: true, res.Results[1].Chunk.Text: true}
	assert.True(t, top["Cats are small domesticated felines."])
	assert.True(t, top["They purr when content."])
	ids := map[string]bool{}
	for _, r := range res.Results {
		assert.False(t, ids[r.Chunk.ChunkID], "duplicate chunk %s", r.Chunk.ChunkID)
		ids[r.Chunk.ChunkID] = true
	}
	for i := 1; i < len(res.Results); i++ {
		assert.GreaterOrEqual(t, res.Results[i-1].Score, res.Results[i].Score)
	}
}

func TestQuery_EmptyQueryFallsBackToLexical(t *testing.T) {
	dir := writeDocs(t, corpus)
	svc := newService(nil)
	_, err := svc.IngestDocuments(context.Background(), []string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)

	res, err := svc.Query(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Len(t, res.Results, 3)
	for _, r := range res.Results {
		assert.Zero(t, r.Score)
	}
}

func TestOverlapOchiai(t *testing.T) {
	q := toTokenSet("cats purr")
	assert.InDelta(t, 1.0, overlapOchiai(q, "Purr, cats!"), 1e-9)
	assert.Zero(t, overlapOchiai(q, "dogs bark"))
	assert.Zero(t, overlapOchiai(toTokenSet(""), "dogs bark"))
	assert.InDelta(t, 1/2.0, overlapOchiai(q, "cats sleep"), 1e-9)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "b", "a", "a"}))
}

func TestDocumentID_StablePerPath(t *testing.T) {
	assert.Equal(t, documentID("/a/b.txt"), documentID("/a/b.txt"))
	assert.NotEqual(t, documentID("/a/b.txt"), documentID("/a/c.txt"))
	assert.Len(t, documentID("/a/b.txt"), 36)
}
