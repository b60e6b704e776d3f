package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"localrag/internal/domain"
	"localrag/internal/embedding"
	"localrag/internal/similarity"
)

// QueryExpander broadens a query into variations; element 0 is the query.
type QueryExpander interface {
	ExpandQuery(ctx context.Context, query string) []string
}

// ErrNoDocuments is returned when ingestion finds nothing to index.
var ErrNoDocuments = errors.New("no .txt documents found")

// RAGService ingests text files and answers queries: every variation of the
// query is embedded and searched, and the results are merged per chunk.
type RAGService struct {
	chunker  domain.Chunker
	embedder embedding.Embedder
	store    domain.VectorStore
	expander QueryExpander
	workers  int
	log      *slog.Logger

	mu     sync.RWMutex
	chunks []domain.Chunk
}

// Options carries the optional collaborators of a RAGService.
type Options struct {
	// Expander may be nil, in which case queries are not expanded.
	Expander QueryExpander
	// Workers bounds concurrent embedding calls; 0 means unbounded.
	Workers int
	Logger  *slog.Logger
}

// NewRAGService wires the service.
func NewRAGService(chunker domain.Chunker, embedder embedding.Embedder, store domain.VectorStore, opts Options) *RAGService {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RAGService{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		expander: opts.Expander,
		workers:  opts.Workers,
		log:      log.With("component", "service"),
	}
}

// IngestDocuments reads .txt files (globs allowed), chunks and embeds them and
// replaces the store contents.
func (s *RAGService) IngestDocuments(ctx context.Context, paths []string) (domain.IngestStats, error) {
	var documents []domain.Document
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if !strings.HasSuffix(strings.ToLower(m), ".txt") {
				s.log.Debug("skipping non-text file", "path", m)
				continue
			}
			data, err := os.ReadFile(m)
			if err != nil {
				return domain.IngestStats{}, err
			}
			documents = append(documents, domain.Document{ID: documentID(m), Path: m, Content: string(data)})
		}
	}
	if len(documents) == 0 {
		return domain.IngestStats{}, ErrNoDocuments
	}

	var allChunks []domain.Chunk
	var allTexts []string
	for _, d := range documents {
		chunks, err := s.chunker.Chunk(d)
		if err != nil {
			return domain.IngestStats{}, fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		for _, ch := range chunks {
			allChunks = append(allChunks, ch)
			allTexts = append(allTexts, ch.Text)
		}
	}
	if len(allChunks) == 0 {
		return domain.IngestStats{}, fmt.Errorf("documents contain no text")
	}

	vectors, err := embedding.EmbedAll(ctx, s.embedder, allTexts, s.workers)
	if err != nil {
		return domain.IngestStats{}, err
	}
	raw := make([][]float64, len(vectors))
	for i, v := range vectors {
		raw[i] = v
	}
	if err := s.store.Init(len(raw[0])); err != nil {
		return domain.IngestStats{}, err
	}
	if err := s.store.Upsert(allChunks, raw); err != nil {
		return domain.IngestStats{}, err
	}

	// Keep chunks for fallback ranking
	s.mu.Lock()
	s.chunks = allChunks
	s.mu.Unlock()

	stats := domain.IngestStats{Documents: len(documents), Chunks: len(allChunks)}
	s.log.Info("documents ingested", "documents", stats.Documents, "chunks", stats.Chunks, "embedder", s.embedder.Name())
	return stats, nil
}

// Query expands query, searches every distinct variation and merges the hits,
// keeping the best score per chunk.
func (s *RAGService) Query(ctx context.Context, query string, topK int) (domain.QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}
	variations := []string{query}
	if s.expander != nil {
		variations = s.expander.ExpandQuery(ctx, query)
	}
	distinct := dedupe(variations)

	vectors, err := embedding.EmbedAll(ctx, s.embedder, distinct, s.workers)
	if err != nil {
		return domain.QueryResult{}, err
	}
	best := make(map[string]domain.SearchResult)
	for i, vec := range vectors {
		if similarity.IsZero(vec) {
			continue
		}
		hits, err := s.store.Search(vec, topK)
		if err != nil {
			return domain.QueryResult{}, fmt.Errorf("search variation %q: %w", distinct[i], err)
		}
		for _, h := range hits {
			if cur, ok := best[h.Chunk.ChunkID]; !ok || h.Score > cur.Score {
				best[h.Chunk.ChunkID] = h
			}
		}
	}
	results := rank(best, topK)
	if allZero(results) {
		s.log.Debug("vector search found nothing, using lexical ranking", "query", query)
		results = s.lexicalSearch(distinct, topK)
	}
	return domain.QueryResult{Variations: variations, Results: results}, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func rank(best map[string]domain.SearchResult, topK int) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.ChunkID < out[j].Chunk.ChunkID
	})
	if topK < len(out) {
		out = out[:topK]
	}
	return out
}

func allZero(results []domain.SearchResult) bool {
	for _, r := range results {
		if r.Score > 1e-9 {
			return false
		}
	}
	return true
}

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// lexicalSearch ranks stored chunks by token overlap with any of the queries.
func (s *RAGService) lexicalSearch(queries []string, topK int) []domain.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qsets := make([]map[string]struct{}, len(queries))
	for i, q := range queries {
		qsets[i] = toTokenSet(q)
	}
	out := make([]domain.SearchResult, 0, len(s.chunks))
	for _, ch := range s.chunks {
		score := 0.0
		for _, qs := range qsets {
			score = math.Max(score, overlapOchiai(qs, ch.Text))
		}
		out = append(out, domain.SearchResult{Chunk: ch, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK < len(out) {
		out = out[:topK]
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over distinct tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	tset := toTokenSet(text)
	if len(qset) == 0 || len(tset) == 0 {
		return 0
	}
	inter := 0
	for t := range tset {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(tset)))
}

// documentID is stable for a path across runs.
func documentID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}
