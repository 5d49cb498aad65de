// Package vectorstore holds a tenant's chunks and their embeddings in memory
// and answers similarity and maximal-marginal-relevance queries over them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
)

var (
	// ErrEmbeddingMismatch is returned when an embedder returns a different number of vectors than texts
	ErrEmbeddingMismatch = errors.New("embedder returned a different number of vectors than texts")
	// ErrDimensionMismatch is returned when vectors of different sizes are mixed in one index
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Embedder turns text into vectors. Documents and queries may be embedded differently.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index is a brute-force cosine index bound to the embedder that built it.
type Index struct {
	mu        sync.RWMutex
	embedder  Embedder
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float32
}

// New creates an empty index.
func New(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// FromChunks creates an index and embeds the given chunks into it.
func FromChunks(ctx context.Context, embedder Embedder, chunks []domain.Chunk) (*Index, error) {
	idx := New(embedder)
	if err := idx.AddChunks(ctx, chunks); err != nil {
		return nil, err
	}
	return idx, nil
}

// AddChunks embeds chunks and appends them. Embedding runs without holding the lock.
func (i *Index) AddChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Content
	}

	vectors, err := i.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return ErrEmbeddingMismatch
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	dim := i.dimension
	for _, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return ErrDimensionMismatch
		}
	}
	i.dimension = dim

	i.chunks = append(i.chunks, chunks...)
	i.vectors = append(i.vectors, vectors...)
	return nil
}

// Len returns the number of chunks in the index.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// ScoredChunk is a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk domain.Chunk
	Score float64
}

// SimilaritySearch returns the k chunks closest to the query, best first.
func (i *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	queryVec, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	results := i.topK(queryVec, k)
	out := make([]ScoredChunk, len(results))
	for n, r := range results {
		out[n] = ScoredChunk{Chunk: i.chunks[r.idx], Score: r.score}
	}
	return out, nil
}

// MaxMarginalRelevanceSearch fetches the fetchK most similar chunks and
// reranks them with MMR, returning at most k. lambda=1 is pure relevance,
// lambda=0 is pure diversity.
func (i *Index) MaxMarginalRelevanceSearch(ctx context.Context, query string, k, fetchK int, lambda float64) ([]domain.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if fetchK < k {
		fetchK = k
	}

	queryVec, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	candidates := i.topK(queryVec, fetchK)
	if len(candidates) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(candidates))
	for n, c := range candidates {
		vectors[n] = i.vectors[c.idx]
	}

	picked := maxMarginalRelevance(queryVec, vectors, k, lambda)
	out := make([]domain.Chunk, len(picked))
	for n, p := range picked {
		out[n] = i.chunks[candidates[p].idx]
	}
	return out, nil
}

type scored struct {
	idx   int
	score float64
}

// topK must be called with the read lock held.
func (i *Index) topK(query []float32, k int) []scored {
	if k <= 0 || len(i.vectors) == 0 {
		return nil
	}

	scores := make([]scored, len(i.vectors))
	for n, v := range i.vectors {
		scores[n] = scored{idx: n, score: cosineSimilarity(query, v)}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}
