package service

import (
	"context"
	"fmt"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/telemetry"
	"github.com/marianoInsa/ChatBot-RAG/internal/vectorstore"
)

// IngestionPipeline splits documents into chunks and embeds them into a vector index.
// It holds no per-call state.
type IngestionPipeline struct {
	uuidGen UUIDGenerator
}

// NewIngestionPipeline creates a new IngestionPipeline instance
func NewIngestionPipeline(uuidGen UUIDGenerator) *IngestionPipeline {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &IngestionPipeline{uuidGen: uuidGen}
}

// Split chunks every document and tags each chunk with a fresh id and its document's metadata.
func (p *IngestionPipeline) Split(docs []domain.Document, cfg ChunkConfig) ([]domain.Chunk, error) {
	splitter, err := NewTextSplitter(cfg)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		for _, text := range splitter.SplitText(doc.Content) {
			chunks = append(chunks, domain.Chunk{
				ID:       p.uuidGen.NewString(),
				Content:  text,
				Metadata: doc.Metadata,
			})
		}
	}
	return chunks, nil
}

// Create builds a new index from docs. Zero resulting chunks is an error.
func (p *IngestionPipeline) Create(ctx context.Context, docs []domain.Document, cfg ChunkConfig, embedder vectorstore.Embedder) (*vectorstore.Index, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionPipeline.Create", telemetry.SpanAttributes{
		Operation: "create_index",
	})
	defer span.End()

	chunks, err := p.Split(docs, cfg)
	if err != nil {
		return nil, 0, err
	}
	if len(chunks) == 0 {
		return nil, 0, domain.ErrNoChunks
	}

	index, err := vectorstore.FromChunks(ctx, embedder, chunks)
	if err != nil {
		span.SetError(err)
		return nil, 0, fmt.Errorf("failed to build vector index: %w", err)
	}

	return index, len(chunks), nil
}

// Append adds docs to an existing index. Zero resulting chunks inserts nothing and is not an error.
func (p *IngestionPipeline) Append(ctx context.Context, index *vectorstore.Index, docs []domain.Document, cfg ChunkConfig) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionPipeline.Append", telemetry.SpanAttributes{
		Operation: "append_index",
	})
	defer span.End()

	chunks, err := p.Split(docs, cfg)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := index.AddChunks(ctx, chunks); err != nil {
		span.SetError(err)
		return 0, fmt.Errorf("failed to append to vector index: %w", err)
	}

	return len(chunks), nil
}
