// Package normalizer canonicalizes loaded documents into the uniform record
// shape used by ingestion. Records whose content is blank are dropped and
// metadata is reduced to title, source, page and source type.
package normalizer

import (
	"math"
	"strings"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
)

// Metadata keys recognized on raw documents.
const (
	KeyTitle      = "title"
	KeySource     = "source"
	KeyPage       = "page"
	KeySourceType = "source_type"
)

// Normalize trims content, drops empty records and keeps only the canonical metadata fields.
func Normalize(raw []domain.RawDocument) []domain.Document {
	docs := make([]domain.Document, 0, len(raw))
	for _, r := range raw {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		docs = append(docs, domain.Document{
			Content:  content,
			Metadata: normalizeMetadata(r.Metadata),
		})
	}
	return docs
}

func normalizeMetadata(meta map[string]any) domain.DocumentMetadata {
	out := domain.DocumentMetadata{}
	if meta == nil {
		return out
	}

	if title, ok := meta[KeyTitle].(string); ok {
		out.Title = title
	}
	if source, ok := meta[KeySource].(string); ok {
		out.Source = &source
	}
	if page, ok := asInt(meta[KeyPage]); ok {
		out.Page = &page
	}
	switch st := meta[KeySourceType].(type) {
	case string:
		if s := domain.SourceType(st); s.IsValid() {
			out.SourceType = s
		}
	case domain.SourceType:
		if st.IsValid() {
			out.SourceType = st
		}
	}

	return out
}

// asInt accepts the integer shapes loaders and JSON decoding produce.
// Fractional or non-finite floats are treated as absent.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
