package domain

// SourceType identifies where a document came from
type SourceType string

const (
	SourceTypePDF SourceType = "pdf"
	SourceTypeWeb SourceType = "web"
)

// IsValid reports whether the source type is one of the known kinds
func (s SourceType) IsValid() bool {
	return s == SourceTypePDF || s == SourceTypeWeb
}

// RawDocument is a loader's output before normalization. Metadata is free-form.
type RawDocument struct {
	Content  string
	Metadata map[string]any
}

// DocumentMetadata is the canonical metadata carried by documents and chunks
type DocumentMetadata struct {
	Title      string     `json:"title"`
	Source     *string    `json:"source,omitempty"`
	Page       *int       `json:"page,omitempty"`
	SourceType SourceType `json:"source_type,omitempty"`
}

// Document is a normalized record with non-empty content
type Document struct {
	Content  string
	Metadata DocumentMetadata
}

// Chunk is a bounded slice of a document's content, the unit of embedding and retrieval
type Chunk struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}
