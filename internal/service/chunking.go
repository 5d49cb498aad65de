package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
)

// defaultSeparators are tried in order; "" splits into single characters.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// ChunkConfig controls chunk size and overlap, both measured in characters.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// Validate rejects configurations the splitter cannot honor.
func (c ChunkConfig) Validate() error {
	switch {
	case c.Size <= 0:
		return domain.Wrap(domain.ErrInvalidChunkConfig, fmt.Sprintf("chunk size must be positive, got %d", c.Size), nil)
	case c.Overlap < 0:
		return domain.Wrap(domain.ErrInvalidChunkConfig, fmt.Sprintf("chunk overlap must not be negative, got %d", c.Overlap), nil)
	case c.Overlap >= c.Size:
		return domain.Wrap(domain.ErrInvalidChunkConfig, fmt.Sprintf("chunk overlap (%d) must be smaller than chunk size (%d)", c.Overlap, c.Size), nil)
	}
	return nil
}

// TextSplitter splits text recursively on paragraph, line, word and
// character boundaries until every piece fits the configured size.
type TextSplitter struct {
	cfg        ChunkConfig
	separators []string
}

// NewTextSplitter creates a splitter for the given config.
func NewTextSplitter(cfg ChunkConfig) (*TextSplitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TextSplitter{cfg: cfg, separators: defaultSeparators}, nil
}

// SplitText returns the chunks for a single text. Chunks are trimmed and never empty.
func (s *TextSplitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *TextSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var chunks []string
	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.cfg.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			if chunk := strings.TrimSpace(piece); chunk != "" {
				chunks = append(chunks, chunk)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, next)...)
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs small pieces into chunks of at most Size characters, carrying
// up to Overlap trailing characters into the next chunk.
func (s *TextSplitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.cfg.Size && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.cfg.Overlap || (total+n > s.cfg.Size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepingSeparator splits text on sep and glues each separator to the
// start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts = make([]string, 0, len(raw))
	for i, p := range raw {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
