// Package loader turns uploaded PDFs and remote web pages into raw documents.
// Failures are reported per source and never abort the rest of the batch.
package loader

import (
	"context"
	"fmt"
	"log"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
)

// PDFSource is a staged PDF on local disk.
type PDFSource struct {
	Path string
	Name string
}

// Result collects the documents loaded from a batch and the per-source errors.
type Result struct {
	Documents     []domain.RawDocument
	PDFsProcessed int
	URLsProcessed int
	Errors        []string
}

// PDFExtractor loads a single PDF.
type PDFExtractor interface {
	Load(ctx context.Context, path, name string) ([]domain.RawDocument, error)
}

// PageFetcher loads a single web page.
type PageFetcher interface {
	Load(ctx context.Context, rawURL string) ([]domain.RawDocument, error)
}

// Loader runs the PDF and web loaders over a batch.
type Loader struct {
	pdf PDFExtractor
	web PageFetcher
}

func New(pdf PDFExtractor, web PageFetcher) *Loader {
	return &Loader{pdf: pdf, web: web}
}

// LoadAll loads every PDF then every URL. A source counts as processed when it
// yields at least one document.
func (l *Loader) LoadAll(ctx context.Context, pdfs []PDFSource, urls []string) *Result {
	res := &Result{}

	for _, src := range pdfs {
		docs, err := l.pdf.Load(ctx, src.Path, src.Name)
		if err != nil {
			log.Printf("loader: pdf %s failed: %v", src.Name, err)
			res.Errors = append(res.Errors, fmt.Sprintf("Error processing %s: %v", src.Name, err))
			continue
		}
		if len(docs) == 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("No text could be extracted from %s", src.Name))
			continue
		}
		res.PDFsProcessed++
		res.Documents = append(res.Documents, docs...)
	}

	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Error processing URL %s: %v", u, err))
			continue
		}
		docs, err := l.web.Load(ctx, u)
		if err != nil {
			log.Printf("loader: url %s failed: %v", u, err)
			res.Errors = append(res.Errors, fmt.Sprintf("Error processing URL %s: %v", u, err))
			continue
		}
		if len(docs) == 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("No content found at URL %s", u))
			continue
		}
		res.URLsProcessed++
		res.Documents = append(res.Documents, docs...)
	}

	return res
}
