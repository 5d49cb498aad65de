package loader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/normalizer"
)

// DefaultPDFToolPath is the poppler-utils text extractor
const DefaultPDFToolPath = "pdftotext"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// PDFLoader extracts one raw document per non-empty page using pdftotext.
type PDFLoader struct {
	toolPath string
	runner   CommandRunner
}

// NewPDFLoader creates a PDFLoader. An empty toolPath uses pdftotext from PATH.
func NewPDFLoader(toolPath string) *PDFLoader {
	return NewPDFLoaderWithRunner(toolPath, execRunner{})
}

// NewPDFLoaderWithRunner creates a PDFLoader with an injected runner (for testing).
func NewPDFLoaderWithRunner(toolPath string, runner CommandRunner) *PDFLoader {
	if toolPath == "" {
		toolPath = DefaultPDFToolPath
	}
	return &PDFLoader{toolPath: toolPath, runner: runner}
}

// CheckAvailable reports whether the configured pdftotext binary can be found.
func (l *PDFLoader) CheckAvailable() error {
	if _, err := exec.LookPath(l.toolPath); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// Load extracts pages from the PDF at path. name is the user-facing file name
// used for the title and source metadata; it defaults to the base of path.
func (l *PDFLoader) Load(ctx context.Context, path, name string) ([]domain.RawDocument, error) {
	if name == "" {
		name = filepath.Base(path)
	}

	out, err := l.runner.Run(ctx, l.toolPath, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrPDFToolNotFound
		}
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	title := titleFromFilename(name)
	var docs []domain.RawDocument
	for page, text := range strings.Split(string(out), "\f") {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, domain.RawDocument{
			Content: text,
			Metadata: map[string]any{
				normalizer.KeyTitle:      title,
				normalizer.KeySource:     name,
				normalizer.KeyPage:       page,
				normalizer.KeySourceType: string(domain.SourceTypePDF),
			},
		})
	}

	return docs, nil
}

// titleFromFilename turns "catalogo_2024-otono.pdf" into "catalogo 2024 otono".
func titleFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}
