package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/loader"
	"github.com/marianoInsa/ChatBot-RAG/internal/normalizer"
	"github.com/marianoInsa/ChatBot-RAG/internal/telemetry"
)

// Upload response messages
const (
	MessageNoValidSources = "No valid PDFs or URLs were provided."
	MessageNoContent      = "No content could be extracted from the documents."
)

// UploadedFile is one file part of an upload request
type UploadedFile interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// Archiver stores raw uploads outside the process
type Archiver interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// BatchLoader loads staged PDFs and URLs into raw documents
type BatchLoader interface {
	LoadAll(ctx context.Context, pdfs []loader.PDFSource, urls []string) *loader.Result
}

// DocumentIngester is the subset of ClientManager used by uploads
type DocumentIngester interface {
	Exists(id string) bool
	AddDocuments(ctx context.Context, id string, docs []domain.Document) (int, int, error)
}

// UploadLimits bounds a single upload request
type UploadLimits struct {
	MaxFiles    int
	MaxURLs     int
	MaxFileSize int64
}

// UploadInput is one upload request
type UploadInput struct {
	TenantID string
	Files    []UploadedFile
	URLs     []string
}

// UploadResult is the outcome of an upload
type UploadResult struct {
	Success          bool     `json:"success"`
	PDFsProcessed    int      `json:"pdfs_processed"`
	URLsProcessed    int      `json:"urls_processed"`
	TotalChunksAdded int      `json:"total_chunks_added"`
	Message          string   `json:"message"`
	Errors           []string `json:"errors,omitempty"`
}

// DocumentService turns uploaded files and URLs into indexed chunks for a tenant
type DocumentService struct {
	tenants  DocumentIngester
	loader   BatchLoader
	archiver Archiver
	limits   UploadLimits
	uuidGen  UUIDGenerator
	tempDir  string
}

// DocumentServiceOption configures a DocumentService
type DocumentServiceOption func(*DocumentService)

// WithArchiver copies every staged PDF to the archive
func WithArchiver(a Archiver) DocumentServiceOption {
	return func(s *DocumentService) {
		s.archiver = a
	}
}

// WithTempDir sets where uploads are staged (for testing)
func WithTempDir(dir string) DocumentServiceOption {
	return func(s *DocumentService) {
		s.tempDir = dir
	}
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(tenants DocumentIngester, batchLoader BatchLoader, limits UploadLimits, uuidGen UUIDGenerator, opts ...DocumentServiceOption) *DocumentService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	s := &DocumentService{
		tenants: tenants,
		loader:  batchLoader,
		limits:  limits,
		uuidGen: uuidGen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates, stages, loads and ingests one batch. Per-source problems are
// reported in the result; only request-level failures return an error.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "upload",
	})
	defer span.End()

	if !s.tenants.Exists(input.TenantID) {
		return nil, domain.ErrTenantNotFound
	}

	if s.limits.MaxFiles > 0 && len(input.Files) > s.limits.MaxFiles {
		return nil, domain.Wrap(domain.ErrTooManyFiles, fmt.Sprintf("at most %d files per request", s.limits.MaxFiles), nil)
	}

	var errs []string
	staged := make([]loader.PDFSource, 0, len(input.Files))
	defer func() {
		for _, src := range staged {
			if err := os.Remove(src.Path); err != nil && !os.IsNotExist(err) {
				log.Printf("upload: failed to remove staged file %s: %v", src.Path, err)
			}
		}
	}()

	for _, f := range input.Files {
		name := f.Name()
		if name == "" {
			name = "file"
		}
		if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			errs = append(errs, fmt.Sprintf("%s: only PDF files are accepted", name))
			continue
		}
		if s.limits.MaxFileSize > 0 && f.Size() > s.limits.MaxFileSize {
			errs = append(errs, fmt.Sprintf("%s: exceeds %dMB", name, s.limits.MaxFileSize/(1024*1024)))
			continue
		}

		tmpPath, err := s.stage(f)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		staged = append(staged, loader.PDFSource{Path: tmpPath, Name: name})
		s.archive(ctx, input.TenantID, name, tmpPath)
	}

	urls := cleanURLs(input.URLs)
	if s.limits.MaxURLs > 0 && len(urls) > s.limits.MaxURLs {
		urls = urls[:s.limits.MaxURLs]
	}

	if len(staged) == 0 && len(urls) == 0 {
		return &UploadResult{Success: false, Message: MessageNoValidSources, Errors: errs}, nil
	}

	loaded := s.loader.LoadAll(ctx, staged, urls)
	errs = append(errs, loaded.Errors...)

	docs := normalizer.Normalize(loaded.Documents)
	if len(docs) == 0 {
		return &UploadResult{
			Success:       false,
			PDFsProcessed: loaded.PDFsProcessed,
			URLsProcessed: loaded.URLsProcessed,
			Message:       MessageNoContent,
			Errors:        errs,
		}, nil
	}

	docsAdded, chunksAdded, err := s.tenants.AddDocuments(ctx, input.TenantID, docs)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	log.Printf("upload: client %s ingested %d documents, %d chunks", input.TenantID, docsAdded, chunksAdded)
	return &UploadResult{
		Success:          true,
		PDFsProcessed:    loaded.PDFsProcessed,
		URLsProcessed:    loaded.URLsProcessed,
		TotalChunksAdded: chunksAdded,
		Message:          fmt.Sprintf("Documents loaded: %d, chunks added: %d.", docsAdded, chunksAdded),
		Errors:           errs,
	}, nil
}

// Purge removes a tenant's archived uploads. It is a no-op without an archiver.
func (s *DocumentService) Purge(ctx context.Context, tenantID string) error {
	if s.archiver == nil {
		return nil
	}
	n, err := s.archiver.DeletePrefix(ctx, archivePrefix(tenantID))
	if err != nil {
		return domain.Wrap(domain.ErrStorageOperationFail, "failed to purge archived uploads", err)
	}
	if n > 0 {
		log.Printf("upload: purged %d archived uploads for client %s", n, tenantID)
	}
	return nil
}

func (s *DocumentService) stage(f UploadedFile) (string, error) {
	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.tempDir, "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	return tmp.Name(), nil
}

// archive failures are logged and never fail the upload
func (s *DocumentService) archive(ctx context.Context, tenantID, name, stagedPath string) {
	if s.archiver == nil {
		return
	}

	f, err := os.Open(stagedPath)
	if err != nil {
		log.Printf("upload: archive open failed for %s: %v", name, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Printf("upload: archive stat failed for %s: %v", name, err)
		return
	}

	key := archivePrefix(tenantID) + s.uuidGen.NewString() + "-" + path.Base(name)
	if err := s.archiver.PutObject(ctx, key, f, info.Size(), "application/pdf"); err != nil {
		log.Printf("upload: archive failed for %s: %v", name, err)
	}
}

func archivePrefix(tenantID string) string {
	return "tenants/" + tenantID + "/uploads/"
}

func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
