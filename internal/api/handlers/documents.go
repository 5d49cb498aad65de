package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/marianoInsa/ChatBot-RAG/internal/api"
	"github.com/marianoInsa/ChatBot-RAG/internal/api/middleware"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

// parts above this size spill to temp files
const multipartMemory = 32 << 20

type DocumentUploader interface {
	Upload(ctx context.Context, input service.UploadInput) (*service.UploadResult, error)
}

type DocumentHandler struct {
	uploader DocumentUploader
}

func NewDocumentHandler(uploader DocumentUploader) *DocumentHandler {
	return &DocumentHandler{uploader: uploader}
}

// formFile adapts a multipart file header to service.UploadedFile
type formFile struct {
	header *multipart.FileHeader
}

func (f formFile) Name() string { return f.header.Filename }
func (f formFile) Size() int64  { return f.header.Size }
func (f formFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	input := service.UploadInput{TenantID: middleware.GetTenantID(r.Context())}

	err := r.ParseMultipartForm(multipartMemory)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	default:
		defer r.MultipartForm.RemoveAll()
		for _, fh := range r.MultipartForm.File["files"] {
			input.Files = append(input.Files, formFile{header: fh})
		}
		input.URLs = parseURLList(r.MultipartForm.Value["urls"])
	}

	result, err := h.uploader.Upload(r.Context(), input)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// parseURLList reads the urls form field, a JSON array string. Malformed values
// and non-string entries are ignored.
func parseURLList(values []string) []string {
	var urls []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		var parsed []any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			continue
		}
		for _, item := range parsed {
			if s, ok := item.(string); ok {
				urls = append(urls, s)
			}
		}
	}
	return urls
}
