// Package api holds the JSON envelope every endpoint answers with:
// {"data": ...} on success and {"error": "..."} on failure.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
)

type SuccessResponse struct {
	Data any `json:"data"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// statusByCode is the only place domain error codes meet HTTP. Provider
// capability errors are the caller's choice of provider, hence 400.
var statusByCode = map[domain.ErrorCode]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeInvalidOperation: http.StatusBadRequest,
	domain.ErrCodeUnavailable:      http.StatusBadRequest,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeAlreadyExists:    http.StatusConflict,
	domain.ErrCodeInternalError:    http.StatusInternalServerError,
}

// JSON writes data with status. A nil data writes headers only.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP returns 200 for nil and 500 for anything that is not a
// DomainError with a known code.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if domainErr, ok := domain.AsDomainError(err); ok {
		if status, known := statusByCode[domainErr.Code]; known {
			return status
		}
	}
	return http.StatusInternalServerError
}

// HandleError answers 4xx with the domain message. Anything mapped to 5xx is
// logged and reported to Sentry, and the caller only sees a generic message.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status := DomainErrorToHTTP(err)
	if status < http.StatusInternalServerError {
		domainErr, _ := domain.AsDomainError(err)
		Error(w, status, domainErr.Message)
		return
	}

	log.Printf("internal error on %s %s: %v", r.Method, r.URL.Path, err)
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
	Error(w, status, "internal server error")
}
