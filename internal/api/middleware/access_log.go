package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

type accessLogEntry struct {
	Timestamp    string `json:"ts"`
	Method       string `json:"method"`
	Route        string `json:"route,omitempty"`
	Path         string `json:"path"`
	Status       int    `json:"status"`
	RequestBytes int64  `json:"request_bytes,omitempty"`
	Bytes        int    `json:"bytes"`
	DurationMS   int64  `json:"duration_ms"`
	RequestID    string `json:"request_id,omitempty"`
	TenantID     string `json:"client_id,omitempty"`
	RemoteAddr   string `json:"remote_addr,omitempty"`
}

// AccessLog writes one JSON line per request. Route is the chi pattern so
// requests for different clients group under the same key.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		entry := accessLogEntry{
			Timestamp:  start.UTC().Format(time.RFC3339Nano),
			Method:     r.Method,
			Route:      routePattern(r.Context()),
			Path:       r.URL.Path,
			Status:     rec.Status(),
			Bytes:      rec.bytes,
			DurationMS: time.Since(start).Milliseconds(),
			RequestID:  GetRequestID(r.Context()),
			TenantID:   r.Header.Get(TenantIDHeader),
			RemoteAddr: clientIP(r),
		}
		if r.ContentLength > 0 {
			entry.RequestBytes = r.ContentLength
		}

		payload, err := json.Marshal(entry)
		if err != nil {
			log.Printf("access_log_marshal_error: %v", err)
			return
		}
		log.Println(string(payload))
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
