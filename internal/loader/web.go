package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/normalizer"
)

const (
	// DefaultUserAgent is sent when no user agent is configured
	DefaultUserAgent = "Mozilla/5.0 (compatible; ChatBot-RAG/1.0)"

	// maxPageBytes caps how much of a response body is read
	maxPageBytes = 10 << 20
)

// WebConfig configures outbound page fetching.
type WebConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// WebLoader fetches pages over HTTP and extracts their visible text.
// Requests from all callers share one token bucket.
type WebLoader struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewWebLoader creates a WebLoader. A non-positive rate disables throttling.
func NewWebLoader(cfg WebConfig) *WebLoader {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &WebLoader{
		client:    client,
		limiter:   limiter,
		userAgent: userAgent,
	}
}

// Load fetches rawURL and returns a single raw document, or none when the page has no text.
func (l *WebLoader) Load(ctx context.Context, rawURL string) ([]domain.RawDocument, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid URL: %s", rawURL)
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	page := string(body)
	text := stripHTML(page)
	if text == "" {
		return nil, nil
	}

	return []domain.RawDocument{{
		Content: text,
		Metadata: map[string]any{
			normalizer.KeyTitle:      extractTitle(page),
			normalizer.KeySource:     rawURL,
			normalizer.KeySourceType: string(domain.SourceTypeWeb),
		},
	}}, nil
}
