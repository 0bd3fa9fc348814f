// Package tika provides Apache Tika integration for text extraction.
//
// It extracts text content from PDF, Word, and plain text files. The client
// performs PUT /tika with Accept: text/plain to retrieve extracted text.
// See: https://tika.apache.org/server/ for API details.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"

	"github.com/merakitalent/fernando-format/internal/domain"
)

// Client is a minimal Apache Tika HTTP client implementing
// domain.TextExtractor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Tika client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Extract uploads the document bytes to the Tika server and returns plain
// text. The content type is taken from the hint, then the filename
// extension, then sniffed from the bytes.
func (c *Client) Extract(ctx context.Context, data []byte, filename, contentTypeHint string) (string, error) {
	u := c.baseURL
	if u == "" {
		u = "http://localhost:9998"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	if ct := resolveContentType(data, filename, contentTypeHint); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: tika: %v", domain.ErrExtractionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusUnsupportedMediaType {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filename)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: tika status %d", domain.ErrExtractionFailed, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: tika read: %v", domain.ErrExtractionFailed, err)
	}
	// Strip control characters but keep newlines: CV section structure
	// matters to the extraction prompt, so whitespace is not collapsed.
	return sanitize(string(b)), nil
}

func resolveContentType(data []byte, filename, hint string) string {
	if hint != "" && hint != "application/octet-stream" {
		return hint
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	}
	if ext := filepath.Ext(filename); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return mimetype.Detect(data).String()
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
