package tika

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merakitalent/fernando-format/internal/domain"
)

func TestExtract_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/tika", r.URL.Path)
		require.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte("Line one\nLine two\x00\x07"))
	}))
	defer srv.Close()

	cl := New(srv.URL, 5*time.Second)
	got, err := cl.Extract(context.Background(), []byte("%PDF-1.4"), "cv.pdf", "")
	require.NoError(t, err)
	// Control chars stripped, newlines preserved.
	require.Equal(t, "Line one\nLine two", got)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
	}))
	defer srv.Close()

	cl := New(srv.URL, 5*time.Second)
	_, err := cl.Extract(context.Background(), []byte("junk"), "cv.xyz", "")
	require.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtract_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cl := New(srv.URL, 5*time.Second)
	_, err := cl.Extract(context.Background(), []byte("x"), "cv.pdf", "application/pdf")
	require.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestResolveContentType(t *testing.T) {
	require.Equal(t, "application/pdf", resolveContentType(nil, "cv.pdf", ""))
	require.Equal(t, "application/msword", resolveContentType(nil, "old.DOC", ""))
	require.Equal(t, "text/html", resolveContentType(nil, "x.bin", "text/html"))
	// No extension, no hint: sniffed from bytes.
	require.Contains(t, resolveContentType([]byte("plain words"), "", ""), "text/")
}
