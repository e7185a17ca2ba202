package generator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func zapNop() *zap.Logger { return zap.NewNop() }

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>  Space   Exploration  </title>
  <meta name="description" content="A short history of space exploration.">
</head>
<body>
  <nav><a href="/">tiny nav link text</a></nav>
  <article>
    <h1>History of space exploration</h1>
    <p>The space age began in 1957 with the launch of Sputnik, the first artificial satellite.</p>
    <p>Crewed spaceflight followed quickly, culminating in the Apollo lunar landings of 1969-1972.</p>
    <li>Reusable launch vehicles dramatically reduced the cost of reaching orbit.</li>
  </article>
</body>
</html>`

func TestHTMLExtractor_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	e := NewURLExtractor(5*time.Second, zapNop())
	got, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Space Exploration", got.Title)
	assert.Contains(t, got.Content, "Sputnik")
	assert.Contains(t, got.Content, "Apollo")
	assert.Contains(t, got.Content, "Reusable launch vehicles")
	// Навигационный мусор короче порога не попадает
	assert.NotContains(t, got.Content, "tiny nav")
}

func TestHTMLExtractor_InvalidURL(t *testing.T) {
	e := NewURLExtractor(time.Second, zapNop())

	_, err := e.Extract(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = e.Extract(context.Background(), "ftp://example.com/file")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestHTMLExtractor_FetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewURLExtractor(time.Second, zapNop())
	_, err := e.Extract(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestHTMLExtractor_InsufficientContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Empty</title></head><body><p>hi</p></body></html>"))
	}))
	defer srv.Close()

	e := NewURLExtractor(time.Second, zapNop())
	_, err := e.Extract(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrInsufficientContent)
}

func TestDetectURLType(t *testing.T) {
	assert.Equal(t, URLTypeYouTube, DetectURLType("https://www.youtube.com/watch?v=abc"))
	assert.Equal(t, URLTypeYouTube, DetectURLType("https://youtu.be/abc"))
	assert.Equal(t, URLTypePDF, DetectURLType("https://example.com/report.PDF"))
	assert.Equal(t, URLTypeDocs, DetectURLType("https://docs.google.com/document/d/1"))
	assert.Equal(t, URLTypeGeneric, DetectURLType("https://example.com/post"))
}

func TestExtractedContent_SourceText(t *testing.T) {
	c := ExtractedContent{Title: "T", Content: "body"}
	assert.Equal(t, "T\n\nbody", c.SourceText())

	long := ExtractedContent{Content: strings.Repeat("x", MaxSourceLen*2)}
	assert.Len(t, long.SourceText(), MaxSourceLen)
}
