package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<html><body>
<nav><p>Subscribe to our newsletter for more updates and exclusive content today</p></nav>
<article>
<p>The attackers gained access through a compromised credential and moved laterally across the network over several days.</p>
<p>Investigators traced the initial foothold to a phishing message that spoofed an internal payroll notification.</p>
<p>ad</p>
</article>
</body></html>`

func TestExtractArticleGenericFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	s := New(2*time.Second, time.Millisecond)
	text, err := s.ExtractArticle(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "compromised credential")
	assert.Contains(t, text, "payroll notification")
	assert.NotContains(t, text, "newsletter", "boilerplate paragraphs are dropped")
	assert.NotContains(t, text, "\nad\n", "short fragments are dropped")
}

func TestExtractArticleNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><div>nothing useful</div></body></html>`))
	}))
	defer srv.Close()

	s := New(2*time.Second, time.Millisecond)
	_, err := s.ExtractArticle(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestExtractArticleHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := New(2*time.Second, time.Millisecond)
	_, err := s.ExtractArticle(context.Background(), srv.URL)
	assert.Error(t, err)
}
