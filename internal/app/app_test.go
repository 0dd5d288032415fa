package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intelwatch/internal/cache"
	"intelwatch/internal/config"
	"intelwatch/internal/feed"
	"intelwatch/internal/logger"
	"intelwatch/internal/review"
	"intelwatch/internal/scrape"
	"intelwatch/internal/score"
)

func testApp(t *testing.T, sources []feed.Source, ttl time.Duration) *App {
	t.Helper()
	cfg := &config.Config{
		FetchWindow:   14 * 24 * time.Hour,
		FetchTimeout:  2 * time.Second,
		MaxConcurrent: 2,
		MaxItems:      3,
		MaxPerSource:  20,
		ScrapeDelay:   time.Millisecond,
		AuthThreshold: 3,
		CacheTTL:      ttl,
	}
	return &App{
		cfg:       cfg,
		sources:   sources,
		fetcher:   feed.NewFetcher(cfg.FetchWindow, cfg.FetchTimeout, cfg.MaxConcurrent, cfg.MaxPerSource),
		scraper:   scrape.New(cfg.FetchTimeout, cfg.ScrapeDelay),
		scorer:    score.NewScorer(nil),
		validator: review.NewValidator(nil, cfg.AuthThreshold),
		reviews:   review.NewClient("", "", time.Second),
		cache:     cache.New(cfg.CacheTTL, nil),
		log:       logger.With("app"),
	}
}

func feedServer(t *testing.T, count int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		body := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`
		for i := 0; i < count; i++ {
			body += fmt.Sprintf(
				`<item><title>Phishing campaign number %d hits email security vendors</title>`+
					`<link>https://example.com/%d</link><pubDate>%s</pubDate>`+
					`<description>A detailed report on a phishing and spoofing campaign against email gateway customers, including indicators and vendor responses collected by researchers over the past week across several regions and industries. The campaign relied on lookalike domains and payroll-themed lures, and several affected organizations have published their own incident writeups with remediation guidance for administrators.</description></item>`,
				i, i, time.Now().Add(-time.Duration(i+1)*time.Hour).Format(time.RFC1123Z))
		}
		body += `</channel></rss>`
		w.Write([]byte(body))
	}))
}

func TestCollectNewsCapsAndCaches(t *testing.T) {
	srv := feedServer(t, 6)
	defer srv.Close()

	a := testApp(t, []feed.Source{{Name: "Test", Endpoint: srv.URL}}, 12*time.Hour)

	items, err := a.CollectNews(context.Background(), "email security")
	require.NoError(t, err)
	assert.Len(t, items, 3, "result is capped at MaxItems")

	// Second call is served from cache.
	srv.Close()
	again, err := a.CollectNews(context.Background(), "email security")
	require.NoError(t, err)
	assert.Equal(t, len(items), len(again))
}

func TestCollectNewsServesStaleWhenSourcesFail(t *testing.T) {
	srv := feedServer(t, 2)

	now := time.Now()
	a := testApp(t, []feed.Source{{Name: "Test", Endpoint: srv.URL}}, 12*time.Hour)
	a.cache = cache.New(12*time.Hour, nil).WithClock(func() time.Time { return now })

	items, err := a.CollectNews(context.Background(), "email security")
	require.NoError(t, err)
	require.NotEmpty(t, items)

	// Cache expires and every source is down.
	now = now.Add(13 * time.Hour)
	srv.Close()

	stale, err := a.CollectNews(context.Background(), "email security")
	require.NoError(t, err, "stale cache is served when collection fails")
	assert.Equal(t, len(items), len(stale))
}

func TestCollectNewsFailsWithNoCacheAndNoSources(t *testing.T) {
	a := testApp(t, []feed.Source{{Name: "Dead", Endpoint: "http://127.0.0.1:1/feed"}}, 12*time.Hour)
	_, err := a.CollectNews(context.Background(), "email security")
	assert.Error(t, err)
}

func TestCollectReviewsDegradedWithoutCacheReturnsNothing(t *testing.T) {
	a := testApp(t, nil, 12*time.Hour)
	assert.Empty(t, a.CollectReviews(context.Background(), "Proofpoint"))
}

func TestCollectReviewsDegradedFallsBackToStale(t *testing.T) {
	now := time.Now()
	a := testApp(t, nil, 12*time.Hour)
	a.cache = cache.New(12*time.Hour, nil).WithClock(func() time.Time { return now })

	cached := []review.Record{{Platform: "g2", Product: "Proofpoint", Rating: 4, Text: "cached review", Verified: true}}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	a.cache.Put(cache.Key{Product: "Proofpoint", Channel: "reviews"}, payload, 1, []string{"g2"})

	// Entry goes stale; the unconfigured client degrades; stale wins over nothing.
	now = now.Add(13 * time.Hour)
	got := a.CollectReviews(context.Background(), "Proofpoint")
	require.Len(t, got, 1)
	assert.Equal(t, "cached review", got[0].Text)
}
