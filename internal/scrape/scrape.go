// Package scrape extracts article bodies from publisher pages when the feed
// entry only carries a summary.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"intelwatch/internal/feed"
	"intelwatch/internal/logger"
)

// siteSelectors maps a publisher host to the CSS selector holding the
// article body. Hosts not listed fall back to generic extraction.
var siteSelectors = map[string]string{
	"www.bleepingcomputer.com": ".articleBody p",
	"thehackernews.com":        ".articlebody p",
	"www.securityweek.com":     ".article-content p",
	"krebsonsecurity.com":      ".entry-content p",
}

var junkIndicators = []string{
	"subscribe", "newsletter", "cookie", "advertisement",
	"sponsored", "sign up", "follow us",
}

// Scraper fetches pages and pulls out readable article text.
type Scraper struct {
	client *http.Client
	delay  time.Duration
	log    interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// New builds a scraper that waits delay between page requests.
func New(timeout, delay time.Duration) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		delay:  delay,
		log:    logger.With("scrape"),
	}
}

// EnrichAll fills in bodies for items whose feed entry was too short to
// score. Items are processed sequentially with a polite delay; a failing
// page leaves the item's existing body in place.
func (s *Scraper) EnrichAll(ctx context.Context, items []feed.RawItem, minBody int) []feed.RawItem {
	for i := range items {
		if len(items[i].Body) >= minBody {
			continue
		}
		if err := ctx.Err(); err != nil {
			break
		}

		body, err := s.ExtractArticle(ctx, items[i].URL)
		if err != nil {
			s.log.Warn("page extraction failed", "url", items[i].URL, "error", err)
		} else if len(body) > len(items[i].Body) {
			items[i].Body = body
		}

		select {
		case <-ctx.Done():
			return items
		case <-time.After(s.delay):
		}
	}
	return items
}

// ExtractArticle downloads one page and returns its cleaned article text.
func (s *Scraper) ExtractArticle(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}

	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}

	if selector, ok := siteSelectors[host]; ok {
		if text := collectParagraphs(doc.Find(selector)); text != "" {
			return text, nil
		}
		s.log.Debug("site selector matched nothing, falling back", "host", host)
	}

	for _, selector := range []string{"article p", ".post-content p", ".content p", "main p"} {
		if text := collectParagraphs(doc.Find(selector)); len(text) > 200 {
			return text, nil
		}
	}

	return "", fmt.Errorf("no article content found")
}

func collectParagraphs(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len(text) < 40 {
			return
		}
		lower := strings.ToLower(text)
		for _, junk := range junkIndicators {
			if strings.Contains(lower, junk) {
				return
			}
		}
		parts = append(parts, text)
	})
	return strings.Join(parts, "\n\n")
}
