// Package feed fetches articles from configured RSS sources.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"intelwatch/internal/logger"
	"intelwatch/internal/metrics"
)

// Source describes one upstream feed.
type Source struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	Priority int    `yaml:"priority"`
}

// RawItem is an article as fetched, before scoring.
type RawItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Body        string    `json:"body"`
	SourceName  string    `json:"source_name"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// SourceFailure records why one source produced nothing this run.
type SourceFailure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// RunReport summarises one collection pass. A source appears in exactly one
// of the two lists.
type RunReport struct {
	Items     []RawItem       `json:"items"`
	Succeeded []string        `json:"succeeded"`
	Failed    []SourceFailure `json:"failed"`
}

// LoadSources reads the source list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var doc struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing sources file: %w", err)
	}
	if len(doc.Sources) == 0 {
		return nil, fmt.Errorf("no sources defined in %s", path)
	}
	for i, s := range doc.Sources {
		if s.Name == "" || s.Endpoint == "" {
			return nil, fmt.Errorf("source %d is missing name or endpoint", i)
		}
	}
	return doc.Sources, nil
}

// DefaultSources are used when no sources file is present.
func DefaultSources() []Source {
	return []Source{
		{Name: "BleepingComputer", Endpoint: "https://www.bleepingcomputer.com/feed/", Priority: 1},
		{Name: "The Hacker News", Endpoint: "https://feeds.feedburner.com/TheHackersNews", Priority: 1},
		{Name: "SecurityWeek", Endpoint: "https://www.securityweek.com/feed/", Priority: 2},
		{Name: "Krebs on Security", Endpoint: "https://krebsonsecurity.com/feed/", Priority: 2},
	}
}

// Fetcher pulls recent items from a set of sources concurrently.
type Fetcher struct {
	client      *http.Client
	parser      *gofeed.Parser
	window      time.Duration
	timeout     time.Duration
	concurrency int
	perSource   int
	now         func() time.Time
	log         interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Debug(msg string, args ...any)
	}
}

// NewFetcher builds a fetcher keeping items published within window,
// capping each source request at timeout and each source's contribution
// at perSource items, so one noisy feed cannot crowd out the rest.
func NewFetcher(window, timeout time.Duration, concurrency, perSource int) *Fetcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		parser:      gofeed.NewParser(),
		window:      window,
		timeout:     timeout,
		concurrency: concurrency,
		perSource:   perSource,
		now:         time.Now,
		log:         logger.With("feed"),
	}
}

// WithClock overrides the fetcher's clock. Used in tests.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// FetchAll collects items from every source. A failing source never aborts
// the run; it is recorded in the report instead.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) RunReport {
	type result struct {
		source string
		items  []RawItem
		err    error
	}

	results := make([]result, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			items, err := f.fetchOne(ctx, src)
			results[i] = result{source: src.Name, items: items, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var report RunReport
	for _, r := range results {
		if r.err != nil {
			f.log.Warn("source failed", "source", r.source, "error", r.err)
			report.Failed = append(report.Failed, SourceFailure{Source: r.source, Reason: r.err.Error()})
			metrics.Get().AddSourcesFailed(1)
			continue
		}
		report.Succeeded = append(report.Succeeded, r.source)
		report.Items = append(report.Items, r.items...)
	}

	sort.SliceStable(report.Items, func(i, j int) bool {
		return report.Items[i].PublishedAt.After(report.Items[j].PublishedAt)
	})

	metrics.Get().AddItemsFetched(len(report.Items))
	f.log.Info("collection pass finished",
		"items", len(report.Items),
		"sources_ok", len(report.Succeeded),
		"sources_failed", len(report.Failed))
	return report
}

func (f *Fetcher) fetchOne(ctx context.Context, src Source) ([]RawItem, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	now := f.now()
	cutoff := now.Add(-f.window)
	var items []RawItem
	for _, entry := range parsed.Items {
		if f.perSource > 0 && len(items) >= f.perSource {
			break
		}
		if entry.Title == "" || entry.Link == "" {
			continue
		}
		published := entryTime(entry)
		if published.IsZero() || published.Before(cutoff) {
			continue
		}
		body := entry.Content
		if body == "" {
			body = entry.Description
		}
		items = append(items, RawItem{
			Title:       entry.Title,
			URL:         entry.Link,
			Body:        body,
			SourceName:  src.Name,
			PublishedAt: published.UTC(),
			FetchedAt:   now.UTC(),
		})
	}

	f.log.Debug("source fetched", "source", src.Name, "items", len(items))
	return items, nil
}

func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}
