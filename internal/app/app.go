// Package app wires the collection, scoring, review, cache, synthesis and
// delivery components into the report pipeline.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"intelwatch/internal/cache"
	"intelwatch/internal/config"
	"intelwatch/internal/delivery"
	"intelwatch/internal/feed"
	"intelwatch/internal/logger"
	"intelwatch/internal/metrics"
	"intelwatch/internal/review"
	"intelwatch/internal/scrape"
	"intelwatch/internal/score"
	"intelwatch/internal/synth"
)

// minBodyForScoring: items with less body text than this get a page
// scrape before scoring.
const minBodyForScoring = 300

// minRelevance drops clearly off-topic items before synthesis.
const minRelevance = 2

// App holds the assembled pipeline.
type App struct {
	cfg       *config.Config
	sources   []feed.Source
	fetcher   *feed.Fetcher
	scraper   *scrape.Scraper
	scorer    *score.Scorer
	validator *review.Validator
	reviews   *review.Client
	cache     *cache.Cache
	synth     *synth.Synthesizer
	delivery  *delivery.Client
	log       interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

// New assembles the pipeline from configuration. agent may be nil when no
// AI key is configured; BuildReport then returns the raw material digest.
func New(cfg *config.Config, agent synth.Agent) (*App, error) {
	sources, err := feed.LoadSources(cfg.SourcesPath)
	if err != nil {
		logger.Warn("sources file unavailable, using defaults", "path", cfg.SourcesPath, "error", err)
		sources = feed.DefaultSources()
	}

	keywords, err := score.LoadKeywords(cfg.KeywordsPath)
	if err != nil {
		logger.Warn("keywords file unavailable, using defaults", "path", cfg.KeywordsPath, "error", err)
		keywords = nil
	}

	indicators, err := review.LoadIndicators(cfg.IndicatorsPath)
	if err != nil {
		logger.Warn("indicators file unavailable, using defaults", "path", cfg.IndicatorsPath, "error", err)
		indicators = nil
	}

	store, err := cache.NewFileStore(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}

	a := &App{
		cfg:       cfg,
		sources:   sources,
		fetcher:   feed.NewFetcher(cfg.FetchWindow, cfg.FetchTimeout, cfg.MaxConcurrent, cfg.MaxPerSource),
		scraper:   scrape.New(cfg.FetchTimeout, cfg.ScrapeDelay),
		scorer:    score.NewScorer(keywords),
		validator: review.NewValidator(indicators, cfg.AuthThreshold),
		reviews:   review.NewClient(cfg.ReviewAPIBase, cfg.ReviewAPIToken, cfg.FetchTimeout),
		cache:     cache.New(cfg.CacheTTL, store),
		delivery:  delivery.NewClient(cfg.WebhookURL, 30*time.Second),
		log:       logger.With("app"),
	}
	if agent != nil {
		a.synth = synth.New(agent, nil, cfg.LensTimeout)
	}
	return a, nil
}

// newsPayload is what the news channel caches.
type newsPayload struct {
	Items []score.ScoredItem `json:"items"`
}

// CollectNews returns scored, deduplicated articles for a topic, serving
// from cache while fresh and falling back to stale data when every source
// fails.
func (a *App) CollectNews(ctx context.Context, topic string) ([]score.ScoredItem, error) {
	key := cache.Key{Product: topic, Channel: "news"}

	if entry, fresh := a.cache.Get(key); fresh {
		a.log.Info("serving cached news", "topic", topic, "items", entry.ItemCount)
		return decodeNews(entry.Payload)
	}

	report := a.fetcher.FetchAll(ctx, a.sources)
	if len(report.Items) == 0 {
		if entry, _ := a.cache.Get(key); entry != nil {
			a.log.Warn("collection produced nothing, serving stale cache",
				"topic", topic, "age", time.Since(entry.LastUpdated).String())
			metrics.Get().IncStaleServe()
			return decodeNews(entry.Payload)
		}
		return nil, fmt.Errorf("all sources failed and no cache available")
	}

	items := score.NewDedup().Filter(report.Items)
	items = a.scraper.EnrichAll(ctx, items, minBodyForScoring)

	scored := a.scorer.ScoreAll(items, minRelevance)
	if len(scored) > a.cfg.MaxItems {
		scored = scored[:a.cfg.MaxItems]
	}
	metrics.Get().AddItemsScored(len(scored))

	payload, err := json.Marshal(newsPayload{Items: scored})
	if err != nil {
		return nil, fmt.Errorf("encoding news payload: %w", err)
	}
	a.cache.Put(key, payload, len(scored), report.Succeeded)

	return scored, nil
}

// CollectReviews returns verified reviews for a product. A degraded review
// channel falls back to stale cache, then to nothing; it never fails the
// run.
func (a *App) CollectReviews(ctx context.Context, product string) []review.Record {
	key := cache.Key{Product: product, Channel: "reviews"}

	if entry, fresh := a.cache.Get(key); fresh {
		a.log.Info("serving cached reviews", "product", product, "items", entry.ItemCount)
		return decodeReviews(entry.Payload)
	}

	result := a.reviews.FetchReviews(ctx, product)
	if result.Degraded != nil {
		a.log.Warn("review channel degraded",
			"product", product,
			"kind", result.Degraded.Kind,
			"detail", result.Degraded.Detail)
		if entry, _ := a.cache.Get(key); entry != nil {
			metrics.Get().IncStaleServe()
			return decodeReviews(entry.Payload)
		}
		return nil
	}

	verified := a.validator.Filter(result.Reviews)

	platforms := map[string]struct{}{}
	for _, r := range verified {
		platforms[r.Platform] = struct{}{}
	}
	names := make([]string, 0, len(platforms))
	for p := range platforms {
		names = append(names, p)
	}

	if payload, err := json.Marshal(verified); err == nil {
		a.cache.Put(key, payload, len(verified), names)
	}
	return verified
}

// BuildReport runs the full pipeline for one topic and returns the report
// text to deliver.
func (a *App) BuildReport(ctx context.Context, topic string, focusAreas []string) (string, error) {
	started := time.Now()
	defer func() {
		metrics.Get().RecordRunDuration(time.Since(started))
	}()

	items, err := a.CollectNews(ctx, topic)
	if err != nil {
		metrics.Get().RecordError(err)
		return "", err
	}
	reviews := a.CollectReviews(ctx, topic)

	input := synth.BuildInput(items, reviews)
	if a.synth == nil {
		a.log.Warn("no synthesis agent configured, returning raw digest")
		return input, nil
	}

	query := fmt.Sprintf("What should the team know about %s this period?", topic)
	if len(focusAreas) > 0 {
		query += " Focus on: " + strings.Join(focusAreas, ", ") + "."
	}

	result, err := a.synth.Run(ctx, query, input)
	if err != nil {
		metrics.Get().RecordError(err)
		return "", err
	}
	return result.Integrated, nil
}

// Dispatch builds the report for a subscription request and delivers it.
// Implements the scheduler's Dispatcher interface.
func (a *App) Dispatch(ctx context.Context, req delivery.Request) error {
	report, err := a.BuildReport(ctx, req.Topic, req.FocusAreas)
	if err != nil {
		return fmt.Errorf("building report for %s: %w", req.Topic, err)
	}
	req.Report = report
	return a.delivery.Send(ctx, req)
}

func decodeNews(payload []byte) ([]score.ScoredItem, error) {
	var p newsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decoding cached news: %w", err)
	}
	return p.Items, nil
}

func decodeReviews(payload []byte) []review.Record {
	var records []review.Record
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil
	}
	return records
}
