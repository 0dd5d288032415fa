// Package synth runs multi-lens AI analysis over collected intelligence
// and merges the per-lens sections into one integrated report.
package synth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intelwatch/internal/logger"
	"intelwatch/internal/metrics"
)

// Lens is one independent analysis perspective.
type Lens struct {
	ID     string
	Name   string
	Prompt string
}

// DefaultLenses returns the three standing perspectives.
func DefaultLenses() []Lens {
	return []Lens{
		{
			ID:   "competitive_intelligence",
			Name: "Competitive Intelligence",
			Prompt: "You are a competitive intelligence analyst. Based on the material below, " +
				"summarise what competitors are doing: product moves, positioning shifts, " +
				"pricing signals, and customer sentiment toward each vendor. Be specific and " +
				"cite which item each claim comes from.",
		},
		{
			ID:   "product_intelligence",
			Name: "Product Intelligence",
			Prompt: "You are a product analyst. Based on the material below, identify feature " +
				"gaps, recurring customer complaints, and capabilities customers praise. " +
				"Focus on what a product team should build or fix next.",
		},
		{
			ID:   "market_trends",
			Name: "Market Trends",
			Prompt: "You are a market analyst. Based on the material below, describe the " +
				"threat landscape and market direction: emerging attack techniques, " +
				"regulatory pressure, and shifts in buyer priorities.",
		},
	}
}

// placeholderSection is substituted when a single lens fails; the run
// continues with the remaining lenses.
const placeholderSection = "No analysis available from this lens."

// Agent produces analysis text. Implementations wrap a model API.
type Agent interface {
	Analyze(ctx context.Context, lens Lens, input string) (string, error)
	Synthesize(ctx context.Context, query string, sections map[string]string) (string, error)
}

// Result is the outcome of one synthesis run.
type Result struct {
	PerLens    map[string]string `json:"per_lens"`
	Integrated string            `json:"integrated"`
	Failures   []string          `json:"failures,omitempty"`
}

// Synthesizer fans input out to every lens in parallel, then runs a final
// synthesis pass over the sections.
type Synthesizer struct {
	agent       Agent
	lenses      []Lens
	lensTimeout time.Duration
	log         interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

// New builds a synthesizer. Empty lenses falls back to the defaults.
func New(agent Agent, lenses []Lens, lensTimeout time.Duration) *Synthesizer {
	if len(lenses) == 0 {
		lenses = DefaultLenses()
	}
	if lensTimeout <= 0 {
		lensTimeout = 60 * time.Second
	}
	return &Synthesizer{
		agent:       agent,
		lenses:      lenses,
		lensTimeout: lensTimeout,
		log:         logger.With("synth"),
	}
}

// Run analyses input through every lens concurrently. A failed lens gets a
// placeholder section; a failed synthesis pass fails the whole run.
func (s *Synthesizer) Run(ctx context.Context, query, input string) (*Result, error) {
	metrics.Get().IncSynthesisRun()

	sections := make(map[string]string, len(s.lenses))
	var failures []string
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, lens := range s.lenses {
		wg.Add(1)
		go func() {
			defer wg.Done()

			lensCtx, cancel := context.WithTimeout(ctx, s.lensTimeout)
			defer cancel()

			text, err := s.agent.Analyze(lensCtx, lens, input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("lens failed, using placeholder", "lens", lens.ID, "error", err)
				sections[lens.ID] = placeholderSection
				failures = append(failures, lens.ID)
				return
			}
			sections[lens.ID] = text
		}()
	}
	wg.Wait()

	if len(failures) > 0 {
		metrics.Get().AddLensFailures(len(failures))
	}

	integrated, err := s.agent.Synthesize(ctx, query, sections)
	if err != nil {
		metrics.Get().IncSynthesisFailure()
		return nil, fmt.Errorf("synthesis pass failed: %w", err)
	}

	s.log.Info("synthesis finished", "lenses", len(s.lenses), "failed", len(failures))
	return &Result{PerLens: sections, Integrated: integrated, Failures: failures}, nil
}
