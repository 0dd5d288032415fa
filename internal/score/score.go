// Package score ranks fetched items by relevance and filters duplicates.
package score

import (
	"strings"

	"intelwatch/internal/feed"
)

// Category classifies an item by threat type. Classification is
// first-match against an ordered keyword list.
type Category string

const (
	CategoryVulnerability Category = "vulnerability"
	CategoryMalware       Category = "malware"
	CategoryPhishing      Category = "phishing"
	CategoryBreach        Category = "breach"
	CategoryPolicy        Category = "policy"
	CategoryGeneral       Category = "general"
)

// Priority is derived from relevance score and priority keywords.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
)

// ScoredItem is a fetched item with its relevance verdict attached.
type ScoredItem struct {
	feed.RawItem

	Relevance int      `json:"relevance"`
	Category  Category `json:"category"`
	Priority  Priority `json:"priority"`
}

// MaxRelevance is the score ceiling; weighted keywords can push the raw
// sum above it, the final score never exceeds it.
const MaxRelevance = 10

// Scorer computes relevance from a keyword table. Scoring is pure: the
// same input always produces the same score.
type Scorer struct {
	table *KeywordTable
}

// NewScorer builds a scorer. A nil table falls back to the defaults.
func NewScorer(table *KeywordTable) *Scorer {
	if table == nil {
		table = DefaultKeywords()
	}
	return &Scorer{table: table}
}

// Score evaluates one item. Text matching is case-insensitive over the
// concatenated title and body.
func (s *Scorer) Score(item feed.RawItem) ScoredItem {
	text := strings.ToLower(item.Title + " " + item.Body)

	score := 0
	for _, base := range s.table.Base {
		if strings.Contains(text, base) {
			score = s.table.BaseScore
			break
		}
	}
	for _, wk := range s.table.Weights {
		if strings.Contains(text, strings.ToLower(wk.Keyword)) {
			score += wk.Weight
		}
	}
	if score > MaxRelevance {
		score = MaxRelevance
	}
	if score < 0 {
		score = 0
	}

	return ScoredItem{
		RawItem:   item,
		Relevance: score,
		Category:  s.categorize(text),
		Priority:  s.prioritize(text),
	}
}

// ScoreAll scores a batch, dropping items below minScore and keeping the
// input order of the survivors.
func (s *Scorer) ScoreAll(items []feed.RawItem, minScore int) []ScoredItem {
	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		si := s.Score(item)
		if si.Relevance < minScore {
			continue
		}
		scored = append(scored, si)
	}
	return scored
}

func (s *Scorer) categorize(text string) Category {
	for _, group := range s.table.Categories {
		for _, kw := range group.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return group.Category
			}
		}
	}
	return CategoryGeneral
}

func (s *Scorer) prioritize(text string) Priority {
	for _, kw := range s.table.Critical {
		if strings.Contains(text, strings.ToLower(kw)) {
			return PriorityCritical
		}
	}
	for _, kw := range s.table.High {
		if strings.Contains(text, strings.ToLower(kw)) {
			return PriorityHigh
		}
	}
	return PriorityMedium
}
