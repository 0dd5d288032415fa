package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"intelwatch/internal/feed"
)

func item(title, body string) feed.RawItem {
	return feed.RawItem{
		Title:       title,
		URL:         "https://example.com/" + title,
		Body:        body,
		SourceName:  "Test",
		PublishedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestScoreStaysInBounds(t *testing.T) {
	s := NewScorer(nil)

	// Stacks every heavy keyword; the raw sum would exceed the ceiling.
	loaded := item("Proofpoint and Mimecast email security zero-day",
		"barracuda abnormal security microsoft defender business email compromise "+
			"spear phishing email gateway dmarc spoofing data breach credential apt")
	assert.Equal(t, MaxRelevance, s.Score(loaded).Relevance)

	bland := item("Quarterly gardening tips", "How to prune roses in late summer.")
	got := s.Score(bland)
	assert.GreaterOrEqual(t, got.Relevance, 0)
	assert.LessOrEqual(t, got.Relevance, MaxRelevance)
}

func TestScoreIsDeterministic(t *testing.T) {
	s := NewScorer(nil)
	it := item("Ransomware hits email gateway vendor", "A new ransomware strain targets email security products.")

	first := s.Score(it)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Score(it))
	}
}

func TestCategoryFirstMatchWins(t *testing.T) {
	s := NewScorer(nil)

	// Mentions both a vulnerability and malware; vulnerability is checked
	// first, so it wins.
	both := item("Exploit for CVE used to drop ransomware", "attackers chain a vulnerability with malware")
	assert.Equal(t, CategoryVulnerability, s.Score(both).Category)

	malwareOnly := item("New botnet spreads trojan", "a fresh malware campaign")
	assert.Equal(t, CategoryMalware, s.Score(malwareOnly).Category)

	neither := item("Vendor ships quarterly report", "financial results were flat")
	assert.Equal(t, CategoryGeneral, s.Score(neither).Category)
}

func TestKeywordFreeItemScoresZero(t *testing.T) {
	s := NewScorer(nil)
	got := s.Score(item("Quarterly gardening tips", "How to prune roses in late summer."))
	assert.Equal(t, 0, got.Relevance)
	assert.Equal(t, CategoryGeneral, got.Category)
}

func TestHighPriorityComesFromKeywordsNotScore(t *testing.T) {
	s := NewScorer(nil)

	// Maxed-out relevance from vendor terms alone still defaults to
	// medium priority.
	got := s.Score(item("Proofpoint and Mimecast email security comparison",
		"the two vendors compared on filtering and quarantine"))
	assert.Equal(t, MaxRelevance, got.Relevance)
	assert.Equal(t, PriorityMedium, got.Priority)
}

func TestPriorityAssignment(t *testing.T) {
	s := NewScorer(nil)

	assert.Equal(t, PriorityCritical, s.Score(item("Zero-day actively exploited", "patch now")).Priority)
	assert.Equal(t, PriorityHigh, s.Score(item("Ransomware gang hits hospital", "ransomware spreading")).Priority)
	assert.Equal(t, PriorityMedium, s.Score(item("Minor phishing campaign observed", "low volume phishing")).Priority)
}

func TestScoreAllFiltersBelowMinimum(t *testing.T) {
	s := NewScorer(nil)
	items := []feed.RawItem{
		item("Proofpoint email security update", "email security vendor news"),
		item("Local bakery opens", "bread and pastries"),
	}

	kept := s.ScoreAll(items, 3)
	assert.Len(t, kept, 1)
	assert.Equal(t, "Proofpoint email security update", kept[0].Title)
}
