package score

import (
	"crypto/sha1"
	"fmt"
	"net/url"
	"strings"
	"time"

	"intelwatch/internal/feed"
	"intelwatch/internal/metrics"
)

// similarity key parameters: two items from the same host whose titles
// share the same leading words inside one window count as the same story.
const (
	similarityWords  = 6
	similarityWindow = 6 * time.Hour
)

// Dedup filters repeated items across a run. It is idempotent: feeding it
// the same batch twice leaves only the first copy.
type Dedup struct {
	seenLinks   map[string]struct{}
	seenContent map[string]struct{}
	seenSimilar map[string]struct{}
}

// NewDedup returns an empty deduplicator.
func NewDedup() *Dedup {
	return &Dedup{
		seenLinks:   make(map[string]struct{}),
		seenContent: make(map[string]struct{}),
		seenSimilar: make(map[string]struct{}),
	}
}

// Filter returns the items not seen before, in input order, and records
// everything it saw.
func (d *Dedup) Filter(items []feed.RawItem) []feed.RawItem {
	kept := make([]feed.RawItem, 0, len(items))
	dropped := 0
	for _, item := range items {
		if d.Seen(item) {
			dropped++
			continue
		}
		d.Mark(item)
		kept = append(kept, item)
	}
	if dropped > 0 {
		metrics.Get().AddDuplicates(dropped)
	}
	return kept
}

// Seen reports whether an equivalent item was already recorded.
func (d *Dedup) Seen(item feed.RawItem) bool {
	if _, ok := d.seenLinks[normalizeLink(item.URL)]; ok {
		return true
	}
	if _, ok := d.seenContent[contentKey(item)]; ok {
		return true
	}
	if _, ok := d.seenSimilar[similarityKey(item)]; ok {
		return true
	}
	return false
}

// Mark records an item so later equivalents are filtered.
func (d *Dedup) Mark(item feed.RawItem) {
	d.seenLinks[normalizeLink(item.URL)] = struct{}{}
	d.seenContent[contentKey(item)] = struct{}{}
	d.seenSimilar[similarityKey(item)] = struct{}{}
}

func normalizeLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return strings.TrimSpace(strings.ToLower(link))
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.ToLower(strings.TrimSuffix(u.String(), "/"))
}

// contentKey hashes the normalized title and body so republished copies
// of the same text collapse to one key.
func contentKey(item feed.RawItem) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(item.Title+" "+item.Body), " "))
	return fmt.Sprintf("%x", sha1.Sum([]byte(normalized)))
}

// similarityKey groups near-identical stories: same host, same leading
// title words, same publication window.
func similarityKey(item feed.RawItem) string {
	host := ""
	if u, err := url.Parse(item.URL); err == nil {
		host = u.Hostname()
	}

	words := strings.Fields(strings.ToLower(item.Title))
	if len(words) > similarityWords {
		words = words[:similarityWords]
	}

	bucket := item.PublishedAt.UTC().Truncate(similarityWindow).Unix()
	return fmt.Sprintf("%s|%s|%d", host, strings.Join(words, " "), bucket)
}
