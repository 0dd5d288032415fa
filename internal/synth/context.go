package synth

import (
	"fmt"
	"sort"
	"strings"

	"intelwatch/internal/review"
	"intelwatch/internal/score"
)

// BuildInput formats scored articles and verified reviews into the text
// block handed to every lens. Articles are reordered most relevant first
// so truncation drops the least useful material.
func BuildInput(items []score.ScoredItem, reviews []review.Record) string {
	var b strings.Builder

	if len(items) > 0 {
		ordered := make([]score.ScoredItem, len(items))
		copy(ordered, items)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Relevance > ordered[j].Relevance
		})

		b.WriteString("== NEWS & ADVISORIES ==\n")
		for i, item := range ordered {
			fmt.Fprintf(&b, "\n[%d] %s (%s, %s/%s, relevance %d/10)\n",
				i+1, item.Title, item.SourceName, item.Category, item.Priority, item.Relevance)
			fmt.Fprintf(&b, "Published: %s\n", item.PublishedAt.Format("2006-01-02"))
			if item.Body != "" {
				b.WriteString(truncateRunes(item.Body, 600))
				b.WriteString("\n")
			}
		}
	}

	if len(reviews) > 0 {
		b.WriteString("\n== CUSTOMER REVIEWS ==\n")
		for i, r := range reviews {
			fmt.Fprintf(&b, "\n[R%d] %s on %s", i+1, r.Product, r.Platform)
			if r.Rating > 0 {
				fmt.Fprintf(&b, " (rated %d/5)", r.Rating)
			}
			b.WriteString("\n")
			b.WriteString(truncateRunes(r.Text, 400))
			b.WriteString("\n")
		}
	}

	if b.Len() == 0 {
		return "No material was collected in this run."
	}
	return b.String()
}
