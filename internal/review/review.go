// Package review collects customer reviews from an upstream API and
// filters out inauthentic ones.
package review

import "time"

// Record is one customer review as collected. AuthenticityScore and
// Verified are filled in by the Validator.
type Record struct {
	Platform   string    `json:"platform"`
	Product    string    `json:"product"`
	Rating     int       `json:"rating"` // 0 means no rating given
	Text       string    `json:"text"`
	Reviewer   string    `json:"reviewer"`
	SourceURL  string    `json:"source_url"`
	CapturedAt time.Time `json:"captured_at"`

	AuthenticityScore int  `json:"authenticity_score"`
	Verified          bool `json:"verified"`
}

// DegradedReason explains why the review channel produced partial or no
// data this run.
type DegradedReason struct {
	Kind   string `json:"kind"` // "auth" or "unavailable"
	Detail string `json:"detail"`
}

// ChannelResult is what the pipeline receives from the review channel: the
// reviews that were collected plus an optional degradation marker. A
// degraded channel never fails the run.
type ChannelResult struct {
	Reviews  []Record        `json:"reviews"`
	Degraded *DegradedReason `json:"degraded,omitempty"`
}
