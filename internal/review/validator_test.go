package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func genuine() Record {
	return Record{
		Platform: "G2",
		Product:  "Proofpoint",
		Rating:   4,
		Reviewer: "IT Director",
		Text: "We've been using this for two years in our environment. Pros: the quarantine " +
			"dashboard is solid and the api made integration straightforward. Cons: setup " +
			"took longer than expected and renewal pricing crept up.",
	}
}

func TestGenuineReviewIsVerified(t *testing.T) {
	v := NewValidator(nil, 3)
	r := genuine()

	score := v.Score(r)
	assert.GreaterOrEqual(t, score, 3)

	kept := v.Filter([]Record{r})
	assert.Len(t, kept, 1)
	assert.True(t, kept[0].Verified)
	assert.Equal(t, score, kept[0].AuthenticityScore)
}

func TestMarketingCopyIsRejected(t *testing.T) {
	v := NewValidator(nil, 3)
	r := Record{
		Platform: "vendor blog",
		Reviewer: "anonymous",
		Text: "This best-in-class, industry-leading solution delivers a revolutionary, " +
			"game-changing and cutting-edge seamless experience. The company is proud to " +
			"announce world-class unparalleled protection, as announced today.",
	}

	assert.Less(t, v.Score(r), 3)
	assert.Empty(t, v.Filter([]Record{r}))
}

func TestAddingSignalsNeverLowersScore(t *testing.T) {
	v := NewValidator(nil, 3)

	base := Record{Platform: "forum", Text: "We use this product daily and it mostly works for us fine."}
	withRating := base
	withRating.Rating = 5
	withReviewer := withRating
	withReviewer.Reviewer = "Jordan P."
	onTrusted := withReviewer
	onTrusted.Platform = "capterra"

	s0 := v.Score(base)
	s1 := v.Score(withRating)
	s2 := v.Score(withReviewer)
	s3 := v.Score(onTrusted)
	assert.GreaterOrEqual(t, s1, s0)
	assert.GreaterOrEqual(t, s2, s1)
	assert.GreaterOrEqual(t, s3, s2)
}

func TestShortReviewsAreRejected(t *testing.T) {
	v := NewValidator(nil, 0)

	tooShortForAnything := Record{Platform: "g2", Rating: 5, Text: "Great product"}
	assert.Empty(t, v.Filter([]Record{tooShortForAnything}))

	// Long enough with a rating, too short without one.
	borderline := Record{Platform: "g2", Text: "It works well for our small team here"}
	assert.Empty(t, v.Filter([]Record{borderline}))
	borderline.Rating = 4
	assert.Len(t, v.Filter([]Record{borderline}), 1)
}

func TestFilterOrdering(t *testing.T) {
	v := NewValidator(nil, 0)

	long := genuine()
	long.Rating = 3
	long.Text += strings.Repeat(" more operational detail about rollout and policies.", 3)

	short := genuine()
	short.Rating = 3

	top := genuine()
	top.Rating = 5

	kept := v.Filter([]Record{short, long, top})
	assert.Len(t, kept, 3)
	assert.Equal(t, 5, kept[0].Rating)
	assert.Greater(t, len(kept[1].Text), len(kept[2].Text))
}

func TestThresholdIsConfigurable(t *testing.T) {
	r := genuine()

	strict := NewValidator(nil, 100)
	assert.Empty(t, strict.Filter([]Record{r}))

	lax := NewValidator(nil, 0)
	assert.Len(t, lax.Filter([]Record{r}), 1)
}
