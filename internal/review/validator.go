package review

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"intelwatch/internal/metrics"
)

// Indicators holds the weighted signals the validator scores against.
// Loadable from YAML so the heuristic can be retuned without a rebuild.
type Indicators struct {
	TrustedPlatforms []string `yaml:"trusted_platforms"`
	Authenticity     []string `yaml:"authenticity"`
	Experience       []string `yaml:"experience"`
	Implementation   []string `yaml:"implementation"`
	Features         []string `yaml:"features"`
	GenericMarketing []string `yaml:"generic_marketing"`
	PressRelease     []string `yaml:"press_release"`

	MinReviewLength  int `yaml:"min_review_length"`
	MinRatingContext int `yaml:"min_rating_context"`
}

// LoadIndicators reads indicator lists from a YAML file.
func LoadIndicators(path string) (*Indicators, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading indicators file: %w", err)
	}
	var ind Indicators
	if err := yaml.Unmarshal(data, &ind); err != nil {
		return nil, fmt.Errorf("parsing indicators file: %w", err)
	}
	ind.applyDefaults()
	return &ind, nil
}

// DefaultIndicators returns the built-in signal lists.
func DefaultIndicators() *Indicators {
	ind := &Indicators{
		TrustedPlatforms: []string{"g2", "capterra", "trustradius", "gartner peer insights", "reddit"},
		Authenticity: []string{
			"we use", "we've been using", "our team", "our company",
			"in our environment", "we deployed", "we switched",
			"my experience", "i've used", "we evaluated",
		},
		Experience: []string{
			"pros", "cons", "downside", "drawback", "issue we hit",
			"support was", "pricing", "renewal",
		},
		Implementation: []string{
			"setup", "deployment", "integration", "migration",
			"onboarding", "configure", "rollout",
		},
		Features: []string{
			"dashboard", "reporting", "api", "filtering", "quarantine",
			"detection", "alerts", "policies",
		},
		GenericMarketing: []string{
			"best-in-class", "industry-leading", "revolutionary",
			"game-changing", "cutting-edge", "world-class",
			"unparalleled", "seamless experience",
		},
		PressRelease: []string{
			"announced today", "press release", "is proud to announce",
			"today announced",
		},
	}
	ind.applyDefaults()
	return ind
}

func (i *Indicators) applyDefaults() {
	if i.MinReviewLength == 0 {
		i.MinReviewLength = 50
	}
	if i.MinRatingContext == 0 {
		i.MinRatingContext = 20
	}
}

// Validator scores reviews against weighted indicators. A review whose
// score reaches the threshold is marked verified.
type Validator struct {
	ind       *Indicators
	threshold int
}

// NewValidator builds a validator. A nil Indicators falls back to the
// defaults; threshold is the minimum score for a verified review.
func NewValidator(ind *Indicators, threshold int) *Validator {
	if ind == nil {
		ind = DefaultIndicators()
	}
	return &Validator{ind: ind, threshold: threshold}
}

// Score computes the authenticity score for one review. The score can go
// negative; Verified requires score >= threshold.
func (v *Validator) Score(r Record) int {
	text := strings.ToLower(r.Text)
	platform := strings.ToLower(r.Platform)

	score := 0
	for _, p := range v.ind.TrustedPlatforms {
		if strings.Contains(platform, p) {
			score += 3
			break
		}
	}

	hits := 0
	for _, kw := range v.ind.Authenticity {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	if hits > 5 {
		hits = 5
	}
	score += hits

	if containsAny(text, v.ind.Experience) {
		score += 2
	}
	if containsAny(text, v.ind.Implementation) {
		score += 2
	}
	if containsAny(text, v.ind.Features) {
		score++
	}
	if r.Rating > 0 {
		score++
	}
	if r.Reviewer != "" && !strings.EqualFold(r.Reviewer, "anonymous") {
		score++
	}

	generic := 0
	for _, kw := range v.ind.GenericMarketing {
		if strings.Contains(text, kw) {
			generic += 2
		}
	}
	if generic > 8 {
		generic = 8
	}
	score -= generic

	if containsAny(text, v.ind.PressRelease) {
		score -= 5
	}

	return score
}

// Filter scores a batch, keeps verified reviews, and orders them for
// presentation: higher rating first, then longer text, trusted platforms
// breaking remaining ties.
func (v *Validator) Filter(records []Record) []Record {
	kept := make([]Record, 0, len(records))
	rejected := 0

	for _, r := range records {
		if len(r.Text) < v.ind.MinRatingContext {
			rejected++
			continue
		}
		if r.Rating == 0 && len(r.Text) < v.ind.MinReviewLength {
			rejected++
			continue
		}

		r.AuthenticityScore = v.Score(r)
		r.Verified = r.AuthenticityScore >= v.threshold
		if !r.Verified {
			rejected++
			continue
		}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Rating != kept[j].Rating {
			return kept[i].Rating > kept[j].Rating
		}
		if len(kept[i].Text) != len(kept[j].Text) {
			return len(kept[i].Text) > len(kept[j].Text)
		}
		return v.trusted(kept[i].Platform) && !v.trusted(kept[j].Platform)
	})

	metrics.Get().AddReviewsVerified(len(kept))
	metrics.Get().AddReviewsRejected(rejected)
	return kept
}

func (v *Validator) trusted(platform string) bool {
	platform = strings.ToLower(platform)
	for _, p := range v.ind.TrustedPlatforms {
		if strings.Contains(platform, p) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
