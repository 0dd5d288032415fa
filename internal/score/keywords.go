package score

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WeightedKeyword assigns extra relevance points when the keyword appears.
type WeightedKeyword struct {
	Keyword string `yaml:"keyword"`
	Weight  int    `yaml:"weight"`
}

// CategoryGroup is an ordered keyword group; the first group with a match
// decides an item's category.
type CategoryGroup struct {
	Category Category `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// KeywordTable holds everything the scorer needs. It is loadable from YAML
// so deployments can tune weights without a rebuild.
type KeywordTable struct {
	Base       []string          `yaml:"base"`
	BaseScore  int               `yaml:"base_score"`
	Weights    []WeightedKeyword `yaml:"weights"`
	Categories []CategoryGroup   `yaml:"categories"`
	Critical   []string          `yaml:"critical"`
	High       []string          `yaml:"high"`
}

// LoadKeywords reads a keyword table from a YAML file.
func LoadKeywords(path string) (*KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keywords file: %w", err)
	}
	var table KeywordTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing keywords file: %w", err)
	}
	if len(table.Base) == 0 {
		return nil, fmt.Errorf("keyword table has no base terms")
	}
	return &table, nil
}

// DefaultKeywords returns the built-in table tuned for email security
// product intelligence.
func DefaultKeywords() *KeywordTable {
	return &KeywordTable{
		BaseScore: 2,
		Base: []string{
			"security", "threat", "attack", "breach", "vulnerability",
			"malware", "ransomware", "phishing", "exploit", "cyber",
		},
		Weights: []WeightedKeyword{
			{Keyword: "proofpoint", Weight: 5},
			{Keyword: "mimecast", Weight: 5},
			{Keyword: "barracuda", Weight: 5},
			{Keyword: "abnormal security", Weight: 5},
			{Keyword: "microsoft defender", Weight: 5},
			{Keyword: "email security", Weight: 3},
			{Keyword: "business email compromise", Weight: 3},
			{Keyword: "bec", Weight: 3},
			{Keyword: "spear phishing", Weight: 3},
			{Keyword: "email gateway", Weight: 3},
			{Keyword: "dmarc", Weight: 3},
			{Keyword: "spoofing", Weight: 3},
			{Keyword: "zero-day", Weight: 2},
			{Keyword: "data breach", Weight: 2},
			{Keyword: "credential", Weight: 2},
			{Keyword: "apt", Weight: 2},
		},
		Categories: []CategoryGroup{
			{Category: CategoryVulnerability, Keywords: []string{"vulnerability", "cve", "exploit", "zero-day", "patch"}},
			{Category: CategoryMalware, Keywords: []string{"malware", "ransomware", "trojan", "botnet", "backdoor"}},
			{Category: CategoryPhishing, Keywords: []string{"phishing", "spear phishing", "bec", "business email compromise", "spoofing"}},
			{Category: CategoryBreach, Keywords: []string{"breach", "leak", "stolen", "exposed", "compromised"}},
			{Category: CategoryPolicy, Keywords: []string{"regulation", "compliance", "gdpr", "policy", "lawsuit"}},
		},
		Critical: []string{"zero-day", "actively exploited", "critical vulnerability", "mass exploitation", "emergency patch"},
		High:     []string{"ransomware", "data breach", "apt", "supply chain", "nation-state"},
	}
}
