package synth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"intelwatch/internal/logger"
	"intelwatch/internal/ratelimit"
)

// maxInputChars caps the material sent with one prompt. Truncation is
// rune-aware so multi-byte text is never cut mid-character.
const maxInputChars = 8000

// GeminiAgent implements Agent using the Gemini API.
type GeminiAgent struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	limiter *ratelimit.Limiter
	log     interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// NewGeminiAgent connects to the Gemini API. limiter may be nil to disable
// budget enforcement.
func NewGeminiAgent(ctx context.Context, apiKey, modelName string, limiter *ratelimit.Limiter) (*GeminiAgent, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)

	return &GeminiAgent{
		client:  client,
		model:   model,
		limiter: limiter,
		log:     logger.With("gemini"),
	}, nil
}

// Close releases the underlying API client.
func (g *GeminiAgent) Close() error {
	return g.client.Close()
}

// Analyze runs one lens prompt over the input material.
func (g *GeminiAgent) Analyze(ctx context.Context, lens Lens, input string) (string, error) {
	if g.limiter != nil && !g.limiter.Allow(lens.ID) {
		return "", fmt.Errorf("daily call budget exhausted for lens %s", lens.ID)
	}

	prompt := lens.Prompt + "\n\n--- MATERIAL ---\n" + truncateRunes(input, maxInputChars)
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("lens %s: %w", lens.ID, err)
	}
	if g.limiter != nil {
		g.limiter.Use(lens.ID)
	}
	return text, nil
}

// Synthesize merges the lens sections into one integrated report.
func (g *GeminiAgent) Synthesize(ctx context.Context, query string, sections map[string]string) (string, error) {
	if g.limiter != nil && !g.limiter.Allow("synthesis") {
		return "", fmt.Errorf("daily call budget exhausted for synthesis")
	}

	var b strings.Builder
	b.WriteString("You are a senior intelligence coordinator. Merge the analyst sections below ")
	b.WriteString("into one coherent report answering the question: ")
	b.WriteString(query)
	b.WriteString("\nResolve contradictions between sections explicitly and end with the three ")
	b.WriteString("most important takeaways.\n")

	perSection := maxInputChars
	if len(sections) > 0 {
		perSection = maxInputChars / len(sections)
	}

	ids := make([]string, 0, len(sections))
	for id := range sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.WriteString("\n--- SECTION: ")
		b.WriteString(id)
		b.WriteString(" ---\n")
		b.WriteString(truncateRunes(sections[id], perSection))
		b.WriteString("\n")
	}

	text, err := g.generate(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	if g.limiter != nil {
		g.limiter.Use("synthesis")
	}
	return text, nil
}

func (g *GeminiAgent) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("model returned no text parts")
	}
	return text, nil
}

// truncateRunes cuts s to at most max runes on a rune boundary.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "\n[material truncated]"
}
