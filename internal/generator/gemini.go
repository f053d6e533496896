// Package generator implements the generator collaborator on top of
// the Gemini API. Each retry round renders the specification plus the
// accumulated counterexamples into the prompt, so every request is
// strictly richer than the last.
package generator

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/logging"
)

const defaultModel = "gemini-2.0-flash"

// GeminiGenerator produces candidate source via the Gemini API.
type GeminiGenerator struct {
	client   *genai.Client
	model    string
	language candidate.Language
}

// NewGeminiGenerator creates a generator for the given target language.
// An empty model selects the default.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, lang candidate.Language) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &GeminiGenerator{client: client, model: model, language: lang}, nil
}

// Language returns the language the generator emits.
func (g *GeminiGenerator) Language() candidate.Language {
	return g.language
}

// Generate requests one candidate at the given temperature. Feedback
// counterexamples are rendered into the prompt verbatim.
func (g *GeminiGenerator) Generate(ctx context.Context, spec *ir.Spec, feedback []candidate.Counterexample, temperature float64) (string, error) {
	prompt := g.buildPrompt(spec, feedback)

	temp := float32(temperature)
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: &temp},
	)
	if err != nil {
		logging.GeneratorError("generation failed: %v", err)
		return "", fmt.Errorf("generate: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("generate: empty response")
	}

	code := ExtractCodeBlock(text)
	logging.GeneratorDebug("generated %d bytes at temperature %.2f (%d counterexamples in prompt)",
		len(code), temperature, len(feedback))
	return code, nil
}

func (g *GeminiGenerator) buildPrompt(spec *ir.Spec, feedback []candidate.Counterexample) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Write a single %s function implementing this specification.\n\n", g.language)
	fmt.Fprintf(&sb, "Function name: %s\n", spec.Signature.Name)
	for _, p := range spec.Signature.Params {
		fmt.Fprintf(&sb, "Parameter: %s (%s)", p.Name, p.Type)
		if p.Constraint != "" {
			fmt.Fprintf(&sb, " — %s", p.Constraint)
		}
		sb.WriteString("\n")
	}
	if spec.Signature.ReturnsValue() {
		fmt.Fprintf(&sb, "Return type: %s\n", spec.Signature.ReturnType)
	}

	if len(spec.Effects) > 0 {
		sb.WriteString("\nControl flow requirements:\n")
		for _, e := range spec.Effects {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}

	if len(spec.Assertions) > 0 {
		sb.WriteString("\nThe result must satisfy:\n")
		for _, a := range spec.Assertions {
			fmt.Fprintf(&sb, "- %s", a.Predicate)
			if a.Rationale != "" {
				fmt.Fprintf(&sb, " (%s)", a.Rationale)
			}
			sb.WriteString("\n")
		}
	}

	if len(feedback) > 0 {
		sb.WriteString("\nPrevious attempts failed on these cases; the new code must handle every one of them:\n")
		for _, cx := range feedback {
			fmt.Fprintf(&sb, "- %s\n", cx.String())
		}
	}

	sb.WriteString("\nRespond with only the function source code, no explanation.\n")
	return sb.String()
}

// ExtractCodeBlock strips a fenced code block from model output,
// returning the trimmed input when no fence is present.
func ExtractCodeBlock(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return strings.TrimSpace(text)
	}
	rest := text[start+3:]
	if nl := strings.Index(rest, "\n"); nl != -1 {
		// drop the language tag line
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
