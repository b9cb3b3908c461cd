package letter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autoapply-engine/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Generator produces a personalized cover letter for one (profile, job)
// pair. Errors surface to the caller, which falls back to a template; a
// generation failure is never fatal to a run.
type Generator interface {
	Generate(ctx context.Context, p domain.Profile, j domain.Job) (string, error)
}

const prompt = `You write short job-application cover letters.

Write a cover letter of 8 to 12 lines from the candidate below to the company
below. Plain text only, no subject line, no markdown. End with a closing line
and a proposal to schedule an interview.

Candidate: %s
Desired roles: %s
Company: %s
Position: %s
Location: %s
`

type GoogleAI struct {
	model llms.Model
}

// NewGoogleAI builds a Gemini-backed generator. The API key is required;
// construction fails fast instead of failing on every run.
func NewGoogleAI(ctx context.Context, apiKey, model string) (*GoogleAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("generator api key is empty")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}
	return &GoogleAI{model: llm}, nil
}

func (g *GoogleAI) Generate(ctx context.Context, p domain.Profile, j domain.Job) (string, error) {
	in := fmt.Sprintf(prompt,
		p.CandidateName,
		strings.Join(p.Titles, ", "),
		j.CompanyName,
		j.Title,
		j.Location,
	)
	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, in)
	if err != nil {
		return "", fmt.Errorf("generate letter: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("generator returned empty letter")
	}
	return out, nil
}
