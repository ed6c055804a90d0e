package quiz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/tubequiz/internal/llm"
	"github.com/pavelanni/tubequiz/internal/llm/prompts"
	"github.com/pavelanni/tubequiz/internal/model"
)

// NoReferenceAnswer is stored when backfilling a reference answer fails.
const NoReferenceAnswer = "No reference answer available."

const (
	DefaultNumMCQ  = 5
	DefaultNumText = 3
)

// Generator turns a transcript into a quiz with one primary LLM call plus one
// backfill call per open question that lacks a reference answer.
type Generator struct {
	llm     llm.Completer
	numMCQ  int
	numText int
}

// NewGenerator creates a Generator. Non-positive counts fall back to 5 MCQs
// and 3 open questions.
func NewGenerator(c llm.Completer, numMCQ, numText int) *Generator {
	if numMCQ <= 0 {
		numMCQ = DefaultNumMCQ
	}
	if numText <= 0 {
		numText = DefaultNumText
	}
	return &Generator{llm: c, numMCQ: numMCQ, numText: numText}
}

// quizOutput is the raw LLM payload before validation.
type quizOutput struct {
	MCQs          []model.MCQItem  `json:"mcqs"`
	TextQuestions []model.TextItem `json:"text_questions"`
}

// Generate builds a quiz from transcript. Any failure of the primary call or
// its extraction returns ErrGenerationFailed and no quiz.
func (g *Generator) Generate(ctx context.Context, transcript string) (*model.Quiz, error) {
	prompt, err := prompts.BuildQuizPrompt(prompts.QuizData{
		Transcript: transcript,
		NumMCQ:     g.numMCQ,
		NumText:    g.numText,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	raw, err := g.llm.Complete(ctx, prompt, llm.WithTemperature(0.7), llm.WithMaxTokens(2000))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	var out quizOutput
	if err := llm.ExtractJSON(raw, &out); err != nil {
		slog.Error("failed to parse quiz output", "error", err)
		slog.Debug("unparseable quiz output", "raw", raw)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	q := &model.Quiz{
		MCQs:          validMCQs(out.MCQs),
		TextQuestions: out.TextQuestions,
	}
	if q.MCQs == nil {
		q.MCQs = []model.MCQItem{}
	}
	if q.TextQuestions == nil {
		q.TextQuestions = []model.TextItem{}
	}

	if err := g.backfill(ctx, q, transcript); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	slog.Info("quiz generated", "mcqs", len(q.MCQs), "text_questions", len(q.TextQuestions))
	return q, nil
}

// backfill fills missing reference answers one call at a time in question
// order. A failed call stores NoReferenceAnswer; only cancellation of ctx
// aborts the whole step.
func (g *Generator) backfill(ctx context.Context, q *model.Quiz, transcript string) error {
	for i := range q.TextQuestions {
		item := &q.TextQuestions[i]
		if item.Answer != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		answer := NoReferenceAnswer
		prompt, err := prompts.BuildReferencePrompt(prompts.ReferenceData{
			Question:   item.Question,
			Transcript: transcript,
		})
		if err == nil {
			var out string
			out, err = g.llm.Complete(ctx, prompt, llm.WithTemperature(0.3), llm.WithMaxTokens(500))
			if err == nil {
				answer = out
			}
		}
		if err != nil {
			slog.Warn("reference answer backfill failed", "index", i, "error", err)
		}
		item.Answer = &answer
	}
	return nil
}

// validMCQs drops items that break the quiz invariants: a non-empty question,
// at least two distinct options, and an answer equal to one of them.
func validMCQs(items []model.MCQItem) []model.MCQItem {
	var valid []model.MCQItem
	for i, m := range items {
		if reason := invalidMCQ(m); reason != "" {
			slog.Warn("dropping invalid MCQ", "index", i, "reason", reason, "question", m.Question)
			continue
		}
		valid = append(valid, m)
	}
	return valid
}

func invalidMCQ(m model.MCQItem) string {
	if m.Question == "" {
		return "empty question"
	}
	if len(m.Options) < 2 {
		return "fewer than two options"
	}
	seen := make(map[string]bool, len(m.Options))
	for _, o := range m.Options {
		if seen[o] {
			return "duplicate option"
		}
		seen[o] = true
	}
	if !seen[m.Answer] {
		return "answer not among options"
	}
	return ""
}
