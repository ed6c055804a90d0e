package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pavelanni/tubequiz/internal/llm"
	"github.com/pavelanni/tubequiz/internal/llm/prompts"
	"github.com/pavelanni/tubequiz/internal/model"
)

// Canonical feedback texts.
const (
	FeedbackNoAnswer   = "No answer provided"
	FeedbackEvalFailed = "Error evaluating answer"
)

const (
	maxTextScore = 10
	halfWeight   = 50.0
)

// Scorer computes feedback and the composite score for a set of responses.
type Scorer interface {
	Score(ctx context.Context, q *model.Quiz, mcqResponses, textResponses map[string]string) (map[string]model.Feedback, model.ScoreSummary)
}

// Grader scores MCQs by exact match and open answers through the LLM.
type Grader struct {
	llm llm.Completer
}

// NewGrader creates a Grader.
func NewGrader(c llm.Completer) *Grader {
	return &Grader{llm: c}
}

// Score implements Scorer. MCQs and open questions each contribute up to 50
// points. Unanswered MCQs still count in the MCQ denominator. Open answers are
// graded one at a time in question order; a failed grading never stops the
// rest of the pass.
func (g *Grader) Score(ctx context.Context, q *model.Quiz, mcqResponses, textResponses map[string]string) (map[string]model.Feedback, model.ScoreSummary) {
	var summary model.ScoreSummary

	summary.MCQTotal = len(q.MCQs)
	for _, idx := range sortedIndices(mcqResponses, len(q.MCQs)) {
		if mcqResponses[strconv.Itoa(idx)] == q.MCQs[idx].Answer {
			summary.MCQCorrect++
		}
	}
	if summary.MCQTotal > 0 {
		summary.MCQScore = float64(summary.MCQCorrect) / float64(summary.MCQTotal) * halfWeight
	}

	feedback := make(map[string]model.Feedback)
	textTotal := len(q.TextQuestions)
	var scores []int
	for _, idx := range sortedIndices(textResponses, textTotal) {
		key := strconv.Itoa(idx)
		answer := textResponses[key]
		if strings.TrimSpace(answer) == "" {
			feedback[key] = model.Feedback{Score: 0, Feedback: FeedbackNoAnswer}
			continue
		}
		item := q.TextQuestions[idx]
		fb, err := g.GradeText(ctx, item.Question, item.ReferenceAnswer(), answer)
		if err != nil {
			slog.Error("text answer grading failed", "index", idx, "error", err)
		}
		feedback[key] = fb
		scores = append(scores, fb.Score)
	}
	if textTotal > 0 && len(scores) > 0 {
		sum := 0
		for _, s := range scores {
			sum += s
		}
		summary.TextScore = float64(sum) / float64(textTotal*maxTextScore) * halfWeight
	}

	summary.TotalScore = summary.MCQScore + summary.TextScore
	slog.Info("quiz scored",
		"mcq_correct", summary.MCQCorrect,
		"mcq_total", summary.MCQTotal,
		"text_score", summary.TextScore,
		"total_score", summary.TotalScore,
	)
	return feedback, summary
}

// gradeResponse is the grading payload expected from the model.
type gradeResponse struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

// GradeText grades one open answer. It always returns usable feedback; the
// error, when set, explains why the fallback was used.
func (g *Grader) GradeText(ctx context.Context, question, reference, answer string) (model.Feedback, error) {
	prompt, err := prompts.BuildGradePrompt(prompts.GradeData{
		Question:        question,
		ReferenceAnswer: reference,
		Answer:          answer,
	})
	if err != nil {
		return model.Feedback{Score: 0, Feedback: FeedbackEvalFailed}, err
	}

	raw, err := g.llm.Complete(ctx, prompt, llm.WithTemperature(0.2), llm.WithMaxTokens(500))
	if err != nil {
		return model.Feedback{Score: 0, Feedback: "Error: " + err.Error()}, fmt.Errorf("%w: %w", ErrGradingCallFailed, err)
	}

	var resp gradeResponse
	if err := llm.ExtractJSON(raw, &resp); err != nil {
		slog.Debug("unparseable grading output", "raw", raw)
		return model.Feedback{Score: 0, Feedback: FeedbackEvalFailed}, err
	}
	if resp.Score == nil {
		return model.Feedback{Score: 0, Feedback: FeedbackEvalFailed}, fmt.Errorf("%w: missing score", llm.ErrMalformedOutput)
	}

	return model.Feedback{Score: clampScore(*resp.Score), Feedback: resp.Feedback}, nil
}

func clampScore(s float64) int {
	if math.IsNaN(s) {
		return 0
	}
	// Clamp before converting: float to int is undefined out of range.
	s = math.Max(0, math.Min(maxTextScore, s))
	return int(math.Round(s))
}

// sortedIndices returns the numeric keys of responses that address a question
// in [0, n), ascending. Other keys are ignored.
func sortedIndices(responses map[string]string, n int) []int {
	idx := make([]int, 0, len(responses))
	for k := range responses {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= n || strconv.Itoa(i) != k {
			slog.Warn("ignoring response with invalid question index", "key", k)
			continue
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
