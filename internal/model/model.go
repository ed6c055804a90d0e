package model

import "context"

// MCQItem is a multiple-choice question. Answer must equal one of Options.
type MCQItem struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// HasOption reports whether opt is one of the item's options (exact match).
func (m MCQItem) HasOption(opt string) bool {
	for _, o := range m.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// TextItem is an open question. Answer is the reference answer; nil means
// the model did not supply one.
type TextItem struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer,omitempty"`
}

// ReferenceAnswer returns the reference answer or an empty string.
func (t TextItem) ReferenceAnswer() string {
	if t.Answer == nil {
		return ""
	}
	return *t.Answer
}

// Quiz is generated once per session. Indices into MCQs and TextQuestions
// are stable for the lifetime of the session.
type Quiz struct {
	MCQs          []MCQItem  `json:"mcqs"`
	TextQuestions []TextItem `json:"text_questions"`
}

// Feedback is the grading result for one text question.
type Feedback struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// ScoreSummary is the composite result of a submitted quiz.
type ScoreSummary struct {
	MCQCorrect int     `json:"mcq_correct"`
	MCQTotal   int     `json:"mcq_total"`
	MCQScore   float64 `json:"mcq_score"`
	TextScore  float64 `json:"text_score"`
	TotalScore float64 `json:"total_score"`
}

// Band classifies a score for display.
type Band string

const (
	BandPoor    Band = "poor"
	BandAverage Band = "average"
	BandGood    Band = "good"
)

// FeedbackBand maps a 0-10 feedback score to its band.
func FeedbackBand(score int) Band {
	switch {
	case score >= 7:
		return BandGood
	case score >= 4:
		return BandAverage
	default:
		return BandPoor
	}
}

// TotalBand maps a 0-100 composite score to its band.
func TotalBand(total float64) Band {
	pct := int(total)
	switch {
	case pct >= 70:
		return BandGood
	case pct >= 50:
		return BandAverage
	default:
		return BandPoor
	}
}

// QuizConfig holds runtime quiz parameters set via CLI flags.
type QuizConfig struct {
	NumMCQ        int
	NumText       int
	SecureCookies bool
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
