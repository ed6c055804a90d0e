// Package views renders the quiz pages as templ components.
package views

//go:generate templ generate

import (
	"context"
	"strconv"

	"github.com/pavelanni/tubequiz/internal/i18n"
	"github.com/pavelanni/tubequiz/internal/model"
)

// IndexData is everything the main page shows for one browser session.
type IndexData struct {
	// ErrorID is the i18n message ID of the last error, if any.
	ErrorID  string
	VideoURL string
	Session  model.SessionExport
}

type optionState int

const (
	optionPlain optionState = iota
	optionCorrect
	optionWrongChoice
)

func mcqName(i int) string { return "mcq_" + strconv.Itoa(i) }

func textName(i int) string { return "text_" + strconv.Itoa(i) }

func optionID(i, j int) string { return mcqName(i) + "_" + strconv.Itoa(j) }

func answeredMCQ(s model.SessionExport, i int) bool {
	_, ok := s.MCQResponses[strconv.Itoa(i)]
	return ok
}

func isChosen(s model.SessionExport, i int, opt string) bool {
	chosen, ok := s.MCQResponses[strconv.Itoa(i)]
	return ok && chosen == opt
}

// reviewOption classifies one option of a submitted MCQ. The user's choice
// is only marked when it is wrong; the correct option is always marked.
func reviewOption(s model.SessionExport, i int, m model.MCQItem, opt string) optionState {
	switch {
	case opt == m.Answer:
		return optionCorrect
	case isChosen(s, i, opt):
		return optionWrongChoice
	default:
		return optionPlain
	}
}

func scoreOf(s model.SessionExport) model.ScoreSummary {
	if s.Score == nil {
		return model.ScoreSummary{}
	}
	return *s.Score
}

func breakdown(sc model.ScoreSummary) map[string]any {
	return map[string]any{
		"Correct": sc.MCQCorrect,
		"Total":   sc.MCQTotal,
		"Text":    int(sc.TextScore),
	}
}

func feedbackFor(ctx context.Context, s model.SessionExport, i int) model.Feedback {
	if fb, ok := s.TextFeedback[strconv.Itoa(i)]; ok {
		return fb
	}
	return model.Feedback{Score: 0, Feedback: i18n.T(ctx, "NotEvaluated")}
}
