package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"sync"

	"github.com/pavelanni/tubequiz/internal/model"
)

// Session is the state of one interactive quiz attempt. All methods are safe
// for concurrent use; each holds the session lock for its whole duration, so
// Submit runs at most once per loaded quiz.
type Session struct {
	mu            sync.Mutex
	videoID       string
	quiz          *model.Quiz
	mcqResponses  map[string]string
	textResponses map[string]string
	textFeedback  map[string]model.Feedback
	submitted     bool
	score         *model.ScoreSummary
}

// View is a copy of a session's state for rendering.
type View struct {
	VideoID       string
	Quiz          *model.Quiz
	MCQResponses  map[string]string
	TextResponses map[string]string
	TextFeedback  map[string]model.Feedback
	Submitted     bool
	Score         *model.ScoreSummary
}

// NewSession returns an empty session with no quiz.
func NewSession() *Session {
	s := &Session{}
	s.resetLocked()
	return s
}

func (s *Session) resetLocked() {
	s.videoID = ""
	s.quiz = nil
	s.mcqResponses = make(map[string]string)
	s.textResponses = make(map[string]string)
	s.textFeedback = make(map[string]model.Feedback)
	s.submitted = false
	s.score = nil
}

// Reset discards the quiz, all responses, feedback and score.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Load resets the session and installs q, generated for videoID.
func (s *Session) Load(videoID string, q *model.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.videoID = videoID
	s.quiz = cloneQuiz(q)
}

// RecordMCQResponse stores the selected option for MCQ index i. The option is
// not checked against the question's options.
func (s *Session) RecordMCQResponse(i int, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable(i, func(q *model.Quiz) int { return len(q.MCQs) }); err != nil {
		return err
	}
	s.mcqResponses[strconv.Itoa(i)] = option
	return nil
}

// RecordTextResponse stores the free-text answer for open question i. An
// empty string is recorded as such.
func (s *Session) RecordTextResponse(i int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable(i, func(q *model.Quiz) int { return len(q.TextQuestions) }); err != nil {
		return err
	}
	s.textResponses[strconv.Itoa(i)] = text
	return nil
}

func (s *Session) checkWritable(i int, count func(*model.Quiz) int) error {
	if s.quiz == nil {
		return ErrNoQuiz
	}
	if s.submitted {
		return ErrAlreadySubmitted
	}
	if i < 0 || i >= count(s.quiz) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return nil
}

// Submit grades the recorded responses and freezes the session. It returns
// ErrNoQuiz without a quiz and ErrAlreadySubmitted on any later call, leaving
// the stored score untouched.
func (s *Session) Submit(ctx context.Context, scorer Scorer) (model.ScoreSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiz == nil {
		return model.ScoreSummary{}, ErrNoQuiz
	}
	if s.submitted {
		return *s.score, ErrAlreadySubmitted
	}

	slog.Info("quiz submitted", "video_id", s.videoID,
		"mcq_responses", len(s.mcqResponses), "text_responses", len(s.textResponses))
	feedback, summary := scorer.Score(ctx, s.quiz, s.mcqResponses, s.textResponses)
	s.textFeedback = feedback
	if s.textFeedback == nil {
		s.textFeedback = make(map[string]model.Feedback)
	}
	s.score = &summary
	s.submitted = true
	return summary, nil
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		VideoID:       s.videoID,
		Quiz:          cloneQuiz(s.quiz),
		MCQResponses:  maps.Clone(s.mcqResponses),
		TextResponses: maps.Clone(s.textResponses),
		TextFeedback:  maps.Clone(s.textFeedback),
		Submitted:     s.submitted,
	}
	if s.score != nil {
		sc := *s.score
		v.Score = &sc
	}
	return v
}

// Export converts a view into its JSON document form.
func (v View) Export() model.SessionExport {
	return model.SessionExport{
		VideoID:       v.VideoID,
		Quiz:          v.Quiz,
		MCQResponses:  v.MCQResponses,
		TextResponses: v.TextResponses,
		TextFeedback:  v.TextFeedback,
		Submitted:     v.Submitted,
		Score:         v.Score,
	}
}

func cloneQuiz(q *model.Quiz) *model.Quiz {
	if q == nil {
		return nil
	}
	out := &model.Quiz{
		MCQs:          make([]model.MCQItem, len(q.MCQs)),
		TextQuestions: make([]model.TextItem, len(q.TextQuestions)),
	}
	for i, m := range q.MCQs {
		m.Options = append([]string(nil), m.Options...)
		out.MCQs[i] = m
	}
	for i, t := range q.TextQuestions {
		if t.Answer != nil {
			a := *t.Answer
			t.Answer = &a
		}
		out.TextQuestions[i] = t
	}
	return out
}
