package quiz

import (
	"context"
	"sync"

	"github.com/pavelanni/tubequiz/internal/llm"
	"github.com/pavelanni/tubequiz/internal/model"
)

// scriptedLLM answers prompts with a caller-supplied function and records
// every prompt it receives.
type scriptedLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string, _ ...llm.CallOption) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.respond(prompt)
}

func (s *scriptedLLM) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func strPtr(s string) *string { return &s }

// fiveThreeQuiz is a quiz with five MCQs (answers A1..A5) and three open
// questions with reference answers.
func fiveThreeQuiz() *model.Quiz {
	q := &model.Quiz{}
	for i := 1; i <= 5; i++ {
		ans := "A" + string(rune('0'+i))
		q.MCQs = append(q.MCQs, model.MCQItem{
			Question: "MCQ " + string(rune('0'+i)),
			Options:  []string{ans, "wrong-" + ans, "other-" + ans},
			Answer:   ans,
		})
	}
	for i := 1; i <= 3; i++ {
		q.TextQuestions = append(q.TextQuestions, model.TextItem{
			Question: "Open " + string(rune('0'+i)),
			Answer:   strPtr("reference " + string(rune('0'+i))),
		})
	}
	return q
}
