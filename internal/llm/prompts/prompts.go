package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 10000

// QuizData holds template data for the quiz generation prompt.
type QuizData struct {
	Transcript string
	NumMCQ     int
	NumText    int
}

// ReferenceData holds template data for the reference answer prompt.
type ReferenceData struct {
	Question   string
	Transcript string
}

// GradeData holds template data for the open answer grading prompt.
type GradeData struct {
	Question        string
	ReferenceAnswer string
	Answer          string
}

// BuildQuizPrompt builds the prompt asking for MCQs and open questions.
func BuildQuizPrompt(d QuizData) (string, error) {
	return execute("quiz.txt", d)
}

// BuildReferencePrompt builds the prompt that backfills a reference answer.
func BuildReferencePrompt(d ReferenceData) (string, error) {
	return execute("reference.txt", d)
}

// BuildGradePrompt builds the grading prompt for one open answer.
// The student's answer is sanitized before it is embedded.
func BuildGradePrompt(d GradeData) (string, error) {
	d.Answer = sanitizeAnswer(d.Answer)
	return execute("grade.txt", d)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
