package quiz

import (
	"errors"

	"github.com/pavelanni/tubequiz/internal/transcript"
)

var (
	// ErrInvalidReference means the video reference could not be parsed.
	ErrInvalidReference = transcript.ErrInvalidReference
	// ErrTranscriptUnavailable means no transcript could be obtained.
	ErrTranscriptUnavailable = transcript.ErrTranscriptUnavailable
	// ErrGenerationFailed means the model call or its output failed during
	// quiz creation. No quiz is installed.
	ErrGenerationFailed = errors.New("quiz generation failed")
	// ErrGradingCallFailed marks a failed grading call for one open question.
	// It is never returned from Submit; the question gets fallback feedback.
	ErrGradingCallFailed = errors.New("grading call failed")

	ErrNoQuiz           = errors.New("no quiz loaded")
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	ErrIndexOutOfRange  = errors.New("question index out of range")
)
