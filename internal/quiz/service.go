package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/tubequiz/internal/transcript"
)

// Stage names a step of quiz generation, reported through ProgressFunc.
type Stage string

const (
	StageAnalyzing  Stage = "analyzing"
	StageTranscript Stage = "transcript"
	StageGenerating Stage = "generating"
	StageDone       Stage = "done"
)

// ProgressFunc receives generation stages as they start. It may be nil.
type ProgressFunc func(Stage)

// Service runs one generation attempt: video reference to installed quiz.
type Service struct {
	transcripts transcript.Provider
	generator   *Generator
}

// NewService creates a Service.
func NewService(p transcript.Provider, g *Generator) *Service {
	return &Service{transcripts: p, generator: g}
}

// Start resets sess and tries to install a quiz for videoRef. On any failure
// the session is left without a quiz and the error wraps one of
// ErrInvalidReference, ErrTranscriptUnavailable or ErrGenerationFailed.
func (s *Service) Start(ctx context.Context, sess *Session, videoRef string, progress ProgressFunc) error {
	report := func(st Stage) {
		if progress != nil {
			progress(st)
		}
	}
	sess.Reset()

	report(StageAnalyzing)
	videoID, err := transcript.ParseVideoID(videoRef)
	if err != nil {
		slog.Error("invalid video reference", "ref", videoRef)
		return err
	}

	report(StageTranscript)
	text, err := s.transcripts.Resolve(ctx, videoID)
	if err != nil {
		slog.Error("transcript unavailable", "video_id", videoID, "error", err)
		if !errors.Is(err, ErrTranscriptUnavailable) {
			err = fmt.Errorf("%w: %w", ErrTranscriptUnavailable, err)
		}
		return err
	}

	report(StageGenerating)
	q, err := s.generator.Generate(ctx, text)
	if err != nil {
		slog.Error("quiz generation failed", "video_id", videoID, "error", err)
		return err
	}

	sess.Load(videoID, q)
	report(StageDone)
	slog.Info("quiz ready", "video_id", videoID)
	return nil
}
