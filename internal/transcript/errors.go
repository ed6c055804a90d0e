package transcript

import "errors"

var (
	// ErrInvalidReference means no video ID could be parsed from a reference.
	ErrInvalidReference = errors.New("invalid YouTube video reference")
	// ErrTranscriptUnavailable means neither captions nor audio
	// transcription produced text.
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	// ErrNoAudio means the video has no downloadable audio stream.
	ErrNoAudio = errors.New("no audio stream")
)
