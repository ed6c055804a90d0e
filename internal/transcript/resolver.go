// Package transcript turns a YouTube video ID into plain transcript text,
// from captions when they exist and from the audio track otherwise.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Provider resolves the transcript of a video.
type Provider interface {
	Resolve(ctx context.Context, videoID string) (string, error)
}

// Source values recorded with cached transcripts.
const (
	SourceCaptions = "captions"
	SourceAudio    = "audio"
)

// Lookup is the outcome of a caption lookup. Found is false when the video
// has no usable captions.
type Lookup struct {
	Text  string
	Found bool
}

// CaptionSource fetches existing captions for a video.
type CaptionSource interface {
	Lookup(ctx context.Context, videoID string) (Lookup, error)
}

// Audio is a downloaded audio track on local disk.
type Audio struct {
	Path     string
	MimeType string
}

// AudioSource downloads the audio track of a video into dir.
type AudioSource interface {
	Download(ctx context.Context, videoID, dir string) (Audio, error)
}

// SpeechToText transcribes a local audio file.
type SpeechToText interface {
	Transcribe(ctx context.Context, videoID string, audio Audio) (string, error)
}

// Cache stores resolved transcripts by video ID.
type Cache interface {
	Get(ctx context.Context, videoID string) (string, bool, error)
	Put(ctx context.Context, videoID, text, source string) error
}

// Resolver is the Provider used by the application. Captions and audio
// transcription are optional; a Resolver with neither always fails.
type Resolver struct {
	captions CaptionSource
	audio    AudioSource
	stt      SpeechToText
	cache    Cache
	tempDir  string
	timeout  time.Duration
	group    singleflight.Group
}

// DefaultResolveTimeout bounds one shared resolution, audio fallback included.
const DefaultResolveTimeout = 30 * time.Minute

// Option configures a Resolver.
type Option func(*Resolver)

// WithCaptions enables the caption lookup step.
func WithCaptions(c CaptionSource) Option {
	return func(r *Resolver) { r.captions = c }
}

// WithSpeechToText enables the audio fallback. Both arguments are required
// for the fallback to run.
func WithSpeechToText(a AudioSource, s SpeechToText) Option {
	return func(r *Resolver) {
		r.audio = a
		r.stt = s
	}
}

// WithCache stores and reuses resolved transcripts.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithTempDir sets the parent directory for downloaded audio. The default
// is os.TempDir().
func WithTempDir(dir string) Option {
	return func(r *Resolver) { r.tempDir = dir }
}

// WithTimeout bounds a shared resolution independently of the callers
// waiting on it. Zero or negative keeps DefaultResolveTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{timeout: DefaultResolveTimeout}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the transcript for videoID. Concurrent calls for the same
// ID share one resolution, which runs detached from any single caller and
// is bounded by the resolver timeout. A caller whose ctx ends stops waiting
// without affecting the others. Failures wrap ErrTranscriptUnavailable.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (string, error) {
	ch := r.group.DoChan(videoID, func() (any, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.resolve(sharedCtx, videoID)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrTranscriptUnavailable, ctx.Err())
	case res := <-ch:
		if res.Shared {
			slog.Debug("shared in-flight transcript resolution", "video_id", videoID)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *Resolver) resolve(ctx context.Context, videoID string) (string, error) {
	if r.cache != nil {
		text, ok, err := r.cache.Get(ctx, videoID)
		switch {
		case err != nil:
			slog.Warn("transcript cache read failed", "video_id", videoID, "error", err)
		case ok:
			slog.Info("transcript cache hit", "video_id", videoID)
			return text, nil
		}
	}

	if r.captions != nil {
		l, err := r.captions.Lookup(ctx, videoID)
		if err != nil {
			slog.Info("caption lookup failed", "video_id", videoID, "error", err)
		}
		if err == nil && l.Found && strings.TrimSpace(l.Text) != "" {
			slog.Info("transcript found", "video_id", videoID, "source", SourceCaptions)
			r.store(ctx, videoID, l.Text, SourceCaptions)
			return l.Text, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptUnavailable, err)
	}

	if r.audio == nil || r.stt == nil {
		return "", fmt.Errorf("%w: no captions for %s and audio transcription is disabled", ErrTranscriptUnavailable, videoID)
	}

	slog.Info("no captions, transcribing audio", "video_id", videoID)
	text, err := r.transcribeAudio(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty transcription for %s", ErrTranscriptUnavailable, videoID)
	}
	r.store(ctx, videoID, text, SourceAudio)
	return text, nil
}

func (r *Resolver) transcribeAudio(ctx context.Context, videoID string) (string, error) {
	dir, err := os.MkdirTemp(r.tempDir, "tubequiz-"+videoID+"-")
	if err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove audio dir", "dir", dir, "error", err)
		}
	}()

	audio, err := r.audio.Download(ctx, videoID, dir)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	text, err := r.stt.Transcribe(ctx, videoID, audio)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return text, nil
}

func (r *Resolver) store(ctx context.Context, videoID, text, source string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, videoID, text, source); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("transcript cache write failed", "video_id", videoID, "error", err)
	}
}
