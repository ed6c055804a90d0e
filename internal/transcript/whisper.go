package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Whisper transcribes audio with an OpenAI-compatible transcription endpoint.
type Whisper struct {
	client *openai.Client
	model  string
	lang   string
}

// NewWhisper creates a Whisper transcriber. An empty model selects
// whisper-1.
func NewWhisper(baseURL, apiKey, model, lang string) *Whisper {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: openai.NewClientWithConfig(cfg), model: model, lang: lang}
}

// Transcribe implements SpeechToText.
func (w *Whisper) Transcribe(ctx context.Context, videoID string, audio Audio) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audio.Path,
		Language: w.lang,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	slog.Info("audio transcribed", "video_id", videoID, "backend", "whisper", "chars", len(resp.Text))
	return strings.TrimSpace(resp.Text), nil
}
