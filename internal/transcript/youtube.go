package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// YouTube reads captions and audio streams from YouTube. It implements
// CaptionSource and AudioSource.
type YouTube struct {
	client *youtube.Client
	lang   string
}

// NewYouTube creates a YouTube source. lang selects the caption track
// ("en" when empty).
func NewYouTube(lang string) *YouTube {
	if lang == "" {
		lang = "en"
	}
	return &YouTube{client: &youtube.Client{}, lang: lang}
}

// Lookup implements CaptionSource. Videos with captions disabled report
// Found=false without an error.
func (y *YouTube) Lookup(ctx context.Context, videoID string) (Lookup, error) {
	video, err := y.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return Lookup{}, fmt.Errorf("get video %s: %w", videoID, err)
	}
	segments, err := y.client.GetTranscriptCtx(ctx, video, y.lang)
	if errors.Is(err, youtube.ErrTranscriptDisabled) {
		return Lookup{}, nil
	}
	if err != nil {
		return Lookup{}, fmt.Errorf("get captions %s: %w", videoID, err)
	}

	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return Lookup{}, nil
	}
	slog.Debug("captions fetched", "video_id", videoID, "segments", len(parts))
	return Lookup{Text: strings.Join(parts, " "), Found: true}, nil
}

// Download implements AudioSource. It picks the audio-only format with the
// highest bitrate and streams it into dir.
func (y *YouTube) Download(ctx context.Context, videoID, dir string) (Audio, error) {
	video, err := y.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return Audio{}, fmt.Errorf("get video %s: %w", videoID, err)
	}

	format := bestAudio(video.Formats)
	if format == nil {
		return Audio{}, fmt.Errorf("%w: %s", ErrNoAudio, videoID)
	}
	mimeType, _, _ := mime.ParseMediaType(format.MimeType)

	stream, _, err := y.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return Audio{}, fmt.Errorf("open audio stream: %w", err)
	}
	defer stream.Close()

	path := filepath.Join(dir, videoID+audioExtension(mimeType))
	f, err := os.Create(path)
	if err != nil {
		return Audio{}, fmt.Errorf("create audio file: %w", err)
	}
	n, err := io.Copy(f, stream)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Audio{}, fmt.Errorf("write audio file: %w", err)
	}

	slog.Info("audio downloaded", "video_id", videoID, "bytes", n, "mime", mimeType)
	return Audio{Path: path, MimeType: mimeType}, nil
}

func bestAudio(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}

func audioExtension(mimeType string) string {
	switch mimeType {
	case "audio/mp4":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	}
	return ".audio"
}
