package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pavelanni/tubequiz/internal/llm"
	"github.com/pavelanni/tubequiz/internal/store"
	"github.com/pavelanni/tubequiz/internal/transcript"
)

// cache is what the commands need from either transcript cache backend.
type cache interface {
	transcript.Cache
	Delete(ctx context.Context, videoID string) error
}

func buildCompleter(ctx context.Context, v *viper.Viper) (llm.Completer, error) {
	url := v.GetString("llm-url")
	modelName := v.GetString("llm-model")
	timeout := v.GetDuration("llm-timeout")

	var c llm.Completer
	switch backend := strings.ToLower(v.GetString("llm-backend")); backend {
	case "ollama":
		o, err := llm.NewOllama(strings.TrimSuffix(url, "/v1"), modelName, timeout)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		c = o
	case "openai", "":
		client, err := llm.New(url, v.GetString("llm-key"), modelName, timeout)
		if err != nil {
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			return nil, fmt.Errorf("LLM health check: %w", err)
		}
		c = client
	default:
		return nil, fmt.Errorf("unknown llm-backend %q", backend)
	}
	slog.Info("LLM endpoint ready", "url", url, "model", modelName)

	return llm.WithRetry(c, v.GetInt("llm-retries"), time.Second), nil
}

// buildResolver assembles the transcript pipeline. The returned func closes
// the cache and is safe to call when no cache is configured.
func buildResolver(ctx context.Context, v *viper.Viper) (*transcript.Resolver, func(), error) {
	lang := v.GetString("transcript-lang")
	yt := transcript.NewYouTube(lang)
	opts := []transcript.Option{transcript.WithCaptions(yt)}

	switch backend := strings.ToLower(v.GetString("stt-backend")); backend {
	case "whisper":
		w := transcript.NewWhisper(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("whisper-model"), lang)
		opts = append(opts, transcript.WithSpeechToText(yt, w))
	case "aws":
		a, err := transcript.NewAWSTranscriberFromEnv(ctx, v.GetString("aws-region"), transcript.AWSConfig{
			Bucket:       v.GetString("s3-bucket"),
			LanguageCode: v.GetString("transcribe-language"),
			PollInterval: v.GetDuration("transcribe-poll-interval"),
			MaxWait:      v.GetDuration("transcribe-max-wait"),
		})
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, transcript.WithSpeechToText(yt, a))
	case "none", "":
	default:
		return nil, nil, fmt.Errorf("unknown stt-backend %q", backend)
	}

	c, closeCache, err := openCache(ctx, v)
	if err != nil {
		return nil, nil, err
	}
	if c != nil {
		opts = append(opts, transcript.WithCache(c))
	}
	return transcript.NewResolver(opts...), closeCache, nil
}

func openCache(ctx context.Context, v *viper.Viper) (cache, func(), error) {
	ttl := v.GetDuration("cache-ttl")
	switch kind := strings.ToLower(v.GetString("cache")); kind {
	case "sqlite":
		db, err := store.New(v.GetString("db"), ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("open transcript cache: %w", err)
		}
		if n, err := db.Prune(ctx); err != nil {
			slog.Warn("prune transcript cache", "error", err)
		} else if n > 0 {
			slog.Info("pruned expired transcripts", "count", n)
		}
		return db, func() { db.Close() }, nil
	case "redis":
		client, err := store.DialRedis(ctx, v.GetString("redis-addr"), v.GetString("redis-password"), v.GetInt("redis-db"))
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisCache(client, ttl), func() { client.Close() }, nil
	case "none", "":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache %q", kind)
	}
}
