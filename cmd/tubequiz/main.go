package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/tubequiz/internal/handler"
	appI18n "github.com/pavelanni/tubequiz/internal/i18n"
	"github.com/pavelanni/tubequiz/internal/model"
	"github.com/pavelanni/tubequiz/internal/quiz"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tubequiz",
		Short: "Quizzes generated from YouTube videos and graded by an LLM",
	}

	serve := serveCmd()
	root.AddCommand(serve, takeCmd(), transcriptCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `tubequiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz web server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.Duration("session-idle", 2*time.Hour, "Drop quiz sessions idle for longer than this (0 = never)")
	addQuizFlags(f)
	addLLMFlags(f)
	addTranscriptFlags(f)
	addLogFlags(f)
	return cmd
}

func addQuizFlags(f *pflag.FlagSet) {
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	f.Int("num-mcq", quiz.DefaultNumMCQ, "Number of multiple-choice questions to request")
	f.Int("num-text", quiz.DefaultNumText, "Number of short answer questions to request")
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-backend", "openai", "LLM backend (openai, ollama)")
	f.String("llm-url", "http://localhost:11434/v1", "LLM API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("llm-timeout", 2*time.Minute, "Timeout for a single LLM call")
	f.Int("llm-retries", 2, "Attempts per LLM call")
}

func addTranscriptFlags(f *pflag.FlagSet) {
	f.String("transcript-lang", "en", "Caption language to request from YouTube")
	f.String("stt-backend", "none", "Speech-to-text fallback when a video has no captions (whisper, aws, none)")
	f.String("whisper-model", "whisper-1", "Whisper model name (uses --llm-url and --llm-key)")
	f.String("aws-region", "us-west-1", "AWS region for S3 and Transcribe")
	f.String("s3-bucket", "", "S3 bucket for audio uploads")
	f.String("transcribe-language", "en-US", "AWS Transcribe language code")
	f.Duration("transcribe-poll-interval", 5*time.Second, "AWS Transcribe job poll interval")
	f.Duration("transcribe-max-wait", 15*time.Minute, "Maximum wait for an AWS Transcribe job")
	f.String("cache", "sqlite", "Transcript cache (sqlite, redis, none)")
	f.String("db", "tubequiz.db", "SQLite transcript cache path")
	f.String("redis-addr", "localhost:6379", "Redis address")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database number")
	f.Duration("cache-ttl", 7*24*time.Hour, "Transcript cache lifetime (0 = forever)")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TUBEQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("tubequiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tubequiz")
	v.AddConfigPath("/etc/tubequiz")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	completer, err := buildCompleter(ctx, v)
	if err != nil {
		return err
	}
	resolver, closeCache, err := buildResolver(ctx, v)
	if err != nil {
		return err
	}
	defer closeCache()

	quizCfg := model.QuizConfig{
		NumMCQ:        v.GetInt("num-mcq"),
		NumText:       v.GetInt("num-text"),
		SecureCookies: v.GetBool("secure-cookies"),
	}
	svc := quiz.NewService(resolver, quiz.NewGenerator(completer, quizCfg.NumMCQ, quizCfg.NumText))
	sessions := handler.NewRegistry(v.GetDuration("session-idle"))
	go sessions.Run(ctx, time.Minute)

	h := handler.New(svc, quiz.NewGrader(completer), sessions, quizCfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware)
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	slog.Info("starting server",
		"addr", addr,
		"llm_backend", v.GetString("llm-backend"),
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"num_mcq", quizCfg.NumMCQ,
		"num_text", quizCfg.NumText,
		"stt_backend", v.GetString("stt-backend"),
		"cache", v.GetString("cache"),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
