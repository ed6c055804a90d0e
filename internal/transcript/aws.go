package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/google/uuid"
)

// ErrJobFailed means an AWS Transcribe job ended in the FAILED state.
var ErrJobFailed = errors.New("transcription job failed")

// S3API is the part of the S3 client used for uploads.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// TranscribeAPI is the part of the Transcribe client used for batch jobs.
type TranscribeAPI interface {
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// AWSConfig configures AWSTranscriber.
type AWSConfig struct {
	Bucket       string
	LanguageCode string
	PollInterval time.Duration
	MaxWait      time.Duration
	HTTPClient   *http.Client
}

// AWSTranscriber uploads audio to S3 and runs an AWS Transcribe batch job.
type AWSTranscriber struct {
	s3   S3API
	tr   TranscribeAPI
	cfg  AWSConfig
	http *http.Client
}

// NewAWSTranscriber creates an AWSTranscriber. Zero durations default to a
// 5s poll interval and a 15 minute maximum wait.
func NewAWSTranscriber(s3c S3API, tr TranscribeAPI, cfg AWSConfig) *AWSTranscriber {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 15 * time.Minute
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &AWSTranscriber{s3: s3c, tr: tr, cfg: cfg, http: hc}
}

// NewAWSTranscriberFromEnv loads the default AWS credential chain for region
// and builds S3 and Transcribe clients from it.
func NewAWSTranscriberFromEnv(ctx context.Context, region string, cfg AWSConfig) (*AWSTranscriber, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required for aws transcription")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewAWSTranscriber(s3.NewFromConfig(awsCfg), transcribe.NewFromConfig(awsCfg), cfg), nil
}

// Transcribe implements SpeechToText.
func (a *AWSTranscriber) Transcribe(ctx context.Context, videoID string, audio Audio) (string, error) {
	key := "audio/" + filepath.Base(audio.Path)
	if err := a.upload(ctx, key, audio); err != nil {
		return "", err
	}
	defer a.removeUpload(key)

	jobName := fmt.Sprintf("transcription-%s-%s", videoID, uuid.NewString()[:8])
	_, err := a.tr.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media:                &types.Media{MediaFileUri: aws.String(fmt.Sprintf("s3://%s/%s", a.cfg.Bucket, key))},
		MediaFormat:          mediaFormat(audio),
		LanguageCode:         types.LanguageCode(a.cfg.LanguageCode),
	})
	if err != nil {
		return "", fmt.Errorf("start transcription job: %w", err)
	}
	slog.Info("transcription job started", "video_id", videoID, "job", jobName)

	uri, err := a.waitForJob(ctx, jobName)
	if err != nil {
		return "", err
	}
	text, err := a.fetchTranscript(ctx, uri)
	if err != nil {
		return "", err
	}
	slog.Info("audio transcribed", "video_id", videoID, "backend", "aws", "chars", len(text))
	return text, nil
}

func (a *AWSTranscriber) upload(ctx context.Context, key string, audio Audio) error {
	f, err := os.Open(audio.Path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if audio.MimeType != "" {
		in.ContentType = aws.String(audio.MimeType)
	}
	if _, err := a.s3.PutObject(ctx, in); err != nil {
		return fmt.Errorf("upload audio to s3://%s/%s: %w", a.cfg.Bucket, key, err)
	}
	return nil
}

func (a *AWSTranscriber) removeUpload(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := a.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Warn("failed to delete uploaded audio", "key", key, "error", err)
	}
}

// waitForJob polls the job until it completes, fails, or MaxWait elapses,
// and returns the transcript file URI.
func (a *AWSTranscriber) waitForJob(ctx context.Context, jobName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.MaxWait)
	defer cancel()

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		out, err := a.tr.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(jobName),
		})
		if err != nil {
			return "", fmt.Errorf("get transcription job %s: %w", jobName, err)
		}
		job := out.TranscriptionJob
		if job == nil {
			return "", fmt.Errorf("get transcription job %s: empty response", jobName)
		}

		switch job.TranscriptionJobStatus {
		case types.TranscriptionJobStatusCompleted:
			if job.Transcript == nil || aws.ToString(job.Transcript.TranscriptFileUri) == "" {
				return "", fmt.Errorf("job %s completed without a transcript URI", jobName)
			}
			return aws.ToString(job.Transcript.TranscriptFileUri), nil
		case types.TranscriptionJobStatusFailed:
			return "", fmt.Errorf("%w: %s: %s", ErrJobFailed, jobName, aws.ToString(job.FailureReason))
		}
		slog.Debug("transcription job pending", "job", jobName, "status", job.TranscriptionJobStatus)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for job %s: %w", jobName, ctx.Err())
		case <-ticker.C:
		}
	}
}

type transcribeResult struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (a *AWSTranscriber) fetchTranscript(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch transcript: unexpected status %s", resp.Status)
	}

	var res transcribeResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	if len(res.Results.Transcripts) == 0 {
		return "", errors.New("transcript document has no transcripts")
	}
	return strings.TrimSpace(res.Results.Transcripts[0].Transcript), nil
}

func mediaFormat(audio Audio) types.MediaFormat {
	switch audio.MimeType {
	case "audio/mpeg":
		return types.MediaFormatMp3
	case "audio/mp4":
		return types.MediaFormatM4a
	case "audio/webm":
		return types.MediaFormatWebm
	case "audio/ogg":
		return types.MediaFormatOgg
	case "audio/wav", "audio/x-wav":
		return types.MediaFormatWav
	case "audio/flac":
		return types.MediaFormatFlac
	}
	return types.MediaFormat(strings.TrimPrefix(filepath.Ext(audio.Path), "."))
}
