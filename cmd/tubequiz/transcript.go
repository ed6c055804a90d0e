package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavelanni/tubequiz/internal/transcript"
)

func transcriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <youtube-url>",
		Short: "Print the transcript used for a video's quiz",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranscript,
	}
	f := cmd.Flags()
	f.Bool("refresh", false, "Drop the cached transcript before resolving")
	addTranscriptFlags(f)
	f.String("llm-url", "http://localhost:11434/v1", "API base URL for whisper transcription")
	f.String("llm-key", "ollama", "API key for whisper transcription")
	addLogFlags(f)
	return cmd
}

func runTranscript(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	videoID, err := transcript.ParseVideoID(args[0])
	if err != nil {
		return err
	}

	if v.GetBool("refresh") {
		c, closeCache, err := openCache(ctx, v)
		if err != nil {
			return err
		}
		if c != nil {
			if err := c.Delete(ctx, videoID); err != nil {
				closeCache()
				return fmt.Errorf("drop cached transcript: %w", err)
			}
		}
		closeCache()
	}

	resolver, closeCache, err := buildResolver(ctx, v)
	if err != nil {
		return err
	}
	defer closeCache()

	text, err := resolver.Resolve(ctx, videoID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
