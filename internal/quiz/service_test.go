package quiz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/tubequiz/internal/transcript"
)

type fakeProvider struct {
	text string
	err  error
	ids  []string
}

func (f *fakeProvider) Resolve(_ context.Context, videoID string) (string, error) {
	f.ids = append(f.ids, videoID)
	return f.text, f.err
}

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestServiceStart(t *testing.T) {
	p := &fakeProvider{text: "a transcript"}
	fake := &scriptedLLM{respond: func(prompt string) (string, error) {
		if isQuizPrompt(prompt) {
			return quizJSON, nil
		}
		return "backfilled", nil
	}}
	svc := NewService(p, NewGenerator(fake, 5, 3))
	sess := NewSession()

	var stages []Stage
	err := svc.Start(context.Background(), sess, videoURL, func(s Stage) { stages = append(stages, s) })
	require.NoError(t, err)

	assert.Equal(t, []string{"dQw4w9WgXcQ"}, p.ids)
	assert.Equal(t, []Stage{StageAnalyzing, StageTranscript, StageGenerating, StageDone}, stages)
	assert.Contains(t, fake.calls()[0], "a transcript")

	v := sess.Snapshot()
	assert.Equal(t, "dQw4w9WgXcQ", v.VideoID)
	require.NotNil(t, v.Quiz)
	assert.Len(t, v.Quiz.MCQs, 2)
	assert.False(t, v.Submitted)
}

func TestServiceStartFailuresLeaveNoQuiz(t *testing.T) {
	okLLM := func(string) (string, error) { return quizJSON, nil }
	tests := []struct {
		name     string
		ref      string
		provider *fakeProvider
		respond  func(string) (string, error)
		wantErr  error
	}{
		{"invalid reference", "https://example.com/video", &fakeProvider{text: "t"}, okLLM, ErrInvalidReference},
		{"transcript unavailable", videoURL, &fakeProvider{err: fmt.Errorf("%w: no captions", transcript.ErrTranscriptUnavailable)}, okLLM, ErrTranscriptUnavailable},
		{"provider error is wrapped", videoURL, &fakeProvider{err: errors.New("boom")}, okLLM, ErrTranscriptUnavailable},
		{"generation fails", videoURL, &fakeProvider{text: "t"}, func(string) (string, error) { return "no json", nil }, ErrGenerationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := NewSession()
			sess.Load("previous", fiveThreeQuiz())
			require.NoError(t, sess.RecordMCQResponse(0, "A1"))

			svc := NewService(tt.provider, NewGenerator(&scriptedLLM{respond: tt.respond}, 5, 3))
			err := svc.Start(context.Background(), sess, tt.ref, nil)
			assert.ErrorIs(t, err, tt.wantErr)

			v := sess.Snapshot()
			assert.Nil(t, v.Quiz)
			assert.Empty(t, v.VideoID)
			assert.Empty(t, v.MCQResponses)
			assert.ErrorIs(t, sess.RecordMCQResponse(0, "A1"), ErrNoQuiz)
		})
	}
}
