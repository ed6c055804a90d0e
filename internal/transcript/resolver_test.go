package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaptions struct {
	calls  atomic.Int32
	lookup Lookup
	err    error
	delay  time.Duration
}

func (f *fakeCaptions) Lookup(ctx context.Context, _ string) (Lookup, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return Lookup{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.lookup, f.err
}

// fakeAudio writes a small file into the directory it is given and
// remembers the path.
type fakeAudio struct {
	path string
	err  error
}

func (f *fakeAudio) Download(_ context.Context, videoID, dir string) (Audio, error) {
	if f.err != nil {
		return Audio{}, f.err
	}
	f.path = filepath.Join(dir, videoID+".m4a")
	if err := os.WriteFile(f.path, []byte("audio"), 0o600); err != nil {
		return Audio{}, err
	}
	return Audio{Path: f.path, MimeType: "audio/mp4"}, nil
}

type fakeSTT struct {
	text    string
	err     error
	sawFile bool
}

func (f *fakeSTT) Transcribe(_ context.Context, _ string, a Audio) (string, error) {
	_, statErr := os.Stat(a.Path)
	f.sawFile = statErr == nil
	return f.text, f.err
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]string
	sources map[string]string
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]string{}, sources: map[string]string{}}
}

func (m *memCache) Get(_ context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	t, ok := m.entries[id]
	return t, ok, nil
}

func (m *memCache) Put(_ context.Context, id, text, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = text
	m.sources[id] = source
	return nil
}

func TestResolveCaptions(t *testing.T) {
	caps := &fakeCaptions{lookup: Lookup{Text: "hello world", Found: true}}
	audio := &fakeAudio{}
	cache := newMemCache()
	r := NewResolver(WithCaptions(caps), WithSpeechToText(audio, &fakeSTT{text: "unused"}), WithCache(cache))

	text, err := r.Resolve(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Empty(t, audio.path, "audio fallback must not run when captions exist")
	assert.Equal(t, SourceCaptions, cache.sources["vid"])

	text, err = r.Resolve(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.EqualValues(t, 1, caps.calls.Load(), "second call is served from cache")
}

func TestResolveAudioFallback(t *testing.T) {
	tests := []struct {
		name string
		caps *fakeCaptions
	}{
		{"not found", &fakeCaptions{lookup: Lookup{Found: false}}},
		{"lookup error treated as not found", &fakeCaptions{err: errors.New("blocked")}},
		{"blank captions", &fakeCaptions{lookup: Lookup{Text: "  ", Found: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio := &fakeAudio{}
			stt := &fakeSTT{text: "spoken words"}
			cache := newMemCache()
			r := NewResolver(WithCaptions(tt.caps), WithSpeechToText(audio, stt), WithCache(cache), WithTempDir(t.TempDir()))

			text, err := r.Resolve(context.Background(), "vid")
			require.NoError(t, err)
			assert.Equal(t, "spoken words", text)
			assert.True(t, stt.sawFile)
			assert.NoFileExists(t, audio.path, "audio file is removed after transcription")
			assert.Equal(t, SourceAudio, cache.sources["vid"])
		})
	}
}

func TestResolveRemovesAudioOnFailure(t *testing.T) {
	audio := &fakeAudio{}
	stt := &fakeSTT{err: errors.New("job failed")}
	r := NewResolver(WithCaptions(&fakeCaptions{}), WithSpeechToText(audio, stt), WithTempDir(t.TempDir()))

	_, err := r.Resolve(context.Background(), "vid")
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
	assert.True(t, stt.sawFile)
	assert.NoFileExists(t, audio.path)
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"nothing configured", nil},
		{"no captions and no audio fallback", []Option{WithCaptions(&fakeCaptions{})}},
		{"download fails", []Option{WithSpeechToText(&fakeAudio{err: ErrNoAudio}, &fakeSTT{text: "x"})}},
		{"empty transcription", []Option{WithSpeechToText(&fakeAudio{}, &fakeSTT{text: " "})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(append(tt.opts, WithTempDir(t.TempDir()))...)
			text, err := r.Resolve(context.Background(), "vid")
			assert.Empty(t, text)
			assert.ErrorIs(t, err, ErrTranscriptUnavailable)
		})
	}
}

func TestResolveCacheErrorFallsThrough(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	r := NewResolver(WithCaptions(&fakeCaptions{lookup: Lookup{Text: "t", Found: true}}), WithCache(cache))

	text, err := r.Resolve(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "t", text)
}

func TestResolveSharesInFlightCalls(t *testing.T) {
	caps := &fakeCaptions{lookup: Lookup{Text: "t", Found: true}, delay: 50 * time.Millisecond}
	r := NewResolver(WithCaptions(caps))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := r.Resolve(context.Background(), "same")
			assert.NoError(t, err)
			assert.Equal(t, "t", text)
		}()
	}
	wg.Wait()
	assert.Less(t, caps.calls.Load(), int32(5))
}

func TestResolveSharedCallOutlivesFirstCaller(t *testing.T) {
	caps := &fakeCaptions{lookup: Lookup{Text: "t", Found: true}, delay: 200 * time.Millisecond}
	r := NewResolver(WithCaptions(caps))

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	errA := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctxA, "same")
		errA <- err
	}()

	// Let A start the lookup, then let B join it.
	time.Sleep(10 * time.Millisecond)
	type result struct {
		text string
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		text, err := r.Resolve(context.Background(), "same")
		resB <- result{text, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelA()

	err := <-errA
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "t", b.text)
	assert.EqualValues(t, 1, caps.calls.Load())
}

func TestResolveSharedCallTimeout(t *testing.T) {
	caps := &fakeCaptions{lookup: Lookup{Text: "t", Found: true}, delay: time.Second}
	r := NewResolver(WithCaptions(caps), WithTimeout(20*time.Millisecond))

	_, err := r.Resolve(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
