package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/tubequiz/internal/i18n"
	"github.com/pavelanni/tubequiz/internal/llm"
	"github.com/pavelanni/tubequiz/internal/model"
	"github.com/pavelanni/tubequiz/internal/quiz"
)

type stubProvider struct{ err error }

func (s stubProvider) Resolve(context.Context, string) (string, error) {
	return "transcript text", s.err
}

// stubLLM returns a fixed quiz for generation prompts and a fixed grade for
// everything else.
type stubLLM struct{}

const testQuiz = `{"mcqs": [
	{"question": "Capital of France?", "options": ["Paris", "Rome"], "answer": "Paris"},
	{"question": "2 + 2?", "options": ["3", "4"], "answer": "4"}
], "text_questions": [
	{"question": "Describe the video <briefly>.", "answer": "It is about Go."}
]}`

func (stubLLM) Complete(_ context.Context, prompt string, _ ...llm.CallOption) (string, error) {
	if strings.HasPrefix(prompt, "Generate a quiz") {
		return testQuiz, nil
	}
	return `{"score": 8, "feedback": "Well explained."}`, nil
}

type testClient struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newTestClient(t *testing.T, provider stubProvider) *testClient {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	svc := quiz.NewService(provider, quiz.NewGenerator(stubLLM{}, 2, 1))
	h := New(svc, quiz.NewGrader(stubLLM{}), NewRegistry(time.Hour), model.QuizConfig{})

	r := chi.NewRouter()
	r.Use(i18n.Middleware)
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, srv: srv, client: &http.Client{Jar: jar}}
}

func (c *testClient) get(path string) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.client.Get(c.srv.URL + path)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

func (c *testClient) csrfToken() string {
	c.t.Helper()
	u, _ := url.Parse(c.srv.URL)
	for _, ck := range c.client.Jar.Cookies(u) {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	c.t.Fatal("no csrf cookie")
	return ""
}

func (c *testClient) post(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", c.csrfToken())
	}
	resp, err := c.client.PostForm(c.srv.URL+path, form)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

func TestQuizFlow(t *testing.T) {
	c := newTestClient(t, stubProvider{})

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Generate Quiz")
	assert.NotContains(t, body, "Submit Quiz")

	_, body = c.post("/quiz", url.Values{"video_url": {"https://youtu.be/dQw4w9WgXcQ"}})
	assert.Contains(t, body, "Quiz for video dQw4w9WgXcQ")
	assert.Contains(t, body, "Capital of France?")
	assert.Contains(t, body, "Describe the video &lt;briefly&gt;.")
	assert.Contains(t, body, `name="mcq_0"`)
	assert.Contains(t, body, `name="text_0"`)
	assert.Contains(t, body, "Submit Quiz")

	_, body = c.post("/quiz/submit", url.Values{
		"mcq_0":  {"Paris"},
		"mcq_1":  {"3"},
		"text_0": {"It explains Go."},
		"mcq_9":  {"ignored"},
	})
	assert.Contains(t, body, "Quiz Results")
	// 1/2 MCQs = 25 points, 8/10 on the only open question = 40 points.
	assert.Contains(t, body, "Your Score: 65/100")
	assert.Contains(t, body, `score-display average`)
	assert.Contains(t, body, "MCQ: 1/2 correct | Text: 40 points")
	assert.Contains(t, body, "✓ Paris (Correct Answer)")
	assert.Contains(t, body, "✗ 3 (Your Answer)")
	assert.Contains(t, body, "Well explained.")
	assert.Contains(t, body, `feedback good`)

	resp, body = c.get("/quiz/result.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exp model.SessionExport
	require.NoError(t, json.Unmarshal([]byte(body), &exp))
	assert.True(t, exp.Submitted)
	require.NotNil(t, exp.Score)
	assert.InDelta(t, 65.0, exp.Score.TotalScore, 1e-9)
	assert.Equal(t, "Paris", exp.MCQResponses["0"])

	// A second submission changes nothing.
	_, body = c.post("/quiz/submit", url.Values{"mcq_1": {"4"}})
	assert.Contains(t, body, "This quiz has already been submitted.")
	assert.Contains(t, body, "Your Score: 65/100")

	_, body = c.post("/quiz/reset", url.Values{})
	assert.NotContains(t, body, "Quiz Results")
	assert.NotContains(t, body, "Submit Quiz")

	resp, _ = c.get("/quiz/result.json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnansweredReview(t *testing.T) {
	c := newTestClient(t, stubProvider{})
	c.get("/")
	c.post("/quiz", url.Values{"video_url": {"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}})

	_, body := c.post("/quiz/submit", url.Values{})
	assert.Contains(t, body, "Your Score: 0/100")
	assert.Contains(t, body, `score-display poor`)
	assert.Contains(t, body, "Not answered")
	assert.Contains(t, body, "Not evaluated")
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider stubProvider
		url      string
		want     string
	}{
		{"invalid url", stubProvider{}, "https://example.com/watch", "Invalid YouTube URL. Please check and try again."},
		{"no transcript", stubProvider{err: errors.New("no captions")}, "https://youtu.be/dQw4w9WgXcQ", "Could not get a transcript for this video."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.provider)
			c.get("/")
			_, body := c.post("/quiz", url.Values{"video_url": {tt.url}})
			assert.Contains(t, body, tt.want)
			assert.Contains(t, body, `value="`+tt.url+`"`)
			assert.NotContains(t, body, "Submit Quiz")

			// The error is shown once.
			_, body = c.get("/")
			assert.NotContains(t, body, tt.want)
		})
	}
}

func TestSubmitWithoutQuiz(t *testing.T) {
	c := newTestClient(t, stubProvider{})
	c.get("/")
	_, body := c.post("/quiz/submit", url.Values{"mcq_0": {"Paris"}})
	assert.Contains(t, body, "There is no quiz to submit. Generate one first.")
}

func TestCSRFRejected(t *testing.T) {
	c := newTestClient(t, stubProvider{})
	c.get("/")

	resp, _ := c.post("/quiz", url.Values{"csrf_token": {"forged"}, "video_url": {"https://youtu.be/dQw4w9WgXcQ"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err := http.PostForm(c.srv.URL+"/quiz", url.Values{"video_url": {"x"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newTestClient(t, stubProvider{})
	a.get("/")
	a.post("/quiz", url.Values{"video_url": {"https://youtu.be/dQw4w9WgXcQ"}})

	// A second browser against the same server has its own session.
	jar, _ := cookiejar.New(nil)
	b := &testClient{t: t, srv: a.srv, client: &http.Client{Jar: jar}}
	_, body := b.get("/")
	assert.NotContains(t, body, "Capital of France?")
}

func TestRegistryExpiry(t *testing.T) {
	reg := NewRegistry(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	v, id, created := reg.get("")
	require.True(t, created)
	v.session.Load("vid", &model.Quiz{MCQs: []model.MCQItem{}, TextQuestions: []model.TextItem{}})

	now = now.Add(30 * time.Second)
	again, sameID, created := reg.get(id)
	assert.False(t, created)
	assert.Equal(t, id, sameID)
	assert.Same(t, v, again)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())
	assert.Zero(t, reg.Len())

	fresh, newID, created := reg.get(id)
	assert.True(t, created)
	assert.NotEqual(t, id, newID)
	assert.Nil(t, fresh.session.Snapshot().Quiz)
}

func TestErrorMessageID(t *testing.T) {
	assert.Equal(t, "ErrInvalidURL", errorMessageID(quiz.ErrInvalidReference))
	assert.Equal(t, "ErrGeneration", errorMessageID(quiz.ErrGenerationFailed))
	assert.Equal(t, "ErrGeneric", errorMessageID(errors.New("other")))
}
