package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		lang  string
		msgID string
		want  string
	}{
		{"en", "GenerateQuiz", "Generate Quiz"},
		{"en", "NotAnswered", "Not answered"},
		{"ru", "GenerateQuiz", "Создать тест"},
		{"ru", "TakeAnotherQuiz", "Пройти другой тест"},
		{"de", "GenerateQuiz", "Generate Quiz"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.msgID, func(t *testing.T) {
			ctx := initLang(t, tt.lang)
			if got := T(ctx, tt.msgID); got != tt.want {
				t.Errorf("T(%s) = %q, want %q", tt.msgID, got, tt.want)
			}
		})
	}
}

func TestPluralTranslation(t *testing.T) {
	tests := []struct {
		lang  string
		count int
		want  string
	}{
		{"en", 1, "1 question"},
		{"en", 8, "8 questions"},
		{"ru", 1, "1 вопрос"},
		{"ru", 3, "3 вопроса"},
		{"ru", 8, "8 вопросов"},
	}
	for _, tt := range tests {
		ctx := initLang(t, tt.lang)
		if got := Tp(ctx, "QuestionCount", tt.count); got != tt.want {
			t.Errorf("Tp(%s, %d) = %q, want %q", tt.lang, tt.count, got, tt.want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ScoreBreakdown", map[string]any{"Correct": 3, "Total": 5, "Text": 23})
	if got != "MCQ: 3/5 correct | Text: 23 points" {
		t.Errorf("Td(ScoreBreakdown) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestLocaleFilesHaveSameKeys(t *testing.T) {
	initLang(t, "en")
	en := WithLocalizer(context.Background(), NewLocalizer("en"))
	ru := WithLocalizer(context.Background(), NewLocalizer("ru"))
	for _, id := range []string{"AppTitle", "YourScore", "ErrInvalidURL", "FeedbackScore", "Footer"} {
		if T(en, id) == id || T(ru, id) == id {
			t.Errorf("message %s missing in a locale", id)
		}
	}
	if len(Languages()) != 2 {
		t.Errorf("expected 2 languages, got %v", Languages())
	}
}

func TestMiddleware(t *testing.T) {
	initLang(t, "en")
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(T(r.Context(), "GenerateQuiz")))
	}))

	tests := []struct {
		name   string
		target string
		cookie string
		accept string
		want   string
	}{
		{"default", "/", "", "", "Generate Quiz"},
		{"accept-language", "/", "", "ru-RU,ru;q=0.9", "Создать тест"},
		{"cookie beats header", "/", "en", "ru", "Generate Quiz"},
		{"query beats cookie", "/?lang=ru", "en", "", "Создать тест"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "lang", Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}
