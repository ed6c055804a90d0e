package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/tubequiz/internal/handler/views"
	"github.com/pavelanni/tubequiz/internal/model"
	"github.com/pavelanni/tubequiz/internal/quiz"
)

const sessionCookieName = "tubequiz_session"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	service  *quiz.Service
	scorer   quiz.Scorer
	sessions *Registry
	config   model.QuizConfig
}

// New creates a new Handler.
func New(svc *quiz.Service, scorer quiz.Scorer, sessions *Registry, cfg model.QuizConfig) *Handler {
	return &Handler{service: svc, scorer: scorer, sessions: sessions, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/", h.handleIndex)
		r.Post("/quiz", h.handleStart)
		r.Post("/quiz/submit", h.handleSubmit)
		r.Post("/quiz/reset", h.handleReset)
	})
	r.Get("/quiz/result.json", h.handleResultJSON)
}

// visitor finds the caller's session, issuing a new cookie when needed.
func (h *Handler) visitor(w http.ResponseWriter, r *http.Request) *visitor {
	var id string
	if c, err := r.Cookie(sessionCookieName); err == nil {
		id = c.Value
	}
	v, newID, created := h.sessions.get(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.config.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		slog.Debug("new quiz session", "session", newID)
	}
	return v
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := h.visitor(w, r)
	errID, videoURL := v.takeError()

	data := views.IndexData{
		ErrorID:  errID,
		VideoURL: videoURL,
		Session:  v.session.Snapshot().Export(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.IndexPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	v := h.visitor(w, r)
	videoURL := strings.TrimSpace(r.FormValue("video_url"))

	err := h.service.Start(r.Context(), v.session, videoURL, func(st quiz.Stage) {
		slog.Debug("quiz generation progress", "stage", st, "url", videoURL)
	})
	if err != nil {
		v.setError(errorMessageID(err), videoURL)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	v := h.visitor(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	for key, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		var err error
		switch {
		case strings.HasPrefix(key, "mcq_"):
			i, convErr := strconv.Atoi(strings.TrimPrefix(key, "mcq_"))
			if convErr != nil {
				continue
			}
			err = v.session.RecordMCQResponse(i, value)
		case strings.HasPrefix(key, "text_"):
			i, convErr := strconv.Atoi(strings.TrimPrefix(key, "text_"))
			if convErr != nil {
				continue
			}
			err = v.session.RecordTextResponse(i, value)
		default:
			continue
		}
		if errors.Is(err, quiz.ErrIndexOutOfRange) {
			slog.Warn("ignoring response for unknown question", "field", key)
			continue
		}
		if err != nil {
			// No quiz or already submitted; Submit reports the same error.
			break
		}
	}

	if _, err := v.session.Submit(r.Context(), h.scorer); err != nil {
		v.setError(errorMessageID(err), "")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	v := h.visitor(w, r)
	v.session.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleResultJSON(w http.ResponseWriter, r *http.Request) {
	v := h.visitor(w, r)
	snap := v.session.Snapshot()
	if snap.Quiz == nil {
		http.Error(w, "no quiz loaded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap.Export()); err != nil {
		slog.Error("encode result", "error", err)
	}
}

// errorMessageID maps service errors to the i18n message shown to users.
func errorMessageID(err error) string {
	switch {
	case errors.Is(err, quiz.ErrInvalidReference):
		return "ErrInvalidURL"
	case errors.Is(err, quiz.ErrTranscriptUnavailable):
		return "ErrTranscript"
	case errors.Is(err, quiz.ErrGenerationFailed):
		return "ErrGeneration"
	case errors.Is(err, quiz.ErrNoQuiz):
		return "ErrNoQuiz"
	case errors.Is(err, quiz.ErrAlreadySubmitted):
		return "ErrAlreadySubmitted"
	default:
		return "ErrGeneric"
	}
}
