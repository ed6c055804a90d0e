package i18n

import "net/http"

// Middleware picks the request language from the "lang" query parameter,
// then the "lang" cookie, then Accept-Language, and stores the localizer in
// the request context. A lang query parameter is remembered in the cookie.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var langs []string
		if q := r.URL.Query().Get("lang"); q != "" {
			langs = append(langs, q)
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    q,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		if c, err := r.Cookie("lang"); err == nil {
			langs = append(langs, c.Value)
		}
		langs = append(langs, r.Header.Get("Accept-Language"))

		ctx := WithLocalizer(r.Context(), NewLocalizer(langs...))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
