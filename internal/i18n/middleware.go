package i18n

import "net/http"

// Middleware injects a localizer into every request context. The best
// supported match for the request's Accept-Language header is used, with lang
// as the fallback, and reported in Content-Language.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			matched := Match(r.Header.Get("Accept-Language"), lang)
			w.Header().Set("Content-Language", matched)
			ctx := WithLocalizer(r.Context(), NewLocalizer(matched, lang))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
