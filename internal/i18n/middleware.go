package i18n

import "net/http"

// Middleware injects a localizer for the request's Accept-Language into
// every request context. An explicit ?lang= query parameter wins.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc := NewLocalizer(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
		next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), loc)))
	})
}
