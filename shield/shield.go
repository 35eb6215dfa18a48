// Package shield provides the HTTP middleware stack of the docshelf API:
// security headers, request body limits, request ids and optional basic
// authentication.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack(logger, 1<<20) {
//	    r.Use(mw)
//	}
//	r.Use(shield.BasicAuth("docshelf", user, bcryptHash, "/health"))
package shield

import (
	"log/slog"
	"net/http"
)

// DefaultAPIStack returns the standard middleware stack for a JSON API.
// Ordered: HeadToGet → SecurityHeaders → MaxJSONBody → RequestID.
func DefaultAPIStack(logger *slog.Logger, maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(maxBody),
		RequestID(logger),
	}
}

// HeadToGet serves HEAD through the GET routes; net/http drops the body.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
