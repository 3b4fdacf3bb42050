// internal/app/system/apicors/apicors.go

// Package apicors provides CORS middleware for the API-key authenticated
// metrics endpoints.
//
// No cookies are involved, so credentials are never allowed and the
// default is any origin. Operators can pin specific dashboard origins.
package apicors

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// maxAge is how long browsers may cache a preflight, in seconds.
const maxAge = 86400

// Middleware returns CORS middleware. With no origins (or "*") any origin is
// allowed; otherwise only the listed origins get CORS headers. Entries may
// use one wildcard, e.g. "https://*.example.com".
//
// Usage in routes.go:
//
//	r.Use(apicors.Middleware(appCfg.CORSOrigins...))
func Middleware(origins ...string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(origins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           maxAge,
	})
}

// allowedOrigins trims configured origins, dropping a trailing slash.
// An empty list or a "*" entry allows any origin.
func allowedOrigins(origins []string) []string {
	var out []string
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return []string{"*"}
		}
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
