// Package auth guards the metrics API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/stratametrics/internal/app/system/jsonutil"
	"github.com/dalemusser/stratametrics/internal/app/system/network"
	"go.uber.org/zap"
)

// HeaderAPIKey is accepted as an alternative to the Bearer scheme.
const HeaderAPIKey = "X-API-Key"

// APIKeyAuth returns middleware that validates API key authentication.
//
// The key is read from "Authorization: Bearer <api-key>" or, failing that,
// from the X-API-Key header. Any of validKeys is accepted, which lets an
// operator rotate keys without downtime.
//
// Usage in routes.go:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(apicors.Middleware(appCfg.CORSOrigins...))
//	    r.Use(auth.APIKeyAuth(logger, appCfg.APIKeys...))
//	    r.Mount("/api/metrics", metrics.Routes(h))
//	})
//
// If no key is configured every request is rejected with 401.
func APIKeyAuth(logger *zap.Logger, validKeys ...string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(validKeys))
	for _, k := range validKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		logger.Warn("API key not configured - all API requests will be rejected")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				logger.Warn("API request rejected: API key not configured",
					zap.String("path", r.URL.Path),
					zap.String("client_ip", network.ClientIP(r)),
				)
				jsonutil.Unauthorized(w, "API authentication not configured")
				return
			}

			provided, ok := extractKey(r)
			if !ok {
				logger.Debug("API request rejected: missing or malformed credentials",
					zap.String("path", r.URL.Path),
				)
				jsonutil.Unauthorized(w, "missing API key (expected: Authorization: Bearer <api-key>)")
				return
			}

			if !matches(keys, provided) {
				logger.Warn("API request rejected: invalid API key",
					zap.String("path", r.URL.Path),
					zap.String("client_ip", network.ClientIP(r)),
				)
				jsonutil.Unauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractKey(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if k := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); k != "" {
		return k, true
	}
	return "", false
}

// matches compares against every key so timing does not reveal which one matched.
func matches(keys [][]byte, provided string) bool {
	p := []byte(provided)
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, p)
	}
	return found == 1
}
