package auth

import (
	"encoding/json"
	"net/http"
)

// Middleware rejects requests without a valid, non rate limited x-api-key header.
// It is a no-op when no keys are configured.
func (v *APIKeyValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(HeaderAPIKey)
		switch {
		case apiKey == "":
			v.reject(w, r, http.StatusUnauthorized, "missing API key")
			return
		case !v.ValidateAPIKey(apiKey):
			v.reject(w, r, http.StatusUnauthorized, "invalid API key")
			return
		case !v.CheckRateLimit(apiKey):
			v.reject(w, r, http.StatusTooManyRequests, "rate limit exceeded for API key")
			return
		}

		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context())))
	})
}

func (v *APIKeyValidator) reject(w http.ResponseWriter, r *http.Request, status int, reason string) {
	v.failureLogger.Warn("Authentication failed",
		"reason", reason,
		"path", r.URL.Path,
		"client_ip", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
