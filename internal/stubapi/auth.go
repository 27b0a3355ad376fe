package stubapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireAPIKey accepts either "Authorization: Bearer <key>" or
// "X-API-Key: <key>".
func requireAPIKey(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Lock down the server if the operator forgot to set the key.
			// 500 rather than 401: this is a misconfiguration, not a bad token.
			if expectedKey == "" {
				writeError(w, http.StatusInternalServerError, "Server configuration error: API_SECRET_KEY not set")
				return
			}

			bearer := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			apiKey := strings.TrimSpace(r.Header.Get("X-API-Key"))

			// ConstantTimeCompare examines every byte of both inputs, so
			// latency says nothing about how much of a guess was right.
			if !matches(bearer, expectedKey) && !matches(apiKey, expectedKey) {
				writeError(w, http.StatusUnauthorized, "Unauthorized: Invalid or missing API Key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matches(token, expected string) bool {
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}
