package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKey guards machine-to-machine endpoints with a shared x-api-key header.
// The comparison is constant time.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				http.Error(w, "api key auth disabled", http.StatusUnauthorized)
				return
			}
			presented := r.Header.Get("X-Api-Key")
			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				http.Error(w, "invalid api key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
