package middleware

import (
	"net/http"
)

// DefaultMaxBodySize is the body limit for every API endpoint.
const DefaultMaxBodySize int64 = 1 << 20 // 1MB

// RequestSize wraps the request body with http.MaxBytesReader. Reads past
// maxBytes fail with *http.MaxBytesError, which the JSON decoder in the
// handlers turns into 413. Bodies whose declared length is already too large
// are rejected here.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Connection", "close")
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
