package server

import (
	"net/http"

	"github.com/bench-hub/bench-hub/internal/config"
)

// CorsMiddleware allows cross-origin requests in local mode, so a browser
// frontend served from another port can reach the API during development.
// It is never installed outside local mode.
func CorsMiddleware(next http.Handler, serviceConfig *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Global-Transaction-Id")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
