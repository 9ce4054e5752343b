package middleware

import (
	"net/http"
	"strings"
)

// parseOrigins はカンマ区切りのオリジン指定を分解する。
func parseOrigins(s string) map[string]bool {
	origins := make(map[string]bool)
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins[o] = true
		}
	}
	return origins
}

// NewCORSMiddleware は許可オリジンからのリクエストにCORSヘッダーを付与するミドルウェアを返す。
// allowedOriginsはカンマ区切りで複数指定でき、"*"は全オリジンを許可する。
// 空の場合はCORSヘッダーを付与しない。
// 認証はAuthorizationヘッダーのBearerトークンで行うため、Cookieは扱わない。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	origins := parseOrigins(allowedOrigins)
	allowAny := origins["*"]

	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" || (!allowAny && !origins[origin]) {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

			// プリフライト
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				h.Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
