package middleware

import (
	"context"
	"net"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type managerContextKey struct{}

// FromContext returns the Manager stored by [Session].
func FromContext(ctx context.Context) (*goSession.Manager, bool) {
	m, ok := ctx.Value(managerContextKey{}).(*goSession.Manager)
	return m, ok
}

// Session initializes a Manager for every request. Requests fail with 500
// when the session cannot be resolved, typically because the backend is
// down.
func Session(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			ctx := goSession.WithClientIP(r.Context(), clientIP(r))
			m, err := engine.Start(ctx, Request(r), Response(w))
			if err != nil {
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			ctx = context.WithValue(ctx, managerContextKey{}, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
