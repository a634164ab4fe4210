package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type request struct {
	r *http.Request
}

// Request exposes the cookies of r as session request attributes.
func Request(r *http.Request) goSession.Request {
	return request{r: r}
}

func (a request) Attribute(name string) (string, bool) {
	c, err := a.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

type response struct {
	w http.ResponseWriter
}

// Response writes session cookies as Set-Cookie headers on w.
func Response(w http.ResponseWriter) goSession.Response {
	return response{w: w}
}

func (a response) SetCookie(c *http.Cookie) {
	http.SetCookie(a.w, c)
}
