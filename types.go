package goSession

import "net/http"

// Request is the inbound side of an exchange. Attribute returns the named
// request attribute, typically a cookie value.
type Request interface {
	Attribute(name string) (string, bool)
}

// Response is the outbound side of an exchange.
type Response interface {
	SetCookie(cookie *http.Cookie)
}
