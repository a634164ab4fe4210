// Package middleware adapts goSession to net/http.
//
// [Session] resolves the session of every request before the next handler
// runs and stores the bound [goSession.Manager] in the request context:
//
//	mux.Handle("/cart", middleware.Session(engine)(cartHandler))
//
//	func cartHandler(w http.ResponseWriter, r *http.Request) {
//		m, _ := middleware.FromContext(r.Context())
//		_ = m.Set(r.Context(), "cart_count", 3)
//	}
//
// Cookies are written by Manager.Set, so handlers must call it before writing
// the response body.
package middleware
