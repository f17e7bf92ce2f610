package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	// Class names the rate limit class the route is throttled under.
	// Empty means read for GET and write otherwise.
	Class string
	// Summary is the one-line description published in the OpenAPI document.
	Summary string
}
