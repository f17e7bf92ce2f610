package routes

import "net/http"

// Group organizes routes under a common prefix with shared tags.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Middleware decorates the handler of a single route.
type Middleware func(route Route, next http.HandlerFunc) http.HandlerFunc

// Wrap returns a copy of the group with mw applied to every route, children included.
func (g Group) Wrap(mw Middleware) Group {
	out := Group{
		Prefix:   g.Prefix,
		Routes:   make([]Route, len(g.Routes)),
		Children: make([]Group, len(g.Children)),
	}
	for i, r := range g.Routes {
		r.Handler = mw(r, r.Handler)
		out.Routes[i] = r
	}
	for i, c := range g.Children {
		out.Children[i] = c.Wrap(mw)
	}
	return out
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		registerGroup(mux, "", group)
	}
}

func registerGroup(mux *http.ServeMux, parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		pattern := route.Method + " " + fullPrefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	for _, child := range group.Children {
		registerGroup(mux, fullPrefix, child)
	}
}
