package openapi

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/JaimeStill/warden/pkg/routes"
)

var pathParamRegex = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\.\.\.)?\}`)

// AddGroups registers an operation for every route in groups, children included.
// Paths are joined under basePath and tagged by their top-level group prefix.
func (s *Spec) AddGroups(basePath string, groups ...routes.Group) {
	for _, g := range groups {
		tag := strings.TrimPrefix(g.Prefix, "/")
		s.addGroup(basePath, tag, g)
	}
}

func (s *Spec) addGroup(prefix, tag string, g routes.Group) {
	full := prefix + g.Prefix
	for _, r := range g.Routes {
		path := full + r.Pattern
		if path == "" {
			path = "/"
		}
		path = pathParamRegex.ReplaceAllString(path, "{$1}")

		item, ok := s.Paths[path]
		if !ok {
			item = &PathItem{}
			s.Paths[path] = item
		}
		item.set(r.Method, newOperation(tag, r, path))
	}
	for _, c := range g.Children {
		s.addGroup(full, tag, c)
	}
}

func newOperation(tag string, r routes.Route, path string) *Operation {
	summary := r.Summary
	if summary == "" {
		summary = r.Method + " " + path
	}

	op := &Operation{
		Summary: summary,
		Tags:    []string{tag},
		Responses: map[int]*Response{
			http.StatusOK:              {Description: "Success"},
			http.StatusBadRequest:      ResponseRef("BadRequest"),
			http.StatusUnauthorized:    ResponseRef("Unauthorized"),
			http.StatusForbidden:       ResponseRef("Forbidden"),
			http.StatusTooManyRequests: ResponseRef("TooManyRequests"),
		},
	}

	params := pathParamRegex.FindAllStringSubmatch(path, -1)
	for _, m := range params {
		op.Parameters = append(op.Parameters, PathParam(m[1]))
		op.Responses[http.StatusNotFound] = ResponseRef("NotFound")
	}

	switch r.Method {
	case http.MethodGet:
		// collection roots are paged lists
		if r.Pattern == "" && len(params) == 0 {
			op.Parameters = append(op.Parameters, PageParams()...)
		}
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		op.RequestBody = &RequestBody{Content: jsonContent(&Schema{Type: "object"})}
		op.Responses[http.StatusConflict] = ResponseRef("Conflict")
	}

	return op
}

func (p *PathItem) set(method string, op *Operation) {
	switch method {
	case http.MethodGet:
		p.Get = op
	case http.MethodPost:
		p.Post = op
	case http.MethodPut:
		p.Put = op
	case http.MethodPatch:
		p.Patch = op
	case http.MethodDelete:
		p.Delete = op
	}
}
