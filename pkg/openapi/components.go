package openapi

// NewComponents creates the shared error schema and the error responses every
// operation may reference.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:     "object",
				Required: []string{"error"},
				Properties: map[string]*Schema{
					"error": {Type: "string", Example: "report not found"},
				},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":   errorResponse("Invalid request"),
			"Unauthorized": errorResponse("Missing or invalid credentials"),
			"Forbidden":    errorResponse("Actor may not perform the operation"),
			"NotFound":     errorResponse("Resource not found"),
			"Conflict":     errorResponse("Duplicate resource or invalid state transition"),
			"TooManyRequests": {
				Description: "Rate limit exceeded",
				Headers: map[string]*Header{
					"Retry-After": {
						Description: "Seconds until the window resets",
						Schema:      &Schema{Type: "integer"},
					},
				},
				Content: jsonContent(SchemaRef("Error")),
			},
		},
	}
}

func errorResponse(description string) *Response {
	return &Response{
		Description: description,
		Content:     jsonContent(SchemaRef("Error")),
	}
}

func jsonContent(schema *Schema) map[string]*MediaType {
	return map[string]*MediaType{"application/json": {Schema: schema}}
}
