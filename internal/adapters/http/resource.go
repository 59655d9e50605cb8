package http

import "net/http"

// Method is the HTTP method of a Resource.
type Method string

const (
	MethodGet  Method = http.MethodGet
	MethodPost Method = http.MethodPost
)

// QueryItem is one query parameter. Order is preserved in the built URL.
type QueryItem struct {
	Name  string
	Value string
}

// Resource describes one request and how to parse its response body.
type Resource[T any] struct {
	Path    string
	Method  Method
	Body    []byte
	Query   []QueryItem
	Headers map[string]string

	// Parse converts a non-empty 200 response body. It returns false when
	// the body is not a valid T.
	Parse func(body []byte) (T, bool)
}
