// Package middleware provides composable HTTP middleware and a system
// for applying an ordered middleware stack to a handler.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// System collects middleware and applies them to a handler in order.
type System interface {
	Use(m Middleware)
	Apply(handler http.Handler) http.Handler
}

type system struct {
	stack []Middleware
}

// New creates an empty middleware system.
func New() System {
	return &system{stack: []Middleware{}}
}

func (s *system) Use(m Middleware) {
	s.stack = append(s.stack, m)
}

// Apply wraps handler with the registered middleware. The first
// middleware registered becomes the outermost wrapper.
func (s *system) Apply(handler http.Handler) http.Handler {
	for i := len(s.stack) - 1; i >= 0; i-- {
		handler = s.stack[i](handler)
	}
	return handler
}
