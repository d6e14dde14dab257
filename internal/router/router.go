// Package router provides the host router capability that handler modules are bound to,
// and a chi-backed implementation whose routes can be added and removed at run time.
package router

//go:generate mockgen -destination=mocks/mock_router.go -package=mocks -source=router.go HostRouter

import (
	"net/http"
)

// Handle identifies one bound route. The zero value identifies nothing.
type Handle string

// RouteSpec describes where a handler is bound.
type RouteSpec struct {
	// Path is a chi route pattern, e.g. "/woof" or "/dogs/{name}".
	Path string
	// Version is the API version served by the route.
	Version string
}

// HostRouter binds and removes versioned routes.
type HostRouter interface {
	Get(spec RouteSpec, h http.Handler) (Handle, error)
	Post(spec RouteSpec, h http.Handler) (Handle, error)
	Put(spec RouteSpec, h http.Handler) (Handle, error)
	Patch(spec RouteSpec, h http.Handler) (Handle, error)
	Del(spec RouteSpec, h http.Handler) (Handle, error)
	Opts(spec RouteSpec, h http.Handler) (Handle, error)
	// Rm removes a route. Removing an unknown or empty handle is a no-op.
	Rm(h Handle) error
}
