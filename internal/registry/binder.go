package registry

import (
	"fmt"
	"net/http"

	"github.com/stacklok/flagpole/internal/module"
	"github.com/stacklok/flagpole/internal/router"
)

// RouteBinder binds module routes to a host router.
type RouteBinder struct {
	host  router.HostRouter
	binds map[module.RequestType]func(router.RouteSpec, http.Handler) (router.Handle, error)
}

// NewRouteBinder returns a RouteBinder for host.
func NewRouteBinder(host router.HostRouter) *RouteBinder {
	return &RouteBinder{
		host: host,
		binds: map[module.RequestType]func(router.RouteSpec, http.Handler) (router.Handle, error){
			module.RequestGet:     host.Get,
			module.RequestPost:    host.Post,
			module.RequestPut:     host.Put,
			module.RequestPatch:   host.Patch,
			module.RequestDelete:  host.Del,
			module.RequestOptions: host.Opts,
		},
	}
}

// Bind binds pb under version and returns the route handle. A panicking host router
// is reported as an error.
func (b *RouteBinder) Bind(pb module.PathBinding, version string) (h router.Handle, err error) {
	rt, err := module.ParseRequestType(string(pb.RequestType))
	if err != nil {
		return "", err
	}

	defer func() {
		if rec := recover(); rec != nil {
			h, err = "", fmt.Errorf("host router panicked: %v", rec)
		}
	}()

	return b.binds[rt](router.RouteSpec{Path: pb.Path, Version: version}, pb.Handler)
}

// Unbind removes the route identified by h. An empty handle is a no-op.
func (b *RouteBinder) Unbind(h router.Handle) error {
	if h == "" {
		return nil
	}
	return b.host.Rm(h)
}
