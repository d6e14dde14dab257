package router

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stacklok/flagpole/internal/api/common"
	"github.com/stacklok/flagpole/internal/logger"
	"github.com/stacklok/flagpole/internal/versions"
)

const (
	// AcceptVersionHeader carries the semver range a client wants to be served.
	AcceptVersionHeader = "Accept-Version"
	// APIVersionHeader reports the version that served the request.
	APIVersionHeader = "Api-Version"
)

// ErrInvalidRoute is returned when a route cannot be compiled into the routing tree.
var ErrInvalidRoute = errors.New("invalid route")

type route struct {
	handle  Handle
	method  string
	spec    RouteSpec
	handler http.Handler
	shape   string
	params  []string
}

type routeKey struct {
	method  string
	pattern string
}

// Mux is a HostRouter backed by chi. Every change recompiles the route table into a
// fresh chi tree which is then swapped in atomically, so in-flight requests keep the
// tree they started on.
type Mux struct {
	mu     sync.Mutex
	routes []*route

	tree atomic.Pointer[chi.Mux]
}

var _ HostRouter = (*Mux)(nil)

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{}
}

// Get binds a GET route.
func (m *Mux) Get(spec RouteSpec, h http.Handler) (Handle, error) {
	return m.add(http.MethodGet, spec, h)
}

// Post binds a POST route.
func (m *Mux) Post(spec RouteSpec, h http.Handler) (Handle, error) {
	return m.add(http.MethodPost, spec, h)
}

// Put binds a PUT route.
func (m *Mux) Put(spec RouteSpec, h http.Handler) (Handle, error) {
	return m.add(http.MethodPut, spec, h)
}

// Patch binds a PATCH route.
func (m *Mux) Patch(spec RouteSpec, h http.Handler) (Handle, error) {
	return m.add(http.MethodPatch, spec, h)
}

// Del binds a DELETE route.
func (m *Mux) Del(spec RouteSpec, h http.Handler) (Handle, error) {
	return m.add(http.MethodDelete, spec, h)
}

// Opts binds an OPTIONS route.
func (m *Mux) Opts(spec RouteSpec, h http.Handler) (Handle, error) {
	return m.add(http.MethodOptions, spec, h)
}

// Rm removes the route identified by h.
func (m *Mux) Rm(h Handle) error {
	if h == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, r := range m.routes {
		if r.handle == h {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	next := make([]*route, 0, len(m.routes)-1)
	next = append(next, m.routes[:idx]...)
	next = append(next, m.routes[idx+1:]...)

	tree, err := compile(next)
	if err != nil {
		// Removing a route from a valid table cannot produce an invalid one.
		return err
	}
	m.routes = next
	m.tree.Store(tree)
	logger.Debugf("Removed route %s", h)
	return nil
}

// Len returns the number of bound routes.
func (m *Mux) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.routes)
}

// ServeHTTP dispatches to the current routing tree.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tree := m.tree.Load()
	if tree == nil {
		common.WriteErrorResponse(w, "Not found", http.StatusNotFound)
		return
	}
	tree.ServeHTTP(w, r)
}

func (m *Mux) add(method string, spec RouteSpec, h http.Handler) (Handle, error) {
	if h == nil {
		return "", fmt.Errorf("%w: nil handler for %s %s", ErrInvalidRoute, method, spec.Path)
	}
	if !strings.HasPrefix(spec.Path, "/") {
		return "", fmt.Errorf("%w: path %q must begin with '/'", ErrInvalidRoute, spec.Path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	shape, params := patternShape(spec.Path)
	for _, r := range m.routes {
		if r.method == method && r.shape == shape && r.spec.Version == spec.Version {
			return "", fmt.Errorf("%w: %s %s version %q is already bound",
				ErrInvalidRoute, method, spec.Path, spec.Version)
		}
	}

	nr := &route{
		handle:  Handle(uuid.NewString()),
		method:  method,
		spec:    spec,
		handler: h,
		shape:   shape,
		params:  params,
	}
	next := append(append(make([]*route, 0, len(m.routes)+1), m.routes...), nr)

	tree, err := compile(next)
	if err != nil {
		return "", err
	}
	m.routes = next
	m.tree.Store(tree)
	logger.Debugf("Bound route %s %s (version %s) as %s", method, spec.Path, spec.Version, nr.handle)
	return nr.handle, nil
}

// compile builds a chi tree for routes. chi reports bad patterns by panicking, which
// is turned into ErrInvalidRoute here.
func compile(routes []*route) (tree *chi.Mux, err error) {
	if len(routes) == 0 {
		return nil, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			tree = nil
			err = fmt.Errorf("%w: %v", ErrInvalidRoute, rec)
		}
	}()

	groups := make(map[routeKey][]*route)
	var order []routeKey
	for _, r := range routes {
		k := routeKey{method: r.method, pattern: r.shape}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.WriteErrorResponse(w, "Not found", http.StatusNotFound)
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.WriteErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	for _, k := range order {
		group := groups[k]
		mux.Method(k.method, group[0].spec.Path, versioned(group))
	}
	return mux, nil
}

// versioned picks the route that best matches the request's Accept-Version header.
func versioned(candidates []*route) http.Handler {
	byVersion := make(map[string]*route, len(candidates))
	available := make([]string, 0, len(candidates))
	for _, r := range candidates {
		byVersion[r.spec.Version] = r
		available = append(available, r.spec.Version)
	}
	sort.Strings(available)

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		chosen, err := versions.Select(available, req.Header.Get(AcceptVersionHeader))
		if err != nil {
			common.WriteErrorResponse(w,
				fmt.Sprintf("%s is not supported by %s %s", req.Header.Get(AcceptVersionHeader), req.Method, req.URL.Path),
				http.StatusBadRequest)
			return
		}
		if chosen != "" {
			w.Header().Set(APIVersionHeader, chosen)
		}
		r := byVersion[chosen]
		renameParams(req, r.params)
		r.handler.ServeHTTP(w, req)
	})
}

// patternShape returns path with every parameter name removed, so "/dogs/{id}" and
// "/dogs/{name}" share the shape "/dogs/{}", along with the parameter names in order.
// Regexp constraints stay part of the shape since chi routes them separately.
func patternShape(path string) (string, []string) {
	var (
		shape  strings.Builder
		params []string
	)
	for i := 0; i < len(path); i++ {
		if path[i] != '{' {
			shape.WriteByte(path[i])
			continue
		}
		depth, end := 0, -1
		for j := i; j < len(path) && end < 0; j++ {
			switch path[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = j
				}
			}
		}
		if end < 0 {
			// Unbalanced braces are left for chi to reject.
			shape.WriteString(path[i:])
			break
		}
		name, rexp, hasRexp := strings.Cut(path[i+1:end], ":")
		params = append(params, name)
		shape.WriteByte('{')
		if hasRexp {
			shape.WriteByte(':')
			shape.WriteString(rexp)
		}
		shape.WriteByte('}')
		i = end
	}
	return shape.String(), params
}

// renameParams relabels the URL params chi matched for this route with the names the
// serving version declared. The route's params are the last ones in the context.
func renameParams(req *http.Request, names []string) {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil || len(names) == 0 || len(rctx.URLParams.Keys) < len(names) {
		return
	}
	copy(rctx.URLParams.Keys[len(rctx.URLParams.Keys)-len(names):], names)
}
