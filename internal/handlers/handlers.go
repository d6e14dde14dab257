// Package handlers builds HTTP handlers from the declarative handler specs found in
// file-based modules.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Handler kinds understood out of the box.
const (
	KindStatic   = "static"
	KindJSON     = "json"
	KindTemplate = "template"
	KindRedirect = "redirect"
	KindProxy    = "proxy"
)

// ErrUnknownKind is returned when a spec names a kind nobody registered.
var ErrUnknownKind = errors.New("unknown handler kind")

// Spec describes one handler. Which fields apply depends on Kind.
type Spec struct {
	Kind        string            `json:"kind" yaml:"kind"`
	Status      int               `json:"status,omitempty" yaml:"status,omitempty"`
	ContentType string            `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// static
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// json
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// template
	Template string `json:"template,omitempty" yaml:"template,omitempty"`

	// redirect
	Location string `json:"location,omitempty" yaml:"location,omitempty"`

	// proxy
	Upstream string `json:"upstream,omitempty" yaml:"upstream,omitempty"`
}

// Env gives factories access to the module they are built for.
type Env struct {
	// Source is the descriptor the Spec was read from, for error messages.
	Source string
	// ReadFile reads a file referenced by the Spec, relative to the module's directory.
	// Implementations must keep the read inside that directory.
	ReadFile func(name string) ([]byte, error)
}

// Factory builds a handler for a spec of one kind.
type Factory func(spec Spec, env Env) (http.Handler, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		KindStatic:   newStatic,
		KindJSON:     newJSON,
		KindTemplate: newTemplate,
		KindRedirect: newRedirect,
		KindProxy:    newProxy,
	}
)

// Register makes a handler kind available to file-based modules. Registering an
// existing kind replaces it.
func Register(kind string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[kind] = f
}

// Kinds lists the registered handler kinds in sorted order.
func Kinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build creates the handler described by spec.
func Build(spec Spec, env Env) (http.Handler, error) {
	factoriesMu.RLock()
	f, ok := factories[spec.Kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}

	h, err := f(spec, env)
	if err != nil {
		return nil, fmt.Errorf("%s handler: %w", spec.Kind, err)
	}
	if len(spec.Headers) == 0 {
		return h, nil
	}
	return withHeaders(spec.Headers, h), nil
}

func withHeaders(headers map[string]string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

func statusOr(status, fallback int) int {
	if status == 0 {
		return fallback
	}
	return status
}
