// Package module defines the contract between the registry and the handler modules
// it attaches to the host router.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/stacklok/flagpole/internal/router"
)

// RequestType is the HTTP method a PathBinding serves.
type RequestType string

// Supported request types.
const (
	RequestGet     RequestType = "GET"
	RequestPost    RequestType = "POST"
	RequestPut     RequestType = "PUT"
	RequestPatch   RequestType = "PATCH"
	RequestDelete  RequestType = "DELETE"
	RequestOptions RequestType = "OPTIONS"
)

// aliases maps accepted spellings to request types. "del" and "opts" are the
// router method names and are accepted alongside the HTTP method names.
var aliases = map[string]RequestType{
	"get":     RequestGet,
	"post":    RequestPost,
	"put":     RequestPut,
	"patch":   RequestPatch,
	"delete":  RequestDelete,
	"del":     RequestDelete,
	"options": RequestOptions,
	"opts":    RequestOptions,
}

// ParseRequestType maps s (case-insensitive, trimmed) to a RequestType.
func ParseRequestType(s string) (RequestType, error) {
	rt, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("bad request type: %q", s)
	}
	return rt, nil
}

// Valid reports whether rt is one of the supported request types.
func (rt RequestType) Valid() bool {
	_, err := ParseRequestType(string(rt))
	return err == nil
}

// PathBinding is one method + path rule declared by a module.
type PathBinding struct {
	RequestType RequestType
	Path        string
	Handler     http.Handler
}

// Module is a set of routes that can be registered as one versioned API.
type Module interface {
	// Bindings returns the module's routes in declaration order.
	Bindings() []PathBinding
}

// Registerer is implemented by modules that want to know when they go live.
type Registerer interface {
	OnRegister(host router.HostRouter, name, version, token string) error
}

// Unregisterer is implemented by modules that want to know when they are removed.
type Unregisterer interface {
	OnUnregister()
}

// Static is a Module with a fixed list of bindings.
type Static []PathBinding

// Bindings implements Module.
func (s Static) Bindings() []PathBinding {
	return s
}
