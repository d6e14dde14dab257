package loader

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/stacklok/flagpole/internal/document"
	"github.com/stacklok/flagpole/internal/handlers"
	"github.com/stacklok/flagpole/internal/module"
)

//go:embed module.schema.json
var descriptorSchemaJSON []byte

var descriptorSchema = document.MustCompile("module.schema.json", descriptorSchemaJSON)

// Descriptor is the on-disk form of a file-based module.
type Descriptor struct {
	Description string            `json:"description,omitempty"`
	Routes      []RouteDescriptor `json:"routes"`
}

// RouteDescriptor declares one route of a file-based module.
type RouteDescriptor struct {
	RequestType string        `json:"requestType"`
	Path        string        `json:"path"`
	Handler     handlers.Spec `json:"handler"`
}

// ParseDescriptor decodes and validates a module descriptor without building handlers.
func ParseDescriptor(filename string, data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := document.Decode(filename, data, descriptorSchema, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// buildDescriptor turns a descriptor file into a module. readFile resolves files the
// handlers reference, relative to the descriptor.
func buildDescriptor(path string, data []byte, readFile func(string) ([]byte, error)) (module.Module, error) {
	d, err := ParseDescriptor(path, data)
	if err != nil {
		return nil, err
	}

	env := handlers.Env{Source: path, ReadFile: readFile}
	bindings := make(module.Static, 0, len(d.Routes))
	for i, rd := range d.Routes {
		var h http.Handler
		h, err = handlers.Build(rd.Handler, env)
		if err != nil {
			return nil, fmt.Errorf("routes[%d] (%s %s): %w", i, rd.RequestType, rd.Path, err)
		}
		// The request type is validated by the registry when the module is bound.
		bindings = append(bindings, module.PathBinding{
			RequestType: module.RequestType(rd.RequestType),
			Path:        rd.Path,
			Handler:     h,
		})
	}
	return bindings, nil
}
