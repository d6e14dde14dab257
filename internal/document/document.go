// Package document decodes the YAML and JSON documents read by flagpole (manifests and
// module descriptors) and validates them against a JSON Schema before use.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a document does not satisfy its schema.
var ErrInvalid = errors.New("document does not match schema")

// Schema is a compiled JSON Schema.
type Schema struct {
	name string
	s    *jsonschema.Schema
}

// MustCompile compiles raw as a JSON Schema and panics on error. Intended for
// schemas embedded in the binary.
func MustCompile(name string, raw []byte) *Schema {
	s, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Compile compiles raw as a JSON Schema identified by name.
func Compile(name string, raw []byte) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
	}
	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return &Schema{name: name, s: s}, nil
}

// IsYAML reports whether filename has a YAML extension.
func IsYAML(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ToJSON converts data to standard JSON. YAML is chosen by file extension; anything
// else is read as JSON with comments and trailing commas allowed.
func ToJSON(filename string, data []byte) ([]byte, error) {
	if IsYAML(filename) {
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
		}
		return out, nil
	}

	out, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return out, nil
}

// Decode converts data to JSON, validates it against schema (when non-nil) and
// unmarshals it into out.
func Decode(filename string, data []byte, schema *Schema, out any) error {
	raw, err := ToJSON(filename, data)
	if err != nil {
		return err
	}

	if schema != nil {
		inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("failed to parse document: %w", err)
		}
		if err := schema.s.Validate(inst); err != nil {
			return fmt.Errorf("%w %s: %v", ErrInvalid, schema.name, err)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}
