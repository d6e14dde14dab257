// Package manifest parses the documents that declare a set of APIs and versions to
// register in one go.
package manifest

import (
	_ "embed"

	"github.com/stacklok/flagpole/internal/document"
)

//go:embed manifest.schema.json
var schemaJSON []byte

var schema = document.MustCompile("manifest.schema.json", schemaJSON)

// Manifest lists APIs to register.
type Manifest struct {
	APIs []API `json:"apis" yaml:"apis"`
}

// API is one named API with the versions to register for it.
type API struct {
	Name            string    `json:"name" yaml:"name"`
	DescriptiveName string    `json:"descriptiveName,omitempty" yaml:"descriptiveName,omitempty"`
	Description     string    `json:"description,omitempty" yaml:"description,omitempty"`
	Versions        []Version `json:"versions,omitempty" yaml:"versions,omitempty"`
}

// Version maps an API version to the module file implementing it.
type Version struct {
	Ver      string `json:"ver" yaml:"ver"`
	FileName string `json:"fileName" yaml:"fileName"`
}

// Parse decodes a manifest. YAML is used for .yaml and .yml files, JSON (comments
// and trailing commas allowed) for everything else.
func Parse(filename string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := document.Decode(filename, data, schema, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Entries returns the manifest's versions flattened in declaration order.
func (m *Manifest) Entries() []Entry {
	var entries []Entry
	for _, api := range m.APIs {
		for _, v := range api.Versions {
			entries = append(entries, Entry{API: api, Version: v})
		}
	}
	return entries
}

// Entry is a single API version of a manifest.
type Entry struct {
	API     API
	Version Version
}
