package registry

import (
	"context"
	"strings"

	"github.com/stacklok/flagpole/internal/logger"
	"github.com/stacklok/flagpole/internal/manifest"
)

// LoadAPIConfig registers every API version declared in manifestFile, which is looked
// up in the search directories like a module file.
//
// Entries are registered in declaration order and the first failure stops the load.
// Entries registered before the failure stay registered.
func (r *Registry) LoadAPIConfig(ctx context.Context, manifestFile string) error {
	if r.host == nil {
		logger.Debugf("Registry: %v", ErrNotInitialized)
		return newError(ErrNotInitialized, nil, "")
	}
	if strings.TrimSpace(manifestFile) == "" {
		return newError(ErrBadArgument, nil, "manifest file name is required")
	}

	path, err := r.loader.Search(manifestFile, r.searchDirs)
	if err != nil {
		logger.Debugf("Registry: could not find manifest %s: %v", manifestFile, err)
		return newError(ErrFileLoad, err, "Could not load API config %s", manifestFile)
	}
	data, err := r.loader.ReadFile(path)
	if err != nil {
		return newError(ErrFileLoad, err, "Could not load API config %s", manifestFile)
	}

	m, err := manifest.Parse(path, data)
	if err != nil {
		logger.Debugf("Registry: could not parse manifest %s: %v", path, err)
		return newError(ErrConfigParse, err, "Could not parse API config %s", manifestFile)
	}

	entries := m.Entries()
	logger.Infof("Loading %d API version(s) from %s", len(entries), path)
	for _, e := range entries {
		info := APIInfo{
			Name:            e.API.Name,
			DescriptiveName: e.API.DescriptiveName,
			Description:     e.API.Description,
			Version:         e.Version.Ver,
		}
		if err := r.RegisterFromFile(ctx, info, e.Version.FileName); err != nil {
			logger.Warnf("Failed to register %s %s from %s: %v", e.API.Name, e.Version.Ver, e.Version.FileName, err)
			return err
		}
	}
	return nil
}
