package loader

import (
	"fmt"
	"plugin"

	"github.com/stacklok/flagpole/internal/module"
)

// PluginSymbol is the symbol a Go plugin must export.
const PluginSymbol = "Module"

// loadPlugin opens a Go plugin and returns its exported Module. The Go runtime never
// unloads a plugin, so evicting one only forgets the cached value; a rebuilt plugin
// must use a new file name to be picked up.
func loadPlugin(path string) (module.Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin %s: %w", path, err)
	}
	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", path, err)
	}
	return pluginModule(path, sym)
}

func pluginModule(path string, sym any) (module.Module, error) {
	switch v := sym.(type) {
	case *module.Module:
		if v == nil || *v == nil {
			return nil, fmt.Errorf("plugin %s: %s is nil", path, PluginSymbol)
		}
		return *v, nil
	case module.Module:
		return v, nil
	case func() module.Module:
		return v(), nil
	default:
		return nil, fmt.Errorf("plugin %s: %s has type %T, want module.Module", path, PluginSymbol, sym)
	}
}
