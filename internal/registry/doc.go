// Package registry attaches versioned handler modules to a running host router and
// detaches them again, without restarting the server.
//
// # Tokens
//
// Every registered API is identified by a token built from its normalized name and
// its version, e.g. "dog:1.0.0" (see package token). At most one API is registered
// per token; registering a token again replaces the previous registration.
//
// # Registration
//
// Modules are registered either directly, from a module.Module value:
//
//	reg, err := registry.New(mux, registry.WithSearchDirs("/srv/apis"))
//	err = reg.RegisterDirect(ctx, registry.APIInfo{Name: "dog", Version: "1.0.0"}, dogModule)
//
// or from a file found in one of the trusted search directories through a
// loader.Loader:
//
//	err = reg.RegisterFromFile(ctx, registry.APIInfo{Name: "dog", Version: "1.0.0"}, "api/dog_1.0.0.yaml")
//
// A manifest registers many APIs and versions at once:
//
//	err = reg.LoadAPIConfig(ctx, "apis.yaml")
//
// Registration is all or nothing: if any route of a module fails to bind, the routes
// already bound by that attempt are removed again and an error is returned.
// A manifest, on the other hand, stops at the first failing version and keeps the
// registrations made before it.
//
// # Unregistration
//
// Unregister removes a single version (name and version), every version of a name,
// the API with a given token, or everything (no arguments). Routes are always unbound
// before an API leaves the registry, and file-based modules are evicted from the
// loader cache so a later registration reads them from disk again.
//
// # Errors
//
// Operations return *Error values that match one of the sentinel kinds with errors.Is:
// ErrNotInitialized, ErrBadArgument, ErrRouteRegistration, ErrFileLoad, ErrConfigParse
// and ErrAPINotFound.
package registry
