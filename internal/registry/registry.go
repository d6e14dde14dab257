package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/stacklok/flagpole/internal/loader"
	"github.com/stacklok/flagpole/internal/logger"
	"github.com/stacklok/flagpole/internal/module"
	"github.com/stacklok/flagpole/internal/router"
	"github.com/stacklok/flagpole/internal/telemetry"
	"github.com/stacklok/flagpole/internal/token"
)

// DefaultSearchDir is used when no search directory is configured.
const DefaultSearchDir = "." + string(filepath.Separator)

// APIInfo names and describes an API version to register.
type APIInfo struct {
	Name            string
	DescriptiveName string
	Description     string
	Version         string
}

// APIDescription is the public view of a registered API.
type APIDescription struct {
	Name            string `json:"name"`
	DescriptiveName string `json:"descriptiveName,omitempty"`
	Description     string `json:"description,omitempty"`
	Version         string `json:"ver"`
	Token           string `json:"apiToken"`
	FileName        string `json:"fileName,omitempty"`
}

type boundRoute struct {
	binding module.PathBinding
	handle  router.Handle
}

type record struct {
	seq        uint64
	info       APIInfo
	token      string
	module     module.Module
	sourceFile string
	routes     []boundRoute
}

// Registry tracks the APIs bound to a host router.
//
// The zero value is not usable: every operation reports ErrNotInitialized until the
// Registry is created with New.
type Registry struct {
	mu         sync.Mutex
	host       router.HostRouter
	binder     *RouteBinder
	loader     loader.Loader
	searchDirs []string
	metrics    *telemetry.RegistryMetrics
	apis       map[string]*record
	nextSeq    uint64
}

// Option configures a Registry.
type Option func(*Registry) error

// WithSearchDirs sets the trusted directories file-based modules and manifests are
// looked up in, in order. Each entry may itself be an OS path list ("a:b" on Unix).
// Directories are made absolute.
func WithSearchDirs(dirs ...string) Option {
	return func(r *Registry) error {
		var resolved []string
		for _, entry := range dirs {
			for _, dir := range filepath.SplitList(entry) {
				if strings.TrimSpace(dir) == "" {
					continue
				}
				abs, err := filepath.Abs(dir)
				if err != nil {
					return fmt.Errorf("failed to resolve search directory %s: %w", dir, err)
				}
				resolved = append(resolved, abs)
			}
		}
		if len(resolved) > 0 {
			r.searchDirs = resolved
		}
		return nil
	}
}

// WithLoader replaces the filesystem loader.
func WithLoader(l loader.Loader) Option {
	return func(r *Registry) error {
		if l == nil {
			return fmt.Errorf("loader cannot be nil")
		}
		r.loader = l
		return nil
	}
}

// WithMetrics records registry metrics. A nil value disables them.
func WithMetrics(m *telemetry.RegistryMetrics) Option {
	return func(r *Registry) error {
		r.metrics = m
		return nil
	}
}

// New creates a Registry bound to host. A nil host is a setup error.
func New(host router.HostRouter, opts ...Option) (*Registry, error) {
	if host == nil {
		return nil, newError(ErrBadArgument, nil, "host router not provided")
	}

	r := &Registry{
		host:       host,
		binder:     NewRouteBinder(host),
		loader:     loader.NewFileLoader(),
		searchDirs: []string{DefaultSearchDir},
		apis:       make(map[string]*record),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	logger.Debugf("Registry initialized with search directories %v", r.searchDirs)
	return r, nil
}

// SearchDirs returns the configured search directories.
func (r *Registry) SearchDirs() []string {
	return append([]string(nil), r.searchDirs...)
}

// Locate returns the path fileName resolves to in the search directories.
func (r *Registry) Locate(fileName string) (string, error) {
	if r.host == nil {
		return "", newError(ErrNotInitialized, nil, "")
	}
	path, err := r.loader.Search(fileName, r.searchDirs)
	if err != nil {
		return "", newError(ErrFileLoad, err, "Could not find %s", fileName)
	}
	return path, nil
}

// Register registers a module value directly, or a module file when pathOrModule is
// a string.
func (r *Registry) Register(ctx context.Context, info APIInfo, pathOrModule any) error {
	switch v := pathOrModule.(type) {
	case string:
		return r.RegisterFromFile(ctx, info, v)
	case module.Module:
		return r.RegisterDirect(ctx, info, v)
	default:
		return newError(ErrBadArgument, nil, "expected a module or a file name, got %T", pathOrModule)
	}
}

// RegisterDirect registers m under info's name and version, replacing any API
// registered with the same token.
//
// If m implements module.Registerer, OnRegister is called once the API is live; its
// error is returned as is and the API stays registered.
func (r *Registry) RegisterDirect(ctx context.Context, info APIInfo, m module.Module) error {
	return r.registerDirect(ctx, info, m, "")
}

// RegisterFromFile looks fileName up in the search directories, loads the module it
// contains and registers it like RegisterDirect.
func (r *Registry) RegisterFromFile(ctx context.Context, info APIInfo, fileName string) error {
	if r.host == nil {
		logger.Debugf("Registry: %v", ErrNotInitialized)
		return newError(ErrNotInitialized, nil, "")
	}
	if strings.TrimSpace(info.Name) == "" || strings.TrimSpace(info.Version) == "" || strings.TrimSpace(fileName) == "" {
		return newError(ErrBadArgument, nil, "name, version and file name are required")
	}
	if !token.ValidVersion(info.Version) {
		return newError(ErrBadArgument, nil, "Invalid version format %q", info.Version)
	}

	path, err := r.loader.Search(fileName, r.searchDirs)
	if err != nil {
		logger.Debugf("Registry: could not find API file %s: %v", fileName, err)
		r.metrics.RecordRegistration(ctx, telemetry.ResultFailure)
		return newError(ErrFileLoad, err, "Could not load API file %s", fileName)
	}

	// A re-registration from the same file must read the file again rather than reuse
	// the module cached for the registration it replaces.
	tok := token.New(info.Name, info.Version)
	r.mu.Lock()
	if old, ok := r.apis[tok]; ok && old.sourceFile == path {
		r.loader.Evict(path)
	}
	r.mu.Unlock()

	m, err := r.loader.Load(path)
	if err != nil {
		logger.Debugf("Registry: could not load API file %s: %v", path, err)
		r.metrics.RecordRegistration(ctx, telemetry.ResultFailure)
		return newError(ErrFileLoad, err, "Could not load API file %s", fileName)
	}

	return r.registerDirect(ctx, info, m, path)
}

func (r *Registry) registerDirect(ctx context.Context, info APIInfo, m module.Module, sourceFile string) error {
	if r.host == nil {
		logger.Debugf("Registry: %v", ErrNotInitialized)
		return newError(ErrNotInitialized, nil, "")
	}
	if strings.TrimSpace(info.Name) == "" || strings.TrimSpace(info.Version) == "" || m == nil {
		return newError(ErrBadArgument, nil, "name, version and module are required")
	}
	if !token.ValidVersion(info.Version) {
		logger.Debugf("Registry: invalid version format %q", info.Version)
		return newError(ErrBadArgument, nil, "Invalid version format %q", info.Version)
	}

	info.Name = token.Normalize(info.Name)
	info.Version = strings.TrimSpace(info.Version)
	tok := token.New(info.Name, info.Version)

	r.mu.Lock()

	var replaced []*record
	if old, ok := r.apis[tok]; ok {
		logger.Debugf("Registry: overwriting API %s", tok)
		r.removeLocked(old, sourceFile)
		replaced = append(replaced, old)
	}

	bindings := m.Bindings()
	for _, pb := range bindings {
		if _, err := module.ParseRequestType(string(pb.RequestType)); err != nil {
			r.mu.Unlock()
			r.finishRemoval(ctx, replaced)
			r.metrics.RecordRegistration(ctx, telemetry.ResultFailure)
			logger.Debugf("Registry: %s: %v", tok, err)
			return newError(ErrRouteRegistration, err, "API %s", tok)
		}
	}

	routes, err := r.bindAll(bindings, info.Version)
	if err != nil {
		r.mu.Unlock()
		r.finishRemoval(ctx, replaced)
		r.metrics.RecordRegistration(ctx, telemetry.ResultFailure)
		return newError(ErrRouteRegistration, err, "API %s", tok)
	}

	r.nextSeq++
	r.apis[tok] = &record{
		seq:        r.nextSeq,
		info:       info,
		token:      tok,
		module:     m,
		sourceFile: sourceFile,
		routes:     routes,
	}
	count := len(r.apis)
	r.mu.Unlock()

	r.finishRemoval(ctx, replaced)
	r.metrics.RecordRegistration(ctx, telemetry.ResultSuccess)
	r.metrics.RecordAPIs(ctx, int64(count))
	logger.Infof("Registered API %s with %d route(s)", tok, len(routes))

	if reg, ok := m.(module.Registerer); ok {
		logger.Debugf("Registry: calling register hook for %s", tok)
		return reg.OnRegister(r.host, info.Name, info.Version, tok)
	}
	return nil
}

// bindAll binds every binding in order. On failure, routes bound so far are
// unbound again before the error is returned.
func (r *Registry) bindAll(bindings []module.PathBinding, version string) ([]boundRoute, error) {
	routes := make([]boundRoute, 0, len(bindings))
	for _, pb := range bindings {
		h, err := r.binder.Bind(pb, version)
		if err != nil {
			logger.Debugf("Registry: could not register route %s %s (%s): %v", pb.RequestType, pb.Path, version, err)
			r.unbindAll(routes)
			return nil, fmt.Errorf("could not register route %s %q: %w", pb.RequestType, pb.Path, err)
		}
		logger.Debugf("Registry: registered route %s %s (%s)", pb.RequestType, pb.Path, version)
		routes = append(routes, boundRoute{binding: pb, handle: h})
	}
	return routes, nil
}

func (r *Registry) unbindAll(routes []boundRoute) {
	for i := range routes {
		if err := r.binder.Unbind(routes[i].handle); err != nil {
			logger.Warnf("Failed to unbind route %s %s: %v", routes[i].binding.RequestType, routes[i].binding.Path, err)
		}
		routes[i].handle = ""
	}
}

// removeLocked unbinds rec's routes, evicts its source file and drops it from the
// map. The cache entry is kept when rec is replaced by a module loaded from the same
// file, keepFile. r.mu must be held.
func (r *Registry) removeLocked(rec *record, keepFile string) {
	r.unbindAll(rec.routes)
	if rec.sourceFile != "" && rec.sourceFile != keepFile {
		r.loader.Evict(rec.sourceFile)
		logger.Debugf("Registry: removed module %s from cache", rec.sourceFile)
	}
	delete(r.apis, rec.token)
}

// finishRemoval runs the unregister hooks of removed records. It is called without
// r.mu held so hooks may use the registry.
func (r *Registry) finishRemoval(ctx context.Context, removed []*record) {
	if len(removed) == 0 {
		return
	}
	for _, rec := range removed {
		if u, ok := rec.module.(module.Unregisterer); ok {
			logger.Debugf("Registry: calling unregister hook for %s", rec.token)
			u.OnUnregister()
		}
	}
	r.metrics.RecordUnregistrations(ctx, int64(len(removed)))
}

// Unregister removes registered APIs:
//
//   - no arguments: every API;
//   - nameOrToken and version: that version of the named API;
//   - nameOrToken only: the API with that token, or else every version of that name.
//
// ErrAPINotFound is returned when nothing matched, except for the wipe-all form which
// never fails once the registry is initialized.
func (r *Registry) Unregister(ctx context.Context, nameOrToken, version string) error {
	if r.host == nil {
		logger.Debugf("Registry: %v", ErrNotInitialized)
		return newError(ErrNotInitialized, nil, "")
	}

	nameOrToken = strings.TrimSpace(nameOrToken)
	version = strings.TrimSpace(version)

	r.mu.Lock()
	var removed []*record
	for _, rec := range r.ordered() {
		if (nameOrToken == "" && version == "") || matches(rec, nameOrToken, version) {
			r.removeLocked(rec, "")
			removed = append(removed, rec)
		}
	}
	count := len(r.apis)
	r.mu.Unlock()

	r.finishRemoval(ctx, removed)
	r.metrics.RecordAPIs(ctx, int64(count))

	if nameOrToken == "" && version == "" {
		logger.Infof("All APIs unregistered (%d)", len(removed))
		return nil
	}
	if len(removed) == 0 {
		logger.Debugf("Registry: could not find API (%s, %s) to unregister", nameOrToken, version)
		return newError(ErrAPINotFound, nil, "Could not find API (%s, %s) to unregister", nameOrToken, version)
	}
	for _, rec := range removed {
		logger.Infof("Unregistered API %s", rec.token)
	}
	return nil
}

func matches(rec *record, nameOrToken, version string) bool {
	if version != "" {
		return rec.info.Name == token.Normalize(nameOrToken) && rec.info.Version == version
	}
	return rec.token == nameOrToken || rec.info.Name == token.Normalize(nameOrToken)
}

// Query lists the registered APIs in registration order.
func (r *Registry) Query() []APIDescription {
	r.mu.Lock()
	defer r.mu.Unlock()

	apis := make([]APIDescription, 0, len(r.apis))
	for _, rec := range r.ordered() {
		apis = append(apis, APIDescription{
			Name:            rec.info.Name,
			DescriptiveName: rec.info.DescriptiveName,
			Description:     rec.info.Description,
			Version:         rec.info.Version,
			Token:           rec.token,
			FileName:        rec.sourceFile,
		})
	}
	return apis
}

// Len returns the number of registered APIs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apis)
}

// ordered returns the records in registration order. r.mu must be held.
func (r *Registry) ordered() []*record {
	recs := make([]*record, 0, len(r.apis))
	for _, rec := range r.apis {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	return recs
}
