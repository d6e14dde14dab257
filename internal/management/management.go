// Package management provides the administrative API module: it lists registered
// APIs, reloads manifests and unregisters APIs over HTTP.
package management

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/stacklok/flagpole/internal/api/common"
	"github.com/stacklok/flagpole/internal/logger"
	"github.com/stacklok/flagpole/internal/module"
	"github.com/stacklok/flagpole/internal/registry"
	"github.com/stacklok/flagpole/internal/router"
	"github.com/stacklok/flagpole/internal/token"
)

const (
	// DefaultName is the API name the management module is usually registered under
	DefaultName = "management"

	// DefaultVersion is the API version the management module is usually registered under
	DefaultVersion = "1.0.0"
)

// Registry is the subset of the registry the management API drives.
//
//go:generate mockgen -destination=mocks/mock_registry.go -package=mocks -source=management.go Registry
type Registry interface {
	Query() []registry.APIDescription
	LoadAPIConfig(ctx context.Context, manifestFile string) error
	Unregister(ctx context.Context, nameOrToken, version string) error
}

// ReloadRequest is the body of POST /apis/reload.
type ReloadRequest struct {
	FileName string `json:"fileName"`
}

// UnregisterRequest is the body of POST /apis/unregister. Name may also be a token.
type UnregisterRequest struct {
	Name    string `json:"name"`
	Version string `json:"ver,omitempty"`
}

// ResultResponse reports a successful administrative action.
type ResultResponse struct {
	Result string `json:"result"`
}

// Module is the management API handler module.
type Module struct {
	reg Registry

	mu       sync.RWMutex
	name     string
	version  string
	apiToken string
}

var (
	_ module.Module       = (*Module)(nil)
	_ module.Registerer   = (*Module)(nil)
	_ module.Unregisterer = (*Module)(nil)
)

// New returns a management module operating on reg.
func New(reg Registry) *Module {
	return &Module{reg: reg}
}

// Bindings implements module.Module.
func (m *Module) Bindings() []module.PathBinding {
	return []module.PathBinding{
		{RequestType: module.RequestGet, Path: "/apis", Handler: http.HandlerFunc(m.listAPIs)},
		{RequestType: module.RequestPost, Path: "/apis/reload", Handler: http.HandlerFunc(m.reload)},
		{RequestType: module.RequestPost, Path: "/apis/unregister", Handler: http.HandlerFunc(m.unregister)},
	}
}

// OnRegister records the identity the module is served under.
func (m *Module) OnRegister(_ router.HostRouter, name, version, apiToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name, m.version, m.apiToken = name, version, apiToken
	logger.Infof("Management API available as %s", apiToken)
	return nil
}

// OnUnregister forgets the identity recorded by OnRegister.
func (m *Module) OnUnregister() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name, m.version, m.apiToken = "", "", ""
}

// Token returns the token the module is registered under, or "" when it is not.
func (m *Module) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.apiToken
}

func (m *Module) listAPIs(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, m.reg.Query(), http.StatusOK)
}

func (m *Module) reload(w http.ResponseWriter, r *http.Request) {
	var req ReloadRequest
	if err := common.DecodeJSONRequest(r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := m.reg.LoadAPIConfig(r.Context(), req.FileName); err != nil {
		logger.Warnf("Reload of %q failed: %v", req.FileName, err)
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	common.WriteJSONResponse(w, ResultResponse{Result: "Loaded API config " + req.FileName}, http.StatusOK)
}

func (m *Module) unregister(w http.ResponseWriter, r *http.Request) {
	var req UnregisterRequest
	if err := common.DecodeJSONRequest(r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		common.WriteErrorResponse(w, "name is required", http.StatusBadRequest)
		return
	}
	if m.isSelf(req) {
		common.WriteErrorResponse(w, "refusing to unregister the management API serving this request", http.StatusBadRequest)
		return
	}

	if err := m.reg.Unregister(r.Context(), req.Name, req.Version); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	target := req.Name
	if req.Version != "" {
		target = token.New(req.Name, req.Version)
	}
	common.WriteJSONResponse(w, ResultResponse{Result: "Unregistered " + target}, http.StatusOK)
}

// isSelf reports whether req would remove the identity this module is serving under.
func (m *Module) isSelf(req UnregisterRequest) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.apiToken == "" {
		return false
	}
	name := strings.TrimSpace(req.Name)
	version := strings.TrimSpace(req.Version)
	if version != "" {
		return token.New(name, version) == m.apiToken
	}
	return name == m.apiToken || token.Normalize(name) == m.name
}
