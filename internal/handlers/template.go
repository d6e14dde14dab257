package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/go-chi/chi/v5"

	"github.com/stacklok/flagpole/internal/router"
)

// TemplateData is the value templates are executed against.
type TemplateData struct {
	Method  string
	Path    string
	Version string
	Params  map[string]string
	Query   url.Values
	Headers http.Header
}

func newTemplate(spec Spec, env Env) (http.Handler, error) {
	if spec.Template == "" {
		return nil, fmt.Errorf("template is required")
	}
	tmpl, err := template.New(env.Source).Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(spec.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	status := statusOr(spec.Status, http.StatusOK)
	contentType := spec.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, newTemplateData(w, r)); err != nil {
			http.Error(w, "template execution failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write(buf.Bytes())
	}), nil
}

func newTemplateData(w http.ResponseWriter, r *http.Request) TemplateData {
	params := map[string]string{}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if key == "*" || i >= len(rctx.URLParams.Values) {
				continue
			}
			params[key] = rctx.URLParams.Values[i]
		}
	}

	return TemplateData{
		Method:  r.Method,
		Path:    r.URL.Path,
		Version: w.Header().Get(router.APIVersionHeader),
		Params:  params,
		Query:   r.URL.Query(),
		Headers: r.Header,
	}
}
