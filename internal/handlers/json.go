package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/stacklok/flagpole/internal/api/common"
)

// newJSON serves either an inline value or a JSON data file. With a query, the file is
// narrowed with a gjson path in which "{param}" placeholders are replaced by URL params.
func newJSON(spec Spec, env Env) (http.Handler, error) {
	status := statusOr(spec.Status, http.StatusOK)

	if spec.File == "" {
		if spec.Query != "" {
			return nil, fmt.Errorf("query requires file")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			common.WriteJSONResponse(w, spec.Value, status)
		}), nil
	}

	if spec.Value != nil {
		return nil, fmt.Errorf("value and file are mutually exclusive")
	}
	if env.ReadFile == nil {
		return nil, fmt.Errorf("file %q cannot be read from %s", spec.File, env.Source)
	}
	data, err := env.ReadFile(spec.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", spec.File, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s is not valid JSON", spec.File)
	}

	query := spec.Query
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := data
		if query != "" {
			res := gjson.GetBytes(data, expandParams(query, r))
			if !res.Exists() {
				common.WriteErrorResponse(w, "Not found", http.StatusNotFound)
				return
			}
			out = []byte(res.Raw)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(out)
	}), nil
}

// expandParams replaces "{name}" in s with the URL param of that name, escaped so it
// cannot alter the gjson path.
func expandParams(s string, r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return s
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		s = strings.ReplaceAll(s, "{"+key+"}", gjsonEscape(rctx.URLParams.Values[i]))
	}
	return s
}

func gjsonEscape(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
