package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
)

func newStatic(spec Spec, _ Env) (http.Handler, error) {
	status := statusOr(spec.Status, http.StatusOK)
	contentType := spec.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	body := spec.Body

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}), nil
}

func newRedirect(spec Spec, _ Env) (http.Handler, error) {
	if spec.Location == "" {
		return nil, fmt.Errorf("location is required")
	}
	status := statusOr(spec.Status, http.StatusFound)
	if status < 300 || status > 399 {
		return nil, fmt.Errorf("status %d is not a redirect", status)
	}
	location := spec.Location

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, location, status)
	}), nil
}

func newProxy(spec Spec, _ Env) (http.Handler, error) {
	if spec.Upstream == "" {
		return nil, fmt.Errorf("upstream is required")
	}
	target, err := url.Parse(spec.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream %q: %w", spec.Upstream, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("upstream %q must be an http or https URL", spec.Upstream)
	}

	return httputil.NewSingleHostReverseProxy(target), nil
}
