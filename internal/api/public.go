package api

import (
	"net/url"
	"strings"
)

// publicRule marks an endpoint+method combination as usable without
// credentials. Requests matching a rule skip bearer attachment and never
// trigger the 401 refresh/sign-out flow.
type publicRule struct {
	path    string
	methods []string
	prefix  bool // match sub-paths too, e.g. GET /tender/{id}
}

var publicRules = []publicRule{
	{path: "/auth/signin", methods: []string{"POST"}},
	{path: "/auth/signup", methods: []string{"POST"}},
	{path: "/auth/refresh", methods: []string{"POST"}},
	{path: "/auth/phone-exists", methods: []string{"POST"}},
	{path: "/auth/2fa/send", methods: []string{"POST"}},
	{path: "/auth/2fa/validate", methods: []string{"POST"}},
	{path: "/auth/password-reset", methods: []string{"POST"}},
	{path: "/auth/otp/confirm", methods: []string{"POST"}},
	{path: "/auth/otp/resend", methods: []string{"POST"}},
	{path: "/tender", methods: []string{"GET"}, prefix: true},
	{path: "/terms/public", methods: []string{"GET"}},
	{path: "/terms/latest", methods: []string{"GET"}},
}

// IsPublic reports whether method+rawPath hits the public allow-list.
// rawPath may carry a query string or a full URL; only the pathname is
// matched, after stripping basePath.
func IsPublic(method, rawPath, basePath string) bool {
	pathname := normalizePath(rawPath, basePath)

	for _, rule := range publicRules {
		if rule.prefix {
			if pathname != rule.path && !strings.HasPrefix(pathname, rule.path+"/") {
				continue
			}
		} else if pathname != rule.path {
			continue
		}

		for _, m := range rule.methods {
			if strings.EqualFold(m, method) {
				return true
			}
		}
	}
	return false
}

func normalizePath(rawPath, basePath string) string {
	if u, err := url.Parse(rawPath); err == nil {
		rawPath = u.Path
	}
	if basePath != "" {
		if u, err := url.Parse(basePath); err == nil && u.Path != "" {
			rawPath = strings.TrimPrefix(rawPath, strings.TrimSuffix(u.Path, "/"))
		}
	}
	if !strings.HasPrefix(rawPath, "/") {
		rawPath = "/" + rawPath
	}
	return strings.TrimSuffix(rawPath, "/")
}
