package security

import (
	"net/http"
	"strconv"
	"time"
)

// HeadersConfig lists the headers stamped on every response. Empty values
// are not sent.
type HeadersConfig struct {
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeOptions    string
	ReferrerPolicy        string
	PermissionsPolicy     string
	OpenerPolicy          string
	ResourcePolicy        string

	// CacheControl keeps balances and profiles out of shared caches.
	CacheControl string

	// HSTS is sent on TLS connections only, and only when positive.
	HSTS           time.Duration
	HSTSSubdomains bool
}

// DefaultHeadersConfig suits the JSON API and the one self-contained HTML
// page served after email verification.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; " +
			"frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		ReferrerPolicy:     "no-referrer",
		PermissionsPolicy:  "geolocation=(), microphone=(), camera=(), payment=()",
		OpenerPolicy:       "same-origin",
		ResourcePolicy:     "same-origin",
		CacheControl:       "no-store",
		HSTS:               365 * 24 * time.Hour,
		HSTSSubdomains:     true,
	}
}

// HeadersMiddleware writes a fixed header set computed once from its config.
type HeadersMiddleware struct {
	fixed http.Header
	hsts  string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	fixed := make(http.Header)
	for name, value := range map[string]string{
		"Content-Security-Policy":      cfg.ContentSecurityPolicy,
		"X-Frame-Options":              cfg.FrameOptions,
		"X-Content-Type-Options":       cfg.ContentTypeOptions,
		"Referrer-Policy":              cfg.ReferrerPolicy,
		"Permissions-Policy":           cfg.PermissionsPolicy,
		"Cross-Origin-Opener-Policy":   cfg.OpenerPolicy,
		"Cross-Origin-Resource-Policy": cfg.ResourcePolicy,
		"Cache-Control":                cfg.CacheControl,
	} {
		if value != "" {
			fixed.Set(name, value)
		}
	}

	m := &HeadersMiddleware{fixed: fixed}
	if secs := int64(cfg.HSTS / time.Second); secs > 0 {
		m.hsts = "max-age=" + strconv.FormatInt(secs, 10)
		if cfg.HSTSSubdomains {
			m.hsts += "; includeSubDomains"
		}
	}
	return m
}

func (m *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for name, values := range m.fixed {
			h[name] = append([]string(nil), values...)
		}
		if r.TLS != nil && m.hsts != "" {
			h.Set("Strict-Transport-Security", m.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
