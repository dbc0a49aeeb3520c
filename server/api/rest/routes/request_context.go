package routes

import (
	"net/http"
	"strings"
)

// RequestContext supplies the base URL that links in API documents are built from.
type RequestContext interface {
	BaseURL() string
}

// HTTPRequestCtx is the base URL a client used to reach the server, as seen through any proxies.
type HTTPRequestCtx struct {
	baseURL string
}

// RequestCtx returns the context of r. The Forwarded header takes precedence over the
// X-Forwarded-Proto and X-Forwarded-Host headers, which take precedence over the request itself.
func RequestCtx(r *http.Request) *HTTPRequestCtx {
	scheme, host := forwardedFor(r.Header.Get("Forwarded"))
	if scheme == "" {
		scheme = firstListValue(r.Header.Get("X-Forwarded-Proto"))
	}
	if scheme == "" && (r.URL.Scheme == "https" || r.TLS != nil) {
		scheme = "https"
	}
	if scheme != "https" {
		scheme = "http"
	}
	if host == "" {
		host = firstListValue(r.Header.Get("X-Forwarded-Host"))
	}
	if host == "" {
		host = r.Host
	}
	return &HTTPRequestCtx{baseURL: scheme + "://" + host}
}

func (r *HTTPRequestCtx) BaseURL() string {
	return r.baseURL
}

func (r *HTTPRequestCtx) String() string {
	return r.baseURL
}

// forwardedFor returns the proto and host of the first (client-most) element of an RFC 7239
// Forwarded header.
func forwardedFor(header string) (proto string, host string) {
	first := firstListValue(header)
	for _, pair := range strings.Split(first, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"`)
		switch strings.ToLower(key) {
		case "proto":
			proto = strings.ToLower(value)
		case "host":
			host = value
		}
	}
	return proto, host
}

func firstListValue(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.ToLower(strings.TrimSpace(first))
}
