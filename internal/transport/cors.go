package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// checkCORS applies the browser rule for reading a cross-origin response.
// Same-origin requests, or a client with no page origin, always pass.
func checkCORS(pageOrigin string, target *url.URL, withCredentials bool, h http.Header) error {
	if pageOrigin == "" || sameOrigin(pageOrigin, target) {
		return nil
	}

	allow := h.Get("Access-Control-Allow-Origin")
	switch {
	case allow == "":
		return fmt.Errorf("%w: no Access-Control-Allow-Origin header for origin %s", ErrCORS, pageOrigin)
	case allow == "*":
		if withCredentials {
			return fmt.Errorf("%w: wildcard Access-Control-Allow-Origin with credentials", ErrCORS)
		}
		return nil
	case !strings.EqualFold(strings.TrimRight(allow, "/"), pageOrigin):
		return fmt.Errorf("%w: Access-Control-Allow-Origin %q does not match %s", ErrCORS, allow, pageOrigin)
	}

	if withCredentials && h.Get("Access-Control-Allow-Credentials") != "true" {
		return fmt.Errorf("%w: credentials not allowed for origin %s", ErrCORS, pageOrigin)
	}
	return nil
}

func sameOrigin(origin string, target *url.URL) bool {
	o, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(o.Scheme, target.Scheme) &&
		strings.EqualFold(hostPort(o), hostPort(target))
}

// hostPort returns host:port with the scheme's default port filled in.
func hostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		switch strings.ToLower(u.Scheme) {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return u.Hostname() + ":" + port
}
