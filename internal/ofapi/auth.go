package ofapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var ErrInvalidAuthCookie = errors.New("ofapi: invalid auth cookie")

// AuthContext is the caller's authentication material. It is replaceable
// wholesale (re-authentication) without rebuilding the transport.
type AuthContext struct {
	// Cookie is the raw browser cookie string ("auth_id=...; sess=...; ...").
	Cookie    string
	UserID    string
	XBC       string
	UserAgent string
}

func (a AuthContext) Validate() error {
	if strings.TrimSpace(a.Cookie) == "" {
		return fmt.Errorf("%w: cookie required", ErrInvalidAuthCookie)
	}
	if strings.TrimSpace(a.UserID) == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidAuthCookie)
	}
	if strings.TrimSpace(a.XBC) == "" {
		return errors.New("ofapi: x-bc client identifier required")
	}
	if strings.TrimSpace(a.UserAgent) == "" {
		return errors.New("ofapi: user agent required")
	}
	return nil
}

// ParseAuthCookie splits a raw browser cookie string into pairs and returns
// the auth_id subject identifier. auth_id and sess are required.
func ParseAuthCookie(raw string) (authID string, pairs []*http.Cookie, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, fmt.Errorf("%w: empty", ErrInvalidAuthCookie)
	}

	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return "", nil, fmt.Errorf("%w: no key/value pair in %q", ErrInvalidAuthCookie, part)
		}
		name = strings.TrimSpace(name)
		pairs = append(pairs, &http.Cookie{Name: name, Value: strings.TrimSpace(value)})
		seen[name] = true
		if name == "auth_id" {
			authID = strings.TrimSpace(value)
		}
	}
	if !seen["auth_id"] {
		return "", nil, fmt.Errorf("%w: auth_id missing", ErrInvalidAuthCookie)
	}
	if !seen["sess"] {
		return "", nil, fmt.Errorf("%w: sess missing", ErrInvalidAuthCookie)
	}
	return authID, pairs, nil
}

func cookieURL(base *url.URL) *url.URL {
	return &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
}
