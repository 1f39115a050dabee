// Package session gates pages on the identity-provider session cookie and
// hands that cookie to the API client for the outbound calls of the request.
package session

import (
	"net/http"
	"net/url"
	"strings"

	"finsight/internal/api"
	"finsight/internal/log"
)

// DefaultCookieName is the cookie the identity provider sets.
const DefaultCookieName = "appSession"

// Guard requires a session cookie on the routes it wraps.
type Guard struct {
	cookieName string
	loginPath  string
	logger     *log.Logger
}

// NewGuard creates a guard. Unauthenticated browsers are sent to loginPath.
func NewGuard(cookieName, loginPath string, logger *log.Logger) *Guard {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Guard{
		cookieName: cookieName,
		loginPath:  loginPath,
		logger:     logger.WithComponent(log.ComponentSession),
	}
}

// Cookies returns the session cookies on r. Large sessions are split by the
// provider into name.0, name.1, ... chunks; all of them are returned.
func (g *Guard) Cookies(r *http.Request) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range r.Cookies() {
		if c.Value == "" {
			continue
		}
		if c.Name == g.cookieName || strings.HasPrefix(c.Name, g.cookieName+".") {
			out = append(out, c)
		}
	}
	return out
}

// HasSession reports whether r carries a session cookie.
func (g *Guard) HasSession(r *http.Request) bool {
	return len(g.Cookies(r)) > 0
}

// Attach forwards the session cookies, if any, without requiring them.
func (g *Guard) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookies := g.Cookies(r); len(cookies) > 0 {
			r = r.WithContext(api.WithSessionCookies(r.Context(), cookies...))
		}
		next.ServeHTTP(w, r)
	})
}

// Require redirects to login when the session cookie is missing.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies := g.Cookies(r)
		if len(cookies) == 0 {
			g.logger.DebugContext(r.Context(), "No session, redirecting to login",
				log.FieldPath, r.URL.Path,
				log.FieldMethod, r.Method)
			g.RedirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(api.WithSessionCookies(r.Context(), cookies...)))
	})
}

// LoginRedirectURL is the login path with r's page as the return target.
func (g *Guard) LoginRedirectURL(r *http.Request) string {
	returnTo := r.URL.Path
	if r.Method != http.MethodGet {
		returnTo = ""
		if u, err := url.Parse(r.Referer()); err == nil {
			returnTo = u.Path
		}
	}
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		returnTo = "/"
	}
	return g.loginPath + "?" + url.Values{"returnTo": {returnTo}}.Encode()
}

// RedirectToLogin sends the browser to login. HTMX requests get an
// HX-Redirect header since a 3xx would be followed by the XHR itself.
func (g *Guard) RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := g.LoginRedirectURL(r)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
