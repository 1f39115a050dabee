package api

import "net/url"

// Identity-provider routes. The session they establish is owned by the
// provider; this package only forwards its cookies.
const (
	LoginPath  = "/api/auth/login"
	LogoutPath = "/api/auth/logout"
)

// LoginURL is where the browser goes to start a session. returnTo, when set,
// is passed through as the provider's returnTo parameter.
func (c *Client) LoginURL(returnTo string) string {
	target := c.baseURL + LoginPath
	if returnTo != "" {
		target += "?" + url.Values{"returnTo": {returnTo}}.Encode()
	}
	return target
}

// LogoutURL ends the provider session.
func (c *Client) LogoutURL() string {
	return c.baseURL + LogoutPath
}
