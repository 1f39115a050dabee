package api

import (
	"context"
	"net/http"
)

type contextKey string

const sessionCookiesKey contextKey = "session_cookies"

// WithSessionCookies returns a context whose outbound calls carry cookies.
// The web layer stores the browser's identity-provider session here so the
// executor can attach it without ever inspecting it.
func WithSessionCookies(ctx context.Context, cookies ...*http.Cookie) context.Context {
	if len(cookies) == 0 {
		return ctx
	}
	existing := SessionCookies(ctx)
	merged := make([]*http.Cookie, 0, len(existing)+len(cookies))
	merged = append(merged, existing...)
	merged = append(merged, cookies...)
	return context.WithValue(ctx, sessionCookiesKey, merged)
}

// SessionCookies returns the cookies stored by WithSessionCookies.
func SessionCookies(ctx context.Context) []*http.Cookie {
	cookies, _ := ctx.Value(sessionCookiesKey).([]*http.Cookie)
	return cookies
}
