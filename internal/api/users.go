package api

import (
	"context"
	"net/http"

	"finsight/internal/core"
)

const usersMePath = "/api/users/me"

// GetCurrentUser fetches the authenticated user's profile.
func (c *Client) GetCurrentUser(ctx context.Context) (core.User, error) {
	var user core.User
	err := c.Do(ctx, usersMePath, nil, &user)
	return user, err
}

// UpdateCurrentUser replaces the profile's name and e-mail.
func (c *Client) UpdateCurrentUser(ctx context.Context, update core.UserUpdate) (core.User, error) {
	var user core.User
	err := c.Do(ctx, usersMePath, &RequestOptions{Method: http.MethodPut, Body: update}, &user)
	return user, err
}

// DeleteCurrentUser deletes the account. The backend answers 204.
func (c *Client) DeleteCurrentUser(ctx context.Context) error {
	return c.Do(ctx, usersMePath, &RequestOptions{Method: http.MethodDelete}, nil)
}
