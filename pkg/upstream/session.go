package upstream

import (
	"context"
	"net/http"
	"net/url"
)

// SessionData is the credential set returned by session create/refresh.
type SessionData struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJWT  string `json:"accessJwt"`
	RefreshJWT string `json:"refreshJwt"`
}

// CreateSession logs in with an identifier and app password. Unauthed.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (SessionData, error) {
	var out SessionData
	err := c.call(ctx, http.MethodPost, "com.atproto.server.createSession", nil, map[string]string{
		"identifier": identifier,
		"password":   password,
	}, &out, callOpts{})
	return out, err
}

// RefreshSession rotates the token pair using the refresh JWT as bearer.
func (c *Client) RefreshSession(ctx context.Context, refreshJWT string) (SessionData, error) {
	var out SessionData
	err := c.call(ctx, http.MethodPost, "com.atproto.server.refreshSession", nil, nil, &out, callOpts{token: refreshJWT})
	return out, err
}

// UnreadCount fetches the viewer's unread notification count.
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.get(ctx, "app.bsky.notification.getUnreadCount", url.Values{}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkNotificationsRead updates the notification seen marker to now.
func (c *Client) MarkNotificationsRead(ctx context.Context, seenAt string) error {
	return c.post(ctx, "app.bsky.notification.updateSeen", map[string]string{"seenAt": seenAt}, nil)
}
