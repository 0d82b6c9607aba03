// Package upstream is the thin request/response boundary to the AT-protocol
// network. The sync engine treats every error from here uniformly: any
// failure triggers a rollback, no branching on subtype.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blue-horizon/syncd/pkg/metrics"
	"golang.org/x/time/rate"
)

var (
	ErrNoSession  = errors.New("no active upstream session")
	ErrBadRef     = errors.New("upstream returned a non-at:// record ref")
	ErrBadStatus  = errors.New("upstream request failed")
	ErrInvalidURI = errors.New("invalid record uri")
)

// TokenSource supplies the bearer token and repo DID for authed calls.
// Implemented by the session manager, which refreshes near-expiry tokens
// before handing them out.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	DID() string
}

type Client struct {
	base      string
	chatProxy string
	httpc     *http.Client
	limiter   *rate.Limiter
	tokens    TokenSource
}

// New creates a client against the given PDS base URL. chatProxy is the
// service DID#id sent as the atproto-proxy header on chat calls.
func New(base, chatProxy string, tokens TokenSource) *Client {
	if base == "" {
		base = "https://bsky.social"
	}
	if chatProxy == "" {
		chatProxy = "did:web:api.bsky.chat#bsky_chat"
	}
	return &Client{
		base:      strings.TrimSuffix(base, "/"),
		chatProxy: chatProxy,
		httpc:     &http.Client{Timeout: 30 * time.Second},
		tokens:    tokens,
	}
}

// WithRateLimit caps outgoing requests. Zero or negative rps disables the
// limiter.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c
}

type callOpts struct {
	authed bool
	proxy  bool
	// token overrides the token source (refreshSession sends the refresh JWT)
	token string
}

func (c *Client) call(ctx context.Context, method, nsid string, params url.Values, body, out interface{}, opts callOpts) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	// Build request
	u := c.base + "/xrpc/" + nsid
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	var reqBody io.Reader
	if body != nil {
		marshaled, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(marshaled)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.proxy {
		req.Header.Set("atproto-proxy", c.chatProxy)
	}

	// Attach bearer token
	token := opts.token
	if token == "" && opts.authed {
		if c.tokens == nil {
			return ErrNoSession
		}
		token, err = c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// Send request
	started := time.Now()
	resp, err := c.httpc.Do(req)
	metrics.UpstreamRequests.WithLabelValues(nsid).Observe(time.Since(started).Seconds())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var xrpcErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&xrpcErr)
		if xrpcErr.Error != "" {
			return fmt.Errorf("%w: %s %s: %s", ErrBadStatus, nsid, xrpcErr.Error, xrpcErr.Message)
		}
		return fmt.Errorf("%w: %s: status %d", ErrBadStatus, nsid, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) get(ctx context.Context, nsid string, params url.Values, out interface{}) error {
	return c.call(ctx, http.MethodGet, nsid, params, nil, out, callOpts{authed: true})
}

func (c *Client) post(ctx context.Context, nsid string, body, out interface{}) error {
	return c.call(ctx, http.MethodPost, nsid, nil, body, out, callOpts{authed: true})
}

func (c *Client) getProxied(ctx context.Context, nsid string, params url.Values, out interface{}) error {
	return c.call(ctx, http.MethodGet, nsid, params, nil, out, callOpts{authed: true, proxy: true})
}

func (c *Client) postProxied(ctx context.Context, nsid string, body, out interface{}) error {
	return c.call(ctx, http.MethodPost, nsid, nil, body, out, callOpts{authed: true, proxy: true})
}

// checkRef validates an authoritative record ref at the decode boundary.
// Optimistic markers use the optimistic:// scheme, so rejecting anything
// that is not an at:// URI here makes marker collision impossible.
func checkRef(ref string) (string, error) {
	if !strings.HasPrefix(ref, "at://") {
		return "", fmt.Errorf("%w: %q", ErrBadRef, ref)
	}
	return ref, nil
}

// rkeyFromURI extracts the record key from an at:// record URI
// (at://did:plc:x/app.bsky.feed.like/<rkey>).
func rkeyFromURI(uri string) (string, error) {
	parts := strings.Split(uri, "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return parts[len(parts)-1], nil
}
