package v0_rest

import "errors"

var (
	ErrBadRequest  = errors.New("badRequest")      // 400
	ErrNoSession   = errors.New("noSession")       // 401
	ErrNotFound    = errors.New("notFound")        // 404
	ErrRatelimited = errors.New("tooManyRequests") // 429
	ErrInternal    = errors.New("internal")        // 500
	ErrUpstream    = errors.New("upstreamFailed")  // 502
)
