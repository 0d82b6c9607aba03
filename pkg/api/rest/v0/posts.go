package v0_rest

import (
	"context"
	"net/http"

	"github.com/blue-horizon/syncd/pkg/upstream"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

// Toggles are fire-and-forget: the engine has already patched every cached
// view by the time the upstream call is still in flight, so the shell's
// next read shows the optimistic state. 202 is all a caller gets; failures
// surface only as the views reverting.
func toggleLike(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		returnErr(w, http.StatusBadRequest, ErrBadRequest, nil)
		return
	}

	did := deps.Sessions.DID()
	if ratelimited("toggle", "user", did) {
		returnErr(w, http.StatusTooManyRequests, ErrRatelimited, nil)
		return
	}
	ratelimit(w, "toggle", "user", did, 60, 60)

	go deps.Engine.ToggleLike(context.Background(), uri)
	returnData(w, http.StatusAccepted, AcceptedResp{Accepted: true})
}

func toggleRepost(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		returnErr(w, http.StatusBadRequest, ErrBadRequest, nil)
		return
	}

	did := deps.Sessions.DID()
	if ratelimited("toggle", "user", did) {
		returnErr(w, http.StatusTooManyRequests, ErrRatelimited, nil)
		return
	}
	ratelimit(w, "toggle", "user", did, 60, 60)

	go deps.Engine.ToggleRepost(context.Background(), uri)
	returnData(w, http.StatusAccepted, AcceptedResp{Accepted: true})
}

func getPending(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		returnErr(w, http.StatusBadRequest, ErrBadRequest, nil)
		return
	}
	returnData(w, http.StatusOK, PendingResp{
		Like:   deps.Engine.LikePending(uri),
		Repost: deps.Engine.RepostPending(uri),
	})
}

func createPost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostReq
	if !decodeBody(w, r, &req) {
		return
	}

	did := deps.Sessions.DID()
	if ratelimited("compose", "user", did) {
		returnErr(w, http.StatusTooManyRequests, ErrRatelimited, nil)
		return
	}
	ratelimit(w, "compose", "user", did, 10, 60)

	queuedID, err := deps.Composer.CreatePost(r.Context(), upstream.PostPayload{
		Text:     req.Text,
		ReplyTo:  req.ReplyTo,
		QuoteURI: req.QuoteURI,
		QuoteCID: req.QuoteCID,
	})
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusAccepted, AcceptedResp{Accepted: true, QueuedID: queuedID})
}

func followActor(w http.ResponseWriter, r *http.Request) {
	ref, err := deps.Client.Follow(r.Context(), chi.URLParam(r, "actor"))
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, RefResp{Ref: ref})
}

func unfollowActor(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		returnErr(w, http.StatusBadRequest, ErrBadRequest, nil)
		return
	}
	if err := deps.Client.Unfollow(r.Context(), ref); err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, map[string]bool{"ok": true})
}

func muteActor(w http.ResponseWriter, r *http.Request) {
	if err := deps.Client.Mute(r.Context(), chi.URLParam(r, "actor")); err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, map[string]bool{"ok": true})
}

func unmuteActor(w http.ResponseWriter, r *http.Request) {
	if err := deps.Client.Unmute(r.Context(), chi.URLParam(r, "actor")); err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, map[string]bool{"ok": true})
}
