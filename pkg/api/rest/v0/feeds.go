package v0_rest

import (
	"net/http"

	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/blue-horizon/syncd/pkg/views"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

func getTimeline(w http.ResponseWriter, r *http.Request) {
	feedPosts, cursor, err := deps.Feeds.Timeline(r.Context(), r.URL.Query().Get("cursor"))
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, FeedResp{Posts: feedPosts, Cursor: cursor})
}

func getFeed(w http.ResponseWriter, r *http.Request) {
	feedURI := r.URL.Query().Get("uri")
	if feedURI == "" {
		returnErr(w, http.StatusBadRequest, ErrBadRequest, nil)
		return
	}
	feedPosts, cursor, err := deps.Feeds.Feed(r.Context(), feedURI, r.URL.Query().Get("cursor"))
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, FeedResp{Posts: feedPosts, Cursor: cursor})
}

func getAuthorFeed(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	feedPosts, cursor, err := deps.Feeds.AuthorFeed(r.Context(), actor, r.URL.Query().Get("cursor"))
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, FeedResp{Posts: feedPosts, Cursor: cursor})
}

func getThread(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		returnErr(w, http.StatusBadRequest, ErrBadRequest, nil)
		return
	}
	node, err := deps.Feeds.Thread(r.Context(), uri)
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, buildThreadResp(node))
}

func buildThreadResp(n *views.Node[posts.Post]) ThreadNodeResp {
	resp := ThreadNodeResp{Post: n.Entity}
	for _, child := range n.Children {
		resp.Replies = append(resp.Replies, buildThreadResp(child))
	}
	return resp
}

func getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := deps.Feeds.Profile(r.Context(), chi.URLParam(r, "actor"))
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, profile)
}

func search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		returnErr(w, http.StatusBadRequest, ErrBadRequest, nil)
		return
	}
	cursor := r.URL.Query().Get("cursor")

	switch r.URL.Query().Get("type") {
	case "actors":
		actors, next, err := deps.Client.SearchActors(r.Context(), q, cursor, 25)
		if err != nil {
			sentry.CaptureException(err)
			returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
			return
		}
		returnData(w, http.StatusOK, SearchResp{Actors: actors, Cursor: next})
	default:
		page, err := deps.Client.SearchPosts(r.Context(), q, cursor, 25)
		if err != nil {
			sentry.CaptureException(err)
			returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
			return
		}
		returnData(w, http.StatusOK, SearchResp{Posts: page.Posts, Cursor: page.Cursor})
	}
}
