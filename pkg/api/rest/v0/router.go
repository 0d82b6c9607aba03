package v0_rest

import (
	"github.com/blue-horizon/syncd/pkg/actions"
	"github.com/blue-horizon/syncd/pkg/convo"
	"github.com/blue-horizon/syncd/pkg/events"
	"github.com/blue-horizon/syncd/pkg/feed"
	"github.com/blue-horizon/syncd/pkg/session"
	"github.com/blue-horizon/syncd/pkg/store"
	"github.com/blue-horizon/syncd/pkg/upstream"
	"github.com/go-chi/chi/v5"
)

// Deps wires the handlers to the engine and its collaborators. Set once at
// startup before the router serves.
type Deps struct {
	Store    *store.Store
	Engine   *actions.Engine
	Composer *actions.Composer
	Feeds    *feed.Service
	Convos   *convo.Service
	Sessions *session.Manager
	Client   *upstream.Client
	Bus      *events.Bus
}

var deps Deps

func Init(d Deps) {
	deps = d
}

func Router() *chi.Mux {
	r := chi.NewRouter()

	r.Mount("/", RootRouter())

	r.Route("/session", func(r chi.Router) {
		r.Post("/", login)
		r.Get("/", getSession)
		r.Delete("/", logout)
	})

	r.Get("/timeline", getTimeline)
	r.Get("/feed", getFeed)
	r.Get("/thread", getThread)
	r.Get("/search", search)

	r.Route("/actors/{actor}", func(r chi.Router) {
		r.Get("/", getProfile)
		r.Get("/feed", getAuthorFeed)
		r.Post("/follow", followActor)
		r.Delete("/follow", unfollowActor)
		r.Post("/mute", muteActor)
		r.Delete("/mute", unmuteActor)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Post("/", createPost)
		r.Post("/like", toggleLike)
		r.Post("/repost", toggleRepost)
		r.Get("/pending", getPending)
	})

	r.Route("/drafts", func(r chi.Router) {
		r.Get("/", getDraft)
		r.Put("/", saveDraft)
		r.Delete("/", clearDraft)
	})

	r.Route("/convos", func(r chi.Router) {
		r.Get("/", getConversations)
		r.Route("/{convoId}", func(r chi.Router) {
			r.Get("/messages", getMessages)
			r.Post("/messages", sendMessage)
			r.Post("/read", updateRead)
		})
	})

	r.Get("/notifications/unread", getUnread)

	return r
}
