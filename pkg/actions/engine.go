// Package actions is the optimistic mutation engine: it serializes
// concurrent triggers per (entity, kind), projects the user's intent across
// every cached view immediately, rolls all views back if the upstream call
// fails, and schedules reconciliation after every settle.
package actions

import (
	"context"
	"log"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/metrics"
	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/blue-horizon/syncd/pkg/store"
	"github.com/getsentry/sentry-go"
)

// Upstream is the slice of the network boundary the engine consumes. Every
// error is opaque: any failure triggers rollback, no subtype branching.
type Upstream interface {
	Like(ctx context.Context, uri, cid string) (string, error)
	Unlike(ctx context.Context, likeRef string) error
	Repost(ctx context.Context, uri, cid string) (string, error)
	Unrepost(ctx context.Context, repostRef string) error
	SendMessage(ctx context.Context, convoID, text string) (chats.Message, error)
}

// Events receives state-change notifications for connected shells.
type Events interface {
	PostUpdated(p posts.Post) error
	MessageCreated(convoID string, m chats.Message) error
	MessageUpdated(convoID, oldID string, m chats.Message) error
	MessageDeleted(convoID, messageID string) error
	ConversationUpdated(c chats.Conversation) error
}

// Retries accepts failed message sends for durable background redelivery.
type Retries interface {
	EnqueueMessage(ctx context.Context, convoID, text string, cause error)
}

// Viewer identifies the acting user for synthesized records.
type Viewer interface {
	DID() string
}

type Engine struct {
	store      *store.Store
	client     Upstream
	bus        Events
	reconciler *store.Reconciler
	flights    *Coordinator
	retries    Retries
	viewer     Viewer
}

func NewEngine(s *store.Store, client Upstream, bus Events, reconciler *store.Reconciler, retries Retries, viewer Viewer) *Engine {
	return &Engine{
		store:      s,
		client:     client,
		bus:        bus,
		reconciler: reconciler,
		flights:    NewCoordinator(),
		retries:    retries,
		viewer:     viewer,
	}
}

// projection is the (flag, counter, ref) triple a toggle mutates. Rollback
// restores exactly this.
type projection struct {
	acted bool
	count int64
	ref   string
}

// toggleKind binds one mutation kind to its projected fields and upstream
// calls. Like and repost touch disjoint fields, so their patches commute.
type toggleKind struct {
	kind   Kind
	read   func(posts.Post) projection
	write  func(posts.Post, projection) posts.Post
	create func(context.Context, Upstream, string, string) (string, error)
	remove func(context.Context, Upstream, string) error
}

var likeToggle = toggleKind{
	kind: KindLike,
	read: func(p posts.Post) projection {
		return projection{acted: p.Liked, count: p.LikeCount, ref: p.ViewerLike}
	},
	write: func(p posts.Post, pr projection) posts.Post {
		p.Liked = pr.acted
		p.LikeCount = pr.count
		p.ViewerLike = pr.ref
		return p
	},
	create: func(ctx context.Context, c Upstream, uri, cid string) (string, error) {
		return c.Like(ctx, uri, cid)
	},
	remove: func(ctx context.Context, c Upstream, ref string) error {
		return c.Unlike(ctx, ref)
	},
}

var repostToggle = toggleKind{
	kind: KindRepost,
	read: func(p posts.Post) projection {
		return projection{acted: p.Reposted, count: p.RepostCount, ref: p.ViewerRepost}
	},
	write: func(p posts.Post, pr projection) posts.Post {
		p.Reposted = pr.acted
		p.RepostCount = pr.count
		p.ViewerRepost = pr.ref
		return p
	},
	create: func(ctx context.Context, c Upstream, uri, cid string) (string, error) {
		return c.Repost(ctx, uri, cid)
	},
	remove: func(ctx context.Context, c Upstream, ref string) error {
		return c.Unrepost(ctx, ref)
	},
}

// ToggleLike flips the viewer's like on the post. Fire-and-forget: the
// caller observes only the patched views.
func (e *Engine) ToggleLike(ctx context.Context, uri string) {
	e.toggle(ctx, uri, likeToggle)
}

// ToggleRepost flips the viewer's repost on the post.
func (e *Engine) ToggleRepost(ctx context.Context, uri string) {
	e.toggle(ctx, uri, repostToggle)
}

// LikePending reports whether a like toggle is in flight for the post.
func (e *Engine) LikePending(uri string) bool {
	return e.flights.Pending(uri, KindLike)
}

// RepostPending reports whether a repost toggle is in flight for the post.
func (e *Engine) RepostPending(uri string) bool {
	return e.flights.Pending(uri, KindRepost)
}

func (e *Engine) toggle(ctx context.Context, uri string, tk toggleKind) {
	if !e.flights.Begin(uri, tk.kind) {
		metrics.DuplicateTriggers.WithLabelValues(string(tk.kind)).Inc()
		return
	}
	defer func() {
		e.flights.End(uri, tk.kind)
		e.reconciler.Reconcile(store.PostFamilies...)
	}()

	cur, ok := e.store.Post(uri)
	if !ok {
		return
	}

	prev := tk.read(cur)
	turningOn := prev.ref == ""

	// A turn-off against an unconfirmed marker means the earlier turn-on is
	// still outstanding or already rolled back; there is nothing to unlink
	// upstream. Local no-op, reconciliation only.
	if !turningOn && IsOptimisticRef(prev.ref) {
		metrics.StaleIntents.WithLabelValues(string(tk.kind)).Inc()
		return
	}

	var next projection
	intent := "off"
	if turningOn {
		intent = "on"
		next = projection{acted: true, count: prev.count + 1, ref: NewOptimisticRef()}
	} else {
		count := prev.count - 1
		if count < 0 {
			count = 0
		}
		next = projection{acted: false, count: count, ref: ""}
	}
	metrics.Mutations.WithLabelValues(string(tk.kind), intent).Inc()

	// Apply the optimistic projection across every view
	e.applyToggle(uri, tk, next)

	// Await the upstream call
	var err error
	if turningOn {
		var authRef string
		authRef, err = tk.create(ctx, e.client, uri, cur.CID)
		if err == nil {
			// Narrow second patch: marker -> authoritative ref
			e.swapRef(uri, tk, next.ref, authRef)
		}
	} else {
		err = tk.remove(ctx, e.client, prev.ref)
	}

	if err != nil {
		log.Println(tk.kind, "toggle failed for", uri, "-", err)
		sentry.CaptureException(err)
		metrics.MutationFailures.WithLabelValues(string(tk.kind)).Inc()

		// Exact rollback of the pre-projection triple
		e.applyToggle(uri, tk, prev)
	}
}

func (e *Engine) applyToggle(uri string, tk toggleKind, pr projection) {
	e.store.PatchPosts(uri, func(p posts.Post) posts.Post {
		return tk.write(p, pr)
	})
	e.emitPost(uri)
}

// swapRef replaces the marker with the authoritative ref, leaving the flag
// and counter untouched. Guarded on the marker so a projection that was
// rolled back concurrently is not resurrected.
func (e *Engine) swapRef(uri string, tk toggleKind, marker, authRef string) {
	e.store.PatchPosts(uri, func(p posts.Post) posts.Post {
		pr := tk.read(p)
		if pr.ref != marker {
			return p
		}
		pr.ref = authRef
		return tk.write(p, pr)
	})
	e.emitPost(uri)
}

func (e *Engine) emitPost(uri string) {
	if e.bus == nil {
		return
	}
	if p, ok := e.store.Post(uri); ok {
		if err := e.bus.PostUpdated(p); err != nil {
			log.Println("post event emit failed:", err)
		}
	}
}
