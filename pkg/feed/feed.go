// Package feed is the fetch-through layer for post views: timeline, custom
// feeds, author feeds and threads. Reads serve the cached view when it is
// fresh and revalidate in the background; cold starts come from the mongo
// snapshot of the first page so a shell shows content before the network
// answers. The sync engine never fetches; it only patches what this package
// registers.
package feed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/blue-horizon/syncd/pkg/db"
	"github.com/blue-horizon/syncd/pkg/events"
	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/blue-horizon/syncd/pkg/store"
	"github.com/blue-horizon/syncd/pkg/upstream"
	"github.com/blue-horizon/syncd/pkg/views"
	"github.com/getsentry/sentry-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPageSize    = 50
	defaultThreadDepth = 10
)

type Service struct {
	client *upstream.Client
	store  *store.Store
	bus    *events.Bus
}

func NewService(client *upstream.Client, s *store.Store, bus *events.Bus) *Service {
	return &Service{client: client, store: s, bus: bus}
}

type fetchFunc func(ctx context.Context, cursor string) (upstream.FeedPage, error)

func (s *Service) fetcher(family store.Family, key string) fetchFunc {
	switch family {
	case store.FamilyFeed:
		return func(ctx context.Context, cursor string) (upstream.FeedPage, error) {
			return s.client.Feed(ctx, key, cursor, defaultPageSize)
		}
	case store.FamilyAuthorFeed:
		return func(ctx context.Context, cursor string) (upstream.FeedPage, error) {
			return s.client.AuthorFeed(ctx, key, cursor, defaultPageSize)
		}
	default:
		return func(ctx context.Context, cursor string) (upstream.FeedPage, error) {
			return s.client.Timeline(ctx, cursor, defaultPageSize)
		}
	}
}

// Timeline serves the home timeline. An empty cursor returns everything
// cached (or the first page on a cold start); a cursor fetches and appends
// the next page.
func (s *Service) Timeline(ctx context.Context, cursor string) ([]posts.Post, string, error) {
	return s.page(ctx, store.FamilyTimeline, "", cursor)
}

// Feed serves a custom feed generator keyed by its URI.
func (s *Service) Feed(ctx context.Context, feedURI, cursor string) ([]posts.Post, string, error) {
	return s.page(ctx, store.FamilyFeed, feedURI, cursor)
}

// AuthorFeed serves an actor's posts keyed by the actor identifier.
func (s *Service) AuthorFeed(ctx context.Context, actor, cursor string) ([]posts.Post, string, error) {
	return s.page(ctx, store.FamilyAuthorFeed, actor, cursor)
}

func (s *Service) page(ctx context.Context, family store.Family, key, cursor string) ([]posts.Post, string, error) {
	fetch := s.fetcher(family, key)

	if cursor != "" {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		s.store.AppendPostPage(family, key, page.Posts, page.Cursor)
		return page.Posts, page.Cursor, nil
	}

	// Fresh cached view: serve it and revalidate in the background
	if v, ok := s.store.Posts(family, key); ok && len(v.Pages) > 0 && !s.store.Stale(family) {
		s.refreshAsync(family, key)
		return flatten(v), v.Cursor, nil
	}

	// Cold start: snapshot first, then revalidate
	if snap, ok := s.loadSnapshot(ctx, family, key); ok {
		s.store.RegisterPosts(family, key, &views.Paged[posts.Post]{
			Pages:  []views.Flat[posts.Post]{snap.Posts},
			Cursor: snap.Cursor,
		})
		s.refreshAsync(family, key)
		return snap.Posts, snap.Cursor, nil
	}

	page, err := fetch(ctx, "")
	if err != nil {
		return nil, "", err
	}
	s.register(ctx, family, key, page)
	return page.Posts, page.Cursor, nil
}

func flatten(v *views.Paged[posts.Post]) []posts.Post {
	n := 0
	for _, page := range v.Pages {
		n += len(page)
	}
	out := make([]posts.Post, 0, n)
	for _, page := range v.Pages {
		out = append(out, page...)
	}
	return out
}

func (s *Service) register(ctx context.Context, family store.Family, key string, page upstream.FeedPage) {
	s.store.RegisterPosts(family, key, &views.Paged[posts.Post]{
		Pages:  []views.Flat[posts.Post]{page.Posts},
		Cursor: page.Cursor,
	})
	s.saveSnapshot(ctx, family, key, page)
}

func (s *Service) refreshAsync(family store.Family, key string) {
	go func() {
		if err := s.refreshPosts(context.Background(), family, key); err != nil {
			log.Println("refresh", family, key, "failed:", err)
			sentry.CaptureException(err)
		}
	}()
}

// refreshPosts refetches the authoritative first page and replaces the
// whole view with it, dropping optimistic identifiers in favor of real
// ones.
func (s *Service) refreshPosts(ctx context.Context, family store.Family, key string) error {
	page, err := s.fetcher(family, key)(ctx, "")
	if err != nil {
		return err
	}
	s.register(ctx, family, key, page)
	if s.bus != nil {
		s.bus.FeedRefreshed(string(family), key)
	}
	return nil
}

// Thread serves the reply tree containing the post, rooted at the thread
// root, revalidating a fresh cached tree in the background.
func (s *Service) Thread(ctx context.Context, uri string) (*views.Node[posts.Post], error) {
	if n, ok := s.store.Thread(uri); ok && !s.store.Stale(store.FamilyThread) {
		go func() {
			if err := s.refreshThread(context.Background(), uri); err != nil {
				log.Println("thread refresh", uri, "failed:", err)
				sentry.CaptureException(err)
			}
		}()
		return n, nil
	}
	n, err := s.client.Thread(ctx, uri, defaultThreadDepth)
	if err != nil {
		return nil, err
	}
	s.store.RegisterThread(uri, n)
	return n, nil
}

func (s *Service) refreshThread(ctx context.Context, uri string) error {
	n, err := s.client.Thread(ctx, uri, defaultThreadDepth)
	if err != nil {
		return err
	}
	s.store.RegisterThread(uri, n)
	if s.bus != nil {
		s.bus.FeedRefreshed(string(store.FamilyThread), uri)
	}
	return nil
}

// Refresh refetches authoritative state for every registered view of one
// family. Wired into the reconciler.
func (s *Service) Refresh(ctx context.Context, family store.Family) error {
	switch family {
	case store.FamilyTimeline:
		return s.refreshPosts(ctx, family, "")
	case store.FamilyFeed, store.FamilyAuthorFeed:
		var firstErr error
		for _, key := range s.store.PostViewKeys(family) {
			if err := s.refreshPosts(ctx, family, key); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	case store.FamilyThread:
		var firstErr error
		for _, uri := range s.store.ThreadKeys() {
			if err := s.refreshThread(ctx, uri); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return nil
}

type feedSnapshot struct {
	ID        string                 `bson:"_id"`
	Family    string                 `bson:"family"`
	Key       string                 `bson:"key,omitempty"`
	Posts     views.Flat[posts.Post] `bson:"posts"`
	Cursor    string                 `bson:"cursor,omitempty"`
	UpdatedAt int64                  `bson:"updated_at"`
}

func snapshotID(family store.Family, key string) string {
	return fmt.Sprintf("%s/%s", family, key)
}

func (s *Service) loadSnapshot(ctx context.Context, family store.Family, key string) (feedSnapshot, bool) {
	var snap feedSnapshot
	err := db.FeedSnapshots.FindOne(ctx, bson.M{"_id": snapshotID(family, key)}).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return feedSnapshot{}, false
	}
	if err != nil {
		log.Println("snapshot load failed:", err)
		return feedSnapshot{}, false
	}
	return snap, len(snap.Posts) > 0
}

// saveSnapshot persists the first page only; deeper pages are cheap to
// refetch and stale fast.
func (s *Service) saveSnapshot(ctx context.Context, family store.Family, key string, page upstream.FeedPage) {
	snap := feedSnapshot{
		ID:        snapshotID(family, key),
		Family:    string(family),
		Key:       key,
		Posts:     page.Posts,
		Cursor:    page.Cursor,
		UpdatedAt: time.Now().UnixMilli(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := db.FeedSnapshots.ReplaceOne(ctx, bson.M{"_id": snap.ID}, snap, opts); err != nil {
		log.Println("snapshot save failed:", err)
		sentry.CaptureException(err)
	}
}
