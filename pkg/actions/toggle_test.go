package actions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/blue-horizon/syncd/pkg/store"
	"github.com/blue-horizon/syncd/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	mu sync.Mutex

	likeRef   string
	likeErr   error
	unlikeErr error

	repostRef   string
	repostErr   error
	unrepostErr error

	likeCalls     int
	unlikeCalls   int
	repostCalls   int
	unrepostCalls int

	removedRefs []string

	// When set, Like blocks until released
	likeStarted chan struct{}
	likeRelease chan struct{}

	sendRecord chats.Message
	sendErr    error
	sendCalls  int
}

func (f *fakeUpstream) Like(ctx context.Context, uri, cid string) (string, error) {
	f.mu.Lock()
	f.likeCalls++
	started, release := f.likeStarted, f.likeRelease
	f.mu.Unlock()
	if started != nil {
		close(started)
		<-release
	}
	return f.likeRef, f.likeErr
}

func (f *fakeUpstream) Unlike(ctx context.Context, likeRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlikeCalls++
	f.removedRefs = append(f.removedRefs, likeRef)
	return f.unlikeErr
}

func (f *fakeUpstream) Repost(ctx context.Context, uri, cid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repostCalls++
	return f.repostRef, f.repostErr
}

func (f *fakeUpstream) Unrepost(ctx context.Context, repostRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unrepostCalls++
	f.removedRefs = append(f.removedRefs, repostRef)
	return f.unrepostErr
}

func (f *fakeUpstream) SendMessage(ctx context.Context, convoID, text string) (chats.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	return f.sendRecord, f.sendErr
}

type fakeBus struct {
	mu           sync.Mutex
	postUpdates  []posts.Post
	msgCreated   []chats.Message
	msgUpdated   []chats.Message
	msgDeleted   []string
	convoUpdates []chats.Conversation
}

func (b *fakeBus) PostUpdated(p posts.Post) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.postUpdates = append(b.postUpdates, p)
	return nil
}

func (b *fakeBus) MessageCreated(convoID string, m chats.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgCreated = append(b.msgCreated, m)
	return nil
}

func (b *fakeBus) MessageUpdated(convoID, oldID string, m chats.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgUpdated = append(b.msgUpdated, m)
	return nil
}

func (b *fakeBus) MessageDeleted(convoID, messageID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgDeleted = append(b.msgDeleted, messageID)
	return nil
}

func (b *fakeBus) ConversationUpdated(c chats.Conversation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.convoUpdates = append(b.convoUpdates, c)
	return nil
}

const testURI = "at://did:plc:alice/app.bsky.feed.post/3k2a"

// seedStore registers the same post in a timeline view and a thread view,
// so tests can assert the patch reached every shape.
func seedStore(p posts.Post) *store.Store {
	s := store.New()
	s.RegisterPosts(store.FamilyTimeline, "", &views.Paged[posts.Post]{
		Pages: []views.Flat[posts.Post]{{p}},
	})
	s.RegisterThread(p.URI, &views.Node[posts.Post]{Entity: p})
	return s
}

func newTestEngine(s *store.Store, client Upstream, bus Events) *Engine {
	return NewEngine(s, client, bus, store.NewReconciler(s, nil), nil, nil)
}

func TestToggleLikeOn(t *testing.T) {
	p := posts.Post{URI: testURI, CID: "bafy1", LikeCount: 5}
	s := seedStore(p)
	client := &fakeUpstream{likeRef: "at://did:plc:alice/app.bsky.feed.like/1"}
	bus := &fakeBus{}
	e := newTestEngine(s, client, bus)

	e.ToggleLike(context.Background(), testURI)

	got, ok := s.Post(testURI)
	require.True(t, ok)
	assert.True(t, got.Liked)
	assert.Equal(t, int64(6), got.LikeCount)
	assert.Equal(t, "at://did:plc:alice/app.bsky.feed.like/1", got.ViewerLike)

	// Both shapes converged
	tree, ok := s.Thread(testURI)
	require.True(t, ok)
	assert.Equal(t, got, tree.Entity)

	assert.Equal(t, 1, client.likeCalls)
	// One emit for the projection, one for the ref swap
	assert.Len(t, bus.postUpdates, 2)
}

func TestToggleLikeOnFailureRollsBack(t *testing.T) {
	p := posts.Post{URI: testURI, CID: "bafy1", LikeCount: 5}
	s := seedStore(p)
	client := &fakeUpstream{likeErr: errors.New("upstream down")}
	e := newTestEngine(s, client, &fakeBus{})

	e.ToggleLike(context.Background(), testURI)

	got, ok := s.Post(testURI)
	require.True(t, ok)
	assert.False(t, got.Liked)
	assert.Equal(t, int64(5), got.LikeCount)
	assert.Equal(t, "", got.ViewerLike)
	assert.False(t, e.LikePending(testURI))
}

func TestToggleLikeOff(t *testing.T) {
	p := posts.Post{URI: testURI, Liked: true, LikeCount: 6, ViewerLike: "at://did:plc:alice/app.bsky.feed.like/1"}
	s := seedStore(p)
	client := &fakeUpstream{}
	e := newTestEngine(s, client, &fakeBus{})

	e.ToggleLike(context.Background(), testURI)

	got, _ := s.Post(testURI)
	assert.False(t, got.Liked)
	assert.Equal(t, int64(5), got.LikeCount)
	assert.Equal(t, "", got.ViewerLike)
	assert.Equal(t, []string{"at://did:plc:alice/app.bsky.feed.like/1"}, client.removedRefs)
}

func TestToggleLikeOffFloorsCounter(t *testing.T) {
	p := posts.Post{URI: testURI, Liked: true, LikeCount: 0, ViewerLike: "at://did:plc:alice/app.bsky.feed.like/1"}
	s := seedStore(p)
	e := newTestEngine(s, &fakeUpstream{}, &fakeBus{})

	e.ToggleLike(context.Background(), testURI)

	got, _ := s.Post(testURI)
	assert.Equal(t, int64(0), got.LikeCount)
}

func TestToggleLikeOffAgainstMarkerIsLocalNoop(t *testing.T) {
	p := posts.Post{URI: testURI, Liked: true, LikeCount: 6, ViewerLike: NewOptimisticRef()}
	s := seedStore(p)
	client := &fakeUpstream{}
	e := newTestEngine(s, client, &fakeBus{})

	e.ToggleLike(context.Background(), testURI)

	got, _ := s.Post(testURI)
	assert.True(t, got.Liked)
	assert.Equal(t, int64(6), got.LikeCount)
	assert.Equal(t, 0, client.unlikeCalls)
	assert.Equal(t, 0, client.likeCalls)
}

func TestToggleLikeDuplicateDropped(t *testing.T) {
	p := posts.Post{URI: testURI, CID: "bafy1", LikeCount: 5}
	s := seedStore(p)
	client := &fakeUpstream{
		likeRef:     "at://did:plc:alice/app.bsky.feed.like/1",
		likeStarted: make(chan struct{}),
		likeRelease: make(chan struct{}),
	}
	e := newTestEngine(s, client, &fakeBus{})

	done := make(chan struct{})
	go func() {
		e.ToggleLike(context.Background(), testURI)
		close(done)
	}()
	<-client.likeStarted

	require.True(t, e.LikePending(testURI))

	// Second trigger while the first is in flight: dropped, no second call
	e.ToggleLike(context.Background(), testURI)

	close(client.likeRelease)
	<-done

	assert.Equal(t, 1, client.likeCalls)
	assert.False(t, e.LikePending(testURI))
}

func TestToggleRepostIndependentOfLike(t *testing.T) {
	p := posts.Post{URI: testURI, CID: "bafy1", Liked: true, LikeCount: 9, ViewerLike: "at://did:plc:alice/app.bsky.feed.like/1", RepostCount: 2}
	s := seedStore(p)
	client := &fakeUpstream{repostRef: "at://did:plc:alice/app.bsky.feed.repost/1"}
	e := newTestEngine(s, client, &fakeBus{})

	e.ToggleRepost(context.Background(), testURI)

	got, _ := s.Post(testURI)
	assert.True(t, got.Reposted)
	assert.Equal(t, int64(3), got.RepostCount)
	assert.Equal(t, "at://did:plc:alice/app.bsky.feed.repost/1", got.ViewerRepost)

	// Like fields untouched
	assert.True(t, got.Liked)
	assert.Equal(t, int64(9), got.LikeCount)
	assert.Equal(t, "at://did:plc:alice/app.bsky.feed.like/1", got.ViewerLike)
}

func TestToggleUnknownPost(t *testing.T) {
	s := store.New()
	client := &fakeUpstream{}
	e := newTestEngine(s, client, &fakeBus{})

	e.ToggleLike(context.Background(), testURI)

	assert.Equal(t, 0, client.likeCalls)
	assert.False(t, e.LikePending(testURI))
}
