package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineMapsFeedView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.feed.getTimeline", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("limit"))
		w.Write([]byte(`{
			"cursor": "page2",
			"feed": [
				{
					"post": {
						"uri": "at://did:plc:bob/app.bsky.feed.post/1",
						"cid": "bafy1",
						"author": {"did": "did:plc:bob", "handle": "bob.test", "displayName": "Bob"},
						"record": {"text": "hello world", "createdAt": "2026-08-24T10:00:00Z"},
						"replyCount": 1,
						"repostCount": 2,
						"likeCount": 3,
						"viewer": {"like": "at://did:plc:alice/app.bsky.feed.like/9"}
					}
				},
				{
					"post": {
						"uri": "at://did:plc:carol/app.bsky.feed.post/2",
						"cid": "bafy2",
						"author": {"did": "did:plc:carol", "handle": "carol.test"},
						"record": {"text": "reposted", "createdAt": "2026-08-24T09:00:00Z"},
						"viewer": {}
					},
					"reason": {
						"$type": "app.bsky.feed.defs#reasonRepost",
						"by": {"did": "did:plc:bob", "handle": "bob.test", "displayName": "Bob"}
					}
				}
			]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", testTokens)
	page, err := c.Timeline(context.Background(), "", 30)
	require.NoError(t, err)
	assert.Equal(t, "page2", page.Cursor)
	require.Len(t, page.Posts, 2)

	first := page.Posts[0]
	assert.Equal(t, "at://did:plc:bob/app.bsky.feed.post/1", first.URI)
	assert.Equal(t, "hello world", first.Text)
	assert.Equal(t, int64(3), first.LikeCount)
	assert.True(t, first.Liked)
	assert.Equal(t, "at://did:plc:alice/app.bsky.feed.like/9", first.ViewerLike)
	assert.False(t, first.Reposted)

	second := page.Posts[1]
	assert.True(t, second.IsRepost)
	assert.Equal(t, "bob.test", second.RepostedByHandle)
}

func TestThreadFoldsParentChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.feed.getPostThread", r.URL.Path)
		assert.Equal(t, "at://did:plc:bob/app.bsky.feed.post/mid", r.URL.Query().Get("uri"))
		w.Write([]byte(`{
			"thread": {
				"post": {"uri": "at://did:plc:bob/app.bsky.feed.post/mid", "cid": "bafymid", "author": {"did": "did:plc:bob"}, "record": {"text": "mid"}, "viewer": {}},
				"replies": [
					{"post": {"uri": "at://did:plc:carol/app.bsky.feed.post/leaf", "cid": "bafyleaf", "author": {"did": "did:plc:carol"}, "record": {"text": "leaf"}, "viewer": {}}}
				],
				"parent": {
					"post": {"uri": "at://did:plc:alice/app.bsky.feed.post/root", "cid": "bafyroot", "author": {"did": "did:plc:alice"}, "record": {"text": "root"}, "viewer": {}},
					"replies": [
						{"post": {"uri": "at://did:plc:bob/app.bsky.feed.post/mid", "cid": "bafymid", "author": {"did": "did:plc:bob"}, "record": {"text": "mid"}, "viewer": {}}},
						{"post": {"uri": "at://did:plc:dan/app.bsky.feed.post/sibling", "cid": "bafysib", "author": {"did": "did:plc:dan"}, "record": {"text": "sibling"}, "viewer": {}}}
					]
				}
			}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", testTokens)
	node, err := c.Thread(context.Background(), "at://did:plc:bob/app.bsky.feed.post/mid", 10)
	require.NoError(t, err)

	// Rooted at the topmost ancestor
	assert.Equal(t, "at://did:plc:alice/app.bsky.feed.post/root", node.Entity.URI)
	require.Len(t, node.Children, 2)

	// The requested post sits on the spine with its own replies, not
	// duplicated from the parent's reply list
	assert.Equal(t, "at://did:plc:bob/app.bsky.feed.post/mid", node.Children[0].Entity.URI)
	require.Len(t, node.Children[0].Children, 1)
	assert.Equal(t, "at://did:plc:carol/app.bsky.feed.post/leaf", node.Children[0].Children[0].Entity.URI)

	// Sibling replies of the parent preserved
	assert.Equal(t, "at://did:plc:dan/app.bsky.feed.post/sibling", node.Children[1].Entity.URI)

	// The requested post is findable from the root
	_, ok := node.Find("at://did:plc:bob/app.bsky.feed.post/mid")
	assert.True(t, ok)
}

func TestProfileMapsViewerState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.actor.getProfile", r.URL.Path)
		w.Write([]byte(`{
			"did": "did:plc:bob",
			"handle": "bob.test",
			"displayName": "Bob",
			"description": "just a guy",
			"followersCount": 10,
			"followsCount": 20,
			"postsCount": 30,
			"viewer": {"following": "at://did:plc:alice/app.bsky.graph.follow/1", "muted": true}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", testTokens)
	p, err := c.Profile(context.Background(), "bob.test")
	require.NoError(t, err)
	assert.Equal(t, "did:plc:bob", p.DID)
	assert.Equal(t, int64(10), p.FollowersCount)
	assert.Equal(t, "at://did:plc:alice/app.bsky.graph.follow/1", p.ViewerFollow)
	assert.True(t, p.ViewerMuted)
}
