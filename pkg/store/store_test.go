package store

import (
	"testing"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/blue-horizon/syncd/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uri = "at://did:plc:alice/app.bsky.feed.post/3k2a"

func TestPatchPostsBroadcast(t *testing.T) {
	s := New()
	p := posts.Post{URI: uri, LikeCount: 1}

	s.RegisterPosts(FamilyTimeline, "", &views.Paged[posts.Post]{
		Pages: []views.Flat[posts.Post]{{p, {URI: "at://did:plc:bob/app.bsky.feed.post/1"}}},
	})
	s.RegisterPosts(FamilyAuthorFeed, "did:plc:alice", &views.Paged[posts.Post]{
		Pages: []views.Flat[posts.Post]{{p}},
	})
	s.RegisterPosts(FamilyFeed, "at://feed/hot", &views.Paged[posts.Post]{
		Pages: []views.Flat[posts.Post]{{{URI: "at://did:plc:bob/app.bsky.feed.post/1"}}},
	})
	s.RegisterThread(uri, &views.Node[posts.Post]{Entity: p})

	patched := s.PatchPosts(uri, func(p posts.Post) posts.Post {
		p.LikeCount++
		return p
	})

	// Three views contain the post; the feed view does not
	assert.Equal(t, 3, patched)

	got, ok := s.Post(uri)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.LikeCount)

	tl, _ := s.Posts(FamilyTimeline, "")
	af, _ := s.Posts(FamilyAuthorFeed, "did:plc:alice")
	th, _ := s.Thread(uri)
	assert.Equal(t, int64(2), tl.Pages[0][0].LikeCount)
	assert.Equal(t, int64(2), af.Pages[0][0].LikeCount)
	assert.Equal(t, int64(2), th.Entity.LikeCount)
}

func TestPatchPostsMissLeavesViews(t *testing.T) {
	s := New()
	v := &views.Paged[posts.Post]{Pages: []views.Flat[posts.Post]{{{URI: uri}}}}
	s.RegisterPosts(FamilyTimeline, "", v)

	patched := s.PatchPosts("at://nope/app.bsky.feed.post/1", func(p posts.Post) posts.Post { return p })
	assert.Equal(t, 0, patched)

	cur, _ := s.Posts(FamilyTimeline, "")
	assert.Same(t, v, cur)
}

func TestAppendPostPage(t *testing.T) {
	s := New()
	s.AppendPostPage(FamilyTimeline, "", views.Flat[posts.Post]{{URI: "at://a/p/1"}}, "c1")
	s.AppendPostPage(FamilyTimeline, "", views.Flat[posts.Post]{{URI: "at://a/p/2"}}, "c2")

	v, ok := s.Posts(FamilyTimeline, "")
	require.True(t, ok)
	require.Len(t, v.Pages, 2)
	assert.Equal(t, "c2", v.Cursor)
}

func TestInsertAndRemoveMessage(t *testing.T) {
	s := New()
	s.RegisterMessages("convo", &views.Paged[chats.Message]{
		Pages: []views.Flat[chats.Message]{{{ID: "m1"}}},
	})

	require.True(t, s.InsertMessage("convo", chats.Message{ID: "m2"}))
	v, _ := s.Messages("convo")
	require.Len(t, v.Pages[0], 2)
	assert.Equal(t, "m2", v.Pages[0][0].ID)

	require.True(t, s.RemoveMessage("convo", "m2"))
	v, _ = s.Messages("convo")
	require.Len(t, v.Pages[0], 1)
	assert.Equal(t, "m1", v.Pages[0][0].ID)

	assert.False(t, s.RemoveMessage("convo", "m2"))
	assert.False(t, s.InsertMessage("unknown", chats.Message{ID: "m9"}))
}

func TestConversationPatch(t *testing.T) {
	s := New()

	_, ok := s.Conversations()
	assert.False(t, ok)

	s.RegisterConversations(views.Flat[chats.Conversation]{{ID: "convo", UnreadCount: 3}})

	changed := s.PatchConversation("convo", func(c chats.Conversation) chats.Conversation {
		c.UnreadCount = 0
		return c
	})
	require.True(t, changed)

	c, ok := s.Conversation("convo")
	require.True(t, ok)
	assert.Equal(t, int64(0), c.UnreadCount)
}

func TestStaleFlags(t *testing.T) {
	s := New()

	assert.False(t, s.Stale(FamilyTimeline))
	s.MarkStale(FamilyTimeline, FamilyThread)
	assert.True(t, s.Stale(FamilyTimeline))
	assert.True(t, s.Stale(FamilyThread))
	assert.False(t, s.Stale(FamilyMessages))

	// Registration clears the family's flag
	s.RegisterPosts(FamilyTimeline, "", &views.Paged[posts.Post]{})
	assert.False(t, s.Stale(FamilyTimeline))
	assert.True(t, s.Stale(FamilyThread))
}
