package v0_rest

import (
	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/posts"
)

type ErrResp struct {
	Error  bool              `json:"error"`
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields,omitempty"`
}

type WelcomeResp struct {
	Error   bool   `json:"error"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type StatusResp struct {
	SessionActive   bool   `json:"session_active"`
	Handle          string `json:"handle,omitempty"`
	DID             string `json:"did,omitempty"`
	RetryQueueDepth int64  `json:"retry_queue_depth"`
}

type SessionResp struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
}

type FeedResp struct {
	Posts  []posts.Post `json:"posts"`
	Cursor string       `json:"cursor,omitempty"`
}

// ThreadNodeResp is the serialized reply tree.
type ThreadNodeResp struct {
	Post    posts.Post       `json:"post"`
	Replies []ThreadNodeResp `json:"replies,omitempty"`
}

type PendingResp struct {
	Like   bool `json:"like"`
	Repost bool `json:"repost"`
}

type AcceptedResp struct {
	Accepted bool   `json:"accepted"`
	QueuedID string `json:"queued_id,omitempty"`
}

type RefResp struct {
	Ref string `json:"ref"`
}

type ConversationsResp struct {
	Conversations []chats.Conversation `json:"conversations"`
}

type MessagesResp struct {
	Messages []chats.Message `json:"messages"`
	Cursor   string          `json:"cursor,omitempty"`
}

type UnreadResp struct {
	Count int64 `json:"count"`
}

type SearchResp struct {
	Posts  []posts.Post    `json:"posts,omitempty"`
	Actors []posts.Profile `json:"actors,omitempty"`
	Cursor string          `json:"cursor,omitempty"`
}
