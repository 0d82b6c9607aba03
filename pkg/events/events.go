// Package events publishes state-change notifications from the sync engine
// to the websocket gateway over redis pubsub, so every connected shell
// observes the same optimistic projections and rollbacks.
package events

import (
	"context"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/blue-horizon/syncd/pkg/rdb"
	"github.com/vmihailenco/msgpack/v5"
)

type PostUpdatedEvent struct {
	Post posts.Post `msgpack:"post"`
}

type MessageCreatedEvent struct {
	ConvoID string        `msgpack:"convo_id"`
	Message chats.Message `msgpack:"message"`
}

type MessageUpdatedEvent struct {
	ConvoID string        `msgpack:"convo_id"`
	OldID   string        `msgpack:"old_id,omitempty"`
	Message chats.Message `msgpack:"message"`
}

type MessageDeletedEvent struct {
	ConvoID   string `msgpack:"convo_id"`
	MessageID string `msgpack:"message_id"`
}

type ConversationUpdatedEvent struct {
	Conversation chats.Conversation `msgpack:"conversation"`
}

type UnreadCountEvent struct {
	Count int64 `msgpack:"count"`
}

type RetryEvent struct {
	ID string `msgpack:"id"`
}

type FeedRefreshedEvent struct {
	Family string `msgpack:"family"`
	Key    string `msgpack:"key,omitempty"`
}

type ProfileRefreshedEvent struct {
	DID string `msgpack:"did"`
}

type SessionUpdatedEvent struct {
	DID    string `msgpack:"did,omitempty"`
	Handle string `msgpack:"handle,omitempty"`
	Active bool   `msgpack:"active"`
}

// Bus is the engine-facing emitter. A nil Bus drops everything, which keeps
// the engine usable in tests without redis.
type Bus struct{}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) emit(op uint8, v interface{}) error {
	if b == nil {
		return nil
	}

	// Marshal packet
	marshaledPacket, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	marshaledPacket = append(marshaledPacket, op)

	// Send packet
	return rdb.Publish(context.TODO(), marshaledPacket)
}

func (b *Bus) PostUpdated(p posts.Post) error {
	return b.emit(OpPostUpdated, &PostUpdatedEvent{Post: p})
}

func (b *Bus) MessageCreated(convoID string, m chats.Message) error {
	return b.emit(OpMessageCreated, &MessageCreatedEvent{ConvoID: convoID, Message: m})
}

func (b *Bus) MessageUpdated(convoID, oldID string, m chats.Message) error {
	return b.emit(OpMessageUpdated, &MessageUpdatedEvent{ConvoID: convoID, OldID: oldID, Message: m})
}

func (b *Bus) MessageDeleted(convoID, messageID string) error {
	return b.emit(OpMessageDeleted, &MessageDeletedEvent{ConvoID: convoID, MessageID: messageID})
}

func (b *Bus) ConversationUpdated(c chats.Conversation) error {
	return b.emit(OpConversationUpdated, &ConversationUpdatedEvent{Conversation: c})
}

func (b *Bus) UnreadCount(count int64) error {
	return b.emit(OpUnreadCount, &UnreadCountEvent{Count: count})
}

func (b *Bus) RetryQueued(id string) error {
	return b.emit(OpRetryQueued, &RetryEvent{ID: id})
}

func (b *Bus) RetrySent(id string) error {
	return b.emit(OpRetrySent, &RetryEvent{ID: id})
}

func (b *Bus) FeedRefreshed(family, key string) error {
	return b.emit(OpFeedRefreshed, &FeedRefreshedEvent{Family: family, Key: key})
}

func (b *Bus) ProfileRefreshed(did string) error {
	return b.emit(OpProfileRefreshed, &ProfileRefreshedEvent{DID: did})
}

func (b *Bus) SessionUpdated(did, handle string, active bool) error {
	return b.emit(OpSessionUpdated, &SessionUpdatedEvent{DID: did, Handle: handle, Active: active})
}
