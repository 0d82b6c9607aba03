package actions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/store"
	"github.com/blue-horizon/syncd/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeViewer struct{ did string }

func (v fakeViewer) DID() string { return v.did }

type fakeRetries struct {
	mu       sync.Mutex
	enqueued []string
}

func (r *fakeRetries) EnqueueMessage(ctx context.Context, convoID, text string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, text)
}

const testConvoID = "3kconvo"

func seedChatStore() *store.Store {
	s := store.New()
	s.RegisterMessages(testConvoID, &views.Paged[chats.Message]{
		Pages: []views.Flat[chats.Message]{{
			{ID: "m2", Text: "second", SenderDID: "did:plc:bob"},
			{ID: "m1", Text: "first", SenderDID: "did:plc:alice"},
		}},
	})
	s.RegisterConversations(views.Flat[chats.Conversation]{{
		ID:          testConvoID,
		Rev:         "rev2",
		LastMessage: &chats.Message{ID: "m2", Text: "second"},
	}})
	return s
}

func newChatEngine(s *store.Store, client Upstream, bus Events, retries Retries) *Engine {
	return NewEngine(s, client, bus, store.NewReconciler(s, nil), retries, fakeViewer{did: "did:plc:alice"})
}

func TestSendMessageSuccess(t *testing.T) {
	s := seedChatStore()
	record := chats.Message{ID: "m3", Rev: "rev3", Text: "hello", SenderDID: "did:plc:alice", SentAt: "2026-08-24T12:00:00Z"}
	client := &fakeUpstream{sendRecord: record}
	bus := &fakeBus{}
	e := newChatEngine(s, client, bus, &fakeRetries{})

	e.SendMessage(context.Background(), testConvoID, "hello", "")

	v, ok := s.Messages(testConvoID)
	require.True(t, ok)
	require.Len(t, v.Pages[0], 3)

	// Swapped in place at the head: authoritative record, no marker left
	head := v.Pages[0][0]
	assert.Equal(t, record, head)
	assert.False(t, IsOptimisticRef(head.ID))

	// Conversation list follows
	c, ok := s.Conversation(testConvoID)
	require.True(t, ok)
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, "m3", c.LastMessage.ID)
	assert.Equal(t, "rev3", c.Rev)

	// created -> updated, nothing deleted
	assert.Len(t, bus.msgCreated, 1)
	assert.Len(t, bus.msgUpdated, 1)
	assert.Empty(t, bus.msgDeleted)
}

func TestSendMessageOptimisticShape(t *testing.T) {
	s := seedChatStore()
	client := &fakeUpstream{sendRecord: chats.Message{ID: "m3", Text: "hello"}}
	bus := &fakeBus{}
	e := newChatEngine(s, client, bus, &fakeRetries{})

	e.SendMessage(context.Background(), testConvoID, "hello", "")

	// The synthesized message carried the viewer and a marker id
	require.Len(t, bus.msgCreated, 1)
	created := bus.msgCreated[0]
	assert.True(t, IsOptimisticRef(created.ID))
	assert.Equal(t, "did:plc:alice", created.SenderDID)
	assert.Equal(t, "hello", created.Text)
	assert.NotEmpty(t, created.SentAt)
}

func TestSendMessageFailureRollsBackAndQueues(t *testing.T) {
	s := seedChatStore()
	client := &fakeUpstream{sendErr: errors.New("chat proxy down")}
	bus := &fakeBus{}
	retries := &fakeRetries{}
	e := newChatEngine(s, client, bus, retries)

	e.SendMessage(context.Background(), testConvoID, "hello", "")

	// Synthesized entry removed, prior order intact
	v, _ := s.Messages(testConvoID)
	require.Len(t, v.Pages[0], 2)
	assert.Equal(t, "m2", v.Pages[0][0].ID)
	assert.Equal(t, "m1", v.Pages[0][1].ID)

	// Last-message restored
	c, _ := s.Conversation(testConvoID)
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, "m2", c.LastMessage.ID)
	assert.Equal(t, "rev2", c.Rev)

	// Handed to the durable queue
	assert.Equal(t, []string{"hello"}, retries.enqueued)
	assert.Len(t, bus.msgDeleted, 1)
}

func TestSendMessageUnfetchedConversation(t *testing.T) {
	s := store.New()
	client := &fakeUpstream{sendRecord: chats.Message{ID: "m1", Text: "hello"}}
	bus := &fakeBus{}
	e := newChatEngine(s, client, bus, &fakeRetries{})

	// No registered view: nothing inserted locally, send still goes out
	e.SendMessage(context.Background(), testConvoID, "hello", "")

	assert.Equal(t, 1, client.sendCalls)
	assert.Empty(t, bus.msgCreated)
}

func TestSendPendingNonce(t *testing.T) {
	s := seedChatStore()
	e := newChatEngine(s, &fakeUpstream{}, &fakeBus{}, &fakeRetries{})

	require.True(t, e.flights.Begin(testConvoID+"#n1", KindSend))
	assert.True(t, e.SendPending(testConvoID, "n1"))
	assert.False(t, e.SendPending(testConvoID, "n2"))
	assert.False(t, e.SendPending(testConvoID, ""))
}
