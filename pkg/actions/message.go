package actions

import (
	"context"
	"log"
	"time"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/metrics"
	"github.com/blue-horizon/syncd/pkg/store"
	"github.com/getsentry/sentry-go"
)

// SendMessage optimistically inserts the message at the head of the first
// page of the conversation's message view and updates the conversation
// list's last-message, then awaits the upstream send. Success swaps the
// synthesized entry in place for the authoritative record; failure removes
// it, restores the previous last-message and hands the payload to the
// durable retry queue. The nonce deduplicates rapid repeated sends from the
// same shell; an empty nonce disables deduplication.
func (e *Engine) SendMessage(ctx context.Context, convoID, text, nonce string) {
	flightID := convoID
	if nonce != "" {
		flightID = convoID + "#" + nonce
	}
	if !e.flights.Begin(flightID, KindSend) {
		metrics.DuplicateTriggers.WithLabelValues(string(KindSend)).Inc()
		return
	}
	defer func() {
		e.flights.End(flightID, KindSend)
		e.reconciler.Reconcile(store.ChatFamilies...)
	}()

	metrics.Mutations.WithLabelValues(string(KindSend), "on").Inc()

	// Synthesize the optimistic message
	optimistic := chats.Message{
		ID:     NewOptimisticRef(),
		Text:   text,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	}
	if e.viewer != nil {
		optimistic.SenderDID = e.viewer.DID()
	}

	prevConvo, hadConvo := e.store.Conversation(convoID)

	// Apply the optimistic projection
	inserted := e.store.InsertMessage(convoID, optimistic)
	if inserted && e.bus != nil {
		e.bus.MessageCreated(convoID, optimistic)
	}
	if hadConvo {
		e.setLastMessage(convoID, optimistic)
	}

	// Await the upstream send
	record, err := e.client.SendMessage(ctx, convoID, text)
	if err != nil {
		log.Println("message send failed for", convoID, "-", err)
		sentry.CaptureException(err)
		metrics.MutationFailures.WithLabelValues(string(KindSend)).Inc()

		// Roll back: drop the synthesized entry, restore the previous
		// last-message, queue for redelivery.
		if inserted {
			e.store.RemoveMessage(convoID, optimistic.ID)
			if e.bus != nil {
				e.bus.MessageDeleted(convoID, optimistic.ID)
			}
		}
		if hadConvo {
			e.restoreConversation(convoID, prevConvo)
		}
		if e.retries != nil {
			e.retries.EnqueueMessage(ctx, convoID, text, err)
		}
		return
	}

	// Swap the synthesized id for the authoritative record, in place
	if inserted {
		e.store.PatchMessage(convoID, optimistic.ID, func(chats.Message) chats.Message {
			return record
		})
		if e.bus != nil {
			e.bus.MessageUpdated(convoID, optimistic.ID, record)
		}
	}
	if hadConvo {
		e.setLastMessage(convoID, record)
	}
}

// SendPending reports whether a send with the given nonce is in flight.
func (e *Engine) SendPending(convoID, nonce string) bool {
	flightID := convoID
	if nonce != "" {
		flightID = convoID + "#" + nonce
	}
	return e.flights.Pending(flightID, KindSend)
}

func (e *Engine) setLastMessage(convoID string, m chats.Message) {
	e.store.PatchConversation(convoID, func(c chats.Conversation) chats.Conversation {
		last := m
		c.LastMessage = &last
		if m.Rev != "" {
			c.Rev = m.Rev
		}
		return c
	})
	e.emitConversation(convoID)
}

func (e *Engine) restoreConversation(convoID string, prev chats.Conversation) {
	e.store.PatchConversation(convoID, func(c chats.Conversation) chats.Conversation {
		c.LastMessage = prev.LastMessage
		c.Rev = prev.Rev
		return c
	})
	e.emitConversation(convoID)
}

func (e *Engine) emitConversation(convoID string) {
	if e.bus == nil {
		return
	}
	if c, ok := e.store.Conversation(convoID); ok {
		e.bus.ConversationUpdated(c)
	}
}
