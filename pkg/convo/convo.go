// Package convo is the fetch-through layer for the chat views: the flat
// conversation list and the paginated per-conversation message views.
package convo

import (
	"context"
	"log"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/events"
	"github.com/blue-horizon/syncd/pkg/store"
	"github.com/blue-horizon/syncd/pkg/upstream"
	"github.com/blue-horizon/syncd/pkg/views"
	"github.com/getsentry/sentry-go"
)

const defaultPageSize = 50

type Service struct {
	client *upstream.Client
	store  *store.Store
	bus    *events.Bus
}

func NewService(client *upstream.Client, s *store.Store, bus *events.Bus) *Service {
	return &Service{client: client, store: s, bus: bus}
}

// Conversations serves the conversation list, revalidating a fresh cached
// view in the background.
func (s *Service) Conversations(ctx context.Context) (views.Flat[chats.Conversation], error) {
	if v, ok := s.store.Conversations(); ok && !s.store.Stale(store.FamilyConversations) {
		go func() {
			if err := s.refreshConversations(context.Background()); err != nil {
				log.Println("conversation refresh failed:", err)
				sentry.CaptureException(err)
			}
		}()
		return v, nil
	}
	return s.fetchConversations(ctx)
}

func (s *Service) fetchConversations(ctx context.Context) (views.Flat[chats.Conversation], error) {
	list, _, err := s.client.ListConvos(ctx, "", defaultPageSize)
	if err != nil {
		return nil, err
	}
	s.store.RegisterConversations(list)
	return list, nil
}

func (s *Service) refreshConversations(ctx context.Context) error {
	_, err := s.fetchConversations(ctx)
	return err
}

// Messages serves one page of a conversation, newest first. An empty cursor
// returns everything cached (or the first page on a cold start); a cursor
// fetches and appends the next page.
func (s *Service) Messages(ctx context.Context, convoID, cursor string) ([]chats.Message, string, error) {
	if cursor != "" {
		page, next, err := s.client.GetMessages(ctx, convoID, cursor, defaultPageSize)
		if err != nil {
			return nil, "", err
		}
		s.store.AppendMessagePage(convoID, page, next)
		return page, next, nil
	}

	if v, ok := s.store.Messages(convoID); ok && len(v.Pages) > 0 && !s.store.Stale(store.FamilyMessages) {
		out := make([]chats.Message, 0)
		for _, page := range v.Pages {
			out = append(out, page...)
		}
		return out, v.Cursor, nil
	}

	page, next, err := s.client.GetMessages(ctx, convoID, "", defaultPageSize)
	if err != nil {
		return nil, "", err
	}
	s.store.RegisterMessages(convoID, &views.Paged[chats.Message]{
		Pages:  []views.Flat[chats.Message]{page},
		Cursor: next,
	})
	return page, next, nil
}

// UpdateRead forwards the read marker upstream and patches the cached
// conversation row with the authoritative unread count.
func (s *Service) UpdateRead(ctx context.Context, convoID, messageID string) error {
	updated, err := s.client.UpdateRead(ctx, convoID, messageID)
	if err != nil {
		return err
	}
	s.store.PatchConversation(convoID, func(chats.Conversation) chats.Conversation {
		return updated
	})
	if s.bus != nil {
		s.bus.ConversationUpdated(updated)
	}
	return nil
}

// UnreadTotal sums unread counts across the cached conversation list.
func (s *Service) UnreadTotal() int64 {
	v, _ := s.store.Conversations()
	var total int64
	for i := range v {
		total += v[i].UnreadCount
	}
	return total
}

// Refresh refetches authoritative state for one chat family. Wired into
// the reconciler.
func (s *Service) Refresh(ctx context.Context, family store.Family) error {
	switch family {
	case store.FamilyConversations:
		return s.refreshConversations(ctx)
	case store.FamilyMessages:
		var firstErr error
		for _, convoID := range s.store.MessageKeys() {
			page, next, err := s.client.GetMessages(ctx, convoID, "", defaultPageSize)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			s.store.RegisterMessages(convoID, &views.Paged[chats.Message]{
				Pages:  []views.Flat[chats.Message]{page},
				Cursor: next,
			})
		}
		return firstErr
	}
	return nil
}
