package upstream

import (
	"context"
	"net/url"
	"strconv"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/views"
)

type messageView struct {
	ID     string `json:"id"`
	Rev    string `json:"rev"`
	Sender struct {
		DID string `json:"did"`
	} `json:"sender"`
	Text   string `json:"text"`
	SentAt string `json:"sentAt"`
}

func (v messageView) toMessage() chats.Message {
	return chats.Message{
		ID:        v.ID,
		Rev:       v.Rev,
		SenderDID: v.Sender.DID,
		Text:      v.Text,
		SentAt:    v.SentAt,
	}
}

type convoView struct {
	ID          string       `json:"id"`
	Rev         string       `json:"rev"`
	Members     []actorView  `json:"members"`
	LastMessage *messageView `json:"lastMessage"`
	UnreadCount int64        `json:"unreadCount"`
	Muted       bool         `json:"muted"`
}

func (v convoView) toConversation() chats.Conversation {
	c := chats.Conversation{
		ID:          v.ID,
		Rev:         v.Rev,
		UnreadCount: v.UnreadCount,
		Muted:       v.Muted,
	}
	for _, m := range v.Members {
		c.Members = append(c.Members, chats.Member{
			DID:         m.DID,
			Handle:      m.Handle,
			DisplayName: m.DisplayName,
			Avatar:      m.Avatar,
		})
	}
	if v.LastMessage != nil {
		last := v.LastMessage.toMessage()
		c.LastMessage = &last
	}
	return c
}

// ListConvos fetches one page of the viewer's conversation list.
func (c *Client) ListConvos(ctx context.Context, cursor string, limit int) (views.Flat[chats.Conversation], string, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Convos []convoView `json:"convos"`
		Cursor string      `json:"cursor"`
	}
	if err := c.getProxied(ctx, "chat.bsky.convo.listConvos", params, &out); err != nil {
		return nil, "", err
	}
	list := make(views.Flat[chats.Conversation], 0, len(out.Convos))
	for _, v := range out.Convos {
		list = append(list, v.toConversation())
	}
	return list, out.Cursor, nil
}

// GetConvo fetches a single conversation.
func (c *Client) GetConvo(ctx context.Context, convoID string) (chats.Conversation, error) {
	params := url.Values{}
	params.Set("convoId", convoID)
	var out struct {
		Convo convoView `json:"convo"`
	}
	if err := c.getProxied(ctx, "chat.bsky.convo.getConvo", params, &out); err != nil {
		return chats.Conversation{}, err
	}
	return out.Convo.toConversation(), nil
}

// GetConvoForMembers resolves (or creates) the conversation with the given
// members.
func (c *Client) GetConvoForMembers(ctx context.Context, dids []string) (chats.Conversation, error) {
	params := url.Values{}
	for _, did := range dids {
		params.Add("members", did)
	}
	var out struct {
		Convo convoView `json:"convo"`
	}
	if err := c.getProxied(ctx, "chat.bsky.convo.getConvoForMembers", params, &out); err != nil {
		return chats.Conversation{}, err
	}
	return out.Convo.toConversation(), nil
}

// GetMessages fetches one page of a conversation, newest first.
func (c *Client) GetMessages(ctx context.Context, convoID, cursor string, limit int) (views.Flat[chats.Message], string, error) {
	params := url.Values{}
	params.Set("convoId", convoID)
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Messages []messageView `json:"messages"`
		Cursor   string        `json:"cursor"`
	}
	if err := c.getProxied(ctx, "chat.bsky.convo.getMessages", params, &out); err != nil {
		return nil, "", err
	}
	msgs := make(views.Flat[chats.Message], 0, len(out.Messages))
	for _, v := range out.Messages {
		msgs = append(msgs, v.toMessage())
	}
	return msgs, out.Cursor, nil
}

type sendMessageInput struct {
	ConvoID string `json:"convoId"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// SendMessage sends one message and returns the authoritative record.
func (c *Client) SendMessage(ctx context.Context, convoID, text string) (chats.Message, error) {
	in := sendMessageInput{ConvoID: convoID}
	in.Message.Text = text
	var out messageView
	if err := c.postProxied(ctx, "chat.bsky.convo.sendMessage", &in, &out); err != nil {
		return chats.Message{}, err
	}
	return out.toMessage(), nil
}

type updateReadInput struct {
	ConvoID   string `json:"convoId"`
	MessageID string `json:"messageId,omitempty"`
}

// UpdateRead marks the conversation read up to messageID (or fully when
// empty).
func (c *Client) UpdateRead(ctx context.Context, convoID, messageID string) (chats.Conversation, error) {
	var out struct {
		Convo convoView `json:"convo"`
	}
	err := c.postProxied(ctx, "chat.bsky.convo.updateRead", &updateReadInput{
		ConvoID:   convoID,
		MessageID: messageID,
	}, &out)
	if err != nil {
		return chats.Conversation{}, err
	}
	return out.Convo.toConversation(), nil
}
