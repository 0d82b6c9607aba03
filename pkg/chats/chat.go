package chats

// Message is one chat message as held by the paginated per-conversation
// message views. The ID carries an optimistic:// marker between the local
// insert and the upstream acknowledgement.
type Message struct {
	ID        string `json:"id" bson:"id" msgpack:"id"`
	Rev       string `json:"rev,omitempty" bson:"rev,omitempty" msgpack:"rev,omitempty"`
	SenderDID string `json:"sender_did" bson:"sender_did" msgpack:"sender_did"`
	Text      string `json:"text" bson:"text" msgpack:"text"`
	SentAt    string `json:"sent_at" bson:"sent_at" msgpack:"sent_at"`
}

func (m Message) EntityKey() string { return m.ID }

type Member struct {
	DID         string `json:"did" bson:"did" msgpack:"did"`
	Handle      string `json:"handle" bson:"handle" msgpack:"handle"`
	DisplayName string `json:"display_name,omitempty" bson:"display_name,omitempty" msgpack:"display_name,omitempty"`
	Avatar      string `json:"avatar,omitempty" bson:"avatar,omitempty" msgpack:"avatar,omitempty"`
}

// Conversation is one row of the flat conversation-list view.
type Conversation struct {
	ID          string   `json:"id" bson:"id" msgpack:"id"`
	Rev         string   `json:"rev,omitempty" bson:"rev,omitempty" msgpack:"rev,omitempty"`
	Members     []Member `json:"members" bson:"members" msgpack:"members"`
	LastMessage *Message `json:"last_message,omitempty" bson:"last_message,omitempty" msgpack:"last_message,omitempty"`
	UnreadCount int64    `json:"unread_count" bson:"unread_count" msgpack:"unread_count"`
	Muted       bool     `json:"muted,omitempty" bson:"muted,omitempty" msgpack:"muted,omitempty"`
}

func (c Conversation) EntityKey() string { return c.ID }
