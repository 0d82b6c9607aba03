package v0_rest

type LoginReq struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type CreatePostReq struct {
	Text     string `json:"text" validate:"required,max=3000"`
	ReplyTo  string `json:"reply_to,omitempty" validate:"omitempty,startswith=at://"`
	QuoteURI string `json:"quote_uri,omitempty" validate:"omitempty,startswith=at://"`
	QuoteCID string `json:"quote_cid,omitempty" validate:"required_with=QuoteURI"`
}

type SaveDraftReq struct {
	Text     string `json:"text" validate:"max=3000"`
	ReplyTo  string `json:"reply_to,omitempty" validate:"omitempty,startswith=at://"`
	QuoteURI string `json:"quote_uri,omitempty" validate:"omitempty,startswith=at://"`
	QuoteCID string `json:"quote_cid,omitempty"`
}

type SendMessageReq struct {
	Text  string `json:"text" validate:"required,max=10000"`
	Nonce string `json:"nonce,omitempty" validate:"omitempty,max=64"`
}

type UpdateReadReq struct {
	MessageID string `json:"message_id,omitempty"`
}
