package actions

import (
	"context"
	"log"

	"github.com/blue-horizon/syncd/pkg/drafts"
	"github.com/blue-horizon/syncd/pkg/retry"
	"github.com/blue-horizon/syncd/pkg/upstream"
)

// Composer handles post creation: send through the upstream, clear the
// matching draft on success, enqueue for durable retry on failure. Unlike
// toggles, composed content is never dropped.
type Composer struct {
	client *upstream.Client
}

func NewComposer(client *upstream.Client) *Composer {
	return &Composer{client: client}
}

// CreatePost sends the post. A failed send is accepted anyway: the payload
// goes to the retry queue and the draft is cleared, matching the behavior
// of a successful send from the shell's point of view.
func (c *Composer) CreatePost(ctx context.Context, p upstream.PostPayload) (queuedID string, err error) {
	_, sendErr := c.client.CreatePost(ctx, p)
	if sendErr == nil {
		if clearErr := drafts.Clear(ctx, p.ReplyTo, p.QuoteURI); clearErr != nil {
			log.Println("draft clear after send failed:", clearErr)
		}
		return "", nil
	}

	id, queueErr := retry.Enqueue(ctx, retry.KindPost, p, sendErr)
	if queueErr != nil {
		return "", sendErr
	}
	if clearErr := drafts.Clear(ctx, p.ReplyTo, p.QuoteURI); clearErr != nil {
		log.Println("draft clear after queue failed:", clearErr)
	}
	return id, nil
}
