package retry

import (
	"context"
	"log"

	"github.com/getsentry/sentry-go"
)

// MessagePayload is the redelivery payload for a failed chat message send.
type MessagePayload struct {
	ConvoID string `bson:"convo_id"`
	Text    string `bson:"text"`
}

// Queue adapts the package-level queue to the mutation engine, which only
// sees an enqueue callback.
type Queue struct{}

func (Queue) EnqueueMessage(ctx context.Context, convoID, text string, cause error) {
	_, err := Enqueue(ctx, KindMessage, MessagePayload{ConvoID: convoID, Text: text}, cause)
	if err != nil {
		log.Println("message retry enqueue failed:", err)
		sentry.CaptureException(err)
	}
}
