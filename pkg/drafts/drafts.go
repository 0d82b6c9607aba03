// Package drafts persists compose drafts keyed by composition target, so a
// half-written reply survives a shell restart. Cleared on successful send.
package drafts

import (
	"context"
	"time"

	"github.com/blue-horizon/syncd/pkg/db"
	"github.com/blue-horizon/syncd/pkg/upstream"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Draft struct {
	Key       string               `json:"key" bson:"_id"`
	Payload   upstream.PostPayload `json:"payload" bson:"payload"`
	UpdatedAt int64                `json:"updated_at" bson:"updated_at"`
}

// Key derives the draft slot from the composition target: one slot per
// reply target, one per quote target, one for a fresh post.
func Key(replyTo, quoteURI string) string {
	if replyTo != "" {
		return "reply:" + replyTo
	}
	if quoteURI != "" {
		return "quote:" + quoteURI
	}
	return "post:new"
}

// Save upserts the draft for the payload's target. An empty payload clears
// the slot instead.
func Save(ctx context.Context, p upstream.PostPayload) error {
	key := Key(p.ReplyTo, p.QuoteURI)
	if p.Text == "" {
		return Clear(ctx, p.ReplyTo, p.QuoteURI)
	}
	d := Draft{
		Key:       key,
		Payload:   p,
		UpdatedAt: time.Now().UnixMilli(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := db.Drafts.ReplaceOne(ctx, bson.M{"_id": key}, d, opts)
	return err
}

// Get loads the draft for the target; ok is false when the slot is empty.
func Get(ctx context.Context, replyTo, quoteURI string) (Draft, bool, error) {
	var d Draft
	err := db.Drafts.FindOne(ctx, bson.M{"_id": Key(replyTo, quoteURI)}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return Draft{}, false, nil
	}
	if err != nil {
		return Draft{}, false, err
	}
	return d, true, nil
}

// Clear removes the draft for the target.
func Clear(ctx context.Context, replyTo, quoteURI string) error {
	_, err := db.Drafts.DeleteOne(ctx, bson.M{"_id": Key(replyTo, quoteURI)})
	return err
}
