package feed

import (
	"context"
	"log"
	"time"

	"github.com/blue-horizon/syncd/pkg/db"
	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/getsentry/sentry-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type profileSnapshot struct {
	ID        string        `bson:"_id"` // actor identifier
	Profile   posts.Profile `bson:"profile"`
	UpdatedAt int64         `bson:"updated_at"`
}

// Profile serves an actor's profile snapshot-first with background
// revalidation; a cold actor is fetched synchronously.
func (s *Service) Profile(ctx context.Context, actor string) (posts.Profile, error) {
	var snap profileSnapshot
	err := db.Profiles.FindOne(ctx, bson.M{"_id": actor}).Decode(&snap)
	if err == nil {
		go func() {
			if _, err := s.refreshProfile(context.Background(), actor); err != nil {
				log.Println("profile refresh", actor, "failed:", err)
				sentry.CaptureException(err)
			}
		}()
		return snap.Profile, nil
	}
	if err != mongo.ErrNoDocuments {
		log.Println("profile snapshot load failed:", err)
	}
	return s.refreshProfile(ctx, actor)
}

func (s *Service) refreshProfile(ctx context.Context, actor string) (posts.Profile, error) {
	profile, err := s.client.Profile(ctx, actor)
	if err != nil {
		return posts.Profile{}, err
	}
	snap := profileSnapshot{
		ID:        actor,
		Profile:   profile,
		UpdatedAt: time.Now().UnixMilli(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := db.Profiles.ReplaceOne(ctx, bson.M{"_id": actor}, snap, opts); err != nil {
		log.Println("profile snapshot save failed:", err)
	}
	if s.bus != nil {
		s.bus.ProfileRefreshed(profile.DID)
	}
	return profile, nil
}
