package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/blue-horizon/syncd/pkg/actions"
	"github.com/blue-horizon/syncd/pkg/api/rest"
	v0_rest "github.com/blue-horizon/syncd/pkg/api/rest/v0"
	"github.com/blue-horizon/syncd/pkg/convo"
	"github.com/blue-horizon/syncd/pkg/db"
	"github.com/blue-horizon/syncd/pkg/events"
	"github.com/blue-horizon/syncd/pkg/feed"
	"github.com/blue-horizon/syncd/pkg/poll"
	"github.com/blue-horizon/syncd/pkg/rdb"
	"github.com/blue-horizon/syncd/pkg/retry"
	"github.com/blue-horizon/syncd/pkg/session"
	"github.com/blue-horizon/syncd/pkg/store"
	"github.com/blue-horizon/syncd/pkg/upstream"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
)

func main() {
	// Load dotenv
	godotenv.Load()

	// Init Sentry
	if err := sentry.Init(sentry.ClientOptions{
		Dsn: os.Getenv("SENTRY_DSN"),
	}); err != nil {
		panic(err)
	}

	// Init MongoDB
	if err := db.Init(os.Getenv("MONGO_URI"), os.Getenv("MONGO_DB")); err != nil {
		panic(err)
	}

	// Init Redis
	if err := rdb.Init(os.Getenv("REDIS_URI")); err != nil {
		panic(err)
	}

	// Session manager and upstream client
	manager := session.NewManager()
	client := upstream.New(
		os.Getenv("UPSTREAM_PDS"),
		os.Getenv("UPSTREAM_CHAT_PROXY"),
		manager,
	).WithRateLimit(10, 30)
	manager.BindUpstream(client)
	if err := manager.Resume(context.Background()); err != nil && err != session.ErrNoSession {
		log.Println("session resume failed:", err)
		sentry.CaptureException(err)
	}

	// View store, event bus, fetch services
	st := store.New()
	bus := events.NewBus()
	feeds := feed.NewService(client, st, bus)
	convos := convo.NewService(client, st, bus)

	// Reconciler: one refetch path per view family
	reconciler := store.NewReconciler(st, func(ctx context.Context, family store.Family) error {
		switch family {
		case store.FamilyConversations, store.FamilyMessages:
			return convos.Refresh(ctx, family)
		default:
			return feeds.Refresh(ctx, family)
		}
	})

	// Mutation engine and composer
	engine := actions.NewEngine(st, client, bus, reconciler, retry.Queue{}, manager)
	composer := actions.NewComposer(client)

	// Retry redelivery: re-send queued payloads through the upstream client
	retry.Bus = bus
	retry.Handler = func(ctx context.Context, job *retry.Job) error {
		switch job.Kind {
		case retry.KindPost:
			var payload upstream.PostPayload
			if err := bson.Unmarshal(job.Payload, &payload); err != nil {
				return err
			}
			_, err := client.CreatePost(ctx, payload)
			return err
		case retry.KindMessage:
			var payload retry.MessagePayload
			if err := bson.Unmarshal(job.Payload, &payload); err != nil {
				return err
			}
			_, err := client.SendMessage(ctx, payload.ConvoID, payload.Text)
			return err
		}
		return nil
	}

	// Background pollers
	go poll.RunRetryDrain(context.Background())
	go poll.RunNotifications(context.Background(), client, bus)

	// Wire REST handlers
	v0_rest.Init(v0_rest.Deps{
		Store:    st,
		Engine:   engine,
		Composer: composer,
		Feeds:    feeds,
		Convos:   convos,
		Sessions: manager,
		Client:   client,
		Bus:      bus,
	})

	// Serve HTTP router
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "3000"
	}
	log.Println("Serving HTTP server on :" + port)
	http.ListenAndServe(":"+port, rest.Router())

	// Wait for Sentry events to flush
	sentry.Flush(time.Second * 5)
}
