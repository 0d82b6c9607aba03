package rdb

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Channel is the pubsub channel the events gateway subscribes to.
const Channel = "events"

var Client *redis.Client

func Init(uri string) error {
	// Get Redis options
	rdbOpts, err := redis.ParseURL(uri)
	if err != nil {
		return err
	}

	// Create Redis client
	Client = redis.NewClient(rdbOpts)

	// Ping Redis
	if err := Client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	return nil
}

// Publish sends a raw event payload on the shared events channel.
func Publish(ctx context.Context, payload []byte) error {
	return Client.Publish(ctx, Channel, payload).Err()
}
