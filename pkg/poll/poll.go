// Package poll runs the background loops: draining the durable retry queue
// and publishing the upstream unread notification count.
package poll

import (
	"context"
	"log"
	"time"

	"github.com/blue-horizon/syncd/pkg/events"
	"github.com/blue-horizon/syncd/pkg/retry"
	"github.com/blue-horizon/syncd/pkg/upstream"
	"github.com/getsentry/sentry-go"
)

const (
	RetryInterval        = 20 * time.Second
	NotificationInterval = 180 * time.Second
)

// RunRetryDrain drains due retry jobs on a fixed interval until ctx ends.
func RunRetryDrain(ctx context.Context) {
	ticker := time.NewTicker(RetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := retry.Drain(ctx); err != nil {
				log.Println("retry drain failed:", err)
				sentry.CaptureException(err)
			}
		}
	}
}

// RunNotifications polls the unread notification count and publishes it to
// connected shells.
func RunNotifications(ctx context.Context, client *upstream.Client, bus *events.Bus) {
	ticker := time.NewTicker(NotificationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := client.UnreadCount(ctx)
			if err != nil {
				log.Println("unread count poll failed:", err)
				continue
			}
			if bus != nil {
				bus.UnreadCount(count)
			}
		}
	}
}
