// Package retry is the durable queue for failed sends (posts, chat
// messages). The sync engine drops likes/reposts on failure, but composed
// content is enqueued here and drained in the background with capped
// exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/blue-horizon/syncd/pkg/db"
	"github.com/blue-horizon/syncd/pkg/events"
	"github.com/blue-horizon/syncd/pkg/metrics"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	StatusQueued   = "queued"
	StatusRetrying = "retrying"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

const (
	KindPost    = "post"
	KindMessage = "message"
)

const (
	maxAttempts = 8
	drainBatch  = 10
	baseBackoff = 15 * time.Second
	maxBackoff  = 1800 * time.Second
)

type Job struct {
	ID          string   `bson:"_id"`
	Kind        string   `bson:"kind"`
	Payload     bson.Raw `bson:"payload"`
	Status      string   `bson:"status"`
	Attempts    int      `bson:"attempts"`
	NextRetryAt int64    `bson:"next_retry_at"`
	LastError   string   `bson:"last_error,omitempty"`
	CreatedAt   int64    `bson:"created_at"`
	UpdatedAt   int64    `bson:"updated_at"`
	SentAt      int64    `bson:"sent_at,omitempty"`
}

// Handler re-sends one job. Set at wiring time; kept as a variable so the
// queue does not depend on the send paths it feeds back into.
var Handler func(ctx context.Context, job *Job) error

// Bus carries queue lifecycle events to connected shells.
var Bus *events.Bus

// Backoff returns the delay before the given (1-based) attempt count may
// run again: 15s doubled per attempt, capped at 30 minutes.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > maxAttempts {
		attempts = maxAttempts
	}
	d := baseBackoff << uint(attempts-1)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Enqueue stores a failed send for background redelivery and returns the
// job id.
func Enqueue(ctx context.Context, kind string, payload interface{}, cause error) (string, error) {
	raw, err := bson.Marshal(payload)
	if err != nil {
		return "", err
	}
	now := time.Now().UnixMilli()
	job := Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     raw,
		Status:      StatusQueued,
		Attempts:    1,
		NextRetryAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cause != nil {
		job.LastError = cause.Error()
	}
	if _, err := db.RetryQueue.InsertOne(ctx, job); err != nil {
		return "", err
	}
	metrics.RetryJobs.WithLabelValues(StatusQueued).Inc()
	if Bus != nil {
		Bus.RetryQueued(job.ID)
	}
	return job.ID, nil
}

// Depth counts jobs still awaiting delivery.
func Depth(ctx context.Context) (int64, error) {
	return db.RetryQueue.CountDocuments(ctx, bson.M{
		"status": bson.M{"$in": []string{StatusQueued, StatusRetrying}},
	})
}

// Drain processes due jobs once. Jobs that keep failing are retried with
// backoff until the attempt cap, then marked failed for good.
func Drain(ctx context.Context) error {
	if Handler == nil {
		return nil
	}

	now := time.Now().UnixMilli()
	findOpts := options.Find().
		SetSort(bson.M{"created_at": 1}).
		SetLimit(drainBatch)
	cursor, err := db.RetryQueue.Find(ctx, bson.M{
		"status":        bson.M{"$in": []string{StatusQueued, StatusRetrying}},
		"next_retry_at": bson.M{"$lte": now},
	}, findOpts)
	if err != nil {
		return err
	}
	var jobs []Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return err
	}

	for i := range jobs {
		job := &jobs[i]

		if err := setStatus(ctx, job.ID, bson.M{"status": StatusRetrying}); err != nil {
			return err
		}

		if err := Handler(ctx, job); err != nil {
			sentry.CaptureException(err)
			nextAttempts := job.Attempts + 1
			update := bson.M{
				"attempts":   nextAttempts,
				"last_error": err.Error(),
			}
			if nextAttempts >= maxAttempts {
				update["status"] = StatusFailed
				metrics.RetryJobs.WithLabelValues(StatusFailed).Inc()
			} else {
				update["status"] = StatusQueued
				update["next_retry_at"] = time.Now().Add(Backoff(nextAttempts)).UnixMilli()
			}
			if err := setStatus(ctx, job.ID, update); err != nil {
				return err
			}
			continue
		}

		if err := setStatus(ctx, job.ID, bson.M{
			"status":  StatusSent,
			"sent_at": time.Now().UnixMilli(),
		}); err != nil {
			return err
		}
		metrics.RetryJobs.WithLabelValues(StatusSent).Inc()
		if Bus != nil {
			Bus.RetrySent(job.ID)
		}
	}

	return nil
}

func setStatus(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now().UnixMilli()
	_, err := db.RetryQueue.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	return err
}
