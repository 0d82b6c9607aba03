package store

import (
	"context"
	"log"

	"github.com/blue-horizon/syncd/pkg/metrics"
	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/singleflight"
)

// RefreshFunc refetches authoritative state for one view family and
// re-registers it. Wired up by the fetch layer.
type RefreshFunc func(ctx context.Context, family Family) error

// Reconciler is the coarse safety net run after every mutation settles:
// affected families are marked stale and a refetch is fired without
// blocking the mutation path. Concurrent settles collapse into one refetch
// per family via singleflight.
type Reconciler struct {
	store   *Store
	refresh RefreshFunc
	sf      singleflight.Group
}

func NewReconciler(s *Store, refresh RefreshFunc) *Reconciler {
	return &Reconciler{store: s, refresh: refresh}
}

// Reconcile marks the families stale and triggers their refetch. Fire and
// forget: refetch failures are captured and swallowed, the stale flag
// stays set so the next read retries.
func (r *Reconciler) Reconcile(families ...Family) {
	r.store.MarkStale(families...)
	for _, family := range families {
		metrics.Reconciliations.WithLabelValues(string(family)).Inc()
		if r.refresh == nil {
			continue
		}
		family := family
		go func() {
			_, err, _ := r.sf.Do(string(family), func() (interface{}, error) {
				return nil, r.refresh(context.Background(), family)
			})
			if err != nil {
				log.Println("reconcile", family, "failed:", err)
				sentry.CaptureException(err)
			}
		}()
	}
}
