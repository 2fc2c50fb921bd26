package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"isc.org/walledgarden/metrics"
	gardenutil "isc.org/walledgarden/util"
)

// Maximum duration of a single refresh.
const refreshTimeout = 30 * time.Second

// Rebuilds the store snapshot from the loaders periodically and on demand.
// The previous snapshot is kept when any of the loaders fails, so a
// database outage doesn't revoke the registrations.
type Refresher struct {
	store    *MemoryStore
	loaders  []Loader
	metrics  *metrics.Metrics
	clock    func() time.Time
	mutex    sync.Mutex
	executor *gardenutil.PeriodicExecutor
}

// Creates the refresher, performs the initial refresh and starts the
// periodic refreshes. A failure of the initial refresh is logged and the
// store keeps serving its current snapshot.
func NewRefresher(store *MemoryStore, interval time.Duration, metrics *metrics.Metrics, loaders ...Loader) (*Refresher, error) {
	refresher := &Refresher{
		store:   store,
		loaders: loaders,
		metrics: metrics,
		clock:   gardenutil.UTCNow,
	}
	if err := refresher.Refresh(); err != nil {
		log.WithError(err).Warn("Initial reservation refresh failed")
	}
	executor, err := gardenutil.NewPeriodicExecutor("reservation refresher", refresher.Refresh, interval)
	if err != nil {
		return nil, err
	}
	refresher.executor = executor
	return refresher, nil
}

// Builds a new snapshot and installs it in the store.
func (r *Refresher) Refresh() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	builder := NewSnapshotBuilder()
	for _, loader := range r.loaders {
		if err := loader.Load(ctx, builder); err != nil {
			return errors.WithMessagef(err, "cannot load reservations from the %s", loader.GetName())
		}
	}
	snapshot := builder.Build(r.clock())
	r.store.Swap(snapshot)
	r.metrics.ObserveSnapshot(snapshot.Size(), snapshot.CreatedAt())

	log.WithField("reservations", snapshot.Size()).Debug("Refreshed reservation snapshot")
	return nil
}

// Requests an immediate refresh. It doesn't wait for the refresh.
func (r *Refresher) Trigger() {
	if r.executor != nil {
		r.executor.Trigger()
	}
}

// Stops the periodic refreshes.
func (r *Refresher) Shutdown() {
	if r.executor != nil {
		r.executor.Shutdown()
	}
}
