package metric

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// DefaultTickInterval is how often every store recovers weariness.
const DefaultTickInterval = 10 * time.Second

var relationshipsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "dialog",
	Subsystem: "metric",
	Name:      "relationships",
	Help:      "Relationships with a live weariness store",
})

// Registry owns one Store per relationship key and ticks them all on an interval.
//
// Thread Safety: the registry lock only guards the map; each store locks itself.
type Registry struct {
	opts     Options
	interval time.Duration
	stores   map[string]*Store
	mu       sync.RWMutex
	logger   *zap.Logger
	stopTick chan struct{}
	stopOnce sync.Once
}

// NewRegistry starts the tick routine when interval > 0.
func NewRegistry(opts Options, interval time.Duration, logger *zap.Logger) *Registry {
	r := &Registry{
		opts:     opts,
		interval: interval,
		stores:   make(map[string]*Store),
		logger:   logger,
		stopTick: make(chan struct{}),
	}

	if interval > 0 {
		go r.tickRoutine()
	}
	return r
}

func (r *Registry) tickRoutine() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.TickAll()
		case <-r.stopTick:
			return
		}
	}
}

// Stop ends the tick routine. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopTick) })
}

// TickAll ticks every store once.
func (r *Registry) TickAll() {
	r.mu.RLock()
	stores := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	r.mu.RUnlock()

	for _, s := range stores {
		s.Tick()
	}
	r.logger.Debug("Weariness tick", zap.Int("relationships", len(stores)))
}

func (r *Registry) Get(key string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[key]
	return s, ok
}

// GetOrCreate returns the store for key. A new store is passed to init before
// it becomes visible to other callers; created reports whether that happened.
func (r *Registry) GetOrCreate(key string, init func(*Store)) (store *Store, created bool) {
	r.mu.RLock()
	s, ok := r.stores[key]
	r.mu.RUnlock()
	if ok {
		return s, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[key]; ok {
		return s, false
	}

	s = NewStore(r.opts)
	if init != nil {
		init(s)
	}
	r.stores[key] = s
	relationshipsGauge.Inc()
	r.logger.Debug("Created weariness store", zap.String("relationship", key))
	return s, true
}

func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[key]; ok {
		delete(r.stores, key)
		relationshipsGauge.Dec()
	}
}

// Keys lists every relationship key, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.stores))
	for k := range r.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IdleSince lists the keys whose store was last used before cutoff, sorted.
func (r *Registry) IdleSince(cutoff time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []string
	for k, s := range r.stores {
		if s.LastUsed().Before(cutoff) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Snapshot captures the store of key.
func (r *Registry) Snapshot(key string) (Snapshot, bool) {
	s, ok := r.Get(key)
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{Key: key, SavedAt: time.Now(), Entries: s.Snapshot()}, true
}

// Restore applies a saved snapshot to an existing store and returns the
// number of entries applied.
func (r *Registry) Restore(snap Snapshot) int {
	s, ok := r.Get(snap.Key)
	if !ok {
		return 0
	}
	return s.Restore(snap.Entries)
}
