package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	applyTimeout   = 5 * time.Second
)

// ViewCounter persists view increments.
type ViewCounter interface {
	IncrementViews(ctx context.Context, id string, n int64) error
}

// ViewDeduper reports whether a viewer is seen for the first time within the
// dedup window.
type ViewDeduper interface {
	FirstView(ctx context.Context, tourID, viewerKey string) (bool, error)
}

// Dispatcher counts public playback views off the request path. Events are
// routed to a fixed set of workers by hashing the tour id.
type Dispatcher struct {
	workers []chan domain.ViewEvent
	counter ViewCounter
	dedup   ViewDeduper
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. dedup may be nil, in which case
// every view is counted.
func NewDispatcher(numWorkers int, counter ViewCounter, dedup ViewDeduper, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ViewEvent, numWorkers),
		counter: counter,
		dedup:   dedup,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ViewEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their channel and stop
// when ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record enqueues a view. It never blocks the request: when the worker's
// buffer is full the view is dropped and logged.
func (d *Dispatcher) Record(event domain.ViewEvent) {
	idx := d.shardIndex(event.TourID)
	select {
	case d.workers[idx] <- event:
		metrics.ViewsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.ViewsRecordedTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("tour_id", event.TourID).Int("worker_id", idx).Msg("view queue full, dropping view")
	}
}

// shardIndex maps a tour id deterministically to a worker index.
func (d *Dispatcher) shardIndex(tourID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tourID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ViewEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case event := <-ch:
			metrics.ViewsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.apply(context.Background(), id, event)
		}
	}
}

// drain applies whatever is still buffered so a shutdown does not lose views.
func (d *Dispatcher) drain(id int, ch <-chan domain.ViewEvent) {
	for {
		select {
		case event := <-ch:
			d.apply(context.Background(), id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) apply(ctx context.Context, workerID int, event domain.ViewEvent) {
	ctx, cancel := context.WithTimeout(ctx, applyTimeout)
	defer cancel()

	if d.dedup != nil && event.ViewerKey != "" {
		first, err := d.dedup.FirstView(ctx, event.TourID, event.ViewerKey)
		if err != nil {
			d.log.Warn().Err(err).Str("tour_id", event.TourID).Msg("view dedup failed, counting anyway")
		} else if !first {
			metrics.ViewsRecordedTotal.WithLabelValues("deduplicated").Inc()
			return
		}
	}

	if err := d.counter.IncrementViews(ctx, event.TourID, 1); err != nil {
		metrics.ViewsRecordedTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("tour_id", event.TourID).
			Int("worker_id", workerID).
			Msg("view increment failed")
		return
	}
	metrics.ViewsRecordedTotal.WithLabelValues("counted").Inc()
}
