package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfmark/library-api/internal/metrics"
	"github.com/shelfmark/library-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes inventory events to a fixed set of workers using
// consistent hashing on the book id, so events for one book are handled in
// publish order. Publishing never blocks a lending transaction: when a
// worker queue is full the event is dropped and counted.
type Dispatcher struct {
	workers []chan ports.InventoryEvent
	handler ports.InventoryEventHandler
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ ports.InventoryPublisher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.InventoryEventHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.InventoryEvent, numWorkers),
		handler: handler,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.InventoryEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

func (d *Dispatcher) Wait() { d.wg.Wait() }

// Publish hands ev to the worker that owns its book.
func (d *Dispatcher) Publish(ev ports.InventoryEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	idx := d.shardIndex(ev.BookID)
	select {
	case d.workers[idx] <- ev:
		metrics.InventoryQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.InventoryEventsDroppedTotal.Inc()
		d.log.Warn().
			Str("book_id", ev.BookID).
			Str("kind", ev.Kind).
			Int("worker_id", idx).
			Msg("inventory queue full, event dropped")
	}
}

// shardIndex maps a book id deterministically to a worker index.
func (d *Dispatcher) shardIndex(bookID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(bookID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.InventoryEvent) {
	defer d.wg.Done()
	depth := metrics.InventoryQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			depth.Set(float64(len(ch)))
			start := time.Now()
			err := d.handler.Process(ctx, ev)
			result := "ok"
			if err != nil {
				result = "error"
				d.log.Error().Err(err).
					Str("book_id", ev.BookID).
					Str("kind", ev.Kind).
					Int("worker_id", id).
					Msg("inventory event processing failed")
			}
			metrics.InventoryProcessingDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
		}
	}
}
