package memory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	appoutbox "staysync/internal/app/outbox"
	"staysync/internal/app/tasks"
	"staysync/internal/app/uow"
)

// Sink receives committed event records.
type Sink interface {
	Enqueue(rec appoutbox.EventRecord)
}

// Outbox hands records to its sink once the surrounding unit commits.
// Records added by a unit that rolls back are dropped.
type Outbox struct {
	sink Sink

	mu        sync.Mutex
	committed []appoutbox.EventRecord
}

func NewOutbox(sink Sink) *Outbox {
	return &Outbox{sink: sink}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	uow.AfterCommit(ctx, func(context.Context) {
		o.mu.Lock()
		o.committed = append(o.committed, record)
		o.mu.Unlock()
		if o.sink != nil {
			o.sink.Enqueue(record)
		}
	})
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

// Committed returns every record released so far.
func (o *Outbox) Committed() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.committed...)
}

// Dispatcher delivers records to the task router in-process.
type Dispatcher struct {
	Router  *tasks.Router
	Backoff []time.Duration
	Logger  *slog.Logger
	// Synchronous delivers inside Enqueue. Used by tests and one-shot CLI runs.
	Synchronous bool
	QueueSize   int

	queue    chan appoutbox.EventRecord
	done     chan struct{}
	once     sync.Once
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Int64
}

const defaultQueueSize = 1024

func (d *Dispatcher) init() {
	d.once.Do(func() {
		size := d.QueueSize
		if size <= 0 {
			size = defaultQueueSize
		}
		d.queue = make(chan appoutbox.EventRecord, size)
		d.done = make(chan struct{})
	})
}

func (d *Dispatcher) Enqueue(rec appoutbox.EventRecord) {
	if d.Synchronous {
		d.Deliver(context.Background(), rec)
		return
	}
	d.init()
	d.wg.Add(1)
	select {
	case d.queue <- rec:
	default:
		// queue full: never block the committing request
		go func() {
			select {
			case d.queue <- rec:
			case <-d.done:
				d.dropped.Add(1)
				d.wg.Done()
				if d.Logger != nil {
					d.Logger.Warn("dispatcher stopped, event dropped", "event", rec.Name, "id", rec.ID)
				}
			}
		}()
	}
}

// Run consumes the queue with the given number of workers until ctx is done.
// Records that overflowed the queue and are still waiting are then dropped.
func (d *Dispatcher) Run(ctx context.Context, workers int) {
	d.init()
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case rec := <-d.queue:
					d.Deliver(ctx, rec)
					d.wg.Done()
				}
			}
		}()
	}
	wg.Wait()
	d.stopOnce.Do(func() { close(d.done) })
}

// Dropped counts overflowed records discarded after Run returned.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Wait blocks until every enqueued record has been delivered.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Deliver runs every route for rec with per-route retries.
func (d *Dispatcher) Deliver(ctx context.Context, rec appoutbox.EventRecord) {
	deliverer := tasks.Deliverer{Router: d.Router, Backoff: d.Backoff, Logger: d.Logger}
	deliverer.Deliver(ctx, rec)
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ Sink             = (*Dispatcher)(nil)
)
