package helpdesk

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var log = logger.GetLogger("helpdesk")

var (
	submitted = metrics.NewCounter(`dodm_helpdesk_requests_total{op="submit"}`)
	served    = metrics.NewCounter(`dodm_helpdesk_requests_total{op="serve"}`)
	failed    = metrics.NewCounter(`dodm_helpdesk_handler_errors_total`)
)

// epoch and span define the tie-break fraction: seconds since epoch mapped onto [0, 1),
// decreasing over time. Priorities up to 2^20 keep full second resolution in a float64 score.
var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

const span = float64(1 << 32)

// Handler processes one served request
type Handler func(ctx context.Context, requesterID string) error

// IQueue is a priority ordered request queue. Higher priorities are served first; among equal
// priorities the earliest submission wins.
type IQueue interface {
	// Submit enqueues a request. Submitting again for the same requester replaces the priority
	// and counts as a new submission for the tie-break.
	Submit(ctx context.Context, requesterID string, priority int64) (err error)

	// ServeNext removes and returns the request with the highest priority. It blocks while the
	// queue is empty; cancelling ctx is the only way to stop waiting.
	ServeNext(ctx context.Context) (requesterID string, err error)

	// Len returns the number of waiting requests
	Len(ctx context.Context) (n int64, err error)

	// Run serves requests until ctx is cancelled, passing each to handler. Handler errors are
	// logged and do not stop the loop. A request popped after ctx was cancelled is put back
	// with its original score. Run blocks; start it on its own goroutine.
	Run(ctx context.Context, handler Handler) (err error)
}

// Options configures a queue
type Options struct {
	Clock func() time.Time // Time source for the tie-break (nil = time.Now)
}

type queueImpl struct {
	store cache.ICacheStore
	clock func() time.Time
}

// NewQueue creates a queue on the shared ordered set "sessions:helpdesk_queue"
func NewQueue(store cache.ICacheStore, opts *Options) IQueue {
	q := &queueImpl{store: store, clock: time.Now}
	if opts != nil && opts.Clock != nil {
		q.clock = opts.Clock
	}
	return q
}

// score combines the priority with a fraction that shrinks with the submission time
func score(priority int64, at time.Time) float64 {
	elapsed := float64(at.Sub(epoch) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= span {
		elapsed = span - 1
	}
	return float64(priority) + (span-elapsed-1)/span
}

// --------------------------------------------------------------------------
// Interface Methods (docu see helpdesk.IQueue)
// --------------------------------------------------------------------------

func (q *queueImpl) Submit(ctx context.Context, requesterID string, priority int64) error {
	if requesterID == "" {
		return errors.New("requester id must not be empty")
	}
	if err := q.store.ZAdd(ctx, cache.HelpdeskQueueKey, requesterID, score(priority, q.clock())); err != nil {
		return fmt.Errorf("submit %s: %w", requesterID, err)
	}
	submitted.Inc()
	log.Debugf("request from %s queued with priority %d", requesterID, priority)
	return nil
}

func (q *queueImpl) ServeNext(ctx context.Context) (string, error) {
	member, _, err := q.store.BZPopMax(ctx, cache.HelpdeskQueueKey)
	if err != nil {
		return "", err
	}
	served.Inc()
	return member, nil
}

func (q *queueImpl) Len(ctx context.Context) (int64, error) {
	return q.store.ZCard(ctx, cache.HelpdeskQueueKey)
}

func (q *queueImpl) Run(ctx context.Context, handler Handler) error {
	log.Infof("helpdesk worker started")
	defer log.Infof("helpdesk worker stopped")

	for {
		requesterID, score, err := q.store.BZPopMax(ctx, cache.HelpdeskQueueKey)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		// stopped between the pop and the handler: the request goes back with its old score
		if ctx.Err() != nil {
			return q.requeue(ctx, requesterID, score)
		}
		served.Inc()

		if err := handler(ctx, requesterID); err != nil {
			failed.Inc()
			log.Errorf("failed to handle request from %s: %v", requesterID, err)
		}
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// requeue puts back a popped request with its original score
func (q *queueImpl) requeue(ctx context.Context, requesterID string, score float64) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := q.store.ZAdd(ctx, cache.HelpdeskQueueKey, requesterID, score); err != nil {
		log.Errorf("failed to return request from %s to the queue: %v", requesterID, err)
		return fmt.Errorf("requeue %s: %w", requesterID, err)
	}
	log.Infof("request from %s returned to the queue", requesterID)
	return nil
}
