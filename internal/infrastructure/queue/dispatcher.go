package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/marketsquare/auth-service/internal/api/metrics"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
)

// Dispatcher delivers emails in the background through a fixed set of
// workers, sharded by recipient so retries and sends to the same
// address stay ordered. Enqueue is best-effort: when a worker channel
// is full the job is dropped, matching the fire-and-forget contract of
// the flows that use it.
type Dispatcher struct {
	workers []chan ports.EmailJob
	sender  ports.EmailSender
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender ports.EmailSender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.EmailJob, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.EmailJob, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is
// cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a job to the worker responsible for its recipient. It
// never blocks; a saturated worker drops the job with a warning.
func (d *Dispatcher) Enqueue(job ports.EmailJob) {
	i := d.shardIndex(job.To)
	select {
	case d.workers[i] <- job:
		metrics.EmailsEnqueuedTotal.WithLabelValues(job.Template, "enqueued").Inc()
		metrics.EmailQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(len(d.workers[i])))
	default:
		metrics.EmailsEnqueuedTotal.WithLabelValues(job.Template, "dropped").Inc()
		d.log.Warn().Str("template", job.Template).Msg("email queue full, job dropped")
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.EmailJob) {
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			metrics.EmailQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
			if err := d.sender.Send(ctx, job); err != nil {
				d.log.Error().Err(err).
					Str("template", job.Template).
					Int("worker", id).
					Msg("email delivery failed")
			}
		}
	}
}
