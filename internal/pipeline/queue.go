package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned when no slot is free for a new job.
	ErrQueueFull = errors.New("processing queue is full")
	// ErrQueueClosed is returned after Shutdown.
	ErrQueueClosed = errors.New("processing queue is shutting down")
)

// Job is a stored document waiting to be processed.
type Job struct {
	Key         string
	Handwritten bool
}

// JobState is the lifecycle of a queued job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobDone       JobState = "done"
	JobFailed     JobState = "failed"
)

// JobStatus is what callers can poll for a queued document.
type JobStatus struct {
	Key     string   `json:"key"`
	State   JobState `json:"state"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Error   string   `json:"error,omitempty"`

	finishedAt time.Time
	seq        uint64
}

func (s *JobStatus) finished() bool {
	return s.State == JobDone || s.State == JobFailed
}

// StoredProcessor processes a document by store key.
type StoredProcessor interface {
	ProcessStored(ctx context.Context, key string, handwritten bool) (*Outcome, error)
}

// Queue runs stored documents through a fixed pool of workers.
type Queue struct {
	proc    StoredProcessor
	log     logrus.FieldLogger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu          sync.Mutex
	closed      bool
	statuses    map[string]*JobStatus
	statusTTL   time.Duration
	maxStatuses int
	seq         uint64
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithStatusTTL sets how long a finished job stays visible to Status.
func WithStatusTTL(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.statusTTL = d
		}
	}
}

// WithMaxStatuses caps the finished jobs kept for Status; the oldest go first.
func WithMaxStatuses(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.maxStatuses = n
		}
	}
}

func WithQueueLogger(l logrus.FieldLogger) QueueOption {
	return func(q *Queue) { q.log = l }
}

// NewQueue starts the workers.
func NewQueue(proc StoredProcessor, opts ...QueueOption) *Queue {
	q := &Queue{
		proc:     proc,
		log:      logrus.StandardLogger(),
		workers:  2,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 32),
		statuses: make(map[string]*JobStatus),

		statusTTL:   time.Hour,
		maxStatuses: 1000,
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				log := q.log.WithField("worker_id", workerID)
				log.Debug("Worker started")

				for job := range q.ch {
					q.setState(job.Key, JobProcessing, nil, nil)

					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					out, err := q.proc.ProcessStored(ctx, job.Key, job.Handwritten)
					cancel()

					if err != nil {
						log.WithError(err).WithField("key", job.Key).Error("Processing failed")
						q.setState(job.Key, JobFailed, nil, err)
					} else {
						log.WithField("key", job.Key).Info("Processed document")
						q.setState(job.Key, JobDone, out, nil)
					}
				}

				log.Debug("Worker stopped")
			}(i + 1)
		}
	})
}

// Enqueue adds a job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.prune(time.Now())
	select {
	case q.ch <- job:
		q.statuses[job.Key] = &JobStatus{Key: job.Key, State: JobQueued}
		q.log.WithField("key", job.Key).Debug("Queued document for processing")
		return nil
	default:
		q.log.WithField("key", job.Key).Warn("Queue full, rejecting document")
		return ErrQueueFull
	}
}

// Status returns the state of a job, if it was ever queued.
func (q *Queue) Status(key string) (JobStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prune(time.Now())
	s, ok := q.statuses[key]
	if !ok {
		return JobStatus{}, false
	}
	return *s, true
}

func (q *Queue) setState(key string, state JobState, out *Outcome, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.statuses[key]
	if !ok {
		s = &JobStatus{Key: key}
		q.statuses[key] = s
	}
	s.State = state
	s.Outcome = out
	if err != nil {
		s.Error = err.Error()
	}
	if s.finished() {
		q.seq++
		s.finishedAt = time.Now()
		s.seq = q.seq
		q.prune(s.finishedAt)
	}
}

// prune drops finished jobs past the TTL, then the oldest finished ones over
// the cap. Queued and running jobs are never dropped. Caller holds mu.
func (q *Queue) prune(now time.Time) {
	var finished []*JobStatus
	for key, s := range q.statuses {
		if !s.finished() {
			continue
		}
		if now.Sub(s.finishedAt) > q.statusTTL {
			delete(q.statuses, key)
			continue
		}
		finished = append(finished, s)
	}
	if len(finished) <= q.maxStatuses {
		return
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].seq < finished[j].seq })
	for _, s := range finished[:len(finished)-q.maxStatuses] {
		delete(q.statuses, s.Key)
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.log.Warn("Queue shutdown interrupted by context")
	case <-done:
		q.log.Info("Queue drained, shutdown complete")
	}
}
