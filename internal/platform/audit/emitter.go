package audit

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EmitterConfig sizes the asynchronous writer.
type EmitterConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

// Emitter is a best-effort asynchronous Recorder. Entries for the same
// entity hash to the same worker, so one entity's history is persisted in
// the order it was recorded. Persistence failures are logged and dropped.
type Emitter struct {
	repo    Repository
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	shards []chan *Entry
	wg     sync.WaitGroup

	pending atomic.Int64
}

func NewEmitter(repo Repository, logger zerolog.Logger, cfg EmitterConfig) *Emitter {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	e := &Emitter{
		repo:    repo,
		logger:  logger.With().Str("component", "audit").Logger(),
		timeout: cfg.WriteTimeout,
		now:     func() time.Time { return time.Now().UTC() },
		shards:  make([]chan *Entry, cfg.Workers),
	}
	for i := range e.shards {
		e.shards[i] = make(chan *Entry, cfg.QueueSize)
	}
	e.wg.Add(len(e.shards))
	for _, ch := range e.shards {
		go e.work(ch)
	}
	return e
}

// Record stamps and enqueues entry. It never blocks on the store: when the
// target queue is full the entry is written to the log and dropped.
func (e *Emitter) Record(entry Entry) {
	if entry.TenantID == "" {
		e.logger.Error().
			Str("action", entry.Action).
			Str("entity_type", entry.EntityType).
			Str("entity_id", entry.EntityID).
			Msg("audit entry without tenant refused")
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = e.now()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.logDropped(&entry, "emitter closed")
		return
	}
	e.pending.Add(1)
	select {
	case e.shards[e.shardFor(&entry)] <- &entry:
	default:
		e.pending.Add(-1)
		e.logDropped(&entry, "queue full")
	}
}

// Pending reports entries accepted but not yet persisted.
func (e *Emitter) Pending() int {
	return int(e.pending.Load())
}

// Close stops accepting entries and waits for queued ones to be written or
// for ctx to expire.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		for _, ch := range e.shards {
			close(ch)
		}
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.logger.Warn().Int("pending", e.Pending()).Msg("audit drain interrupted")
		return ctx.Err()
	}
}

func (e *Emitter) shardFor(entry *Entry) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(entry.EntityType))
	_, _ = h.Write([]byte{'/'})
	_, _ = h.Write([]byte(entry.EntityID))
	return int(h.Sum32() % uint32(len(e.shards)))
}

func (e *Emitter) work(ch <-chan *Entry) {
	defer e.wg.Done()
	for entry := range ch {
		e.write(entry)
		e.pending.Add(-1)
	}
}

func (e *Emitter) write(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if err := e.repo.Append(ctx, entry); err != nil {
		e.logger.Error().Err(err).
			Str("audit_id", entry.ID.String()).
			Str("tenant_id", entry.TenantID).
			Str("action", entry.Action).
			Str("entity_type", entry.EntityType).
			Str("entity_id", entry.EntityID).
			Msg("failed to persist audit entry")
	}
}

func (e *Emitter) logDropped(entry *Entry, reason string) {
	e.logger.Error().
		Str("reason", reason).
		Str("audit_id", entry.ID.String()).
		Str("tenant_id", entry.TenantID).
		Str("actor_id", entry.ActorID).
		Str("action", entry.Action).
		Str("entity_type", entry.EntityType).
		Str("entity_id", entry.EntityID).
		Time("timestamp", entry.Timestamp).
		Interface("metadata", entry.Metadata).
		Msg("audit_dropped")
}
