// Package audit builds the append-only trail of authorization activity.
//
// Records are handed to a single worker goroutine through a buffered
// channel, so callers on the decision path never wait for sink writes.
// When the buffer is full the record is dropped and counted instead of
// blocking the caller.
package audit

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// DefaultBuffer is the channel capacity between callers and the worker
const DefaultBuffer = 1024

// Logger fans audit records out to its sinks from a background worker
type Logger struct {
	sinks  []types.RecordSink
	ch     chan types.Record
	quit   chan struct{}
	done   chan struct{}
	log    logr.Logger
	onDrop func()

	dropped   atomic.Uint64
	closeOnce sync.Once
}

// Option tweaks a Logger under construction
type Option func(*Logger)

// WithSink adds a destination for finished records
func WithSink(s types.RecordSink) Option {
	return func(l *Logger) {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
}

// WithBuffer resizes the channel between callers and the worker
func WithBuffer(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.ch = make(chan types.Record, n)
		}
	}
}

// OnDrop installs a callback invoked once per dropped record
func OnDrop(fn func()) Option {
	return func(l *Logger) {
		l.onDrop = fn
	}
}

// New creates an audit logger and starts its worker.
// The worker runs until Close is called or ctx is canceled; records are
// always reported to log, plus every sink added with WithSink.
func New(ctx context.Context, log logr.Logger, opts ...Option) *Logger {
	l := &Logger{
		ch:   make(chan types.Record, DefaultBuffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		log:  log,
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.run()
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-l.done:
		}
	}()

	return l
}

// Record queues one audit record, filling its ID and timestamp when unset.
// It never blocks: with a full buffer or a closed logger the record is
// dropped and counted.
func (l *Logger) Record(r types.Record) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}

	select {
	case <-l.quit:
		l.drop(r)
		return
	default:
	}

	select {
	case l.ch <- r:
	default:
		l.drop(r)
	}
}

// Dropped counts the records lost to a full buffer or a closed logger
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close drains queued records, closes closeable sinks, and stops the worker
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		close(l.quit)
	})
	<-l.done
	return nil
}

func (l *Logger) drop(r types.Record) {
	l.dropped.Add(1)
	if l.onDrop != nil {
		l.onDrop()
	}
	l.log.V(4).Info("audit buffer full, record dropped", "event", r.Event, "user", r.UserID)
}

func (l *Logger) run() {
	defer close(l.done)

	for {
		select {
		case r := <-l.ch:
			l.write(r)
		case <-l.quit:
			for {
				select {
				case r := <-l.ch:
					l.write(r)
				default:
					l.closeSinks()
					return
				}
			}
		}
	}
}

func (l *Logger) write(r types.Record) {
	l.log.V(4).Info("audit record",
		"id", r.ID,
		"event", r.Event,
		"user", r.UserID,
		"resource", string(r.ResourceType)+":"+r.ResourceID,
		"action", r.Action.String(),
		"result", r.Result,
	)

	var err error
	for _, s := range l.sinks {
		err = multierr.Append(err, s.Write(r))
	}
	if err != nil {
		l.log.Error(err, "write audit record", "id", r.ID, "event", r.Event)
	}
}

func (l *Logger) closeSinks() {
	var err error
	for _, s := range l.sinks {
		if c, ok := s.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	if err != nil {
		l.log.Error(err, "close audit sinks")
	}
}
