package tokenAuth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves events off the request path onto a single delivery goroutine.
//
// With DropIfFull a full queue drops info and warning events and counts them.
// Critical events (refresh reuse, revoked token presented) always wait for room, bounded
// by the caller's context.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	queue      chan AuditEvent

	mu      sync.RWMutex
	closed  bool
	drained chan struct{}
	dropped atomic.Uint64
}

// newAuditDispatcher returns nil, a no-op dispatcher, when audit is off or has no sink.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled || sink == nil {
		return nil
	}
	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		drained:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.drained)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver counts a panicking sink as a drop and keeps the goroutine alive.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if recover() != nil {
			d.dropped.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull && event.Severity != AuditCritical {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and waits until the queue has been delivered. It is
// safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.drained
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
