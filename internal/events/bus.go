package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"confide/internal/middleware"
	"confide/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ringCap bounds the cross-context event ring; past it the oldest records drop.
const ringCap = 100

// Handler receives dispatched events. Handlers run synchronously on the
// emitting (or replaying) goroutine and must not block.
type Handler func(Event)

// Bus is the per-context event bus. Delivery is at-most-once and
// best-effort: a broadcast failure is logged and dropped, never retried,
// because the polling backstop reconciles within one interval.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[uint64]Handler
	nextID   uint64

	rdb      *redis.Client // nil: in-context delivery only
	slot     string
	channel  string
	originID string
	log      *slog.Logger

	// lastSeenID is the newest ring record already dispatched (or emitted)
	// in this context, so poll replays do not re-deliver it.
	replayMu   sync.Mutex
	lastSeenID string

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Bus. A nil Redis client disables the cross-context path;
// in-context dispatch still works.
func New(rdb *redis.Client, slot, channel string) *Bus {
	return &Bus{
		handlers: make(map[string]map[uint64]Handler),
		rdb:      rdb,
		slot:     slot,
		channel:  channel,
		originID: uuid.NewString(),
		log:      middleware.Logger,
	}
}

// Subscribe registers a handler for an event type (or TypeAny) and returns
// an unsubscribe function.
func (b *Bus) Subscribe(eventType string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.handlers[eventType]
	if !ok {
		m = make(map[uint64]Handler)
		b.handlers[eventType] = m
	}
	id := b.nextID
	b.nextID++
	m[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.handlers[eventType]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.handlers, eventType)
			}
		}
	}
}

// Emit dispatches the event to in-context subscribers, appends it to the
// cross-context ring, and notifies other contexts. Never blocks the caller
// on delivery and never returns an error for it.
func (b *Bus) Emit(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Data.Timestamp == 0 {
		e.Data.Timestamp = time.Now().UnixMilli()
	}

	observability.BusEventsEmitted.WithLabelValues(e.Type).Inc()
	b.dispatch(e)

	if b.rdb == nil {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		b.log.Error("event marshal failed", slog.String("type", e.Type), slog.String("error", err.Error()))
		return
	}

	b.replayMu.Lock()
	b.lastSeenID = e.ID
	b.replayMu.Unlock()

	pipe := b.rdb.Pipeline()
	pipe.LPush(ctx, b.slot, payload)
	pipe.LTrim(ctx, b.slot, 0, ringCap-1)
	pipe.Publish(ctx, b.channel, b.originID)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.BusBroadcastErrors.Inc()
		b.log.Warn("cross-context broadcast dropped", slog.String("type", e.Type), slog.String("error", err.Error()))
	}
}

// Start begins observing the change channel and replaying the newest ring
// entry from other contexts into local subscribers.
func (b *Bus) Start(ctx context.Context) error {
	if b.rdb == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	sub := b.rdb.Subscribe(ctx, b.channel)
	ch := sub.Channel()

	go func() {
		defer close(b.done)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				// The writing context already dispatched locally.
				if msg.Payload == b.originID {
					continue
				}
				b.replayNewest(ctx)
			}
		}
	}()

	return nil
}

// Reconcile replays the newest ring entry if this context hasn't seen it
// yet. The poller calls this as the backstop for lost notifications.
func (b *Bus) Reconcile(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	b.replayNewest(ctx)
}

// replayNewest reads the head of the ring and dispatches it locally.
func (b *Bus) replayNewest(ctx context.Context) {
	raw, err := b.rdb.LIndex(ctx, b.slot, 0).Result()
	if err != nil {
		if err != redis.Nil {
			b.log.Warn("event ring read failed", slog.String("error", err.Error()))
		}
		return
	}

	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		b.log.Warn("skipping unreadable event record", slog.String("error", err.Error()))
		return
	}

	b.replayMu.Lock()
	seen := e.ID == b.lastSeenID
	if !seen {
		b.lastSeenID = e.ID
	}
	b.replayMu.Unlock()
	if seen {
		return
	}

	observability.BusEventsReplayed.WithLabelValues(e.Type).Inc()
	b.dispatch(e)
}

// dispatch invokes type-matched handlers and wildcard handlers synchronously.
func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, 4)
	for _, h := range b.handlers[e.Type] {
		handlers = append(handlers, h)
	}
	for _, h := range b.handlers[TypeAny] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("panic in event handler",
						slog.String("type", e.Type),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
				}
			}()
			h(e)
		}()
	}
}

// Close stops the cross-context observer. In-context dispatch keeps working.
func (b *Bus) Close() {
	if b.cancel != nil {
		b.cancel()
		<-b.done
		b.cancel = nil
	}
}
