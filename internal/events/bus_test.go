package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSlot    = "confide:test:events"
	testChannel = "confide:test:changed"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestEmitDispatchesToLocalSubscribers(t *testing.T) {
	bus := New(nil, testSlot, testChannel)

	var got []Event
	bus.Subscribe(TypeNewMessage, func(e Event) { got = append(got, e) })

	bus.Emit(context.Background(), Event{
		Type: TypeNewMessage,
		Data: EventData{ConversationID: 7, MessageID: 3},
	})

	require.Len(t, got, 1)
	assert.Equal(t, uint(7), got[0].Data.ConversationID)
	assert.NotEmpty(t, got[0].ID)
	assert.NotZero(t, got[0].Data.Timestamp)
}

func TestSubscribeWildcardAndUnsubscribe(t *testing.T) {
	bus := New(nil, testSlot, testChannel)

	var typed, wildcard int
	unsubTyped := bus.Subscribe(TypeMessagesRead, func(Event) { typed++ })
	bus.Subscribe(TypeAny, func(Event) { wildcard++ })

	bus.Emit(context.Background(), Event{Type: TypeMessagesRead})
	bus.Emit(context.Background(), Event{Type: TypeNewMessage})
	assert.Equal(t, 1, typed)
	assert.Equal(t, 2, wildcard)

	unsubTyped()
	bus.Emit(context.Background(), Event{Type: TypeMessagesRead})
	assert.Equal(t, 1, typed)
	assert.Equal(t, 3, wildcard)
}

func TestHandlerPanicDoesNotStopDispatch(t *testing.T) {
	bus := New(nil, testSlot, testChannel)

	var survived bool
	bus.Subscribe(TypeNewMessage, func(Event) { panic("boom") })
	bus.Subscribe(TypeAny, func(Event) { survived = true })

	bus.Emit(context.Background(), Event{Type: TypeNewMessage})
	assert.True(t, survived)
}

func TestCrossContextDelivery(t *testing.T) {
	ctx := context.Background()
	rdb := testRedis(t)

	emitter := New(rdb, testSlot, testChannel)
	observer := New(rdb, testSlot, testChannel)
	require.NoError(t, observer.Start(ctx))
	defer observer.Close()

	var received atomic.Int64
	var last atomic.Value
	observer.Subscribe(TypeNewMessage, func(e Event) {
		last.Store(e)
		received.Add(1)
	})

	emitter.Emit(ctx, Event{Type: TypeNewMessage, Data: EventData{ConversationID: 42}})

	require.Eventually(t, func() bool { return received.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	got := last.Load().(Event)
	assert.Equal(t, uint(42), got.Data.ConversationID)
}

func TestEmitterDoesNotReceiveItsOwnEvents(t *testing.T) {
	ctx := context.Background()
	rdb := testRedis(t)

	bus := New(rdb, testSlot, testChannel)
	require.NoError(t, bus.Start(ctx))
	defer bus.Close()

	var count atomic.Int64
	bus.Subscribe(TypeNewMessage, func(Event) { count.Add(1) })

	bus.Emit(ctx, Event{Type: TypeNewMessage, Data: EventData{ConversationID: 1}})

	// Local dispatch exactly once; the broadcast loop must skip its own
	// notification rather than double-deliver.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(1), count.Load())
}

func TestRingCappedAtLimit(t *testing.T) {
	ctx := context.Background()
	rdb := testRedis(t)

	bus := New(rdb, testSlot, testChannel)
	for i := 0; i < ringCap+50; i++ {
		bus.Emit(ctx, Event{Type: TypeNewMessage, Data: EventData{ConversationID: uint(i)}})
	}

	length, err := rdb.LLen(ctx, testSlot).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(ringCap), length)
}

func TestReconcileReplaysMissedEventOnce(t *testing.T) {
	ctx := context.Background()
	rdb := testRedis(t)

	emitter := New(rdb, testSlot, testChannel)
	// Observer never started: it misses the published notification and
	// depends entirely on polling.
	observer := New(rdb, testSlot, testChannel)

	var count atomic.Int64
	observer.Subscribe(TypeNewMessage, func(Event) { count.Add(1) })

	emitter.Emit(ctx, Event{Type: TypeNewMessage, Data: EventData{ConversationID: 9}})

	observer.Reconcile(ctx)
	assert.Equal(t, int64(1), count.Load())

	// Replaying the same head again is a no-op.
	observer.Reconcile(ctx)
	assert.Equal(t, int64(1), count.Load())
}

func TestReconcileSkipsOwnNewestEvent(t *testing.T) {
	ctx := context.Background()
	rdb := testRedis(t)

	bus := New(rdb, testSlot, testChannel)
	var count atomic.Int64
	bus.Subscribe(TypeNewMessage, func(Event) { count.Add(1) })

	bus.Emit(ctx, Event{Type: TypeNewMessage})
	require.Equal(t, int64(1), count.Load())

	bus.Reconcile(ctx)
	assert.Equal(t, int64(1), count.Load())
}

func TestBusWithoutMediumIsLocalOnly(t *testing.T) {
	bus := New(nil, testSlot, testChannel)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Close()

	var count int
	bus.Subscribe(TypeAny, func(Event) { count++ })
	bus.Emit(context.Background(), Event{Type: TypeNewMessage})
	bus.Reconcile(context.Background())

	assert.Equal(t, 1, count)
}
