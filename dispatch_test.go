package eventrouter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler counts calls and optionally returns Kept on the first
// call, so tests can exercise handlers that suspend return-to-sender.
type recordingHandler struct {
	mu       sync.Mutex
	calls    []*Event
	keepOnce bool
	kept     bool
}

func (h *recordingHandler) handler(e *Event) EventHandlerRet {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, e)
	if h.keepOnce && !h.kept {
		h.kept = true
		return Kept
	}
	return Handled
}

func (h *recordingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// TestDispatch_SingleSubscriberSameTask: A and B share one task; B
// subscribes to X; A sends; after one receive/CallHandlers cycle B's
// handler runs, then A's.
func TestDispatch_SingleSubscriberSameTask(t *testing.T) {
	var a, b recordingHandler
	router, err := NewBlockingQueuesRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 4, Modules: []ModuleConfig{
				{Name: "A", Handler: a.handler},
				{Name: "B", Handler: b.handler},
			}},
		},
	})
	require.NoError(t, err)

	_, err = router.Subscribe(1, 0, 0)
	require.NoError(t, err)

	e := NewEvent(0, 0)
	require.NoError(t, router.Send(0, e))

	// Producer and subscriber share a task, so the dispatch mask and the
	// return-to-sender hop are the same task: a single queue entry
	// delivers to B and, within the same CallHandlers call, tail-calls
	// straight through to A's return-to-sender handler.
	popped, ok := router.TimedReceive(0, time.Second)
	require.True(t, ok)
	require.NoError(t, router.CallHandlers(0, popped))

	assert.Equal(t, 1, b.callCount())
	assert.Equal(t, 1, a.callCount())
	assert.False(t, router.EventIsInFlight(e))
}

// TestDispatch_CrossTaskDelivery: A lives on one task, C on another; C
// subscribes to X; A sends; the subscriber's task processes first, then the
// return hop lands back on A's task for its handler.
func TestDispatch_CrossTaskDelivery(t *testing.T) {
	var a, c recordingHandler
	router, err := NewBlockingQueuesRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1-hi", QueueCapacity: 4, Modules: []ModuleConfig{{Name: "A", Handler: a.handler}}},
			{Name: "t2-lo", QueueCapacity: 4, Modules: []ModuleConfig{{Name: "C", Handler: c.handler}}},
		},
	})
	require.NoError(t, err)

	_, err = router.Subscribe(1, 1, 0)
	require.NoError(t, err)

	e := NewEvent(0, 0)
	require.NoError(t, router.Send(0, e))

	popped, ok := router.TimedReceive(1, time.Second)
	require.True(t, ok)
	require.NoError(t, router.CallHandlers(1, popped))
	assert.Equal(t, 1, c.callCount())
	assert.Equal(t, 0, a.callCount())

	popped, ok = router.TimedReceive(0, time.Second)
	require.True(t, ok)
	require.NoError(t, router.CallHandlers(0, popped))
	assert.Equal(t, 1, a.callCount())
	assert.False(t, router.EventIsInFlight(e))
}

// TestDispatch_KeptEvent: B keeps the event on first delivery; A's handler
// must not run until B explicitly calls ReturnToSender.
func TestDispatch_KeptEvent(t *testing.T) {
	var a recordingHandler
	b := recordingHandler{keepOnce: true}
	router, err := NewBlockingQueuesRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 4, Modules: []ModuleConfig{
				{Name: "A", Handler: a.handler},
				{Name: "B", Handler: b.handler},
			}},
		},
	})
	require.NoError(t, err)

	_, err = router.Subscribe(1, 0, 0)
	require.NoError(t, err)

	e := NewEvent(0, 0)
	require.NoError(t, router.Send(0, e))

	popped, ok := router.TimedReceive(0, time.Second)
	require.True(t, ok)
	require.NoError(t, router.CallHandlers(0, popped))

	assert.Equal(t, 1, b.callCount())
	assert.Equal(t, 0, a.callCount())
	assert.True(t, router.EventIsInFlight(e))

	require.NoError(t, router.ReturnToSender(0, e))
	assert.Equal(t, 1, a.callCount())
	assert.False(t, router.EventIsInFlight(e))
}

// TestDispatch_ResendWhileInFlight: A resends e with AllowResending before
// the subscriber's task has processed the first copy; C should see two
// deliveries and A should still receive exactly one return.
func TestDispatch_ResendWhileInFlight(t *testing.T) {
	var a, c recordingHandler
	router, err := NewBlockingQueuesRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 4, Modules: []ModuleConfig{{Name: "A", Handler: a.handler}}},
			{Name: "t2", QueueCapacity: 4, Modules: []ModuleConfig{{Name: "C", Handler: c.handler}}},
		},
	})
	require.NoError(t, err)

	_, err = router.Subscribe(1, 1, 0)
	require.NoError(t, err)

	e := NewEvent(0, 0)
	require.NoError(t, router.Send(0, e))
	require.NoError(t, router.SendEx(0, e, true))

	for i := 0; i < 2; i++ {
		popped, ok := router.TimedReceive(1, time.Second)
		require.True(t, ok)
		require.NoError(t, router.CallHandlers(1, popped))
	}
	assert.Equal(t, 2, c.callCount())

	popped, ok := router.TimedReceive(0, time.Second)
	require.True(t, ok)
	require.NoError(t, router.CallHandlers(0, popped))
	assert.Equal(t, 1, a.callCount())
	assert.False(t, router.EventIsInFlight(e))
}

// TestDispatch_UnsubscribeBetweenEnqueueAndDispatch: D unsubscribes after
// A's Send has already queued the event to D's task, before that task's
// loop runs; only C's handler fires.
func TestDispatch_UnsubscribeBetweenEnqueueAndDispatch(t *testing.T) {
	var a, c, d recordingHandler
	router, err := NewBlockingQueuesRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 4, Modules: []ModuleConfig{{Name: "A", Handler: a.handler}}},
			{Name: "t2", QueueCapacity: 4, Modules: []ModuleConfig{
				{Name: "C", Handler: c.handler},
				{Name: "D", Handler: d.handler},
			}},
		},
	})
	require.NoError(t, err)

	_, err = router.Subscribe(1, 1, 0)
	require.NoError(t, err)
	dSub, err := router.Subscribe(2, 1, 0)
	require.NoError(t, err)

	e := NewEvent(0, 0)
	require.NoError(t, router.Send(0, e))

	require.NoError(t, router.Unsubscribe(1, dSub))

	popped, ok := router.TimedReceive(1, time.Second)
	require.True(t, ok)
	require.NoError(t, router.CallHandlers(1, popped))

	assert.Equal(t, 1, c.callCount())
	assert.Equal(t, 0, d.callCount())
}

// TestDispatch_ZeroSubscribers: nobody subscribes to X; A still receives
// exactly one return-to-sender call.
func TestDispatch_ZeroSubscribers(t *testing.T) {
	var a recordingHandler
	router, err := NewBlockingQueuesRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 4, Modules: []ModuleConfig{{Name: "A", Handler: a.handler}}},
		},
	})
	require.NoError(t, err)

	e := NewEvent(0, 0)
	require.NoError(t, router.Send(0, e))

	popped, ok := router.TimedReceive(0, time.Second)
	require.True(t, ok)
	require.NoError(t, router.CallHandlers(0, popped))

	assert.Equal(t, 1, a.callCount())
	assert.False(t, router.EventIsInFlight(e))
}

// TestDispatch_SubscribeThenUnsubscribeIsNoOp: the matrix state after
// Subscribe-then-Unsubscribe must be indistinguishable from never having
// subscribed.
func TestDispatch_SubscribeThenUnsubscribeIsNoOp(t *testing.T) {
	var a, b recordingHandler
	router, err := NewBlockingQueuesRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 4, Modules: []ModuleConfig{
				{Name: "A", Handler: a.handler},
				{Name: "B", Handler: b.handler},
			}},
		},
	})
	require.NoError(t, err)

	sub, err := router.Subscribe(1, 0, 0)
	require.NoError(t, err)
	require.NoError(t, router.Unsubscribe(0, sub))

	assert.False(t, router.core.reg.subs.testModule(1, 0))
	assert.False(t, router.core.reg.subs.testTask(0, 0))
}

// TestDispatch_Preemptive_RunLoop exercises the Preemptive backend's
// goroutine-per-task Run driver end-to-end: each task runs a loop that pops
// from its queue and calls CallHandlers.
func TestDispatch_Preemptive_RunLoop(t *testing.T) {
	var a, c recordingHandler
	router, err := NewPreemptiveRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 4, Modules: []ModuleConfig{{Name: "A", Handler: a.handler}}},
			{Name: "t2", QueueCapacity: 4, Modules: []ModuleConfig{{Name: "C", Handler: c.handler}}},
		},
	})
	require.NoError(t, err)

	_, err = router.Subscribe(1, 1, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx, 0) }()
	go func() { _ = router.Run(ctx, 1) }()

	e := NewEvent(0, 0)
	require.NoError(t, router.Send(0, e))

	assert.Eventually(t, func() bool {
		return a.callCount() == 1 && c.callCount() == 1 && !router.EventIsInFlight(e)
	}, 2*time.Second, time.Millisecond)
}
