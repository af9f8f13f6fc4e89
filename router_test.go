package eventrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(*Event) EventHandlerRet { return Handled }

func singleTaskOptions() Options {
	return Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 2, Modules: []ModuleConfig{{Name: "A", Handler: noopHandler}}},
		},
	}
}

func TestNew_DispatchesToRequestedBackend(t *testing.T) {
	for _, backend := range []Backend{Preemptive, BlockingQueues, Cooperative} {
		r, err := New(backend, singleTaskOptions())
		require.NoError(t, err)
		require.NotNil(t, r)
	}
}

func TestDeinit_TwiceAsserts(t *testing.T) {
	r, err := NewBlockingQueuesRouter(singleTaskOptions())
	require.NoError(t, err)
	require.NoError(t, r.Deinit())
	assert.Panics(t, func() { _ = r.Deinit() })
}

func TestOptions_RejectsEmptyRangeAndTasks(t *testing.T) {
	_, err := NewBlockingQueuesRouter(Options{EventTypeFirst: 5, EventTypeLast: 1, Tasks: []TaskConfig{{Modules: []ModuleConfig{{Handler: noopHandler}}}}})
	assert.ErrorIs(t, err, ErrInvalidEventRange)

	_, err = NewBlockingQueuesRouter(Options{EventTypeFirst: 0, EventTypeLast: 1})
	assert.ErrorIs(t, err, ErrNoTasks)

	_, err = NewBlockingQueuesRouter(Options{EventTypeFirst: 0, EventTypeLast: 1, Tasks: []TaskConfig{{Name: "empty"}}})
	assert.ErrorIs(t, err, ErrTaskHasNoModules)
}

func TestOptions_RejectsTooManyTasks(t *testing.T) {
	tasks := make([]TaskConfig, maxTasks+1)
	for i := range tasks {
		tasks[i] = TaskConfig{Modules: []ModuleConfig{{Handler: noopHandler}}}
	}
	_, err := NewBlockingQueuesRouter(Options{EventTypeFirst: 0, EventTypeLast: 1, Tasks: tasks})
	assert.ErrorIs(t, err, ErrTooManyTasks)
}

func TestSend_RejectsSelfSubscription(t *testing.T) {
	r, err := NewBlockingQueuesRouter(Options{
		EventTypeFirst: 0,
		EventTypeLast:  0,
		Tasks: []TaskConfig{
			{Name: "t1", QueueCapacity: 2, Modules: []ModuleConfig{{Name: "A", Handler: noopHandler}}},
		},
	})
	require.NoError(t, err)

	_, err = r.Subscribe(0, 0, 0)
	require.NoError(t, err)

	e := NewEvent(0, 0)
	assert.Panics(t, func() { _ = r.Send(0, e) })
}

func TestSend_RejectsResendWithoutAllowResending(t *testing.T) {
	r, err := NewBlockingQueuesRouter(singleTaskOptions())
	require.NoError(t, err)

	e := NewEvent(0, 0)
	require.NoError(t, r.Send(0, e))
	assert.Panics(t, func() { _ = r.Send(0, e) })
}
