package eventrouter

import "github.com/google/uuid"

// newDiagnosticID mints a correlation identifier for a new Subscription.
func newDiagnosticID() uuid.UUID {
	return uuid.New()
}

// Subscription is a host-visible diagnostic handle returned by Subscribe.
// It carries a UUID so Subscribe/Unsubscribe calls and the optional
// observability stream can be correlated in logs; it is distinct from the
// module-bit state it causes to be set in the SubscriptionMatrix. Revoking
// it (via Unsubscribe) clears that module bit, so it also ends any other
// Subscription the same module holds for the same type.
type Subscription struct {
	ID     uuid.UUID
	Module ModuleHandle
	Type   EventType
}

// SubscriptionMatrix tracks which modules and tasks are subscribed to which
// event types. Module rows are owned exclusively by the module's task and
// mutated with plain bit ops; task rows are a cached OR of their
// modules' bits and are mutated across tasks with atomic bit ops, since
// Subscribe/Unsubscribe on one task's module can race a Send scanning
// another task's row.
type SubscriptionMatrix struct {
	numModules int
	numTasks   int
	numTypes   int

	moduleBits *BitMatrix
	taskBits   *BitMatrix
}

func newSubscriptionMatrix(numModules, numTasks, numTypes int) *SubscriptionMatrix {
	return &SubscriptionMatrix{
		numModules: numModules,
		numTasks:   numTasks,
		numTypes:   numTypes,
		moduleBits: NewBitMatrix(numModules, numTypes),
		taskBits:   NewBitMatrix(numTasks, numTypes),
	}
}

// subscribe sets the module's bit for typeIdx (non-atomic: only the
// owning task calls this) and ORs the task's bit (atomic: other tasks may
// be reading or writing their own rows concurrently).
func (m *SubscriptionMatrix) subscribe(mod ModuleHandle, task TaskHandle, typeIdx int) {
	m.moduleBits.Set(int(mod), typeIdx)
	m.taskBits.SetAtomic(int(task), typeIdx)
}

// unsubscribe clears the module's bit, then recomputes the task's bit from
// the OR of every module owned by that task, atomically clearing the task
// bit only if none of them remain subscribed. taskModules lists every
// module handle owned by task.
func (m *SubscriptionMatrix) unsubscribe(mod ModuleHandle, task TaskHandle, typeIdx int, taskModules []ModuleHandle) {
	m.moduleBits.Clear(int(mod), typeIdx)

	anySubscribed := false
	for _, other := range taskModules {
		if m.moduleBits.Test(int(other), typeIdx) {
			anySubscribed = true
			break
		}
	}
	if !anySubscribed {
		m.taskBits.ClearAtomic(int(task), typeIdx)
	}
}

// testTask atomically reports whether any module owned by task is
// subscribed to typeIdx.
func (m *SubscriptionMatrix) testTask(task TaskHandle, typeIdx int) bool {
	return m.taskBits.TestAtomic(int(task), typeIdx)
}

// testModule reports whether mod is subscribed to typeIdx. The read is
// unsynchronized: only the module's owning task mutates this row, and
// delivery runs on that same task.
func (m *SubscriptionMatrix) testModule(mod ModuleHandle, typeIdx int) bool {
	return m.moduleBits.Test(int(mod), typeIdx)
}
