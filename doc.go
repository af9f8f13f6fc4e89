// Package eventrouter multiplexes immutable event objects from producer
// modules to subscriber modules across one or more cooperating tasks, and
// returns each event to its producer once every consumer has finished with
// it.
//
// Modules subscribe to event types and are addressed by an opaque handle.
// Events travel by pointer; the router never copies payloads. Three
// concurrency backends share the same subscription and reference-count
// machinery:
//
//   - Preemptive: each task owns a blocking queue; ISRs may send.
//   - BlockingQueues: identical dispatch algorithm to Preemptive, but queues
//     are mutex+condvar ring buffers instead of channels, for hosted OS
//     threads without an ISR concept.
//   - Cooperative: a single execution context delivers events from a
//     "deliver-now" list built from the previous loop's "deliver-next" list.
package eventrouter
