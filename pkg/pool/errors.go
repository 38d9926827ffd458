// Package pool implements the fixed-size isolated interpreter pool:
// N worker processes, each hosting one vm.VM at a time, dispatched
// FIFO, with crash-restart-and-resubmit semantics. See pkg/vm for the
// engine a worker runs and pkg/asm for the encoder that produces the
// scripts a Job carries.
package pool

import "errors"

var (
	// ErrJobTooLarge is returned (never panics the VM layer, which has
	// no errors at all — see pkg/vm's package doc) when a job's output
	// or input exceeds the wire size bounds a worker's fixed memory
	// regions can hold.
	ErrJobTooLarge = errors.New("pool: job exceeds size bound")

	// ErrQueueFull is returned to Submit's callback immediately when an
	// optional queue capacity is configured and already saturated. The
	// default, zero, is an unbounded queue.
	ErrQueueFull = errors.New("pool: queue is full")

	// ErrMalformedReply is surfaced to a job's callback, never to the
	// pool itself, when a worker's reply carries an error string (the
	// worker could not decode or validate the request). Such a reply
	// does not trigger a respawn. A reply frame that cannot be read or
	// decoded at all is treated as a worker death: the worker is
	// respawned and the job resubmitted.
	ErrMalformedReply = errors.New("pool: malformed worker reply")

	// ErrPoolClosed is delivered to a job's callback when the job is
	// submitted after Close, or is still in flight or queued when Close
	// is called.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrFrameTooLarge guards the length-prefixed wire protocol against
	// unbounded allocation from a hostile or corrupt peer.
	ErrFrameTooLarge = errors.New("pool: frame exceeds maximum size")
)
