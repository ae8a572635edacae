// Package correlator implements sequence-number generation,
// the sync pending table, the async callback table, and the dispatch
// routing rule that ties inbound frames back to the caller (or callback)
// that is waiting for them.
//
// A buffered channel stands in for a mutex+flag+condition-variable pair:
// it is already a single-shot condition variable with its own "ready"
// flag and payload slot.
package correlator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailu123/x30-nav-sdk/internal/safecallback"
	"github.com/tailu123/x30-nav-sdk/internal/wire"
)

// ErrSeqCollision is returned by RegisterSync/RegisterAsync when an entry
// already exists for the generated sequence number.
var ErrSeqCollision = errors.New("correlator: sequence number already pending")

// ErrTimeout is returned by Wait when the deadline elapses before a
// response arrives.
var ErrTimeout = errors.New("correlator: request timed out")

// ErrShutdown is returned by Wait when Shutdown unblocks the waiter.
var ErrShutdown = errors.New("correlator: connection shut down")

// syncResult is the value carried over a pendingSync's channel.
type syncResult struct {
	msg *wire.Message
	err error
}

// pendingSync is one sync pending table entry.
type pendingSync struct {
	expectedType wire.MessageType
	done         chan syncResult // buffered 1: at most one sender ever writes.
}

// Wait blocks until a response arrives, the deadline elapses, or the
// correlator is shut down.
func (p *pendingSync) Wait(timeout time.Duration) (*wire.Message, error) {
	select {
	case r := <-p.done:
		if r.err != nil {
			return nil, r.err
		}
		return r.msg, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// Correlator owns the sequence generator, the sync pending table, and the
// async callback table, and routes inbound messages between them.
// *navsdk.Client creates a fresh Correlator on every successful Connect, so
// the sequence counter and both tables belong to one connection.
type Correlator struct {
	seq atomic.Uint32

	syncMu    sync.Mutex
	syncTable map[uint16]*pendingSync

	asyncMu    sync.Mutex
	asyncTable map[uint16]func(*wire.Message)

	shim *safecallback.Shim
	log  *slog.Logger
}

// New returns a Correlator that trampolines async dispatch through shim and
// logs through log.
func New(shim *safecallback.Shim, log *slog.Logger) *Correlator {
	return &Correlator{
		syncTable:  make(map[uint16]*pendingSync),
		asyncTable: make(map[uint16]func(*wire.Message)),
		shim:       shim,
		log:        log,
	}
}

// NextSeq returns the next correlation id. Per-instance, monotonically
// increasing, wraps at 2^16.
func (c *Correlator) NextSeq() uint16 {
	return uint16(c.seq.Add(1))
}

// RegisterSync adds a sync pending table entry for seq, expecting a
// response of type expectedType.
func (c *Correlator) RegisterSync(seq uint16, expectedType wire.MessageType) (*pendingSync, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	if _, exists := c.syncTable[seq]; exists {
		return nil, fmt.Errorf("%w: seq=%d", ErrSeqCollision, seq)
	}
	entry := &pendingSync{expectedType: expectedType, done: make(chan syncResult, 1)}
	c.syncTable[seq] = entry
	return entry, nil
}

// DropSync removes the sync pending table entry for seq, if any. Callers
// must defer this immediately after RegisterSync succeeds.
func (c *Correlator) DropSync(seq uint16) {
	c.syncMu.Lock()
	delete(c.syncTable, seq)
	c.syncMu.Unlock()
}

// RegisterAsync adds an async callback table entry for seq. cb is invoked
// at most once, off the caller's goroutine, through the safe-callback shim.
func (c *Correlator) RegisterAsync(seq uint16, cb func(*wire.Message)) error {
	c.asyncMu.Lock()
	defer c.asyncMu.Unlock()

	if _, exists := c.asyncTable[seq]; exists {
		return fmt.Errorf("%w: seq=%d", ErrSeqCollision, seq)
	}
	c.asyncTable[seq] = cb
	return nil
}

// Dispatch routes an inbound message to exactly one of the two tables. It
// never blocks on a user callback — that runs through the safe-callback
// shim — and never holds a lock across one.
func (c *Correlator) Dispatch(msg *wire.Message) {
	if msg.Type == wire.TypeStartNavTask {
		c.asyncMu.Lock()
		cb, ok := c.asyncTable[msg.Seq]
		if ok {
			delete(c.asyncTable, msg.Seq)
		}
		c.asyncMu.Unlock()

		if !ok {
			c.log.Debug("dropping unsolicited nav-task response", "seq", msg.Seq)
			return
		}
		c.shim.Invoke(func() { cb(msg) })
		return
	}

	c.syncMu.Lock()
	entry, ok := c.syncTable[msg.Seq]
	if ok && entry.expectedType == msg.Type {
		delete(c.syncTable, msg.Seq)
	} else {
		ok = false
	}
	c.syncMu.Unlock()

	if !ok {
		c.log.Debug("dropping unmatched message", "seq", msg.Seq, "type", msg.Type)
		return
	}

	// entry.done is buffered 1 and has exactly one writer (this dispatch,
	// since the entry was already removed from the table above), so this
	// never blocks even if the waiter already gave up on timeout.
	entry.done <- syncResult{msg: msg}
}

// Shutdown unblocks every outstanding sync waiter with ErrShutdown and
// drops every outstanding async callback without invoking it, bounding
// shutdown latency to zero regardless of how many requests are in flight.
func (c *Correlator) Shutdown() {
	c.syncMu.Lock()
	for seq, entry := range c.syncTable {
		entry.done <- syncResult{err: ErrShutdown}
		delete(c.syncTable, seq)
	}
	c.syncMu.Unlock()

	c.asyncMu.Lock()
	dropped := len(c.asyncTable)
	c.asyncTable = make(map[uint16]func(*wire.Message))
	c.asyncMu.Unlock()

	if dropped > 0 {
		c.log.Warn("dropped outstanding async callbacks on shutdown", "count", dropped)
	}
}
