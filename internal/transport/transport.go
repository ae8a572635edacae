// Package transport implements the single TCP connection to
// the navigation controller, its connect-timeout dial, a single-writer
// send loop, and a continuous receive loop that decodes frame headers and
// hands completed messages to a Dispatcher.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailu123/x30-nav-sdk/internal/frame"
	"github.com/tailu123/x30-nav-sdk/internal/wire"
)

// Transport connection states.
const (
	Disconnected int32 = iota
	Connecting
	Connected
)

// ErrNotConnected is returned by Send when the transport has no live
// connection.
var ErrNotConnected = errors.New("transport: not connected")

// sendQueueSize bounds the outbound frame buffer before Send blocks.
const sendQueueSize = 32

// Dispatcher receives fully-decoded inbound messages. internal/correlator
// implements this; transport depends only on the interface so it never
// imports correlator directly (constructor injection owned by
// pkg/navsdk.Client).
type Dispatcher interface {
	Dispatch(msg *wire.Message)
}

// Transport owns one TCP connection and the two goroutines (send, receive)
// that move frames across it.
type Transport struct {
	codec      wire.Codec
	dispatcher Dispatcher
	log        *slog.Logger

	// OnClose, if set, is invoked exactly once when the connection is lost —
	// detected by either sendLoop (write failure) or receiveLoop (read
	// failure), whichever notices first — and never when Disconnect is
	// called locally. pkg/navsdk uses this to drive correlator.Shutdown.
	OnClose func()

	state atomic.Int32

	mu       sync.Mutex // guards conn and the goroutine lifecycle below
	conn     net.Conn
	sendCh   chan []byte
	stopCh   chan struct{}
	wg       sync.WaitGroup
	closedMu sync.Once
}

// New returns a Transport that decodes inbound bodies with codec and routes
// decoded messages to dispatcher.
func New(codec wire.Codec, dispatcher Dispatcher, log *slog.Logger) *Transport {
	return &Transport{codec: codec, dispatcher: dispatcher, log: log}
}

// State returns the current connection state.
func (t *Transport) State() int32 {
	return t.state.Load()
}

// Connect dials host:port with the given timeout and starts the send/receive
// goroutines. Returns an error if already connected or connecting, or if the
// dial fails or times out.
func (t *Transport) Connect(ctx context.Context, host string, port int, timeout time.Duration) error {
	if !t.state.CompareAndSwap(Disconnected, Connecting) {
		return fmt.Errorf("transport: connect called while state is %d, want Disconnected", t.state.Load())
	}

	dialer := net.Dialer{Timeout: timeout}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.state.Store(Disconnected)
		return fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.sendCh = make(chan []byte, sendQueueSize)
	t.stopCh = make(chan struct{})
	t.closedMu = sync.Once{}
	t.mu.Unlock()

	t.wg.Add(2)
	go t.sendLoop()
	go t.receiveLoop()

	t.state.Store(Connected)
	t.log.Info("connected", "addr", addr)
	return nil
}

// Send encodes body into a frame under seq and queues it for the send loop.
// Returns ErrNotConnected if the transport has no live connection.
func (t *Transport) Send(body []byte, seq uint16) error {
	if t.state.Load() != Connected {
		return ErrNotConnected
	}
	f, err := frame.Encode(body, seq)
	if err != nil {
		return fmt.Errorf("transport: encode frame: %w", err)
	}

	t.mu.Lock()
	ch := t.sendCh
	t.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}

	select {
	case ch <- f:
		return nil
	case <-t.stopChSnapshot():
		return ErrNotConnected
	}
}

func (t *Transport) stopChSnapshot() chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCh
}

// Disconnect closes the connection and stops both goroutines. Idempotent:
// calling it more than once, or calling it after the connection was already
// lost, is a no-op.
func (t *Transport) Disconnect() {
	t.teardown(true)
	t.wg.Wait()
}

// teardown closes the connection and stop channel and transitions state to
// Disconnected. The actual close happens at most once, regardless of
// whether Disconnect, sendLoop, or receiveLoop wins the race to call it;
// whichever call loses the race is a no-op. OnClose fires only when this
// call performed the teardown and locallyInitiated is false — an explicit
// Disconnect never triggers it, and a failure detected by either I/O loop
// always does, whichever loop notices first.
//
// teardown itself never waits on t.wg, so sendLoop and receiveLoop call it
// inline, before their own deferred wg.Done runs; only Disconnect waits on
// t.wg, after teardown has returned. OnClose therefore runs on whichever I/O
// goroutine detected the loss, while that goroutine still counts in t.wg.
func (t *Transport) teardown(locallyInitiated bool) {
	fired := false
	t.closedMu.Do(func() {
		fired = true
		t.state.Store(Disconnected)
		t.mu.Lock()
		stop, conn := t.stopCh, t.conn
		t.mu.Unlock()

		if stop != nil {
			close(stop)
		}
		if conn != nil {
			conn.Close()
		}
	})
	if !fired {
		return
	}
	if locallyInitiated {
		t.log.Info("disconnected")
		return
	}
	t.log.Warn("connection lost")
	if t.OnClose != nil {
		t.OnClose()
	}
}

// sendLoop is the single writer of the connection: every outbound frame
// passes through this one goroutine, so no two goroutines ever call
// conn.Write concurrently. A write failure tears down the connection so
// that sync waiters blocked on a reply fail fast instead of waiting out
// the full request timeout.
func (t *Transport) sendLoop() {
	defer t.wg.Done()
	t.mu.Lock()
	conn, ch, stop := t.conn, t.sendCh, t.stopCh
	t.mu.Unlock()

	for {
		select {
		case f := <-ch:
			if _, err := conn.Write(f); err != nil {
				t.log.Error("write failed", "error", err)
				t.teardown(false)
				return
			}
		case <-stop:
			return
		}
	}
}

// receiveLoop reads exactly one frame at a time: a fixed 16-byte header,
// then exactly body_length bytes, handing the decoded message to the
// dispatcher. It exits and tears down the connection when the connection is
// lost, whether that loss was detected here or by sendLoop.
func (t *Transport) receiveLoop() {
	defer t.wg.Done()
	defer t.teardown(false)
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	for {
		var hdr [frame.HeaderSize]byte
		if _, err := io.ReadFull(conn, hdr[:]); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				t.log.Warn("header read failed", "error", err)
			}
			return
		}
		bodyLen, seq, err := frame.DecodeHeader(hdr)
		if err != nil {
			t.log.Error("invalid frame header", "error", err)
			return
		}
		body := make([]byte, bodyLen)
		if _, err := io.ReadFull(conn, body); err != nil {
			t.log.Warn("body read failed", "error", err)
			return
		}
		msgType, err := t.codec.PeekType(body)
		if err != nil {
			t.log.Warn("could not classify inbound body, dropping", "error", err)
			continue
		}
		t.dispatcher.Dispatch(&wire.Message{Type: msgType, Seq: seq, Body: body})
	}
}
