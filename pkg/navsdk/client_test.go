package navsdk

import (
	"net"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailu123/x30-nav-sdk/internal/frame"
)

// fakeServerConn is one accepted connection into a scripted fake server: it
// decodes exactly one frame (header + body) and lets the test script a
// response.
type fakeServerConn struct {
	conn net.Conn
}

func (f fakeServerConn) readRequest(t *testing.T) (seq uint16, body string) {
	var hdr [frame.HeaderSize]byte
	if _, err := readFull(f.conn, hdr[:]); err != nil {
		t.Fatalf("read header: %v", err)
	}
	bodyLen, seq, err := frame.DecodeHeader(hdr)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	buf := make([]byte, bodyLen)
	if _, err := readFull(f.conn, buf); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return seq, string(buf)
}

func (f fakeServerConn) reply(t *testing.T, seq uint16, body string) {
	out, err := frame.Encode([]byte(body), seq)
	if err != nil {
		t.Fatalf("encode reply: %v", err)
	}
	if _, err := f.conn.Write(out); err != nil {
		t.Fatalf("write reply: %v", err)
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// startFakeServer listens on loopback and runs handle once per accepted
// connection, in its own goroutine. Returns host/port to dial.
func startFakeServer(t *testing.T, handle func(fakeServerConn)) (string, int) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(fakeServerConn{conn: conn})
			}()
		}
	}()
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	var port int
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}
	return host, port
}

func connectClient(t *testing.T, host string, port int) *Client {
	c := New(Config{ConnectTimeout: time.Second, RequestTimeout: 200 * time.Millisecond})
	if !c.Connect(host, port) {
		t.Fatalf("Connect(%s:%d) returned false", host, port)
	}
	t.Cleanup(c.Disconnect)
	return c
}

// happy status.
func TestRequestRuntimeStatus_HappyPath(t *testing.T) {
	host, port := startFakeServer(t, func(f fakeServerConn) {
		seq, _ := f.readRequest(t)
		f.reply(t, seq, `<PatrolDevice><Type>1002</Type><Items><MotionState>1</MotionState><Electricity>73</Electricity></Items></PatrolDevice>`)
	})
	c := connectClient(t, host, port)

	got := c.RequestRuntimeStatus()
	if got.Code != StatusSuccess {
		t.Fatalf("Code = %v, want StatusSuccess", got.Code)
	}
	if got.Electricity != 73 {
		t.Errorf("Electricity = %d, want 73", got.Electricity)
	}
}

// cancel success and failure mapping.
func TestCancelNavTask_SuccessAndFailure(t *testing.T) {
	cases := []struct {
		errorCode string
		want      bool
	}{
		{"0", true},
		{"1", false},
	}
	for _, tc := range cases {
		host, port := startFakeServer(t, func(f fakeServerConn) {
			seq, _ := f.readRequest(t)
			f.reply(t, seq, `<PatrolDevice><Type>1004</Type><Items><ErrorCode>`+tc.errorCode+`</ErrorCode></Items></PatrolDevice>`)
		})
		c := connectClient(t, host, port)

		if got := c.CancelNavTask(); got != tc.want {
			t.Errorf("CancelNavTask() with ErrorCode=%s = %v, want %v", tc.errorCode, got, tc.want)
		}
	}
}

// start-nav async success, callback fires exactly once
// after a delayed server reply.
func TestStartNavTask_AsyncSuccess(t *testing.T) {
	host, port := startFakeServer(t, func(f fakeServerConn) {
		seq, body := f.readRequest(t)
		if !strings.Contains(body, "<Type>1003</Type>") {
			t.Errorf("request body %q missing Type 1003", body)
		}
		time.Sleep(50 * time.Millisecond)
		f.reply(t, seq, `<PatrolDevice><Type>1003</Type><Items><Value>1</Value><ErrorCode>0</ErrorCode><ErrorStatus>0</ErrorStatus></Items></PatrolDevice>`)
	})
	c := connectClient(t, host, port)

	var mu sync.Mutex
	calls := 0
	var got NavigationResult
	done := make(chan struct{})

	c.StartNavTask([]NavigationPoint{{MapID: 1, Value: 1}}, func(r NavigationResult) {
		mu.Lock()
		calls++
		got = r
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callback fired %d times, want 1", calls)
	}
	if got.Code != NavSuccess || got.ErrorStatus != 0 {
		t.Errorf("got %+v, want {Code:NavSuccess ErrorStatus:0}", got)
	}
}

// no reply before request_timeout yields Timeout.
func TestRequestRuntimeStatus_Timeout(t *testing.T) {
	host, port := startFakeServer(t, func(f fakeServerConn) {
		f.readRequest(t)
		// Never reply.
		time.Sleep(time.Second)
	})
	c := connectClient(t, host, port)

	got := c.RequestRuntimeStatus()
	if got.Code != StatusTimeout {
		t.Fatalf("Code = %v, want StatusTimeout", got.Code)
	}
}

// peer closes the socket while a call is outstanding.
func TestRequestRuntimeStatus_PeerCloseDuringWait(t *testing.T) {
	host, port := startFakeServer(t, func(f fakeServerConn) {
		f.readRequest(t)
		f.conn.Close()
	})
	c := New(Config{ConnectTimeout: time.Second, RequestTimeout: time.Second})
	if !c.Connect(host, port) {
		t.Fatal("Connect returned false")
	}
	defer c.Disconnect()

	got := c.RequestRuntimeStatus()
	if got.Code != StatusNotConnected {
		t.Fatalf("Code = %v, want StatusNotConnected", got.Code)
	}

	time.Sleep(50 * time.Millisecond) // let OnClose run.
	if c.IsConnected() {
		t.Error("IsConnected() = true after peer close, want false")
	}

	// A subsequent blocking call short-circuits to NotConnected.
	if got := c.RequestRuntimeStatus(); got.Code != StatusNotConnected {
		t.Errorf("second call Code = %v, want StatusNotConnected", got.Code)
	}
}

// server sends a frame header with a corrupted sync literal instead of a
// reply: the connection tears down and the blocked sync waiter fails
// without ever reaching the codec, rather than hanging until the call
// times out.
func TestRequestRuntimeStatus_BadSyncTearsDownConnection(t *testing.T) {
	host, port := startFakeServer(t, func(f fakeServerConn) {
		f.readRequest(t)
		badHeader := make([]byte, frame.HeaderSize)
		badHeader[0], badHeader[1], badHeader[2], badHeader[3] = 0xFF, 0xFF, 0xFF, 0xFF
		f.conn.Write(badHeader)
	})
	c := New(Config{ConnectTimeout: time.Second, RequestTimeout: time.Second})
	if !c.Connect(host, port) {
		t.Fatal("Connect returned false")
	}
	defer c.Disconnect()

	start := time.Now()
	got := c.RequestRuntimeStatus()
	elapsed := time.Since(start)

	if got.Code != StatusNotConnected {
		t.Fatalf("Code = %v, want StatusNotConnected", got.Code)
	}
	if elapsed >= time.Second {
		t.Errorf("RequestRuntimeStatus took %v, want well under the 1s RequestTimeout: a bad sync literal should fail fast", elapsed)
	}

	time.Sleep(50 * time.Millisecond) // let OnClose run.
	if c.IsConnected() {
		t.Error("IsConnected() = true after a bad sync literal, want false")
	}
}

// StartNavTask with no waypoints rejects with InvalidParam via the
// callback, not synchronously.
func TestStartNavTask_EmptyPointsRejected(t *testing.T) {
	host, port := startFakeServer(t, func(f fakeServerConn) {})
	c := connectClient(t, host, port)

	done := make(chan NavigationResult, 1)
	c.StartNavTask(nil, func(r NavigationResult) { done <- r })

	select {
	case got := <-done:
		if got.Code != NavInvalidParam {
			t.Errorf("Code = %v, want NavInvalidParam", got.Code)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestRequestRuntimeStatus_NotConnected(t *testing.T) {
	c := New(DefaultConfig())
	got := c.RequestRuntimeStatus()
	if got.Code != StatusNotConnected {
		t.Fatalf("Code = %v, want StatusNotConnected", got.Code)
	}
}

// N concurrent blocking callers each get their own
// correlated reply even though the server answers in reverse order.
func TestConcurrentCallers_CorrelateIndependently(t *testing.T) {
	host, port := startFakeServer(t, func(f fakeServerConn) {
		type pending struct {
			seq  uint16
			body string
		}
		var reqs []pending
		for i := 0; i < 5; i++ {
			seq, _ := f.readRequest(t)
			reqs = append(reqs, pending{seq: seq})
		}
		for i := len(reqs) - 1; i >= 0; i-- {
			f.reply(t, reqs[i].seq, `<PatrolDevice><Type>1002</Type><Items><Electricity>`+strconv.Itoa(int(reqs[i].seq))+`</Electricity></Items></PatrolDevice>`)
		}
	})
	c := connectClient(t, host, port)

	var wg sync.WaitGroup
	results := make([]RuntimeStatus, 5)
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.RequestRuntimeStatus()
		}()
	}
	wg.Wait()

	// The server stamps each reply's Electricity with the request's seq, so
	// correlated replies carry pairwise distinct values.
	seen := make(map[int]int)
	for i, r := range results {
		if r.Code != StatusSuccess {
			t.Errorf("caller %d: Code = %v, want StatusSuccess", i, r.Code)
		}
		if j, dup := seen[r.Electricity]; dup {
			t.Errorf("callers %d and %d both got the reply for seq %d", j, i, r.Electricity)
		}
		seen[r.Electricity] = i
	}
}

// Each peer-initiated disconnect must fully release its Transport's
// send/receive goroutines and socket, not just mark the Client disconnected
// — otherwise every reconnect after a peer close leaks the previous
// connection's goroutines.
func TestReconnectAfterPeerClose_ReleasesOldConnection(t *testing.T) {
	host, port := startFakeServer(t, func(f fakeServerConn) {
		f.conn.Close()
	})
	c := New(Config{ConnectTimeout: time.Second, RequestTimeout: 200 * time.Millisecond})
	t.Cleanup(c.Disconnect)

	before := runtime.NumGoroutine()

	const cycles = 5
	for i := 0; i < cycles; i++ {
		if !c.Connect(host, port) {
			t.Fatalf("Connect cycle %d returned false", i)
		}
		deadline := time.Now().Add(time.Second)
		for c.IsConnected() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if c.IsConnected() {
			t.Fatalf("cycle %d: client still connected after peer closed", i)
		}
	}

	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before+2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := runtime.NumGoroutine(); got > before+2 {
		t.Errorf("NumGoroutine() = %d after %d reconnect cycles, want <= %d (old send/receive loops leaked)", got, cycles, before+2)
	}
}
