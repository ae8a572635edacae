// Package navsdk is the public façade of the navigation controller client
// SDK. A *Client owns one TCP connection at a time and exposes connect,
// disconnect, is-connected, request-runtime-status, start-nav-task,
// cancel-nav-task, query-nav-task-status, and version.
package navsdk

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tailu123/x30-nav-sdk/internal/correlator"
	"github.com/tailu123/x30-nav-sdk/internal/log"
	"github.com/tailu123/x30-nav-sdk/internal/safecallback"
	"github.com/tailu123/x30-nav-sdk/internal/transport"
	"github.com/tailu123/x30-nav-sdk/internal/wire"
	"github.com/tailu123/x30-nav-sdk/internal/xmlcodec"
)

// sdkVersion is this SDK's own version string, returned by Version.
const sdkVersion = "1.0.0"

// Client is the navigation controller SDK's public entry point. The zero
// value is not usable; construct with New or NewDefault.
type Client struct {
	cfg     Config
	codec   wire.Codec
	baseLog *slog.Logger
	shim    *safecallback.Shim

	mu   sync.RWMutex
	tr   *transport.Transport
	corr *correlator.Correlator
	log  *slog.Logger
}

// New returns a Client configured with cfg. The returned Client is
// unconnected; call Connect before issuing any other operation.
func New(cfg Config) *Client {
	baseLog := log.Component("navsdk")
	return &Client{
		cfg:     cfg,
		codec:   xmlcodec.New(),
		baseLog: baseLog,
		shim:    safecallback.New(baseLog),
	}
}

// NewDefault returns a Client with DefaultConfig.
func NewDefault() *Client {
	return New(DefaultConfig())
}

// Connect dials host:port, bounded by Config.ConnectTimeout, and starts the
// connection's I/O goroutines. Returns false if already connected or if the
// dial fails or times out.
func (c *Client) Connect(host string, port int) bool {
	c.mu.RLock()
	already := c.tr != nil && c.tr.State() == transport.Connected
	c.mu.RUnlock()
	if already {
		return false
	}

	sessLog := log.Session(c.baseLog, uuid.New().String())

	corr := correlator.New(c.shim, sessLog)
	tr := transport.New(c.codec, corr, sessLog)
	tr.OnClose = func() { corr.Shutdown() }

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()
	if err := tr.Connect(ctx, host, port, c.cfg.ConnectTimeout); err != nil {
		sessLog.Warn("connect failed", "host", host, "port", port, "error", err)
		return false
	}

	c.mu.Lock()
	c.tr, c.corr, c.log = tr, corr, sessLog
	c.mu.Unlock()
	return true
}

// Disconnect closes the connection, if any, and wakes every outstanding
// sync waiter with NotConnected. Idempotent: a second call, or a call when
// never connected, is a no-op.
func (c *Client) Disconnect() {
	c.mu.RLock()
	tr, corr := c.tr, c.corr
	c.mu.RUnlock()
	if tr == nil {
		return
	}
	tr.Disconnect()
	corr.Shutdown()
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	tr := c.tr
	c.mu.RUnlock()
	return tr != nil && tr.State() == transport.Connected
}

// Version returns this SDK's version string.
func (c *Client) Version() string {
	return sdkVersion
}

// doSync registers a sync pending table entry, sends the encoded request,
// waits with the configured request timeout, and guarantees the pending
// entry is dropped exactly once regardless of outcome.
func (c *Client) doSync(expected wire.MessageType, encode func() ([]byte, error)) (*wire.Message, error) {
	c.mu.RLock()
	tr, corr := c.tr, c.corr
	c.mu.RUnlock()
	if tr == nil || tr.State() != transport.Connected {
		return nil, ErrNotConnected
	}

	seq := corr.NextSeq()
	entry, err := corr.RegisterSync(seq, expected)
	if err != nil {
		return nil, ErrUnknown
	}
	defer corr.DropSync(seq)

	body, err := encode()
	if err != nil {
		return nil, ErrUnknown
	}
	if err := tr.Send(body, seq); err != nil {
		return nil, ErrNotConnected
	}

	msg, err := entry.Wait(c.cfg.RequestTimeout)
	if err != nil {
		switch {
		case errors.Is(err, correlator.ErrTimeout):
			return nil, ErrTimeout
		case errors.Is(err, correlator.ErrShutdown):
			return nil, ErrNotConnected
		default:
			return nil, ErrUnknown
		}
	}
	return msg, nil
}

// RequestRuntimeStatus sends a blocking runtime-status request and returns
// the decoded telemetry, or a RuntimeStatus carrying only a failure Code.
func (c *Client) RequestRuntimeStatus() RuntimeStatus {
	msg, err := c.doSync(wire.TypeRuntimeStatus, c.codec.EncodeRuntimeStatusRequest)
	if err != nil {
		return RuntimeStatus{Code: statusCodeFromErr(err)}
	}

	p, err := c.codec.DecodeRuntimeStatusResponse(msg.Body)
	if err != nil {
		return RuntimeStatus{Code: statusCodeFromErr(ErrInvalidResponse)}
	}
	return RuntimeStatus{
		Code:           StatusSuccess,
		MotionState:    p.MotionState,
		PosX:           p.PosX,
		PosY:           p.PosY,
		PosZ:           p.PosZ,
		AngleYaw:       p.AngleYaw,
		Roll:           p.Roll,
		Pitch:          p.Pitch,
		Yaw:            p.Yaw,
		Speed:          p.Speed,
		CurOdom:        p.CurOdom,
		SumOdom:        p.SumOdom,
		CurRuntime:     p.CurRuntime,
		SumRuntime:     p.SumRuntime,
		Res:            p.Res,
		X0:             p.X0,
		Y0:             p.Y0,
		H:              p.H,
		Electricity:    p.Electricity,
		Location:       p.Location,
		RTKState:       p.RTKState,
		OnDockState:    p.OnDockState,
		GaitState:      p.GaitState,
		MotorState:     p.MotorState,
		ChargeState:    p.ChargeState,
		ControlMode:    p.ControlMode,
		MapUpdateState: p.MapUpdateState,
	}
}

// CancelNavTask sends a blocking cancel request. Any outcome other than the
// server's ErrorCode==0 — including a transport failure — collapses to
// false.
func (c *Client) CancelNavTask() bool {
	msg, err := c.doSync(wire.TypeCancelNavTask, c.codec.EncodeCancelNavTaskRequest)
	if err != nil {
		return false
	}
	p, err := c.codec.DecodeCancelNavTaskResponse(msg.Body)
	if err != nil {
		return false
	}
	return p.ErrorCode == 0
}

// QueryNavTaskStatus sends a blocking status query and returns the current
// task progress.
func (c *Client) QueryNavTaskStatus() TaskStatus {
	msg, err := c.doSync(wire.TypeQueryNavStatus, c.codec.EncodeQueryNavStatusRequest)
	if err != nil {
		return TaskStatus{Code: taskCodeFromErr(err)}
	}
	p, err := c.codec.DecodeQueryNavStatusResponse(msg.Body)
	if err != nil {
		return TaskStatus{Code: taskCodeFromErr(ErrInvalidResponse)}
	}
	return TaskStatus{Code: taskCodeFromStatus(p.Status), Value: p.Value, ErrorCode: p.ErrorCode}
}

// StartNavTask sends a fire-and-forget navigation request; callback fires
// at most once, off the caller's goroutine, through the safe-callback shim.
// An empty points list or a disconnected client delivers the corresponding
// rejection via callback rather than returning an error synchronously. A
// callback still waiting for its response when the connection is lost or
// closed is dropped without being invoked; a nil callback sends nothing.
func (c *Client) StartNavTask(points []NavigationPoint, callback func(NavigationResult)) {
	if callback == nil {
		return
	}
	deliver := func(res NavigationResult) {
		c.shim.Invoke(func() { callback(res) })
	}

	if len(points) == 0 {
		deliver(NavigationResult{Code: navResultCodeFromErr(ErrInvalidParam)})
		return
	}

	c.mu.RLock()
	tr, corr := c.tr, c.corr
	c.mu.RUnlock()
	if tr == nil || tr.State() != transport.Connected {
		deliver(NavigationResult{Code: navResultCodeFromErr(ErrNotConnected)})
		return
	}

	wirePoints := make([]wire.NavigationPointPayload, len(points))
	for i, p := range points {
		wirePoints[i] = wire.NavigationPointPayload{
			MapID:     p.MapID,
			Value:     p.Value,
			PosX:      p.PosX,
			PosY:      p.PosY,
			PosZ:      p.PosZ,
			AngleYaw:  p.AngleYaw,
			PointInfo: p.PointInfo,
			Gait:      p.Gait,
			Speed:     p.Speed,
			Manner:    p.Manner,
			ObsMode:   p.ObsMode,
			NavMode:   p.NavMode,
			Terrain:   p.Terrain,
			Posture:   p.Posture,
		}
	}
	body, err := c.codec.EncodeStartNavTaskRequest(wirePoints)
	if err != nil {
		deliver(NavigationResult{Code: NavUnknownError})
		return
	}

	seq := corr.NextSeq()
	codec := c.codec
	regErr := corr.RegisterAsync(seq, func(msg *wire.Message) {
		p, decErr := codec.DecodeStartNavTaskResponse(msg.Body)
		if decErr != nil {
			callback(NavigationResult{Code: NavUnknownError})
			return
		}
		callback(NavigationResult{
			Code:        navResultCodeFromErrorCode(p.ErrorCode),
			Value:       p.Value,
			ErrorStatus: p.ErrorStatus,
		})
	})
	if regErr != nil {
		deliver(NavigationResult{Code: NavUnknownError})
		return
	}

	if err := tr.Send(body, seq); err != nil {
		deliver(NavigationResult{Code: navResultCodeFromErr(ErrNotConnected)})
		return
	}
}

func statusCodeFromErr(err error) StatusCode {
	switch {
	case errors.Is(err, ErrNotConnected):
		return StatusNotConnected
	case errors.Is(err, ErrTimeout):
		return StatusTimeout
	case errors.Is(err, ErrInvalidResponse):
		return StatusInvalidResponse
	default:
		return StatusUnknownError
	}
}

func taskCodeFromErr(err error) TaskStatusCode {
	switch {
	case errors.Is(err, ErrNotConnected):
		return TaskNotConnected
	case errors.Is(err, ErrTimeout):
		return TaskTimeout
	case errors.Is(err, ErrInvalidResponse):
		return TaskInvalidResponse
	default:
		return TaskUnknownError
	}
}

func navResultCodeFromErr(err error) NavResultCode {
	switch {
	case errors.Is(err, ErrInvalidParam):
		return NavInvalidParam
	case errors.Is(err, ErrNotConnected):
		return NavNotConnected
	default:
		return NavUnknownError
	}
}

func taskCodeFromStatus(status int) TaskStatusCode {
	switch status {
	case 0:
		return TaskCompleted
	case 1:
		return TaskExecuting
	case -1:
		return TaskFailed
	default:
		return TaskUnknownError
	}
}

func navResultCodeFromErrorCode(ec int) NavResultCode {
	switch ec {
	case 0:
		return NavSuccess
	case 1:
		return NavFailure
	case 2:
		return NavCancelled
	default:
		return NavUnknownError
	}
}
