// Package xmlcodec is the reference implementation of wire.Codec for the
// PatrolDevice protocol: a UTF-8 XML body with root element <PatrolDevice>,
// carrying <Type>, <Command>, <Time>, and one or more <Items> elements.
//
// This package is the only place in the SDK that knows the per-message XML
// field layout; internal/transport, internal/correlator, and pkg/navsdk
// depend on wire.Codec, not on this package, so a different wire codec
// could be substituted without touching them.
package xmlcodec

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/tailu123/x30-nav-sdk/internal/wire"
)

const timeLayout = "2006-01-02 15:04:05"

// command is the protocol's fixed <Command> value for every request this
// SDK sends.
const command = 1

// Codec implements wire.Codec over the PatrolDevice XML body format.
type Codec struct {
	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

var _ wire.Codec = (*Codec)(nil)

// New returns the default XML codec.
func New() *Codec {
	return &Codec{now: time.Now}
}

func (c *Codec) timestamp() string {
	return c.now().Format(timeLayout)
}

// typeEnvelope is the minimal shape needed to read <Type> off any
// PatrolDevice body, request or response.
type typeEnvelope struct {
	XMLName xml.Name `xml:"PatrolDevice"`
	Type    int      `xml:"Type"`
}

// PeekType extracts the <Type> tag from a raw body.
func (c *Codec) PeekType(body []byte) (wire.MessageType, error) {
	var env typeEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return wire.TypeUnknown, fmt.Errorf("xmlcodec: peek type: %w", err)
	}
	switch wire.MessageType(env.Type) {
	case wire.TypeRuntimeStatus, wire.TypeStartNavTask, wire.TypeCancelNavTask, wire.TypeQueryNavStatus:
		return wire.MessageType(env.Type), nil
	default:
		return wire.TypeUnknown, nil
	}
}

// envelope is the shared header fields every request body carries.
type envelope struct {
	Type    int    `xml:"Type"`
	Command int    `xml:"Command"`
	Time    string `xml:"Time"`
}

// emptyItemsRequest is the request body shape shared by the three requests
// that carry no payload: runtime status, cancel task, query status.
type emptyItemsRequest struct {
	XMLName xml.Name `xml:"PatrolDevice"`
	envelope
	Items struct{} `xml:"Items"`
}

func marshalEmptyItemsRequest(msgType int, ts string) ([]byte, error) {
	return xml.Marshal(emptyItemsRequest{
		envelope: envelope{Type: msgType, Command: command, Time: ts},
	})
}

// EncodeRuntimeStatusRequest encodes a 1002 request.
func (c *Codec) EncodeRuntimeStatusRequest() ([]byte, error) {
	return marshalEmptyItemsRequest(int(wire.TypeRuntimeStatus), c.timestamp())
}

// EncodeCancelNavTaskRequest encodes a 1004 request.
func (c *Codec) EncodeCancelNavTaskRequest() ([]byte, error) {
	return marshalEmptyItemsRequest(int(wire.TypeCancelNavTask), c.timestamp())
}

// EncodeQueryNavStatusRequest encodes a 1007 request.
func (c *Codec) EncodeQueryNavStatusRequest() ([]byte, error) {
	return marshalEmptyItemsRequest(int(wire.TypeQueryNavStatus), c.timestamp())
}

// navPointXML is one waypoint as it appears on the wire, one <Items>
// element per point.
type navPointXML struct {
	MapID     int     `xml:"MapId"`
	Value     int     `xml:"Value"`
	PosX      float64 `xml:"PosX"`
	PosY      float64 `xml:"PosY"`
	PosZ      float64 `xml:"PosZ"`
	AngleYaw  float64 `xml:"AngleYaw"`
	PointInfo int     `xml:"PointInfo"`
	Gait      int     `xml:"Gait"`
	Speed     int     `xml:"Speed"`
	Manner    int     `xml:"Manner"`
	ObsMode   int     `xml:"ObsMode"`
	NavMode   int     `xml:"NavMode"`
	Terrain   int     `xml:"Terrain"`
	Posture   int     `xml:"Posture"`
}

type navTaskRequest struct {
	XMLName xml.Name `xml:"PatrolDevice"`
	envelope
	Items []navPointXML `xml:"Items"`
}

// EncodeStartNavTaskRequest encodes a 1003 request. Callers (pkg/navsdk)
// are responsible for rejecting an empty points list before this is
// reached — that rejection is a façade concern, not a codec concern.
func (c *Codec) EncodeStartNavTaskRequest(points []wire.NavigationPointPayload) ([]byte, error) {
	items := make([]navPointXML, len(points))
	for i, p := range points {
		items[i] = navPointXML{
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
	return xml.Marshal(navTaskRequest{
		envelope: envelope{Type: int(wire.TypeStartNavTask), Command: command, Time: c.timestamp()},
		Items:    items,
	})
}

// runtimeStatusItems is the <Items> payload of a 1002 response.
type runtimeStatusItems struct {
	MotionState    int     `xml:"MotionState"`
	PosX           float64 `xml:"PosX"`
	PosY           float64 `xml:"PosY"`
	PosZ           float64 `xml:"PosZ"`
	AngleYaw       float64 `xml:"AngleYaw"`
	Roll           float64 `xml:"Roll"`
	Pitch          float64 `xml:"Pitch"`
	Yaw            float64 `xml:"Yaw"`
	Speed          float64 `xml:"Speed"`
	CurOdom        float64 `xml:"CurOdom"`
	SumOdom        float64 `xml:"SumOdom"`
	CurRuntime     uint64  `xml:"CurRuntime"`
	SumRuntime     uint64  `xml:"SumRuntime"`
	Res            float64 `xml:"Res"`
	X0             float64 `xml:"X0"`
	Y0             float64 `xml:"Y0"`
	H              int     `xml:"H"`
	Electricity    int     `xml:"Electricity"`
	Location       int     `xml:"Location"`
	RTKState       int     `xml:"RTKState"`
	OnDockState    int     `xml:"OnDockState"`
	GaitState      int     `xml:"GaitState"`
	MotorState     int     `xml:"MotorState"`
	ChargeState    int     `xml:"ChargeState"`
	ControlMode    int     `xml:"ControlMode"`
	MapUpdateState int     `xml:"MapUpdateState"`
}

type runtimeStatusResponse struct {
	XMLName xml.Name            `xml:"PatrolDevice"`
	Type    int                 `xml:"Type"`
	Items   runtimeStatusItems `xml:"Items"`
}

// DecodeRuntimeStatusResponse decodes a 1002 response body.
func (c *Codec) DecodeRuntimeStatusResponse(body []byte) (wire.RuntimeStatusPayload, error) {
	var resp runtimeStatusResponse
	if err := unmarshalPatrolDevice(body, &resp); err != nil {
		return wire.RuntimeStatusPayload{}, err
	}
	it := resp.Items
	return wire.RuntimeStatusPayload{
		MotionState:    it.MotionState,
		PosX:           it.PosX,
		PosY:           it.PosY,
		PosZ:           it.PosZ,
		AngleYaw:       it.AngleYaw,
		Roll:           it.Roll,
		Pitch:          it.Pitch,
		Yaw:            it.Yaw,
		Speed:          it.Speed,
		CurOdom:        it.CurOdom,
		SumOdom:        it.SumOdom,
		CurRuntime:     it.CurRuntime,
		SumRuntime:     it.SumRuntime,
		Res:            it.Res,
		X0:             it.X0,
		Y0:             it.Y0,
		H:              it.H,
		Electricity:    it.Electricity,
		Location:       it.Location,
		RTKState:       it.RTKState,
		OnDockState:    it.OnDockState,
		GaitState:      it.GaitState,
		MotorState:     it.MotorState,
		ChargeState:    it.ChargeState,
		ControlMode:    it.ControlMode,
		MapUpdateState: it.MapUpdateState,
	}, nil
}

type navTaskResponseItems struct {
	Value       int `xml:"Value"`
	ErrorCode   int `xml:"ErrorCode"`
	ErrorStatus int `xml:"ErrorStatus"`
}

type navTaskResponse struct {
	XMLName xml.Name             `xml:"PatrolDevice"`
	Type    int                  `xml:"Type"`
	Items   navTaskResponseItems `xml:"Items"`
}

// DecodeStartNavTaskResponse decodes a 1003 response body.
func (c *Codec) DecodeStartNavTaskResponse(body []byte) (wire.NavTaskResultPayload, error) {
	var resp navTaskResponse
	if err := unmarshalPatrolDevice(body, &resp); err != nil {
		return wire.NavTaskResultPayload{}, err
	}
	return wire.NavTaskResultPayload{
		Value:       resp.Items.Value,
		ErrorCode:   resp.Items.ErrorCode,
		ErrorStatus: resp.Items.ErrorStatus,
	}, nil
}

type cancelTaskResponseItems struct {
	ErrorCode int `xml:"ErrorCode"`
}

type cancelTaskResponse struct {
	XMLName xml.Name                `xml:"PatrolDevice"`
	Type    int                     `xml:"Type"`
	Items   cancelTaskResponseItems `xml:"Items"`
}

// DecodeCancelNavTaskResponse decodes a 1004 response body.
func (c *Codec) DecodeCancelNavTaskResponse(body []byte) (wire.CancelTaskResultPayload, error) {
	var resp cancelTaskResponse
	if err := unmarshalPatrolDevice(body, &resp); err != nil {
		return wire.CancelTaskResultPayload{}, err
	}
	return wire.CancelTaskResultPayload{ErrorCode: resp.Items.ErrorCode}, nil
}

type queryStatusResponseItems struct {
	Value     int `xml:"Value"`
	Status    int `xml:"Status"`
	ErrorCode int `xml:"ErrorCode"`
}

type queryStatusResponse struct {
	XMLName xml.Name                 `xml:"PatrolDevice"`
	Type    int                      `xml:"Type"`
	Items   queryStatusResponseItems `xml:"Items"`
}

// DecodeQueryNavStatusResponse decodes a 1007 response body.
func (c *Codec) DecodeQueryNavStatusResponse(body []byte) (wire.TaskStatusPayload, error) {
	var resp queryStatusResponse
	if err := unmarshalPatrolDevice(body, &resp); err != nil {
		return wire.TaskStatusPayload{}, err
	}
	return wire.TaskStatusPayload{
		Value:     resp.Items.Value,
		Status:    resp.Items.Status,
		ErrorCode: resp.Items.ErrorCode,
	}, nil
}

func unmarshalPatrolDevice(body []byte, v any) error {
	if err := xml.Unmarshal(body, v); err != nil {
		return fmt.Errorf("xmlcodec: decode PatrolDevice body: %w", err)
	}
	return nil
}
