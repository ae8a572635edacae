// Package wire defines the message-level contract between the SDK's core
// (transport, correlator, façade) and the wire codec. The core never
// depends on a concrete encoding — only on MessageType, Message, and the
// Codec interface below.
package wire

import "fmt"

// MessageType identifies one of the PatrolDevice protocol's request or
// response kinds. Values are the protocol's own numeric "Type" field.
type MessageType uint16

const (
	TypeUnknown MessageType = 0

	// TypeRuntimeStatus is the runtime telemetry request/response (1002).
	TypeRuntimeStatus MessageType = 1002

	// TypeStartNavTask is the start-navigation-task request/response (1003).
	TypeStartNavTask MessageType = 1003

	// TypeCancelNavTask is the cancel-task request/response (1004).
	TypeCancelNavTask MessageType = 1004

	// TypeQueryNavStatus is the query-task-status request/response (1007).
	TypeQueryNavStatus MessageType = 1007
)

// String implements fmt.Stringer for readable logging.
func (t MessageType) String() string {
	switch t {
	case TypeRuntimeStatus:
		return "RuntimeStatus"
	case TypeStartNavTask:
		return "StartNavTask"
	case TypeCancelNavTask:
		return "CancelNavTask"
	case TypeQueryNavStatus:
		return "QueryNavStatus"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(t))
	}
}

// Message is the decoded form of one frame: its type tag, the sequence
// number echoed from the request, and the still-encoded body. The
// correlator only ever inspects Type and Seq; the Codec's Decode*Response
// methods turn Body into a typed value for the façade.
type Message struct {
	Type MessageType
	Seq  uint16
	Body []byte
}

// Codec is the pluggable message-body contract . The core depends only on this interface; internal/xmlcodec is
// the one concrete implementation this repo ships.
type Codec interface {
	// PeekType extracts the MessageType tag from a raw body without
	// decoding the rest of it. internal/transport calls this on every
	// inbound frame so the correlator can route on Type before anyone
	// knows (or cares) which request the response belongs to.
	PeekType(body []byte) (MessageType, error)

	// EncodeRuntimeStatusRequest encodes a 1002 request body.
	EncodeRuntimeStatusRequest() ([]byte, error)
	// DecodeRuntimeStatusResponse decodes a 1002 response body.
	DecodeRuntimeStatusResponse(body []byte) (RuntimeStatusPayload, error)

	// EncodeStartNavTaskRequest encodes a 1003 request body.
	EncodeStartNavTaskRequest(points []NavigationPointPayload) ([]byte, error)
	// DecodeStartNavTaskResponse decodes a 1003 response body.
	DecodeStartNavTaskResponse(body []byte) (NavTaskResultPayload, error)

	// EncodeCancelNavTaskRequest encodes a 1004 request body.
	EncodeCancelNavTaskRequest() ([]byte, error)
	// DecodeCancelNavTaskResponse decodes a 1004 response body.
	DecodeCancelNavTaskResponse(body []byte) (CancelTaskResultPayload, error)

	// EncodeQueryNavStatusRequest encodes a 1007 request body.
	EncodeQueryNavStatusRequest() ([]byte, error)
	// DecodeQueryNavStatusResponse decodes a 1007 response body.
	DecodeQueryNavStatusResponse(body []byte) (TaskStatusPayload, error)
}
