package wire

// RuntimeStatusPayload is the decoded body of a 1002 response — the full
// telemetry record the codec contract passes through opaquely to the
// façade; opaque to the correlator.
type RuntimeStatusPayload struct {
	MotionState    int
	PosX           float64
	PosY           float64
	PosZ           float64
	AngleYaw       float64
	Roll           float64
	Pitch          float64
	Yaw            float64
	Speed          float64
	CurOdom        float64
	SumOdom        float64
	CurRuntime     uint64
	SumRuntime     uint64
	Res            float64
	X0             float64
	Y0             float64
	H              int
	Electricity    int
	Location       int
	RTKState       int
	OnDockState    int
	GaitState      int
	MotorState     int
	ChargeState    int
	ControlMode    int
	MapUpdateState int
}

// NavigationPointPayload is one waypoint of a 1003 request.
type NavigationPointPayload struct {
	MapID     int
	Value     int
	PosX      float64
	PosY      float64
	PosZ      float64
	AngleYaw  float64
	PointInfo int
	Gait      int
	Speed     int
	Manner    int
	ObsMode   int
	NavMode   int
	Terrain   int
	Posture   int
}

// NavTaskResultPayload is the decoded body of a 1003 response.
type NavTaskResultPayload struct {
	Value       int
	ErrorCode   int
	ErrorStatus int
}

// CancelTaskResultPayload is the decoded body of a 1004 response.
type CancelTaskResultPayload struct {
	ErrorCode int
}

// TaskStatusPayload is the decoded body of a 1007 response.
type TaskStatusPayload struct {
	Value     int
	Status    int
	ErrorCode int
}
