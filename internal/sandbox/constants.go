package sandbox

// Units are centimetres and seconds, Z up.
const (
	GravityZ            = -980.0
	WalkSpeed           = 400.0
	MaxAcceleration     = 2048.0
	BrakingDeceleration = 2048.0
	AirControl          = 0.05
	BodyMass            = 100.0

	GroundProbeDistance            = 2.0
	MinimumResidualHorizontalSpeed = 1.0
	MinimumResidualVerticalSpeed   = 1.0
	CollisionAxisTolerance         = 1e-9

	CapsuleHalfHeight = 90.0
	CapsuleRadius     = 34.0

	// Hand sockets sit this far in front of and above the capsule centre.
	SocketReach  = 40.0
	SocketHeight = 40.0
)
