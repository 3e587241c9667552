package session

// Record defines a public type used by goGuard APIs.
//
// Record instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Record struct {
	Identity string
	Token    string
	DeviceID string

	// Payload is an opaque caller-serialized session body. The store never
	// inspects it.
	Payload []byte

	CreatedAt int64
}
