package core

// Frame is a marshaled outbound event, ready for the wire.
type Frame []byte

// ConnID identifies one live transport session. Assigned at accept time,
// immutable.
type ConnID string

// ClientConn abstracts the outbound half of a client transport.
// Owned by the adapter; the adapter must Close() it.
type ClientConn interface {
	// TrySend enqueues a frame without blocking. It returns an error when
	// the peer's buffer is full or the connection is already closed.
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats and slow consumers to the gateway.
type PublishResult struct {
	SentTo  int
	Dropped []ConnID
}
