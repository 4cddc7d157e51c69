package tlstransport

import "fmt"

// State is the lifecycle state of a Transport.
type State int

const (
	// StateUnconnected means there is no socket and no session.
	StateUnconnected = State(iota)

	// StateSocketOpening means we're creating and connecting the socket.
	StateSocketOpening

	// StateSocketConnected means the socket is connected.
	StateSocketConnected

	// StateCredentialsConfigured means the engine has the credentials.
	StateCredentialsConfigured

	// StateHandshaking means we're running the handshake loop.
	StateHandshaking

	// StateEstablished means Send and Recv are possible.
	StateEstablished

	// StateClosing means we're tearing the connection down.
	StateClosing
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateSocketOpening:
		return "socket_opening"
	case StateSocketConnected:
		return "socket_connected"
	case StateCredentialsConfigured:
		return "credentials_configured"
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
