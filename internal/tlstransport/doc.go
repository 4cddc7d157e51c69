// Package tlstransport implements client TLS connections on top of an
// abstract socket interface, for devices whose network stack is not
// the one of the Go runtime.
//
// The Transport drives a model.Engine through the handshake one step
// at a time. The engine talks to the network through an I/O adapter
// forwarding each transfer to the model.SocketInterface and mapping
// socket errors to engine signals. A receive timeout configured on the
// socket therefore surfaces as zero bytes and a nil error from Recv.
//
// Every error returned by this package is an *ErrWrapper carrying
// a Status and a failure string.
package tlstransport
