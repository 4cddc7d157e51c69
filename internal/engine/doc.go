// Package engine contains the TLS engines used by the transport.
//
// An engine drives a client TLS session over a [model.BIO]. The TLS
// libraries we use (crypto/tls and gitlab.com/yawning/utls.git) expect
// a blocking [net.Conn], while the BIO returns [model.ErrWantRead] and
// [model.ErrWantWrite] when the socket would block. We bridge the two
// using a bioConn that runs the library handshake in a helper goroutine.
// When the BIO would block, the goroutine parks and Handshake returns
// the want signal; the next Handshake call resumes it.
//
// After the handshake, a would-block read surfaces from Read as
// [model.ErrWantRead], while writes retry internally until the write
// timeout and then fail with [model.ErrTimeout].
package engine
