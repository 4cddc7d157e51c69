package tlstransport

//
// Handshake orchestrator
//

import (
	"context"
	"errors"
	"time"

	"github.com/devlink/tlstransport/internal/model"
)

// handshake drives the engine one step at a time until the handshake
// completes, fails, or exceeds the deadline or the context. The ioAdapter
// enforces the same bounds on each socket call within a step.
func (t *Transport) handshake(ctx context.Context, eng model.Engine, deadline time.Time) error {
	steps := 0
	for {
		steps++
		err := eng.Handshake()
		if err == nil {
			t.observer.OnHandshake(steps, nil)
			state := eng.ConnectionState()
			t.logger.Debugf("handshake... ok in %d steps (%s, %s, alpn=%q)", steps,
				tlsVersionString(state.Version), tlsCipherSuiteString(state.CipherSuite),
				state.NegotiatedProtocol)
			return nil
		}
		if !errors.Is(err, model.ErrWantRead) && !errors.Is(err, model.ErrWantWrite) {
			t.observer.OnHandshake(steps, err)
			return newErrWrapper(StatusHandshakeFailed, classifyTLSHandshakeError, HandshakeOperation, err)
		}
		t.logger.Debugf("handshake step #%d... %s", steps, err)
		if cerr := ctx.Err(); cerr != nil {
			t.observer.OnHandshake(steps, cerr)
			return newErrWrapper(StatusHandshakeFailed, classifyGenericError, HandshakeOperation, cerr)
		}
		if !t.clock.Now().Before(deadline) {
			t.observer.OnHandshake(steps, ErrHandshakeTimeout)
			return newErrWrapper(StatusHandshakeFailed, classifyGenericError, HandshakeOperation, ErrHandshakeTimeout)
		}
	}
}
