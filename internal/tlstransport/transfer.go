package tlstransport

//
// Steady-state transfer
//

import (
	"github.com/devlink/tlstransport/internal/model"
)

// Send writes application data. It returns the number of bytes written,
// or zero and a nil error when the engine asks to retry the call (e.g.,
// because the send timeout expired). Fatal errors have StatusTransferFailed
// and leave the number of bytes written unspecified.
func (t *Transport) Send(buf []byte) (int, error) {
	if err := t.checkEstablished(SendOperation); err != nil {
		return 0, err
	}
	count, err := t.engine.Write(buf)
	return t.transferResult(SendOperation, count, err)
}

// Recv reads application data into buf. It returns the number of bytes
// read, or zero and a nil error when no data is available within the
// receive timeout. Fatal errors, including the peer closing the
// connection, have StatusTransferFailed.
func (t *Transport) Recv(buf []byte) (int, error) {
	if err := t.checkEstablished(RecvOperation); err != nil {
		return 0, err
	}
	count, err := t.engine.Read(buf)
	return t.transferResult(RecvOperation, count, err)
}

func (t *Transport) checkEstablished(op string) error {
	if t.freed {
		return newErrWrapper(StatusInvalidParameter, classifyParameterError, op, ErrFreed)
	}
	if t.state != StateEstablished || t.engine == nil {
		return newErrWrapper(StatusInvalidParameter, classifyParameterError, op, ErrNotConnected)
	}
	return nil
}

func (t *Transport) transferResult(op string, count int, err error) (int, error) {
	if err != nil {
		if model.IsRetrySignal(err) {
			t.logger.Debugf("%s... %s (retry)", op, err)
			return 0, nil
		}
		wrapper := newErrWrapper(StatusTransferFailed, classifyGenericError, op, err)
		t.logger.Warnf("%s... %s", op, wrapper.Failure)
		return 0, wrapper
	}
	t.observer.OnTransfer(op, count)
	return count, nil
}
