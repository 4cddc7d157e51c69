package model

import "time"

// Observer receives statistics about connections. Implementations
// must be cheap since they run inline with the transport calls.
type Observer interface {
	// OnConnect is called when Connect returns, with the status
	// string of the outcome ("success" on success).
	OnConnect(status string, elapsed time.Duration)

	// OnHandshake is called after the handshake loop terminates
	// with the number of steps it took.
	OnHandshake(steps int, err error)

	// OnTransfer is called after each Send or Recv moving data.
	OnTransfer(operation string, count int)
}

// DiscardObserver is an Observer that ignores everything.
var DiscardObserver Observer = observerDiscarder{}

type observerDiscarder struct{}

func (observerDiscarder) OnConnect(status string, elapsed time.Duration) {}

func (observerDiscarder) OnHandshake(steps int, err error) {}

func (observerDiscarder) OnTransfer(operation string, count int) {}

// ValidObserverOrDefault returns the given observer, if not
// nil, or DiscardObserver otherwise.
func ValidObserverOrDefault(o Observer) Observer {
	if o != nil {
		return o
	}
	return DiscardObserver
}
