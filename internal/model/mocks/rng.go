package mocks

import (
	"time"

	"github.com/devlink/tlstransport/internal/model"
)

// RNG allows mocking model.RNG.
type RNG struct {
	MockRead func(p []byte) (int, error)

	MockSeed func() error
}

var _ model.RNG = &RNG{}

// Read calls MockRead.
func (r *RNG) Read(p []byte) (int, error) {
	return r.MockRead(p)
}

// Seed calls MockSeed.
func (r *RNG) Seed() error {
	return r.MockSeed()
}

// Observer allows mocking model.Observer.
type Observer struct {
	MockOnConnect func(status string, elapsed time.Duration)

	MockOnHandshake func(steps int, err error)

	MockOnTransfer func(operation string, count int)
}

var _ model.Observer = &Observer{}

// OnConnect calls MockOnConnect.
func (o *Observer) OnConnect(status string, elapsed time.Duration) {
	o.MockOnConnect(status, elapsed)
}

// OnHandshake calls MockOnHandshake.
func (o *Observer) OnHandshake(steps int, err error) {
	o.MockOnHandshake(steps, err)
}

// OnTransfer calls MockOnTransfer.
func (o *Observer) OnTransfer(operation string, count int) {
	o.MockOnTransfer(operation, count)
}
