package model

import "io"

// RNG is the random number generator bound to the TLS engine.
//
// The same RNG is typically shared by all the connections of a process,
// so implementations MUST serialize the mutation of their state.
type RNG interface {
	// An RNG is a source of random bytes.
	io.Reader

	// Seed (re)seeds the generator from its entropy source.
	Seed() error
}
