// Package model contains the shared interfaces and data structures.
//
// # Criteria for adding a type to this package
//
// This package should contain two types:
//
// 1. important interfaces that are shared by several packages
// within the codebase, with the objective of separating the TLS
// transport from the socket layer and from the TLS engine, so
// that each of them can be replaced by a mock in unit tests;
//
// 2. important pieces of data that cross those boundaries (e.g.,
// the negotiation policy handed to the engine).
//
// In general, this package should not contain logic, unless
// this logic is strictly related to data structures and we
// cannot implement this logic elsewhere.
//
// # Content of this package
//
// The following list summarizes the categories of types that
// currently belong here and names the files in which they are
// implemented:
//
// - engine.go: the TLS engine capability interface, the BIO
// the engine uses as its transport, and the engine signals;
//
// - logger.go: generic definition of an apex/log compatible logger;
//
// - observer.go: hooks for collecting connection statistics;
//
// - policy.go: the negotiation policy and certificate profile;
//
// - rng.go: the random number generator capability;
//
// - socket.go: the abstract socket interface we are given by
// the platform and its constants.
package model
