// Package entropy implements the random number generator that the
// TLS engines use for every connection.
//
// The generator is a ChaCha20 keystream keyed from an entropy source,
// which we rekey after every request (fast key erasure). Its state is
// process-wide mutable state when shared, so every mutation happens
// under a [sync.Locker] that the caller can replace, e.g., with a lock
// that is also held by other code touching the same hardware source.
package entropy

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/devlink/tlstransport/internal/model"
	"golang.org/x/crypto/chacha20"
)

// ErrNotSeeded indicates that Read was called before Seed or after Free.
var ErrNotSeeded = errors.New("entropy: generator not seeded")

// Options contains options for NewDRBG.
type Options struct {
	// Source is the OPTIONAL entropy source. When nil, we
	// use crypto/rand.Reader.
	Source io.Reader

	// Locker is the OPTIONAL lock protecting the generator
	// state. When nil, we use a private sync.Mutex.
	Locker sync.Locker
}

// DRBG is a deterministic random bit generator. The zero value is
// invalid; construct using NewDRBG.
type DRBG struct {
	key    [chacha20.KeySize]byte
	mu     sync.Locker
	seeded bool
	source io.Reader
}

var _ model.RNG = &DRBG{}

// NewDRBG creates a new, unseeded DRBG.
func NewDRBG(opts *Options) *DRBG {
	if opts == nil {
		opts = &Options{}
	}
	d := &DRBG{
		mu:     opts.Locker,
		source: opts.Source,
	}
	if d.mu == nil {
		d.mu = &sync.Mutex{}
	}
	if d.source == nil {
		d.source = rand.Reader
	}
	return d
}

// Seed implements model.RNG. Reseeding a seeded generator mixes the
// fresh entropy into the current key rather than replacing it.
func (d *DRBG) Seed() error {
	var seed [chacha20.KeySize]byte
	if _, err := io.ReadFull(d.source, seed[:]); err != nil {
		return fmt.Errorf("entropy: cannot read seed: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seeded {
		var current [chacha20.KeySize]byte
		d.keystream(current[:])
		for idx := range seed {
			seed[idx] ^= current[idx]
		}
	}
	d.key = seed
	d.seeded = true
	return nil
}

// Read implements model.RNG.
func (d *DRBG) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.seeded {
		return 0, ErrNotSeeded
	}
	d.keystream(p)
	return len(p), nil
}

// keystream fills p and rekeys. The caller must hold the lock.
func (d *DRBG) keystream(p []byte) {
	var nonce [chacha20.NonceSize]byte
	cipher, err := chacha20.NewUnauthenticatedCipher(d.key[:], nonce[:])
	if err != nil {
		// cannot happen: key and nonce have the correct size
		panic(err)
	}
	var next [chacha20.KeySize]byte
	cipher.XORKeyStream(next[:], next[:])
	clear(p)
	cipher.XORKeyStream(p, p)
	d.key = next
}

// Free wipes the generator state. The generator can be used
// again after calling Seed.
func (d *DRBG) Free() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.key[:])
	d.seeded = false
}

var (
	sharedOnce sync.Once
	sharedDRBG *DRBG
)

// Shared returns the process-wide DRBG, which reads from crypto/rand
// and uses a private mutex. The transport uses it when the caller does
// not provide its own model.RNG.
func Shared() *DRBG {
	sharedOnce.Do(func() {
		sharedDRBG = NewDRBG(nil)
	})
	return sharedDRBG
}
