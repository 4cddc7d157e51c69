package entropy

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// countingLocker is a sync.Locker counting its invocations.
type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
}

func (cl *countingLocker) Lock() {
	cl.mu.Lock()
	cl.locks++
}

func (cl *countingLocker) Unlock() {
	cl.unlocks++
	cl.mu.Unlock()
}

func fixedSource(b byte) io.Reader {
	return bytes.NewReader(bytes.Repeat([]byte{b}, 1024))
}

func TestDRBG(t *testing.T) {
	t.Run("Read fails before Seed", func(t *testing.T) {
		d := NewDRBG(nil)
		count, err := d.Read(make([]byte, 16))
		if !errors.Is(err, ErrNotSeeded) {
			t.Fatal("unexpected err", err)
		}
		if count != 0 {
			t.Fatal("expected zero bytes")
		}
	})

	t.Run("Seed fails when the source fails", func(t *testing.T) {
		d := NewDRBG(&Options{Source: bytes.NewReader(nil)})
		if err := d.Seed(); !errors.Is(err, io.EOF) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("same seed gives the same stream", func(t *testing.T) {
		d1 := NewDRBG(&Options{Source: fixedSource(7)})
		d2 := NewDRBG(&Options{Source: fixedSource(7)})
		if err := d1.Seed(); err != nil {
			t.Fatal(err)
		}
		if err := d2.Seed(); err != nil {
			t.Fatal(err)
		}
		b1, b2 := make([]byte, 64), make([]byte, 64)
		if _, err := d1.Read(b1); err != nil {
			t.Fatal(err)
		}
		if _, err := d2.Read(b2); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(b1, b2); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("successive reads differ because we rekey", func(t *testing.T) {
		d := NewDRBG(&Options{Source: fixedSource(7)})
		if err := d.Seed(); err != nil {
			t.Fatal(err)
		}
		b1, b2 := make([]byte, 32), make([]byte, 32)
		if _, err := d.Read(b1); err != nil {
			t.Fatal(err)
		}
		if _, err := d.Read(b2); err != nil {
			t.Fatal(err)
		}
		if bytes.Equal(b1, b2) {
			t.Fatal("expected different output")
		}
	})

	t.Run("output does not depend on the previous content of the buffer", func(t *testing.T) {
		d1 := NewDRBG(&Options{Source: fixedSource(3)})
		d2 := NewDRBG(&Options{Source: fixedSource(3)})
		_ = d1.Seed()
		_ = d2.Seed()
		b1 := make([]byte, 32)
		b2 := bytes.Repeat([]byte{0xff}, 32)
		_, _ = d1.Read(b1)
		_, _ = d2.Read(b2)
		if !bytes.Equal(b1, b2) {
			t.Fatal("expected the same output")
		}
	})

	t.Run("reseeding mixes into the current key", func(t *testing.T) {
		d1 := NewDRBG(&Options{Source: fixedSource(9)})
		_ = d1.Seed()
		_ = d1.Seed()
		d2 := NewDRBG(&Options{Source: fixedSource(9)})
		_ = d2.Seed()
		b1, b2 := make([]byte, 32), make([]byte, 32)
		_, _ = d1.Read(b1)
		_, _ = d2.Read(b2)
		if bytes.Equal(b1, b2) {
			t.Fatal("expected reseed to change the stream")
		}
	})

	t.Run("Free wipes the state", func(t *testing.T) {
		d := NewDRBG(nil)
		if err := d.Seed(); err != nil {
			t.Fatal(err)
		}
		d.Free()
		d.Free() // idempotent
		if _, err := d.Read(make([]byte, 8)); !errors.Is(err, ErrNotSeeded) {
			t.Fatal("unexpected err", err)
		}
		if d.key != [32]byte{} {
			t.Fatal("key not wiped")
		}
		if err := d.Seed(); err != nil {
			t.Fatal(err)
		}
		if _, err := d.Read(make([]byte, 8)); err != nil {
			t.Fatal(err)
		}
	})
}

func TestDRBGUsesTheInjectedLocker(t *testing.T) {
	locker := &countingLocker{}
	d := NewDRBG(&Options{Locker: locker})
	if err := d.Seed(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Read(make([]byte, 8)); err != nil {
		t.Fatal(err)
	}
	d.Free()
	if locker.locks != 3 || locker.unlocks != 3 {
		t.Fatal("unexpected lock usage", locker.locks, locker.unlocks)
	}
}

// The shared generator is process-wide state used by every connection;
// concurrent use must be safe (run with -race).
func TestSharedDRBGUnderConcurrentUse(t *testing.T) {
	d := Shared()
	if d != Shared() {
		t.Fatal("expected the same instance")
	}
	if err := d.Seed(); err != nil {
		t.Fatal(err)
	}
	wg := &sync.WaitGroup{}
	for idx := 0; idx < 8; idx++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 64)
			for cnt := 0; cnt < 100; cnt++ {
				if cnt%10 == 0 {
					if err := d.Seed(); err != nil {
						t.Error(err)
						return
					}
				}
				if _, err := d.Read(buf); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
