package shell

import (
	"io"
	"sync/atomic"

	"github.com/lucaato/astarte-device-sdk-go/x/shmring"
)

// ringPipe relays bytes from an io.Reader through a shmring.Ring before
// Run's line scanner ever sees them — the same single-producer/
// single-consumer ring e2e/idata's expectation queues are modeled on,
// used here on its original turf: decoupling a reader goroutine from
// the line-tokenizing consumer.
type ringPipe struct {
	ring *shmring.Ring
	eof  atomic.Bool
	err  atomic.Value
	done chan struct{} // closed by pump once eof is set
}

// newRingPipe starts a goroutine pumping r into a ring of the given
// size (must be a power of two) and returns an io.Reader over that
// ring.
func newRingPipe(r io.Reader, size int) *ringPipe {
	rp := &ringPipe{ring: shmring.New(size), done: make(chan struct{})}
	go rp.pump(r)
	return rp
}

func (rp *ringPipe) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		off := 0
		for off < n {
			w := rp.ring.TryWriteFrom(buf[off:n])
			if w == 0 {
				<-rp.ring.Writable()
				continue
			}
			off += w
		}
		if err != nil {
			if err != io.EOF {
				rp.err.Store(err)
			}
			rp.eof.Store(true)
			close(rp.done)
			return
		}
	}
}

// Read implements io.Reader over the ring, reporting io.EOF (or the
// pump's terminal error) once the source is exhausted and fully
// drained.
func (rp *ringPipe) Read(p []byte) (int, error) {
	for {
		if n := rp.ring.TryReadInto(p); n > 0 {
			return n, nil
		}
		if rp.eof.Load() && rp.ring.Available() == 0 {
			if errv, _ := rp.err.Load().(error); errv != nil {
				return 0, errv
			}
			return 0, io.EOF
		}
		select {
		case <-rp.ring.Readable():
		case <-rp.done:
		}
	}
}
