// Package shell drives the E2E verification harness of spec.md §4.7: a
// line-oriented command stream pushes expectations and live sends, while
// every inbound delivery from the device facade is matched against the
// per-interface expectation queue.
//
// Grounded on the teacher's services/heartbeat/service.go command-channel
// pattern (a single goroutine consuming discrete commands and reporting
// success/failure per command), generalized from a fixed heartbeat tick
// to an open command grammar tokenized with google/shlex, the library
// this corpus's go.mod already names for shell-like argument splitting.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/lucaato/astarte-device-sdk-go/astartedevice"
	"github.com/lucaato/astarte-device-sdk-go/astarteiface"
	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
	"github.com/lucaato/astarte-device-sdk-go/e2e/idata"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

// Shell owns the expectation store and the device it drives. Construct
// with NewShell, then Attach the device once it exists, wiring the
// device's inbound callbacks back to Shell.OnData/OnUnset/OnObject.
type Shell struct {
	device *astartedevice.Device
	store  *idata.Store

	mu      sync.Mutex
	failed  []string
	stopped bool
}

// NewShell returns a Shell backed by a fresh expectation store.
func NewShell(store *idata.Store) *Shell {
	return &Shell{store: store}
}

// Attach binds the device this shell drives and verifies against. Call
// once, after constructing the device with Callbacks pointing back at
// OnData/OnUnset/OnObject.
func (s *Shell) Attach(d *astartedevice.Device) { s.device = d }

// Callbacks returns the astartedevice.Callbacks this shell expects to be
// wired into the device it will Attach to.
func (s *Shell) Callbacks() astartedevice.Callbacks {
	return astartedevice.Callbacks{
		OnData:   s.OnData,
		OnUnset:  s.OnUnset,
		OnObject: s.OnObject,
	}
}

// OnData verifies an inbound individual datastream value, or a property
// set, against the queued expectation for its interface.
func (s *Shell) OnData(ifaceName, path string, v astartevalue.Value) {
	kind := idata.Individual
	if iface, ok := s.device.Introspection().GetByName(ifaceName); ok && iface.Type == astarteiface.Property {
		kind = idata.Property
	}
	s.verify(ifaceName, &idata.Expected{Kind: kind, Path: path, Value: v})
}

// OnUnset verifies an inbound property-unset against the queued
// expectation for its interface.
func (s *Shell) OnUnset(ifaceName, path string) {
	s.verify(ifaceName, &idata.Expected{Kind: idata.Property, Path: path, Unset: true})
}

// OnObject verifies an inbound aggregate record against the queued
// expectation for its interface.
func (s *Shell) OnObject(ifaceName, path string, entries []astartevalue.Entry) {
	s.verify(ifaceName, &idata.Expected{Kind: idata.Object, Path: path, Entries: entries})
}

func (s *Shell) verify(ifaceName string, got *idata.Expected) {
	if err := idata.Verify(s.store, ifaceName, got); err != nil {
		s.mu.Lock()
		s.failed = append(s.failed, fmt.Sprintf("%s: %v", ifaceName, err))
		s.mu.Unlock()
	}
}

// Failures returns every verification mismatch observed so far, in
// order.
func (s *Shell) Failures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.failed...)
}

// Pending reports interfaces with expectations queued but never matched,
// a run-termination failure per spec.md §4.7.
func (s *Shell) Pending() map[string]int { return s.store.Pending() }

// Stopped reports whether a "disconnect" command has been processed.
func (s *Shell) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Run reads newline-delimited commands from r until EOF or a
// "disconnect" command, writing one response line per command to w:
// "OK" on success, "ERROR: <message>" otherwise. It returns the first
// I/O error encountered reading r, if any; command failures are reported
// on w, not returned, so a malformed command does not abort the run.
func (s *Shell) Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(newRingPipe(r, 4096))
	for !s.Stopped() && scanner.Scan() {
		line := scanner.Text()
		if err := s.Exec(line); err != nil {
			fmt.Fprintf(w, "ERROR: %v\n", err)
			continue
		}
		fmt.Fprintln(w, "OK")
	}
	return scanner.Err()
}

func usage(op string) error {
	return errcode.New(errcode.InvalidParam, op)
}
