package idata

import (
	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

// Verify pops the next expectation queued for ifaceName and compares it
// against got, the live inbound delivery. An empty queue, a kind/path
// mismatch, or a value/entry mismatch is reported as InvalidParam — per
// spec.md §4.7, all three are test failures, not distinct categories.
func Verify(store *Store, ifaceName string, got *Expected) error {
	q := store.Queue(ifaceName)
	want, ok := q.TryPop()
	if !ok {
		return errcode.New(errcode.InvalidParam, "idata.Verify: no expectation queued")
	}
	if want.Kind != got.Kind || want.Path != got.Path {
		return errcode.New(errcode.InvalidParam, "idata.Verify: path/kind mismatch")
	}

	switch want.Kind {
	case Individual, Property:
		if want.Unset != got.Unset {
			return errcode.New(errcode.InvalidParam, "idata.Verify: unset mismatch")
		}
		if !want.Unset && !astartevalue.Equal(want.Value, got.Value) {
			return errcode.New(errcode.InvalidParam, "idata.Verify: value mismatch")
		}
	case Object:
		eq, err := astartevalue.ObjectEqual(want.Entries, got.Entries)
		if err != nil {
			return err
		}
		if !eq {
			return errcode.New(errcode.InvalidParam, "idata.Verify: object mismatch")
		}
	}

	if want.HasTimestamp != got.HasTimestamp || (want.HasTimestamp && want.TimestampMs != got.TimestampMs) {
		return errcode.New(errcode.InvalidParam, "idata.Verify: timestamp mismatch")
	}
	return nil
}
