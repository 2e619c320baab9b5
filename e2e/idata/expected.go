package idata

import "github.com/lucaato/astarte-device-sdk-go/astartevalue"

// Kind discriminates the three shapes an expectation (or a live delivery)
// can take, per spec.md §3.
type Kind int

const (
	Individual Kind = iota
	Property
	Object
)

// Expected is one entry in a per-interface queue: either a datastream
// individual value, a property set/unset, or an aggregate object, each
// optionally timestamped.
type Expected struct {
	Kind Kind
	Path string

	// Individual / Property set.
	Value astartevalue.Value

	// Property only: true means this expectation is an unset.
	Unset bool

	// Object only.
	Entries []astartevalue.Entry

	HasTimestamp bool
	TimestampMs  int64
}
