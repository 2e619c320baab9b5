package astarteiface

import (
	"github.com/lucaato/astarte-device-sdk-go/errcode"
	"github.com/lucaato/astarte-device-sdk-go/x/strx"
)

// Interface is an immutable descriptor for one versioned schema of typed
// paths, per §3: name, major/minor version, ownership, aggregation, type,
// and its ordered set of Mappings.
type Interface struct {
	Name        string
	Major       int
	Minor       int
	Ownership   Ownership
	Aggregation Aggregation
	Type        Kind
	Mappings    []Mapping
}

// ResolveMapping finds the best-matching Mapping for concretePath, using
// longest-literal-match with first-registered-wins on ties, per §4.3.
func (i *Interface) ResolveMapping(concretePath string) (*Mapping, bool) {
	segs := strx.Segments(concretePath)
	bestScore := -1
	var best *Mapping
	for idx := range i.Mappings {
		score, ok := i.Mappings[idx].matchScore(segs)
		if !ok {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = &i.Mappings[idx]
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// AllowsIndividual reports whether a datastream+individual send is valid on
// this interface.
func (i *Interface) AllowsIndividual() bool {
	return i.Type == Datastream && i.Aggregation == Individual
}

// AllowsObject reports whether an object send is valid on this interface.
func (i *Interface) AllowsObject() bool {
	return i.Type == Datastream && i.Aggregation == Object
}

// AllowsProperty reports whether set/unset-property is valid on this
// interface.
func (i *Interface) AllowsProperty() bool {
	return i.Type == Property
}

func errInvalid(op string) error { return errcode.New(errcode.InvalidParam, op) }
