package astarteiface

import (
	"strings"

	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
)

// Ownership names which side of the connection originates writes.
type Ownership string

const (
	Device Ownership = "device"
	Server Ownership = "server"
)

// Aggregation names whether a publish carries one value or a record.
type Aggregation string

const (
	Individual Aggregation = "individual"
	Object     Aggregation = "object"
)

// Kind names whether an interface is a stream of events or a property bag.
type Kind string

const (
	Datastream Kind = "datastream"
	Property   Kind = "properties"
)

// Mapping is one path (possibly parameterized with %{name} placeholders)
// within an Interface, with its associated value type and delivery policy.
type Mapping struct {
	Path              string
	MT                astartevalue.MT
	QoS               int
	Reliability       string
	Retention         string
	ExplicitTimestamp bool
	AllowUnset        bool
}

func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isPlaceholder(seg string) bool {
	return strings.HasPrefix(seg, "%{") && strings.HasSuffix(seg, "}") && len(seg) > 3
}

// matchScore reports whether the mapping's path pattern matches a concrete
// path of the same segment count, and if so how many segments matched
// literally (as opposed to via a %{param} placeholder) — the "longest
// match" tiebreaker of §4.3.
func (m Mapping) matchScore(concreteSegs []string) (score int, ok bool) {
	patternSegs := splitPath(m.Path)
	if len(patternSegs) != len(concreteSegs) {
		return 0, false
	}
	for i, p := range patternSegs {
		if isPlaceholder(p) {
			if concreteSegs[i] == "" {
				return 0, false
			}
			continue
		}
		if p != concreteSegs[i] {
			return 0, false
		}
		score++
	}
	return score, true
}
