package astarteiface

import (
	"github.com/lucaato/astarte-device-sdk-go/errcode"
	"github.com/lucaato/astarte-device-sdk-go/x/conv"
)

// Introspection holds the device's declared interface set: a map from
// interface name to descriptor plus stable insertion order, for the
// canonical string form §4.3 requires.
type Introspection struct {
	order  []string
	byName map[string]*Interface
}

// New returns an empty Introspection.
func New() *Introspection {
	return &Introspection{byName: make(map[string]*Interface)}
}

// Add registers iface. Re-adding an existing name replaces the descriptor
// in place without disturbing its original insertion position.
func (ins *Introspection) Add(iface *Interface) error {
	if iface == nil || iface.Name == "" {
		return errInvalid("astarteiface.Add")
	}
	if _, exists := ins.byName[iface.Name]; !exists {
		ins.order = append(ins.order, iface.Name)
	}
	ins.byName[iface.Name] = iface
	return nil
}

// GetByName looks up a registered interface.
func (ins *Introspection) GetByName(name string) (*Interface, bool) {
	iface, ok := ins.byName[name]
	return iface, ok
}

// GetMapping resolves a concrete path against the named interface's
// mappings.
func (ins *Introspection) GetMapping(ifaceName, concretePath string) (*Interface, *Mapping, error) {
	iface, ok := ins.GetByName(ifaceName)
	if !ok {
		return nil, nil, errcode.New(errcode.InvalidParam, "astarteiface.GetMapping")
	}
	m, ok := iface.ResolveMapping(concretePath)
	if !ok {
		return nil, nil, errcode.New(errcode.InvalidParam, "astarteiface.GetMapping")
	}
	return iface, m, nil
}

// Iter returns every registered interface in insertion order.
func (ins *Introspection) Iter() []*Interface {
	out := make([]*Interface, 0, len(ins.order))
	for _, name := range ins.order {
		out = append(out, ins.byName[name])
	}
	return out
}

// CanonicalString renders "name:major:minor;..." in insertion order, the
// string published during the connection handshake.
func (ins *Introspection) CanonicalString() string {
	buf := make([]byte, 0, 64*len(ins.order))
	var numBuf [20]byte
	for idx, name := range ins.order {
		iface := ins.byName[name]
		if idx > 0 {
			buf = append(buf, ';')
		}
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = append(buf, conv.Itoa(numBuf[:], int64(iface.Major))...)
		buf = append(buf, ':')
		buf = append(buf, conv.Itoa(numBuf[:], int64(iface.Minor))...)
	}
	return string(buf)
}
