package astartedevice

import (
	"github.com/lucaato/astarte-device-sdk-go/astarteiface"
	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
	"github.com/lucaato/astarte-device-sdk-go/bsondoc"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

// handlePublish is the inbound half of the facade (spec.md §4.6): it
// turns a raw transport delivery into an OnData/OnUnset/OnObject
// callback, or silently drops it. Control-plane topics (properties
// purge, etc.) are recognised and currently just consumed — spec.md's
// Non-goals exclude a device-side response to a server purge request.
func (d *Device) handlePublish(topic string, payload []byte) {
	if isControlTopic(d.baseTopic, topic) {
		return
	}

	ifaceName, path, ok := splitDataTopic(d.baseTopic, topic)
	if !ok {
		return
	}
	iface, ok := d.introspection.GetByName(ifaceName)
	if !ok {
		return
	}

	if iface.Aggregation == astarteiface.Object {
		if len(payload) == 0 {
			return
		}
		entries, err := decodeObjectEntries(iface, path, payload)
		if err != nil {
			return
		}
		if d.onObject != nil {
			d.onObject(ifaceName, path, entries)
		}
		return
	}

	m, ok := iface.ResolveMapping(path)
	if !ok {
		return
	}

	if len(payload) == 0 {
		if iface.Type == astarteiface.Property && m.AllowUnset && d.onUnset != nil {
			d.onUnset(ifaceName, path)
		}
		return
	}

	v, err := astartevalue.Decode(payload, "v", m.MT)
	if err != nil {
		// Malformed or type-mismatched payload: spec.md §8 scenario S4
		// requires this to be silently dropped, no callback fires.
		return
	}
	if d.onData != nil {
		d.onData(ifaceName, path, v)
	}
}

// decodeObjectEntries resolves every field of an aggregate document
// against the sub-mapping its key addresses under path, the inbound
// mirror of SendObject's per-entry resolution.
func decodeObjectEntries(iface *astarteiface.Interface, path string, payload []byte) ([]astartevalue.Entry, error) {
	keys, err := bsondoc.Keys(payload)
	if err != nil {
		return nil, err
	}
	entries := make([]astartevalue.Entry, 0, len(keys))
	for _, k := range keys {
		if k == "t" {
			continue
		}
		m, ok := iface.ResolveMapping(path + "/" + k)
		if !ok {
			return nil, errcode.New(errcode.InvalidParam, "astartedevice.decodeObjectEntries")
		}
		v, err := astartevalue.Decode(payload, k, m.MT)
		if err != nil {
			return nil, err
		}
		entries = append(entries, astartevalue.Entry{Path: k, Value: v})
	}
	return entries, nil
}
