package astarteiface

import (
	"github.com/andreyvit/tinyjson"

	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

// LoadInterfaces decodes a JSON array of Astarte interface descriptors,
// the embedded-at-build-time interface declarations every real
// interface-driven device needs. Grounded on services/config/config.go's
// tinyjson-based embedded-config decode, generalized from a flat
// key/value map to the real Astarte interface schema (interface_name,
// version_major, version_minor, ownership, aggregation, type, mappings[]).
func LoadInterfaces(raw []byte) ([]*Interface, error) {
	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	items, ok := val.([]any)
	if !ok {
		return nil, errcode.New(errcode.InvalidParam, "astarteiface.LoadInterfaces")
	}

	out := make([]*Interface, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errcode.New(errcode.InvalidParam, "astarteiface.LoadInterfaces")
		}
		iface, err := decodeInterface(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, iface)
	}
	return out, nil
}

func decodeInterface(obj map[string]any) (*Interface, error) {
	name, ok := stringField(obj, "interface_name")
	if !ok || name == "" {
		return nil, errcode.New(errcode.InvalidParam, "astarteiface.decodeInterface")
	}

	iface := &Interface{
		Name:        name,
		Major:       intField(obj, "version_major", 0),
		Minor:       intField(obj, "version_minor", 0),
		Ownership:   Ownership(stringFieldOr(obj, "ownership", string(Device))),
		Aggregation: Aggregation(stringFieldOr(obj, "aggregation", string(Individual))),
		Type:        Kind(stringFieldOr(obj, "type", string(Datastream))),
	}

	rawMappings, _ := obj["mappings"].([]any)
	for _, rm := range rawMappings {
		mobj, ok := rm.(map[string]any)
		if !ok {
			return nil, errcode.New(errcode.InvalidParam, "astarteiface.decodeInterface")
		}
		m, err := decodeMapping(mobj)
		if err != nil {
			return nil, err
		}
		iface.Mappings = append(iface.Mappings, m)
	}
	return iface, nil
}

func decodeMapping(obj map[string]any) (Mapping, error) {
	path, ok := stringField(obj, "endpoint")
	if !ok || path == "" {
		return Mapping{}, errcode.New(errcode.InvalidParam, "astarteiface.decodeMapping")
	}
	typeName, _ := stringField(obj, "type")
	mt, ok := mtByName(typeName)
	if !ok {
		return Mapping{}, errcode.New(errcode.InvalidParam, "astarteiface.decodeMapping")
	}

	return Mapping{
		Path:              path,
		MT:                mt,
		QoS:               intField(obj, "qos", 2),
		Reliability:       stringFieldOr(obj, "reliability", "unique"),
		Retention:         stringFieldOr(obj, "retention", "discard"),
		ExplicitTimestamp: boolField(obj, "explicit_timestamp", false),
		AllowUnset:        boolField(obj, "allow_unset", false),
	}, nil
}

func mtByName(name string) (astartevalue.MT, bool) {
	switch name {
	case "boolean":
		return astartevalue.Bool, true
	case "datetime":
		return astartevalue.DateTime, true
	case "double":
		return astartevalue.Double, true
	case "integer":
		return astartevalue.Int32, true
	case "longinteger":
		return astartevalue.Int64, true
	case "string":
		return astartevalue.String, true
	case "binaryblob":
		return astartevalue.Binary, true
	case "booleanarray":
		return astartevalue.BoolArray, true
	case "datetimearray":
		return astartevalue.DateTimeArray, true
	case "doublearray":
		return astartevalue.DoubleArray, true
	case "integerarray":
		return astartevalue.Int32Array, true
	case "longintegerarray":
		return astartevalue.Int64Array, true
	case "stringarray":
		return astartevalue.StringArray, true
	case "binaryblobarray":
		return astartevalue.BinaryArray, true
	default:
		return 0, false
	}
}

func stringField(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key].(string)
	return v, ok
}

func stringFieldOr(obj map[string]any, key, def string) string {
	if v, ok := stringField(obj, key); ok && v != "" {
		return v
	}
	return def
}

func intField(obj map[string]any, key string, def int) int {
	if v, ok := obj[key].(float64); ok {
		return int(v)
	}
	return def
}

func boolField(obj map[string]any, key string, def bool) bool {
	if v, ok := obj[key].(bool); ok {
		return v
	}
	return def
}
