package astarteiface

import (
	"testing"

	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
)

func sampleInterface() *Interface {
	return &Interface{
		Name:        "org.example.Sensors",
		Major:       1,
		Minor:       0,
		Ownership:   Device,
		Aggregation: Individual,
		Type:        Datastream,
		Mappings: []Mapping{
			{Path: "/sensor/%{id}/value", MT: astartevalue.Double},
			{Path: "/sensor/main/value", MT: astartevalue.Int32},
		},
	}
}

func TestResolveMapping_LongestMatchWins(t *testing.T) {
	iface := sampleInterface()

	m, ok := iface.ResolveMapping("/sensor/main/value")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.MT != astartevalue.Int32 {
		t.Fatalf("expected the literal mapping to win, got MT %v", m.MT)
	}

	m2, ok := iface.ResolveMapping("/sensor/other/value")
	if !ok {
		t.Fatal("expected a match via placeholder")
	}
	if m2.MT != astartevalue.Double {
		t.Fatalf("expected placeholder mapping to match, got MT %v", m2.MT)
	}
}

func TestResolveMapping_NoMatch(t *testing.T) {
	iface := sampleInterface()
	if _, ok := iface.ResolveMapping("/sensor/main/value/extra"); ok {
		t.Fatal("expected no match for differing segment count")
	}
	if _, ok := iface.ResolveMapping("/sensor//value"); ok {
		t.Fatal("expected no match for empty segment")
	}
}

func TestIntrospection_CanonicalStringOrder(t *testing.T) {
	ins := New()
	a := &Interface{Name: "com.example.A", Major: 1, Minor: 2}
	b := &Interface{Name: "com.example.B", Major: 0, Minor: 1}
	if err := ins.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ins.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	want := "com.example.A:1:2;com.example.B:0:1"
	if got := ins.CanonicalString(); got != want {
		t.Fatalf("CanonicalString = %q, want %q", got, want)
	}
}

func TestIntrospection_GetMapping(t *testing.T) {
	ins := New()
	iface := sampleInterface()
	if err := ins.Add(iface); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, m, err := ins.GetMapping("org.example.Sensors", "/sensor/main/value")
	if err != nil {
		t.Fatalf("GetMapping: %v", err)
	}
	if m.MT != astartevalue.Int32 {
		t.Fatalf("unexpected MT: %v", m.MT)
	}

	if _, _, err := ins.GetMapping("does.not.Exist", "/x"); err == nil {
		t.Fatal("expected error for unknown interface")
	}
}

func TestLoadInterfaces(t *testing.T) {
	raw := []byte(`[
		{
			"interface_name": "org.example.Sensors",
			"version_major": 1,
			"version_minor": 0,
			"ownership": "device",
			"aggregation": "individual",
			"type": "datastream",
			"mappings": [
				{"endpoint": "/temperature", "type": "double", "explicit_timestamp": true, "qos": 1}
			]
		}
	]`)

	ifaces, err := LoadInterfaces(raw)
	if err != nil {
		t.Fatalf("LoadInterfaces: %v", err)
	}
	if len(ifaces) != 1 {
		t.Fatalf("expected 1 interface, got %d", len(ifaces))
	}
	iface := ifaces[0]
	if iface.Name != "org.example.Sensors" || len(iface.Mappings) != 1 {
		t.Fatalf("unexpected decode result: %+v", iface)
	}
	m := iface.Mappings[0]
	if m.MT != astartevalue.Double || !m.ExplicitTimestamp || m.QoS != 1 {
		t.Fatalf("unexpected mapping decode: %+v", m)
	}
}
