package astartedevice

import "testing"

func TestBaseTopicOf(t *testing.T) {
	if got := baseTopicOf("myrealm", "dev1"); got != "myrealm/dev1" {
		t.Fatalf("baseTopicOf = %q", got)
	}
}

func TestDataTopic(t *testing.T) {
	if got := dataTopic("realm/dev1", "org.example.Sensors", "/temperature"); got != "realm/dev1/org.example.Sensors/temperature" {
		t.Fatalf("dataTopic = %q", got)
	}
}

func TestControlTopics(t *testing.T) {
	base := "realm/dev1"
	if got := controlEmptyCacheTopic(base); got != "realm/dev1/control/emptyCache" {
		t.Fatalf("controlEmptyCacheTopic = %q", got)
	}
	if got := controlConsumerPropertiesTopic(base); got != "realm/dev1/control/consumer/properties" {
		t.Fatalf("controlConsumerPropertiesTopic = %q", got)
	}
}

func TestServerIfaceSubtree(t *testing.T) {
	if got := serverIfaceSubtree("realm/dev1", "org.example.Actuators"); got != "realm/dev1/org.example.Actuators/#" {
		t.Fatalf("serverIfaceSubtree = %q", got)
	}
}

func TestSplitDataTopic(t *testing.T) {
	iface, path, ok := splitDataTopic("realm/dev1", "realm/dev1/org.example.Sensors/temperature")
	if !ok {
		t.Fatal("expected ok")
	}
	if iface != "org.example.Sensors" || path != "/temperature" {
		t.Fatalf("iface=%q path=%q", iface, path)
	}

	if _, _, ok := splitDataTopic("realm/dev1", "otherrealm/dev1/foo/bar"); ok {
		t.Fatal("expected no match for differing base")
	}
	if _, _, ok := splitDataTopic("realm/dev1", "realm/dev1/org.example.Sensors"); ok {
		t.Fatal("expected no match when path component is missing")
	}
}

func TestIsControlTopic(t *testing.T) {
	base := "realm/dev1"
	if !isControlTopic(base, "realm/dev1/control/emptyCache") {
		t.Fatal("expected control topic to match")
	}
	if isControlTopic(base, "realm/dev1/org.example.Sensors/temperature") {
		t.Fatal("expected data topic not to match")
	}
}
