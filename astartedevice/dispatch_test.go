package astartedevice

import (
	"testing"

	"github.com/lucaato/astarte-device-sdk-go/astarteiface"
	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
	"github.com/lucaato/astarte-device-sdk-go/bsondoc"
)

func dispatchTestIntrospection() *astarteiface.Introspection {
	ins := astarteiface.New()
	_ = ins.Add(&astarteiface.Interface{
		Name: "org.ex.Cfg", Major: 1, Minor: 0,
		Ownership: astarteiface.Server, Type: astarteiface.Datastream, Aggregation: astarteiface.Individual,
		Mappings: []astarteiface.Mapping{
			{Path: "/tags", MT: astartevalue.StringArray, QoS: 2},
			{Path: "/count", MT: astartevalue.Int32, QoS: 2},
		},
	})
	_ = ins.Add(&astarteiface.Interface{
		Name: "com.ex.Switch", Major: 0, Minor: 1,
		Ownership: astarteiface.Server, Type: astarteiface.Property, Aggregation: astarteiface.Individual,
		Mappings: []astarteiface.Mapping{
			{Path: "/on", MT: astartevalue.Bool, QoS: 2, AllowUnset: true},
		},
	})
	_ = ins.Add(&astarteiface.Interface{
		Name: "org.ex.Samples", Major: 1, Minor: 0,
		Ownership: astarteiface.Server, Type: astarteiface.Datastream, Aggregation: astarteiface.Object,
		Mappings: []astarteiface.Mapping{
			{Path: "/group/temperature", MT: astartevalue.Double, QoS: 1},
			{Path: "/group/humidity", MT: astartevalue.Double, QoS: 2},
		},
	})
	return ins
}

func dispatchTestDevice() *Device {
	d := New(Config{HandshakeBackoffInitMs: 1, HandshakeBackoffMaxMs: 5}, dispatchTestIntrospection(), newFakeTransport(), nil, nil, nil, Callbacks{})
	d.baseTopic = "realm/dev1"
	d.state = Connected
	return d
}

// S3: inbound string array dispatch.
func TestDispatch_InboundStringArray_S3(t *testing.T) {
	d := dispatchTestDevice()

	var gotIface, gotPath string
	var gotValue astartevalue.Value
	called := 0
	d.onData = func(ifaceName, path string, v astartevalue.Value) {
		called++
		gotIface, gotPath, gotValue = ifaceName, path, v
	}

	w := bsondoc.NewWriter()
	astartevalue.FromStringArray([]string{"a", "b", "c"}).AppendTo(w, "v")
	d.handlePublish("realm/dev1/org.ex.Cfg/tags", w.End())

	if called != 1 {
		t.Fatalf("onData called %d times, want 1", called)
	}
	if gotIface != "org.ex.Cfg" || gotPath != "/tags" {
		t.Fatalf("iface=%q path=%q", gotIface, gotPath)
	}
	arr, err := gotValue.ToStringArray()
	if err != nil {
		t.Fatalf("ToStringArray: %v", err)
	}
	if len(arr) != 3 || arr[0] != "a" || arr[1] != "b" || arr[2] != "c" {
		t.Fatalf("arr = %v", arr)
	}
}

// S4: a type-mismatched inbound payload is dropped, no callback fires.
func TestDispatch_TypeMismatchDropsSilently_S4(t *testing.T) {
	d := dispatchTestDevice()

	called := 0
	d.onData = func(ifaceName, path string, v astartevalue.Value) { called++ }

	w := bsondoc.NewWriter()
	astartevalue.FromString("not-an-integer").AppendTo(w, "v")
	d.handlePublish("realm/dev1/org.ex.Cfg/count", w.End())

	if called != 0 {
		t.Fatalf("onData called %d times, want 0 on type mismatch", called)
	}
}

func TestDispatch_ZeroLengthPayloadOnPropertyFiresUnset(t *testing.T) {
	d := dispatchTestDevice()

	unsetCalled := 0
	var gotIface, gotPath string
	d.onUnset = func(ifaceName, path string) {
		unsetCalled++
		gotIface, gotPath = ifaceName, path
	}
	d.onData = func(ifaceName, path string, v astartevalue.Value) {
		t.Fatal("onData should not fire for a zero-length payload")
	}

	d.handlePublish("realm/dev1/com.ex.Switch/on", nil)

	if unsetCalled != 1 {
		t.Fatalf("onUnset called %d times, want 1", unsetCalled)
	}
	if gotIface != "com.ex.Switch" || gotPath != "/on" {
		t.Fatalf("iface=%q path=%q", gotIface, gotPath)
	}
}

func TestDispatch_ControlTopicIsIgnored(t *testing.T) {
	d := dispatchTestDevice()
	d.onData = func(ifaceName, path string, v astartevalue.Value) {
		t.Fatal("onData should not fire for a control topic")
	}
	d.handlePublish("realm/dev1/control/consumer/properties", []byte("anything"))
}

func TestDispatch_InboundObjectDecodesEachEntry(t *testing.T) {
	d := dispatchTestDevice()

	var gotIface, gotPath string
	var gotEntries []astartevalue.Entry
	called := 0
	d.onObject = func(ifaceName, path string, entries []astartevalue.Entry) {
		called++
		gotIface, gotPath, gotEntries = ifaceName, path, entries
	}

	w := bsondoc.NewWriter()
	astartevalue.FromDouble(19.0).AppendTo(w, "temperature")
	astartevalue.FromDouble(55.0).AppendTo(w, "humidity")
	d.handlePublish("realm/dev1/org.ex.Samples/group", w.End())

	if called != 1 {
		t.Fatalf("onObject called %d times, want 1", called)
	}
	if gotIface != "org.ex.Samples" || gotPath != "/group" {
		t.Fatalf("iface=%q path=%q", gotIface, gotPath)
	}
	if len(gotEntries) != 2 {
		t.Fatalf("entries = %d, want 2", len(gotEntries))
	}
}

func TestDispatch_UnknownInterfaceIsIgnored(t *testing.T) {
	d := dispatchTestDevice()
	d.onData = func(ifaceName, path string, v astartevalue.Value) {
		t.Fatal("onData should not fire for an unregistered interface")
	}
	d.handlePublish("realm/dev1/does.not.Exist/x", []byte("anything"))
}
