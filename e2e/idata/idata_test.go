package idata

import (
	"testing"

	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
)

func TestQueueFIFOCapacityTwo(t *testing.T) {
	q := NewQueue()
	a := &Expected{Kind: Individual, Path: "/a"}
	b := &Expected{Kind: Individual, Path: "/b"}
	c := &Expected{Kind: Individual, Path: "/c"}

	if !q.TryPush(a) {
		t.Fatal("expected push a to succeed")
	}
	if !q.TryPush(b) {
		t.Fatal("expected push b to succeed")
	}
	if q.TryPush(c) {
		t.Fatal("expected push c to fail: queue full at capacity 2")
	}

	got, ok := q.TryPop()
	if !ok || got.Path != "/a" {
		t.Fatalf("expected FIFO pop a, got %+v ok=%v", got, ok)
	}
	got, ok = q.TryPop()
	if !ok || got.Path != "/b" {
		t.Fatalf("expected FIFO pop b, got %+v ok=%v", got, ok)
	}
	if _, ok := q.TryPop(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestReadableFiresOnEmptyToNonEmpty(t *testing.T) {
	q := NewQueue()
	select {
	case <-q.Readable():
		t.Fatal("unexpected readable signal on empty queue")
	default:
	}
	q.TryPush(&Expected{Kind: Individual, Path: "/a"})
	select {
	case <-q.Readable():
	default:
		t.Fatal("expected readable signal after push")
	}
}

func TestVerifyMatchesFIFOPerInterface(t *testing.T) {
	store := NewStore()
	store.Queue("org.example.Sensors").TryPush(&Expected{
		Kind: Individual, Path: "/temperature", Value: astartevalue.FromDouble(21.5),
	})
	store.Queue("org.example.Sensors").TryPush(&Expected{
		Kind: Individual, Path: "/humidity", Value: astartevalue.FromDouble(55.0),
	})

	if err := Verify(store, "org.example.Sensors", &Expected{
		Kind: Individual, Path: "/temperature", Value: astartevalue.FromDouble(21.5),
	}); err != nil {
		t.Fatalf("Verify first: %v", err)
	}
	if err := Verify(store, "org.example.Sensors", &Expected{
		Kind: Individual, Path: "/humidity", Value: astartevalue.FromDouble(55.0),
	}); err != nil {
		t.Fatalf("Verify second: %v", err)
	}
}

func TestVerifyRejectsOutOfOrderDelivery(t *testing.T) {
	store := NewStore()
	store.Queue("org.example.Sensors").TryPush(&Expected{Kind: Individual, Path: "/a", Value: astartevalue.FromInt32(1)})
	store.Queue("org.example.Sensors").TryPush(&Expected{Kind: Individual, Path: "/b", Value: astartevalue.FromInt32(2)})

	if err := Verify(store, "org.example.Sensors", &Expected{Kind: Individual, Path: "/b", Value: astartevalue.FromInt32(2)}); err == nil {
		t.Fatal("expected mismatch: wrong order")
	}
}

func TestVerifyFailsOnEmptyQueue(t *testing.T) {
	store := NewStore()
	if err := Verify(store, "org.example.Sensors", &Expected{Kind: Individual, Path: "/a"}); err == nil {
		t.Fatal("expected failure popping an empty queue")
	}
}

func TestPendingReportsLeftovers(t *testing.T) {
	store := NewStore()
	store.Queue("org.example.Sensors").TryPush(&Expected{Kind: Individual, Path: "/a"})
	pending := store.Pending()
	if pending["org.example.Sensors"] != 1 {
		t.Fatalf("expected 1 pending entry, got %v", pending)
	}
}
