package server

import (
	"testing"
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	if s, ok := r.CreateStream("app/stream1"); !ok || s == nil {
		t.Fatalf("expected new stream to be created")
	}
	// idempotent create
	if _, ok := r.CreateStream("app/stream1"); ok {
		t.Fatalf("expected existing stream, not newly created")
	}
	if r.GetStream("missing") != nil {
		t.Fatalf("expected nil for missing stream")
	}
}

// A key has at most one publisher: the second CreateStream on an active key
// reports a duplicate (StreamKeyBusy) instead of creating a new stream.
func TestRegistryPublisher(t *testing.T) {
	r := NewRegistry()
	if _, created := r.CreateStream("stream2"); !created {
		t.Fatalf("unexpected duplicate on first publisher")
	}
	if s, created := r.CreateStream("stream2"); created || s == nil {
		t.Fatalf("expected duplicate on second publisher")
	}
}

// Distinct keys are tracked side by side (the registry has no subscribers;
// it only holds the active stream-key set).
func TestRegistryMultipleStreams(t *testing.T) {
	r := NewRegistry()
	r.CreateStream("stream3a")
	r.CreateStream("stream3b")
	if c := r.Count(); c != 2 {
		t.Fatalf("expected 2 active streams, got %d", c)
	}
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry()
	r.CreateStream("app/stream4")
	if !r.DeleteStream("app/stream4") {
		t.Fatalf("expected delete to succeed")
	}
	if r.GetStream("app/stream4") != nil {
		t.Fatalf("expected stream to be gone")
	}
	if r.DeleteStream("app/stream4") { // second delete
		t.Fatalf("expected second delete to be false")
	}
}
