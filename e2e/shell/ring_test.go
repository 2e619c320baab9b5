package shell

import (
	"io"
	"strings"
	"testing"
)

func TestRingPipe_RelaysAllBytesThenEOF(t *testing.T) {
	src := strings.Repeat("x", 10000)
	rp := newRingPipe(strings.NewReader(src), 64)

	got, err := io.ReadAll(rp)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != src {
		t.Fatalf("relayed %d bytes, want %d matching source", len(got), len(src))
	}
}

func TestRingPipe_EmptySourceIsImmediateEOF(t *testing.T) {
	rp := newRingPipe(strings.NewReader(""), 8)
	buf := make([]byte, 4)
	_, err := rp.Read(buf)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}
