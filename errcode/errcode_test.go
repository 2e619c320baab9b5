package errcode

import (
	"errors"
	"testing"
)

func TestOf_UnwrapsE(t *testing.T) {
	err := Wrap(Tls, "op", errors.New("boom"))
	if got := Of(err); got != Tls {
		t.Fatalf("Of = %v, want %v", got, Tls)
	}
}

func TestOf_PlainErrorIsGenericFallback(t *testing.T) {
	if got := Of(errors.New("boom")); got != Error {
		t.Fatalf("Of = %v, want %v", got, Error)
	}
}

func TestOf_NilIsOK(t *testing.T) {
	if got := Of(nil); got != OK {
		t.Fatalf("Of(nil) = %v, want OK", got)
	}
}

func TestE_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Transport, "op", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is did not find the wrapped cause")
	}
}

func TestMapTransportErr_PreservesAnExistingCode(t *testing.T) {
	err := New(Timeout, "op")
	if got := MapTransportErr(err); got != Timeout {
		t.Fatalf("MapTransportErr = %v, want %v", got, Timeout)
	}
}

func TestMapTransportErr_FallsBackToTransport(t *testing.T) {
	if got := MapTransportErr(errors.New("connection reset")); got != Transport {
		t.Fatalf("MapTransportErr = %v, want %v", got, Transport)
	}
}

func TestMapTransportErr_Nil(t *testing.T) {
	if got := MapTransportErr(nil); got != OK {
		t.Fatalf("MapTransportErr(nil) = %v, want OK", got)
	}
}
