// Package errcode defines the stable, wire-facing error vocabulary shared by
// the codec, connection state machine, and device facade.
package errcode

// Code is a stable error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	InvalidParam      Code = "invalid_param"
	NotReady          Code = "not_ready"
	AlreadyConnecting Code = "already_connecting"
	AlreadyConnected  Code = "already_connected"
	Transport         Code = "transport"
	Tls               Code = "tls"
	Pairing           Code = "pairing"
	CodecTypeMismatch Code = "codec_type_mismatch"
	CodecMalformed    Code = "codec_malformed"
	OutOfMemory       Code = "out_of_memory"
	Timeout           Code = "timeout"
	Internal          Code = "internal"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// New builds an E carrying only a code and operation name.
func New(c Code, op string) *E { return &E{C: c, Op: op} }

// Wrap builds an E around an existing error, tagging it with a code.
func Wrap(c Code, op string, err error) *E { return &E{C: c, Op: op, Err: err} }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapTransportErr maps an error returned by the Transport capability to a
// Code. Extend the heuristics as concrete transport implementations grow.
func MapTransportErr(err error) Code {
	if err == nil {
		return OK
	}
	if c := Of(err); c != Error {
		return c
	}
	return Transport
}
