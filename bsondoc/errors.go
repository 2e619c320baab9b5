package bsondoc

import "github.com/lucaato/astarte-device-sdk-go/errcode"

func errMalformed(op string) error {
	return errcode.New(errcode.CodecMalformed, op)
}

func errTypeMismatch(op string) error {
	return errcode.New(errcode.CodecTypeMismatch, op)
}
