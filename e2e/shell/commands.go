package shell

import (
	"encoding/base64"

	"github.com/google/shlex"

	"github.com/lucaato/astarte-device-sdk-go/astarteiface"
	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
	"github.com/lucaato/astarte-device-sdk-go/bsondoc"
	"github.com/lucaato/astarte-device-sdk-go/e2e/idata"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
	"github.com/lucaato/astarte-device-sdk-go/x/strconvx"
)

// Exec tokenizes line and dispatches to the matching command, per
// spec.md §4.7's grammar. An empty line (blank, or all whitespace) is a
// no-op.
func (s *Shell) Exec(line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return errcode.Wrap(errcode.InvalidParam, "shell.Exec", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	args := tokens[1:]
	switch tokens[0] {
	case "expect_individual":
		return s.cmdExpect(idata.Individual, args)
	case "expect_object":
		return s.cmdExpectObject(args)
	case "expect_property_set":
		return s.cmdExpect(idata.Property, args)
	case "expect_property_unset":
		return s.cmdExpectPropertyUnset(args)
	case "send_individual":
		return s.cmdSendIndividual(args)
	case "send_object":
		return s.cmdSendObject(args)
	case "send_property_set":
		return s.cmdSendPropertySet(args)
	case "send_property_unset":
		return s.cmdSendPropertyUnset(args)
	case "disconnect":
		return s.cmdDisconnect()
	default:
		return usage("shell.Exec: unknown command " + tokens[0])
	}
}

// cmdExpect handles expect_individual and expect_property_set, which
// share a grammar: <iface> <path> <base64-bson> [unix-ms].
func (s *Shell) cmdExpect(kind idata.Kind, args []string) error {
	if len(args) < 3 {
		return usage("shell.expect: want <iface> <path> <base64-bson> [unix-ms]")
	}
	ifaceName, path := args[0], args[1]

	_, m, err := s.device.Introspection().GetMapping(ifaceName, path)
	if err != nil {
		return err
	}
	v, hasTs, tsMs, err := decodeScalarDoc(args[2], args[3:], m.MT)
	if err != nil {
		return err
	}
	exp := &idata.Expected{Kind: kind, Path: path, Value: v, HasTimestamp: hasTs, TimestampMs: tsMs}
	if !s.store.Queue(ifaceName).TryPush(exp) {
		return usage("shell.expect: queue full for " + ifaceName)
	}
	return nil
}

func (s *Shell) cmdExpectObject(args []string) error {
	if len(args) < 3 {
		return usage("shell.expect_object: want <iface> <path> <base64-bson> [unix-ms]")
	}
	ifaceName, path := args[0], args[1]

	iface, ok := s.device.Introspection().GetByName(ifaceName)
	if !ok {
		return usage("shell.expect_object: unknown interface " + ifaceName)
	}
	doc, err := decodeBase64(args[2])
	if err != nil {
		return err
	}
	entries, err := decodeObjectEntries(iface, path, doc)
	if err != nil {
		return err
	}
	hasTs, tsMs, err := optionalTimestamp(doc, args[3:])
	if err != nil {
		return err
	}
	exp := &idata.Expected{Kind: idata.Object, Path: path, Entries: entries, HasTimestamp: hasTs, TimestampMs: tsMs}
	if !s.store.Queue(ifaceName).TryPush(exp) {
		return usage("shell.expect_object: queue full for " + ifaceName)
	}
	return nil
}

func (s *Shell) cmdExpectPropertyUnset(args []string) error {
	if len(args) != 2 {
		return usage("shell.expect_property_unset: want <iface> <path>")
	}
	ifaceName, path := args[0], args[1]
	exp := &idata.Expected{Kind: idata.Property, Path: path, Unset: true}
	if !s.store.Queue(ifaceName).TryPush(exp) {
		return usage("shell.expect_property_unset: queue full for " + ifaceName)
	}
	return nil
}

func (s *Shell) cmdSendIndividual(args []string) error {
	if len(args) < 3 {
		return usage("shell.send_individual: want <iface> <path> <base64-bson> [unix-ms]")
	}
	ifaceName, path := args[0], args[1]
	_, m, err := s.device.Introspection().GetMapping(ifaceName, path)
	if err != nil {
		return err
	}
	v, hasTs, tsMs, err := decodeScalarDoc(args[2], args[3:], m.MT)
	if err != nil {
		return err
	}
	var tsPtr *int64
	if hasTs {
		tsPtr = &tsMs
	}
	return s.device.SendIndividual(ifaceName, path, v, tsPtr)
}

func (s *Shell) cmdSendObject(args []string) error {
	if len(args) < 3 {
		return usage("shell.send_object: want <iface> <path> <base64-bson> [unix-ms]")
	}
	ifaceName, path := args[0], args[1]
	iface, ok := s.device.Introspection().GetByName(ifaceName)
	if !ok {
		return usage("shell.send_object: unknown interface " + ifaceName)
	}
	doc, err := decodeBase64(args[2])
	if err != nil {
		return err
	}
	entries, err := decodeObjectEntries(iface, path, doc)
	if err != nil {
		return err
	}
	hasTs, tsMs, err := optionalTimestamp(doc, args[3:])
	if err != nil {
		return err
	}
	var tsPtr *int64
	if hasTs {
		tsPtr = &tsMs
	}
	return s.device.SendObject(ifaceName, path, entries, tsPtr)
}

func (s *Shell) cmdSendPropertySet(args []string) error {
	if len(args) != 3 {
		return usage("shell.send_property_set: want <iface> <path> <base64-bson>")
	}
	ifaceName, path := args[0], args[1]
	_, m, err := s.device.Introspection().GetMapping(ifaceName, path)
	if err != nil {
		return err
	}
	v, _, _, err := decodeScalarDoc(args[2], nil, m.MT)
	if err != nil {
		return err
	}
	return s.device.SetProperty(ifaceName, path, v)
}

func (s *Shell) cmdSendPropertyUnset(args []string) error {
	if len(args) != 2 {
		return usage("shell.send_property_unset: want <iface> <path>")
	}
	return s.device.UnsetProperty(args[0], args[1])
}

func (s *Shell) cmdDisconnect() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return s.device.Disconnect()
}

// decodeScalarDoc base64-decodes a full document, deserializes its "v"
// element against mt, and parses an optional trailing unix-ms timestamp
// token.
func decodeScalarDoc(b64 string, tsTokens []string, mt astartevalue.MT) (v astartevalue.Value, hasTs bool, tsMs int64, err error) {
	doc, err := decodeBase64(b64)
	if err != nil {
		return astartevalue.Value{}, false, 0, err
	}
	v, err = astartevalue.Decode(doc, "v", mt)
	if err != nil {
		return astartevalue.Value{}, false, 0, err
	}
	hasTs, tsMs, err = optionalTimestamp(doc, tsTokens)
	return v, hasTs, tsMs, err
}

func optionalTimestamp(doc []byte, tsTokens []string) (hasTs bool, tsMs int64, err error) {
	if len(tsTokens) == 0 {
		return false, 0, nil
	}
	tsMs, err = strconvx.ParseInt(tsTokens[0], 10, 64)
	if err != nil {
		return false, 0, usage("shell: malformed timestamp " + tsTokens[0])
	}
	return true, tsMs, nil
}

func decodeBase64(s string) ([]byte, error) {
	doc, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodecMalformed, "shell.decodeBase64", err)
	}
	return doc, nil
}

// decodeObjectEntries mirrors astartedevice's inbound object decode: each
// top-level key (other than the optional "t") is resolved against its
// own sub-mapping under path and deserialized accordingly.
func decodeObjectEntries(iface *astarteiface.Interface, path string, doc []byte) ([]astartevalue.Entry, error) {
	keys, err := bsondoc.Keys(doc)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodecMalformed, "shell.decodeObjectEntries", err)
	}
	entries := make([]astartevalue.Entry, 0, len(keys))
	for _, k := range keys {
		if k == "t" {
			continue
		}
		m, ok := iface.ResolveMapping(path + "/" + k)
		if !ok {
			return nil, usage("shell.decodeObjectEntries: no mapping for " + path + "/" + k)
		}
		v, err := astartevalue.Decode(doc, k, m.MT)
		if err != nil {
			return nil, err
		}
		entries = append(entries, astartevalue.Entry{Path: k, Value: v})
	}
	return entries, nil
}
