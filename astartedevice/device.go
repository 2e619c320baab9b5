// Package astartedevice implements the connection state machine (C5) and
// device facade (C6): the public surface an application drives to
// register, connect, publish, and receive data against a statically
// declared interface set.
//
// Grounded on services/bridge/bridge.go's Service (config arrives, a link
// is supervised, state is published) and services/heartbeat/service.go's
// ticker-plus-channel select loop, generalized from "supervise one UART
// link" to "drive one Astarte connection through its handshake states".
package astartedevice

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/lucaato/astarte-device-sdk-go/astarteiface"
	"github.com/lucaato/astarte-device-sdk-go/astartelog"
	"github.com/lucaato/astarte-device-sdk-go/astartepairing"
	"github.com/lucaato/astarte-device-sdk-go/astartetransport"
	"github.com/lucaato/astarte-device-sdk-go/astartevalue"
	"github.com/lucaato/astarte-device-sdk-go/bsondoc"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
	"github.com/lucaato/astarte-device-sdk-go/tlsstore"
	"github.com/lucaato/astarte-device-sdk-go/x/strconvx"
)

// Config is the static, build-time environment of spec.md §6: realm/host
// overrides are folded into the Pairing capability itself here, leaving
// the device only the credential tag and handshake backoff bounds —
// everything the facade needs that isn't already the pairing backend's
// job.
type Config struct {
	TLSTag                 int
	HandshakeBackoffInitMs int64
	HandshakeBackoffMaxMs  int64

	// Logger receives connection-lifecycle lines (connecting, handshake
	// errors, reconnect backoff). astartelog.Default if left nil.
	Logger astartelog.Logger
}

// Callbacks are the user-supplied reentrancy points of spec.md §5: all
// five fire from the poll thread and must not call back into Poll.
type Callbacks struct {
	OnConnect    func()
	OnDisconnect func()
	OnData       func(ifaceName, path string, v astartevalue.Value)
	OnUnset      func(ifaceName, path string)
	OnObject     func(ifaceName, path string, entries []astartevalue.Entry)
}

// Device is the facade and state machine combined (C5+C6 share one
// struct because they share one thread of mutation, per spec.md §5).
type Device struct {
	cfg           Config
	introspection *astarteiface.Introspection
	transport     astartetransport.Transport
	pairing       astartepairing.Pairing
	tlsStore      tlsstore.TLSStore
	store         Store

	state               ConnectionState
	token               astartetransport.Token
	credSecret          string
	baseTopic           string
	sessionPresent      bool
	subscriptionFailure bool
	pendingSubs         map[uint64]bool
	backoff             *Backoff
	reconnectAt         time.Time
	log                 astartelog.Logger

	events chan *event

	onConnect    func()
	onDisconnect func()
	onData       func(ifaceName, path string, v astartevalue.Value)
	onUnset      func(ifaceName, path string)
	onObject     func(ifaceName, path string, entries []astartevalue.Entry)
}

// New constructs a Device bound to a fixed introspection set and a set of
// environment capabilities. tlsStore and store may be nil: a nil
// tlsStore skips credential installation (useful against an InsecureNoTLS
// pairing backend), a nil store disables the session-resume optimization.
func New(cfg Config, introspection *astarteiface.Introspection, transport astartetransport.Transport, pairing astartepairing.Pairing, tlsStore tlsstore.TLSStore, store Store, cb Callbacks) *Device {
	logger := cfg.Logger
	if logger == nil {
		logger = astartelog.Default
	}
	return &Device{
		cfg:           cfg,
		introspection: introspection,
		transport:     transport,
		pairing:       pairing,
		tlsStore:      tlsStore,
		store:         store,
		state:         Disconnected,
		backoff:       NewBackoff(cfg.HandshakeBackoffInitMs, cfg.HandshakeBackoffMaxMs),
		log:           logger,
		events:        make(chan *event, 64),
		onConnect:     cb.OnConnect,
		onDisconnect:  cb.OnDisconnect,
		onData:        cb.OnData,
		onUnset:       cb.OnUnset,
		onObject:      cb.OnObject,
	}
}

// State reports the current connection state.
func (d *Device) State() ConnectionState { return d.state }

// Introspection returns the device's declared interface set, for callers
// (the E2E harness) that need to resolve a mapping's type ahead of
// decoding a command-supplied payload.
func (d *Device) Introspection() *astarteiface.Introspection { return d.introspection }

// BaseTopic reports "<realm>/<device_id>", populated once Connect has
// obtained a client certificate. Empty before the first successful
// Connect.
func (d *Device) BaseTopic() string { return d.baseTopic }

// Connect arms the transport: it runs the pairing round trip, installs
// the client certificate, and asks the transport to dial. It does not
// block on the handshake — that unfolds across subsequent Poll calls, per
// spec.md §5.
func (d *Device) Connect(ctx context.Context) error {
	switch d.state {
	case Connecting, StartHandshake, EndHandshake, HandshakeError:
		return errcode.New(errcode.AlreadyConnecting, "astartedevice.Connect")
	case Connected:
		return errcode.New(errcode.AlreadyConnected, "astartedevice.Connect")
	}

	if d.credSecret == "" {
		secret, err := d.pairing.RegisterDevice(ctx)
		if err != nil {
			return errcode.Wrap(errcode.Pairing, "astartedevice.Connect", err)
		}
		d.credSecret = secret
	}

	brokerURL, err := d.pairing.GetBrokerURL(ctx, d.credSecret)
	if err != nil {
		return errcode.Wrap(errcode.Pairing, "astartedevice.Connect", err)
	}
	host, port, insecure, err := parseBrokerURL(brokerURL)
	if err != nil {
		return errcode.Wrap(errcode.Pairing, "astartedevice.Connect", err)
	}

	keyPEM, certPEM, err := d.pairing.GetClientCertificate(ctx, d.credSecret)
	if err != nil {
		return errcode.Wrap(errcode.Pairing, "astartedevice.Connect", err)
	}

	baseTopic, err := baseTopicFromCertCN(certPEM)
	if err != nil {
		return errcode.Wrap(errcode.Pairing, "astartedevice.Connect", err)
	}

	if d.tlsStore != nil {
		if err := d.tlsStore.Install(d.cfg.TLSTag, keyPEM, certPEM); err != nil {
			return errcode.Wrap(errcode.Tls, "astartedevice.Connect", err)
		}
	}

	tok, err := d.transport.Connect(ctx, host, port, astartetransport.TLSConfig{
		PrivateKeyPEM: keyPEM,
		CertPEM:       certPEM,
		InsecureNoTLS: insecure,
	}, d.callbacks())
	if err != nil {
		return errcode.Wrap(errcode.MapTransportErr(err), "astartedevice.Connect", err)
	}

	d.baseTopic = baseTopic
	d.token = tok
	d.state = Connecting
	d.log.Infof("connecting as %s", baseTopic)
	return nil
}

// Disconnect requests a graceful transport disconnect. The device only
// observes Disconnected once the resulting event is drained by Poll.
func (d *Device) Disconnect() error {
	if d.state == Disconnected {
		return errcode.New(errcode.NotReady, "astartedevice.Disconnect")
	}
	if err := d.transport.Disconnect(d.token); err != nil {
		return errcode.Wrap(errcode.MapTransportErr(err), "astartedevice.Disconnect", err)
	}
	d.log.Infof("disconnect requested")
	return nil
}

// Destroy releases the installed TLS credential. Call after a final
// Disconnect (or from Disconnected) once the device is no longer needed.
func (d *Device) Destroy() {
	if d.tlsStore != nil {
		_ = d.tlsStore.Remove(d.cfg.TLSTag)
	}
	d.log.Debugf("destroyed")
}

// Poll is the only blocking call (spec.md §5): it applies whatever events
// already arrived, waits on the transport up to ctx's deadline, then
// applies anything that arrived during the wait.
func (d *Device) Poll(ctx context.Context) error {
	// Reconnect is checked before any event is applied, so a
	// HandshakeError entered during this Poll is left no earlier than the
	// next one.
	d.checkReconnect()
	d.drainEvents()
	if d.state == Disconnected {
		return nil
	}

	err := d.transport.Poll(ctx, d.token)
	d.drainEvents()

	if err != nil && errcode.Of(err) != errcode.Timeout {
		return errcode.Wrap(errcode.MapTransportErr(err), "astartedevice.Poll", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Facade sends (C6)
// -----------------------------------------------------------------------------

// SendIndividual publishes a single datastream value.
func (d *Device) SendIndividual(ifaceName, path string, value astartevalue.Value, tsMs *int64) error {
	iface, m, err := d.introspection.GetMapping(ifaceName, path)
	if err != nil {
		return err
	}
	if iface.Ownership != astarteiface.Device || iface.Type != astarteiface.Datastream || iface.Aggregation != astarteiface.Individual {
		return errcode.New(errcode.InvalidParam, "astartedevice.SendIndividual")
	}
	if m.MT != value.MT() {
		return errcode.New(errcode.InvalidParam, "astartedevice.SendIndividual")
	}
	if d.state != Connected {
		return errcode.New(errcode.NotReady, "astartedevice.SendIndividual")
	}

	w := bsondoc.NewWriter()
	value.AppendTo(w, "v")
	if m.ExplicitTimestamp && tsMs != nil {
		w.AppendDateTime("t", *tsMs)
	}
	return d.publish(dataTopic(d.baseTopic, ifaceName, path), m.QoS, false, w.End())
}

// SendObject publishes an aggregate datastream record. Each entry's Path
// is resolved against the interface's own mappings under path, exactly
// as an individual send would, so a mismatched MT is still rejected
// per-field rather than only at the whole-object level.
func (d *Device) SendObject(ifaceName, path string, entries []astartevalue.Entry, tsMs *int64) error {
	iface, ok := d.introspection.GetByName(ifaceName)
	if !ok {
		return errcode.New(errcode.InvalidParam, "astartedevice.SendObject")
	}
	if iface.Ownership != astarteiface.Device || iface.Type != astarteiface.Datastream || iface.Aggregation != astarteiface.Object {
		return errcode.New(errcode.InvalidParam, "astartedevice.SendObject")
	}
	if len(entries) > astartevalue.MaxObjectEntries {
		return errcode.New(errcode.InvalidParam, "astartedevice.SendObject")
	}

	qos := 0
	explicitTimestamp := false
	for _, e := range entries {
		concretePath := path + "/" + strings.TrimPrefix(e.Path, "/")
		m, ok := iface.ResolveMapping(concretePath)
		if !ok || m.MT != e.Value.MT() {
			return errcode.New(errcode.InvalidParam, "astartedevice.SendObject")
		}
		if m.QoS > qos {
			qos = m.QoS
		}
		if m.ExplicitTimestamp {
			explicitTimestamp = true
		}
	}
	if d.state != Connected {
		return errcode.New(errcode.NotReady, "astartedevice.SendObject")
	}

	w := bsondoc.NewWriter()
	for _, e := range entries {
		e.Value.AppendTo(w, e.Path)
	}
	if explicitTimestamp && tsMs != nil {
		w.AppendDateTime("t", *tsMs)
	}
	return d.publish(dataTopic(d.baseTopic, ifaceName, path), qos, false, w.End())
}

// SetProperty publishes a retained property value.
func (d *Device) SetProperty(ifaceName, path string, value astartevalue.Value) error {
	iface, m, err := d.introspection.GetMapping(ifaceName, path)
	if err != nil {
		return err
	}
	if iface.Ownership != astarteiface.Device || iface.Type != astarteiface.Property {
		return errcode.New(errcode.InvalidParam, "astartedevice.SetProperty")
	}
	if m.MT != value.MT() {
		return errcode.New(errcode.InvalidParam, "astartedevice.SetProperty")
	}
	if d.state != Connected {
		return errcode.New(errcode.NotReady, "astartedevice.SetProperty")
	}

	w := bsondoc.NewWriter()
	value.AppendTo(w, "v")
	return d.publish(dataTopic(d.baseTopic, ifaceName, path), m.QoS, true, w.End())
}

// UnsetProperty publishes a zero-length payload, clearing a previously
// set property.
func (d *Device) UnsetProperty(ifaceName, path string) error {
	iface, m, err := d.introspection.GetMapping(ifaceName, path)
	if err != nil {
		return err
	}
	if iface.Ownership != astarteiface.Device || iface.Type != astarteiface.Property {
		return errcode.New(errcode.InvalidParam, "astartedevice.UnsetProperty")
	}
	if !m.AllowUnset {
		return errcode.New(errcode.InvalidParam, "astartedevice.UnsetProperty")
	}
	if d.state != Connected {
		return errcode.New(errcode.NotReady, "astartedevice.UnsetProperty")
	}
	return d.publish(dataTopic(d.baseTopic, ifaceName, path), m.QoS, true, nil)
}

func (d *Device) publish(topic string, qos int, retain bool, payload []byte) error {
	if _, err := d.transport.Publish(d.token, topic, qos, retain, payload); err != nil {
		return errcode.Wrap(errcode.MapTransportErr(err), "astartedevice.publish", err)
	}
	return nil
}

// publishIntrospection sends the canonical introspection string directly
// to the device's own base topic, retained, the way the real protocol
// advertises introspection outside of any one interface's namespace.
func (d *Device) publishIntrospection(canonical string) {
	_ = d.publish(d.baseTopic, 2, true, []byte(canonical))
}

// -----------------------------------------------------------------------------
// Pairing/cert plumbing
// -----------------------------------------------------------------------------

func parseBrokerURL(raw string) (host string, port int, insecure bool, err error) {
	u, perr := url.Parse(raw)
	if perr != nil {
		return "", 0, false, errcode.New(errcode.InvalidParam, "astartedevice.parseBrokerURL")
	}
	insecure = u.Scheme == "mqtt"

	h, p, serr := net.SplitHostPort(u.Host)
	if serr != nil {
		if insecure {
			return u.Host, 1883, true, nil
		}
		return u.Host, 8883, false, nil
	}
	portNum, aerr := strconvx.Atoi(p)
	if aerr != nil {
		return "", 0, false, errcode.New(errcode.InvalidParam, "astartedevice.parseBrokerURL")
	}
	return h, portNum, insecure, nil
}

// baseTopicFromCertCN extracts "<realm>/<device_id>" from the issued
// client certificate's CommonName, per spec.md §3's Device State and §6's
// topic layout.
func baseTopicFromCertCN(certPEM string) (string, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return "", errcode.New(errcode.Pairing, "astartedevice.baseTopicFromCertCN")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", errcode.Wrap(errcode.Pairing, "astartedevice.baseTopicFromCertCN", err)
	}
	if cert.Subject.CommonName == "" {
		return "", errcode.New(errcode.Pairing, "astartedevice.baseTopicFromCertCN")
	}
	return cert.Subject.CommonName, nil
}
