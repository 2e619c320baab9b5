package astartedevice

import (
	"time"

	"github.com/lucaato/astarte-device-sdk-go/astarteiface"
	"github.com/lucaato/astarte-device-sdk-go/astartetransport"
)

// ConnectionState is one node of the state machine in spec.md §4.5.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	StartHandshake
	EndHandshake
	HandshakeError
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case StartHandshake:
		return "start_handshake"
	case EndHandshake:
		return "end_handshake"
	case HandshakeError:
		return "handshake_error"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

type eventKind int

const (
	evConnected eventKind = iota
	evDisconnected
	evPublish
	evSuback
)

// event is the only thing a Transport callback is allowed to do: hand a
// fact to the poll thread. All state mutation happens later, inside
// Poll, preserving spec.md §5's single-poll-thread ownership even though
// the callbacks themselves may run on a transport-owned goroutine.
type event struct {
	kind           eventKind
	sessionPresent bool
	topic          string
	payload        []byte
	subID          uint64
	subResult      astartetransport.SubackResult
}

func (d *Device) callbacks() astartetransport.Callbacks {
	return astartetransport.Callbacks{
		OnConnected:    func(sessionPresent bool) { d.pushEvent(&event{kind: evConnected, sessionPresent: sessionPresent}) },
		OnDisconnected: func() { d.pushEvent(&event{kind: evDisconnected}) },
		OnPublish: func(topic string, payload []byte, qos int) {
			d.pushEvent(&event{kind: evPublish, topic: topic, payload: payload})
		},
		OnSuback: func(subID uint64, result astartetransport.SubackResult) {
			d.pushEvent(&event{kind: evSuback, subID: subID, subResult: result})
		},
	}
}

func (d *Device) pushEvent(e *event) {
	select {
	case d.events <- e:
	default:
		// Event buffer exhausted: drop rather than block a transport
		// goroutine forever. A starved poll loop will fall behind
		// regardless; this only protects against an unbounded backlog.
	}
}

// drainEvents applies every currently queued event to device state. It is
// the only place that mutates connection state, so it must only ever be
// called from Poll.
func (d *Device) drainEvents() {
	for {
		select {
		case e := <-d.events:
			d.apply(e)
		default:
			return
		}
	}
}

func (d *Device) apply(e *event) {
	switch e.kind {
	case evConnected:
		d.handleConnected(e.sessionPresent)
	case evDisconnected:
		d.handleDisconnected()
	case evPublish:
		d.handlePublish(e.topic, e.payload)
	case evSuback:
		d.handleSuback(e.subID, e.subResult)
	}
}

func (d *Device) handleConnected(sessionPresent bool) {
	if d.state != Connecting {
		return
	}
	d.sessionPresent = sessionPresent
	d.state = StartHandshake
	d.runStartHandshake()
}

func (d *Device) handleDisconnected() {
	wasConnected := d.state == Connected
	d.state = Disconnected
	d.pendingSubs = nil
	d.log.Infof("transport disconnected, was_connected=%v", wasConnected)
	if wasConnected && d.onDisconnect != nil {
		d.onDisconnect()
	}
}

func (d *Device) runStartHandshake() {
	current := d.introspection.CanonicalString()
	if d.sessionPresent && d.store != nil {
		if stored, ok := d.store.Load(); ok && stored == current {
			d.finishHandshake()
			return
		}
	}

	d.subscriptionFailure = false
	d.pendingSubs = make(map[uint64]bool)

	d.subscribe(controlConsumerPropertiesTopic(d.baseTopic), 2)
	for _, iface := range d.introspection.Iter() {
		if iface.Ownership == astarteiface.Server {
			d.subscribe(serverIfaceSubtree(d.baseTopic, iface.Name), 2)
		}
	}

	d.publishIntrospection(current)
	d.publish(controlEmptyCacheTopic(d.baseTopic), 1, true, []byte("1"))

	d.state = EndHandshake
	d.checkEndHandshake()
}

func (d *Device) subscribe(topic string, qos int) {
	subID, err := d.transport.Subscribe(d.token, topic, qos)
	if err != nil {
		d.subscriptionFailure = true
		return
	}
	d.pendingSubs[subID] = true
}

func (d *Device) handleSuback(subID uint64, result astartetransport.SubackResult) {
	if _, ok := d.pendingSubs[subID]; !ok {
		return
	}
	delete(d.pendingSubs, subID)
	if result != astartetransport.SubackSuccess {
		d.subscriptionFailure = true
	}
	if d.state == EndHandshake {
		d.checkEndHandshake()
	}
}

func (d *Device) checkEndHandshake() {
	if d.state != EndHandshake {
		return
	}
	if d.subscriptionFailure {
		d.enterHandshakeError()
		return
	}
	if len(d.pendingSubs) > 0 {
		return
	}
	d.finishHandshake()
}

func (d *Device) finishHandshake() {
	current := d.introspection.CanonicalString()
	if d.store != nil {
		if stored, ok := d.store.Load(); !ok || stored != current {
			_ = d.store.Save(current)
		}
	}
	d.backoff.Reset()
	d.state = Connected
	d.log.Infof("handshake complete")
	if d.onConnect != nil {
		d.onConnect()
	}
}

func (d *Device) enterHandshakeError() {
	d.state = HandshakeError
	wait := d.backoff.Next()
	d.reconnectAt = time.Now().Add(wait)
	d.log.Warnf("handshake failed, retrying in %s", wait)
}

// checkReconnect re-enters StartHandshake once reconnectAt has passed. It
// is only ever called from Poll, preserving single-poll-thread ownership.
func (d *Device) checkReconnect() {
	if d.state != HandshakeError {
		return
	}
	if time.Now().Before(d.reconnectAt) {
		return
	}
	d.state = StartHandshake
	d.log.Debugf("retrying handshake")
	d.runStartHandshake()
}
