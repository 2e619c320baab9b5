// Package membroker is an in-memory, topic-trie, retained-message,
// MQTT-wildcard-aware pub/sub broker satisfying astartetransport.Transport.
// It exists because a repository that only declares the Transport
// capability as an interface and never exercises it is dead code; this
// gives the connection state machine and device facade something to run
// against without a real network stack, for local development and the E2E
// harness.
//
// Grounded on the teacher's bus/bus.go, rewritten to satisfy its own
// bus/bus_test.go's wildcard/retained contract, and driven here exactly the
// way the teacher's services/bridge/bridge.go drives a Transport: dial,
// publish/subscribe, poll loop with injectable failure for test scenarios.
package membroker

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lucaato/astarte-device-sdk-go/astartetransport"
	"github.com/lucaato/astarte-device-sdk-go/bus"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

// Broker is a shared, process-wide in-memory pub/sub server. Multiple
// Connect calls against the same Broker behave like multiple clients
// talking to the same MQTT server.
type Broker struct {
	bus *bus.Bus

	mu         sync.Mutex
	conns      map[astartetransport.Token]*clientConn
	nextTok    atomic.Uint64
	nextSubID  atomic.Uint64
	nextPubID  atomic.Uint64

	// FailSubscribe, when non-nil, is consulted on every Subscribe call;
	// returning true makes that one subscribe report SubackFailure
	// instead of SubackSuccess, for exercising the handshake-error path
	// (spec.md §8 scenario S6).
	FailSubscribe func(topic string) bool
}

// New creates a broker with a retained-message store whose bus
// subscriptions each buffer up to 32 messages.
func New() *Broker {
	return &Broker{
		bus:   bus.NewBus(32),
		conns: make(map[astartetransport.Token]*clientConn),
	}
}

type clientConn struct {
	bconn    *bus.Connection
	cb       astartetransport.Callbacks
	mu       sync.Mutex
	subs     map[uint64]*bus.Subscription
	incoming chan *bus.Message
	closed   chan struct{}
}

// Connect registers a new client connection and fires OnConnected
// asynchronously, mirroring a real broker's async handshake. sessionPresent
// is always false: membroker keeps no cross-connection session state.
func (b *Broker) Connect(ctx context.Context, host string, port int, tls astartetransport.TLSConfig, cb astartetransport.Callbacks) (astartetransport.Token, error) {
	tok := astartetransport.Token(b.nextTok.Add(1))
	cc := &clientConn{
		bconn:    b.bus.NewConnection(connID(tok)),
		cb:       cb,
		subs:     make(map[uint64]*bus.Subscription),
		incoming: make(chan *bus.Message, 64),
		closed:   make(chan struct{}),
	}

	b.mu.Lock()
	b.conns[tok] = cc
	b.mu.Unlock()

	if cb.OnConnected != nil {
		go cb.OnConnected(false)
	}
	return tok, nil
}

func connID(tok astartetransport.Token) string {
	var buf [24]byte
	n := len(buf)
	v := uint64(tok)
	if v == 0 {
		n--
		buf[n] = '0'
	}
	for v > 0 {
		n--
		buf[n] = byte('0' + v%10)
		v /= 10
	}
	return "membroker-client-" + string(buf[n:])
}

// Disconnect tears down the connection and fires OnDisconnected.
func (b *Broker) Disconnect(tok astartetransport.Token) error {
	b.mu.Lock()
	cc, ok := b.conns[tok]
	delete(b.conns, tok)
	b.mu.Unlock()
	if !ok {
		return errcode.New(errcode.NotReady, "membroker.Disconnect")
	}

	close(cc.closed)
	cc.bconn.Disconnect()
	if cc.cb.OnDisconnected != nil {
		cc.cb.OnDisconnected()
	}
	return nil
}

// Subscribe registers topic (which may carry "+"/"#" wildcards) and fires
// OnSuback asynchronously.
func (b *Broker) Subscribe(tok astartetransport.Token, topic string, qos int) (uint64, error) {
	cc, err := b.conn(tok)
	if err != nil {
		return 0, err
	}

	subID := b.nextSubID.Add(1)
	sub := cc.bconn.Subscribe(bus.Topic(splitTopic(topic)))

	cc.mu.Lock()
	cc.subs[subID] = sub
	cc.mu.Unlock()

	go forward(sub, cc)

	result := astartetransport.SubackSuccess
	if b.FailSubscribe != nil && b.FailSubscribe(topic) {
		result = astartetransport.SubackFailure
	}
	if cc.cb.OnSuback != nil {
		go cc.cb.OnSuback(subID, result)
	}
	return subID, nil
}

func forward(sub *bus.Subscription, cc *clientConn) {
	for {
		select {
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			select {
			case cc.incoming <- msg:
			case <-cc.closed:
				return
			}
		case <-cc.closed:
			return
		}
	}
}

// Publish delivers payload through the broker bus.
func (b *Broker) Publish(tok astartetransport.Token, topic string, qos int, retain bool, payload []byte) (uint64, error) {
	cc, err := b.conn(tok)
	if err != nil {
		return 0, err
	}
	pubID := b.nextPubID.Add(1)
	msg := cc.bconn.NewMessage(bus.Topic(splitTopic(topic)), payload, retain)
	cc.bconn.Publish(msg)
	return pubID, nil
}

// Poll drains at least one pending inbound publish (delivering it via
// OnPublish) or blocks until ctx is done, whichever comes first. A
// context deadline is this port's idiomatic analogue of the original's
// bounded socket wait (spec.md §5's only suspension point).
func (b *Broker) Poll(ctx context.Context, tok astartetransport.Token) error {
	cc, err := b.conn(tok)
	if err != nil {
		return err
	}

	for {
		select {
		case msg := <-cc.incoming:
			deliver(cc, msg)
		case <-ctx.Done():
			return nil
		default:
			select {
			case msg := <-cc.incoming:
				deliver(cc, msg)
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func deliver(cc *clientConn, msg *bus.Message) {
	if cc.cb.OnPublish == nil {
		return
	}
	payload, _ := msg.Payload.([]byte)
	cc.cb.OnPublish(strings.Join(msg.Topic, "/"), payload, 0)
}

func (b *Broker) conn(tok astartetransport.Token) (*clientConn, error) {
	b.mu.Lock()
	cc, ok := b.conns[tok]
	b.mu.Unlock()
	if !ok {
		return nil, errcode.New(errcode.NotReady, "membroker")
	}
	return cc, nil
}

func splitTopic(topic string) []string {
	parts := strings.Split(topic, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
