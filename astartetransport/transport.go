// Package astartetransport declares the Transport capability (§6): the
// publish/subscribe surface the connection state machine and device facade
// drive, supplied by the environment. It is deliberately just an interface
// plus callbacks — the concrete broker connection is out of scope per
// spec.md §1.
package astartetransport

import "context"

// TLSConfig carries the credentials the state machine hands to Connect
// after a successful pairing exchange.
type TLSConfig struct {
	PrivateKeyPEM string
	CertPEM       string
	InsecureNoTLS bool
}

// SubackResult is the per-topic outcome of a subscribe request.
type SubackResult int

const (
	SubackSuccess SubackResult = iota
	SubackFailure
)

// Token identifies one connection instance handed back by Connect.
type Token uint64

// Callbacks groups the asynchronous events a Transport implementation
// delivers back into the owning device. SessionPresent tells the state
// machine whether the prior session's subscriptions survived the
// reconnect — it drives the StartHandshake fast path of §4.5.
type Callbacks struct {
	OnConnected    func(sessionPresent bool)
	OnDisconnected func()
	OnPublish      func(topic string, payload []byte, qos int)
	OnSuback       func(subID uint64, result SubackResult)
}

// Transport is the publish/subscribe capability required of the
// environment, per spec.md §6.
type Transport interface {
	Connect(ctx context.Context, host string, port int, tls TLSConfig, cb Callbacks) (Token, error)
	Disconnect(tok Token) error
	Subscribe(tok Token, topic string, qos int) (subID uint64, err error)
	Publish(tok Token, topic string, qos int, retain bool, payload []byte) (pubID uint64, err error)
	Poll(ctx context.Context, tok Token) error
}
