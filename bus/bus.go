// Package bus implements an in-process publish/subscribe broker with
// MQTT-style topic filters ("+" single-level, "#" multi-level), retained
// messages, and a request/reply convenience layer built on top of ordinary
// subscriptions. It backs the in-memory Transport capability used by the
// device facade during local development and by the end-to-end harness.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lucaato/astarte-device-sdk-go/errcode"
	"github.com/lucaato/astarte-device-sdk-go/x/strconvx"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of path segments. As a filter (subscribe side) a
// segment may be "+" (matches exactly one level) or "#" (matches the rest of
// the topic, only legal as the final segment). As a concrete publish topic,
// segments are taken literally.
type Topic []string

// T builds a Topic out of heterogeneous tokens, stringifying each. Only
// comparable token types are accepted; anything else panics, since a topic
// segment must be usable as a map key internally.
func T(tokens ...any) Topic {
	out := make(Topic, len(tokens))
	for i, tok := range tokens {
		out[i] = tokenString(tok)
	}
	return out
}

func tokenString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case Topic:
		return strings.Join(x, "/")
	case int:
		return strconvx.Itoa(x)
	case int64:
		return strconvx.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Invalid || !rv.Type().Comparable() {
		panic("bus: topic token not comparable: " + fmt.Sprintf("%T", v))
	}
	return fmt.Sprint(v)
}

// Append returns a new Topic with extra segments appended.
func (t Topic) Append(segs ...string) Topic {
	out := make(Topic, 0, len(t)+len(segs))
	out = append(out, t...)
	out = append(out, segs...)
	return out
}

// At returns the segment at i, or "" if out of range.
func (t Topic) At(i int) string {
	if i < 0 || i >= len(t) {
		return ""
	}
	return t[i]
}

// Len returns the number of segments.
func (t Topic) Len() int { return len(t) }

func (t Topic) key() string { return strings.Join(t, "/") }

func (t Topic) isWildcard() bool {
	for _, s := range t {
		if s == "+" || s == "#" {
			return true
		}
	}
	return false
}

// matchFilter reports whether a concrete topic matches a (possibly
// wildcarded) filter, per standard MQTT topic-matching rules.
func matchFilter(filter, topic []string) bool {
	fi, ti := 0, 0
	for fi < len(filter) {
		f := filter[fi]
		if f == "#" {
			return true
		}
		if ti >= len(topic) {
			return false
		}
		if f == "+" || f == topic[ti] {
			fi++
			ti++
			continue
		}
		return false
	}
	return ti == len(topic)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

// Message is a single published event.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// CanReply reports whether the message carries a reply destination.
func (m *Message) CanReply() bool { return len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

// Subscription is a live registration of a topic filter on a Connection.
type Subscription struct {
	filter Topic
	ch     chan *Message
	bus    *Bus
	conn   *Connection
}

func (s *Subscription) Topic() Topic             { return s.filter }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[string]*node
	subs     []*Subscription
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

// Bus is a single broker instance: a filter trie for live subscriptions plus
// a flat retained-message store consulted on new subscriptions.
type Bus struct {
	mu       sync.Mutex
	root     *node
	retained map[string]*Message
	qLen     int
	seq      atomic.Uint64
}

// NewBus creates a bus whose subscription channels are buffered to queueLen.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		root:     &node{},
		retained: make(map[string]*Message),
		qLen:     queueLen,
	}
}

func (b *Bus) addSubscription(filter Topic, sub *Subscription) {
	b.mu.Lock()
	n := b.root
	for _, tok := range filter {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	var matched []*Message
	for key, msg := range b.retained {
		if matchFilter(filter, strings.Split(key, "/")) {
			matched = append(matched, msg)
		}
	}
	b.mu.Unlock()

	for _, msg := range matched {
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

func (b *Bus) matchingSubs(topic Topic) []*Subscription {
	var out []*Subscription
	var walk func(n *node, idx int)
	walk = func(n *node, idx int) {
		if c, ok := n.children["#"]; ok {
			out = append(out, c.subs...)
		}
		if idx == len(topic) {
			out = append(out, n.subs...)
			return
		}
		tok := topic[idx]
		if c, ok := n.children[tok]; ok {
			walk(c, idx+1)
		}
		if tok != "+" {
			if c, ok := n.children["+"]; ok {
				walk(c, idx+1)
			}
		}
	}
	walk(b.root, 0)
	return out
}

// Publish delivers msg to every subscription whose filter matches its topic,
// and updates the retained store when msg.Retained is set. A full
// subscription channel drops its oldest entry to make room, so the most
// recent state always wins over a slow consumer.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	subs := b.matchingSubs(msg.Topic)
	if msg.Retained {
		key := msg.Topic.key()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- msg:
			default:
			}
		}
	}
}

func (b *Bus) unsubscribe(filter Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	stack := make([]*node, 0, len(filter))
	for _, tok := range filter {
		if n.children == nil {
			return
		}
		child, ok := n.children[tok]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	for i := len(filter) - 1; i >= 0; i-- {
		parent := stack[i]
		key := filter[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// nextReplyTopic hands out a reply destination unique to this bus instance.
func (b *Bus) nextReplyTopic(connID string) Topic {
	n := b.seq.Add(1)
	return Topic{"_reply", connID, strconvx.FormatUint(n, 10)}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection is a named handle onto a Bus; it owns the subscriptions made
// through it so Disconnect can tear them all down at once.
type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a connection bound to this bus, identified by id
// (used only to scope generated reply topics).
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

// NewMessage constructs a message addressed to topic.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// NewMessage constructs a message via the owning bus.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message through the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers filter and returns the live subscription, delivering
// any currently-retained messages that match it.
func (c *Connection) Subscribe(filter Topic) *Subscription {
	sub := &Subscription{
		filter: filter,
		ch:     make(chan *Message, c.bus.qLen),
		bus:    c.bus,
		conn:   c,
	}
	c.bus.addSubscription(filter, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.filter, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect tears down every subscription made through this connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.filter, sub)
		close(sub.ch)
	}
}

// Reply publishes payload to msg's reply destination. It is a no-op if msg
// was not sent with a reply topic attached.
func (c *Connection) Reply(msg *Message, payload any, retained bool) {
	if !msg.CanReply() {
		return
	}
	c.Publish(c.NewMessage(msg.ReplyTo, payload, retained))
}

// Request subscribes to a fresh reply topic, attaches it to req, and
// publishes req. The caller is responsible for reading (and eventually
// unsubscribing) the returned subscription.
func (c *Connection) Request(req *Message) *Subscription {
	req.ReplyTo = c.bus.nextReplyTopic(c.id)
	sub := c.Subscribe(req.ReplyTo)
	c.Publish(req)
	return sub
}

// RequestWait is Request plus a blocking wait for the first reply or ctx
// cancellation, whichever comes first. The subscription is always cleaned up
// before returning.
func (c *Connection) RequestWait(ctx context.Context, req *Message) (*Message, error) {
	sub := c.Request(req)
	defer c.Unsubscribe(sub)

	select {
	case reply, ok := <-sub.Channel():
		if !ok {
			return nil, errcode.New(errcode.Internal, "bus.RequestWait")
		}
		return reply, nil
	case <-ctx.Done():
		return nil, errcode.Wrap(errcode.Timeout, "bus.RequestWait", ctx.Err())
	}
}
