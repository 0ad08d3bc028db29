package serverquery

import (
	"strings"
	"sync"
)

// Event family names, used as metric labels and in logs.
const (
	FamilyServer  = "server"
	FamilyText    = "text"
	FamilyChannel = "channel"
	FamilyUnknown = "unknown"
)

// Notification is an unsolicited message parsed from an event line.
type Notification struct {
	// Name is the event name as sent, e.g. "notifytextmessage".
	Name string

	// Data has the same shape as Response.Data.
	Data any

	// Raw is the line as received, without its terminator.
	Raw string
}

// Records returns the notification payload as a slice of records.
func (n Notification) Records() []Record {
	r := Response{Data: n.Data}
	return r.Records()
}

// Field returns a field of the first payload record.
func (n Notification) Field(key string) string {
	records := n.Records()
	if len(records) == 0 {
		return ""
	}
	return records[0][key]
}

// ServerEvent reports a client entering or leaving the server view.
type ServerEvent struct{ Notification }

// TextEvent reports a text message.
type TextEvent struct{ Notification }

// ChannelEvent reports a client moving between channels.
type ChannelEvent struct{ Notification }

// CloseEvent is published when the session closes. Err is nil for a
// graceful close requested by the caller.
type CloseEvent struct {
	Err error
}

// ParseNotification parses an event line: the event name followed by
// space separated key=value fields.
func ParseNotification(line string) Notification {
	name, rest, _ := strings.Cut(line, " ")
	n := Notification{Name: name, Raw: line}
	if rest != "" {
		n.Data = ParseData(rest)
	}
	return n
}

// Family returns the family an event name belongs to.
func Family(name string) string {
	switch name {
	case "notifycliententerview", "notifyclientleftview":
		return FamilyServer
	case "notifytextmessage":
		return FamilyText
	case "notifyclientmoved":
		return FamilyChannel
	default:
		return FamilyUnknown
	}
}

// Subscription is returned by Topic.Subscribe and Topic.Once.
type Subscription struct {
	unsubscribe func()
}

// Unsubscribe removes the handler. It is safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

type handler[T any] struct {
	fn   func(T)
	once bool
}

// Topic is the subscription registry of one event variant. Handlers run
// in subscription order on the goroutine that publishes.
type Topic[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	order    []uint64
	handlers map[uint64]handler[T]
}

// Subscribe registers fn for every published event.
func (t *Topic[T]) Subscribe(fn func(T)) Subscription {
	return t.add(fn, false)
}

// Once registers fn for the next published event only.
func (t *Topic[T]) Once(fn func(T)) Subscription {
	return t.add(fn, true)
}

func (t *Topic[T]) add(fn func(T), once bool) Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handlers == nil {
		t.handlers = make(map[uint64]handler[T])
	}
	t.nextID++
	id := t.nextID
	t.handlers[id] = handler[T]{fn: fn, once: once}
	t.order = append(t.order, id)

	return Subscription{unsubscribe: func() { t.remove(id) }}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(id)
}

func (t *Topic[T]) removeLocked(id uint64) {
	if _, ok := t.handlers[id]; !ok {
		return
	}
	delete(t.handlers, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered handlers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}

// Clear removes every handler.
func (t *Topic[T]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = nil
	t.order = nil
}

// publish calls the handlers outside the lock so a handler may subscribe
// or unsubscribe.
func (t *Topic[T]) publish(event T) int {
	t.mu.Lock()
	fns := make([]func(T), 0, len(t.order))
	for _, id := range append([]uint64(nil), t.order...) {
		h := t.handlers[id]
		fns = append(fns, h.fn)
		if h.once {
			t.removeLocked(id)
		}
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
	return len(fns)
}

// Dispatcher fans events out to one topic per event variant.
type Dispatcher struct {
	Server  Topic[ServerEvent]
	Text    Topic[TextEvent]
	Channel Topic[ChannelEvent]
	Close   Topic[CloseEvent]
}

// NewDispatcher creates a dispatcher with no subscribers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch publishes n on the topic of its family and returns the family.
// Notifications of unknown families are not published.
func (d *Dispatcher) Dispatch(n Notification) string {
	family := Family(n.Name)
	switch family {
	case FamilyServer:
		d.Server.publish(ServerEvent{n})
	case FamilyText:
		d.Text.publish(TextEvent{n})
	case FamilyChannel:
		d.Channel.publish(ChannelEvent{n})
	}
	return family
}

// Clear removes every subscriber from every topic.
func (d *Dispatcher) Clear() {
	d.Server.Clear()
	d.Text.Clear()
	d.Channel.Clear()
	d.Close.Clear()
}
