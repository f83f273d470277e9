// Package sse streams fixture server activity to viewers as Server-Sent
// Events: documents being viewed, questions answered and seed changes.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Document event kinds accepted by PublishDocumentEvent.
const (
	KindViewed  = "viewed"
	KindQueried = "queried"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// eventNames maps a kind onto the SSE event name sent to clients.
var eventNames = map[string]string{
	KindViewed:  "document.viewed",
	KindQueried: "query.created",
	KindUpdated: "document.updated",
	KindDeleted: "document.deleted",
}

const libraryEvent = "library.updated"

type documentEvent struct {
	kind string
	id   int
}

type documentPayload struct {
	ID int `json:"id"`
}

// Broker fans document events out to connected SSE clients.
//
// One goroutine owns the subscriber set, the event sequence and the library
// throttle; everything else talks to it over channels.
type Broker struct {
	libraryMin time.Duration
	keepAlive  time.Duration

	join   chan chan []byte
	leave  chan chan []byte
	events chan documentEvent

	clients   atomic.Int32
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithKeepAlive sends an SSE comment to every client at interval d so idle
// streams survive proxies. Zero disables it.
func WithKeepAlive(d time.Duration) BrokerOption {
	return func(b *Broker) {
		b.keepAlive = d
	}
}

// NewBroker starts a Broker. library.updated follows document updates and
// deletions at most once per libraryThrottle.
func NewBroker(libraryThrottle time.Duration, opts ...BrokerOption) *Broker {
	if libraryThrottle <= 0 {
		libraryThrottle = 2 * time.Second
	}
	b := &Broker{
		libraryMin: libraryThrottle,
		join:       make(chan chan []byte),
		leave:      make(chan chan []byte),
		events:     make(chan documentEvent, 256),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	subs := make(map[chan []byte]struct{})
	var (
		seq         uint64
		lastLibrary time.Time
		ping        <-chan time.Time
	)
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		ping = t.C
	}

	send := func(msg []byte) {
		for ch := range subs {
			select {
			case ch <- msg:
			default:
				// Slow client; it misses this event rather than stalling the rest.
			}
		}
	}
	emit := func(name string, data any) {
		seq++
		send(frame(seq, name, data))
	}

	for {
		select {
		case <-b.done:
			for ch := range subs {
				close(ch)
			}
			b.clients.Store(0)
			return

		case ch := <-b.join:
			subs[ch] = struct{}{}
			b.clients.Store(int32(len(subs)))

		case ch := <-b.leave:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			b.clients.Store(int32(len(subs)))

		case ev := <-b.events:
			name, ok := eventNames[ev.kind]
			if !ok {
				continue
			}
			emit(name, documentPayload{ID: ev.id})
			if ev.kind != KindUpdated && ev.kind != KindDeleted {
				continue
			}
			if now := time.Now(); now.Sub(lastLibrary) >= b.libraryMin {
				lastLibrary = now
				emit(libraryEvent, struct{}{})
			}

		case <-ping:
			send([]byte(": ping\n\n"))
		}
	}
}

// frame encodes one SSE message. The id lets clients see gaps after a
// dropped event.
func frame(seq uint64, name string, data any) []byte {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, name, payload))
}

// Close stops the broker and closes every client channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	<-b.stopped
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	return int(b.clients.Load())
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	select {
	case b.join <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	select {
	case b.leave <- ch:
	case <-b.stopped:
	}
}

// PublishDocumentEvent queues a document event; unknown kinds are ignored.
// Its signature matches fixtures.EventCallback.
func (b *Broker) PublishDocumentEvent(kind string, id int) {
	select {
	case b.events <- documentEvent{kind: kind, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
