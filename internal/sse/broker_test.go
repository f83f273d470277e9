package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func waitClients(t *testing.T, b *Broker, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for b.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", b.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	waitClients(t, b, 0)
	ch := b.Subscribe()
	waitClients(t, b, 1)
	b.Unsubscribe(ch)
	waitClients(t, b, 0)

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after unsubscribe")
	}
}

func TestDocumentEventFrame(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent(KindViewed, 5)

	msg := recv(t, ch)
	want := "id: 1\nevent: document.viewed\ndata: {\"id\":5}\n\n"
	if msg != want {
		t.Errorf("frame = %q, want %q", msg, want)
	}
}

func TestEventIDsIncrease(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent(KindUpdated, 1)
	b.PublishDocumentEvent(KindViewed, 1)

	for _, prefix := range []string{"id: 1\nevent: document.updated", "id: 2\nevent: library.updated", "id: 3\nevent: document.viewed"} {
		if msg := recv(t, ch); !strings.HasPrefix(msg, prefix) {
			t.Errorf("got %q, want prefix %q", msg, prefix)
		}
	}
}

func TestPublishDocumentEvent_LibraryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent(KindUpdated, 1)
	b.PublishDocumentEvent(KindDeleted, 2)

	var library, docs int
	for i := 0; i < 3; i++ {
		if strings.Contains(recv(t, ch), "event: library.updated") {
			library++
		} else {
			docs++
		}
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra event %q", msg)
	case <-time.After(50 * time.Millisecond):
	}

	if docs != 2 {
		t.Errorf("document events = %d, want 2", docs)
	}
	if library != 1 {
		t.Errorf("library events = %d, want 1", library)
	}
}

func TestPublishDocumentEvent_ViewAndQueryNotThrottled(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent(KindViewed, 7)
	b.PublishDocumentEvent(KindQueried, 7)

	first, second := recv(t, ch), recv(t, ch)
	if !strings.Contains(first, "event: document.viewed") || !strings.Contains(second, "event: query.created") {
		t.Errorf("unexpected events: %q, %q", first, second)
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra event %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent("renamed", 1)
	b.PublishDocumentEvent(KindViewed, 2)

	if msg := recv(t, ch); !strings.HasPrefix(msg, "id: 1\nevent: document.viewed") {
		t.Errorf("got %q", msg)
	}
}

func TestSlowClientDropsEvents(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	slow := b.Subscribe()
	defer b.Unsubscribe(slow)

	for i := 0; i < 100; i++ {
		b.PublishDocumentEvent(KindViewed, i)
	}

	fast := b.Subscribe()
	defer b.Unsubscribe(fast)
	b.PublishDocumentEvent(KindViewed, 1000)
	for !strings.Contains(recv(t, fast), `"id":1000`) {
	}
	if n := len(slow); n != cap(slow) {
		t.Errorf("slow client buffered %d, want %d", n, cap(slow))
	}
}

func TestKeepAlive(t *testing.T) {
	b := NewBroker(time.Hour, WithKeepAlive(10*time.Millisecond))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	if msg := recv(t, ch); msg != ": ping\n\n" {
		t.Errorf("keepalive = %q", msg)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	waitClients(t, b, 1)
	b.PublishDocumentEvent(KindViewed, 3)
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, "event: document.viewed\ndata: {\"id\":3}") {
		t.Errorf("handler output missing event: %q", body)
	}
	waitClients(t, b, 0)
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	waitClients(t, b, 1)

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel still open after close")
	}
	if b.Clients() != 0 {
		t.Fatalf("clients = %d after close", b.Clients())
	}

	// No-ops once stopped.
	b.PublishDocumentEvent(KindQueried, 1)
	b.Unsubscribe(ch)
	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("subscribe after close returned an open channel")
	}
}
