package fixtures

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/docview/internal/sse"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_SeedChangeResyncs(t *testing.T) {
	dir := t.TempDir()
	p := writeSeed(t, dir, seedYAML)
	s := openTestStore(t)
	seed, err := LoadSeed(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := Sync(s, seed, discardLogger(), nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log eventLog
	var reloads atomic.Int32
	go Watch(ctx, s, p, discardLogger(), func(*Seed) { reloads.Add(1) }, log.record)

	time.Sleep(100 * time.Millisecond)

	updated := strings.Replace(seedYAML, "title: Lease", "title: Lease (signed)", 1)
	if err := os.WriteFile(p, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		rec, err := s.GetDocument(7)
		return err == nil && rec.Title == "Lease (signed)"
	}, "seed change not picked up by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has(sse.KindUpdated + ":7")
	}, "expected updated event for document 7")

	if reloads.Load() == 0 {
		t.Error("reload callback not called")
	}
	if log.has(sse.KindUpdated + ":5") {
		t.Error("unchanged document 5 was rewritten")
	}
}

func TestWatcher_InvalidSeedKeepsStore(t *testing.T) {
	dir := t.TempDir()
	p := writeSeed(t, dir, seedYAML)
	s := openTestStore(t)
	seed, err := LoadSeed(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := Sync(s, seed, discardLogger(), nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var reloads atomic.Int32
	go Watch(ctx, s, p, discardLogger(), func(*Seed) { reloads.Add(1) }, nil)
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(p, []byte("documents:\n  - id: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)

	if reloads.Load() != 0 {
		t.Error("invalid seed was applied")
	}
	if _, err := s.GetDocument(7); err != nil {
		t.Errorf("document 7 lost after invalid seed: %v", err)
	}
}
