package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lixenwraith/helios/event"
)

// drainReloads appends any reload events currently queued.
func drainReloads(q *event.Queue, into []string) []string {
	for _, ev := range q.Consume() {
		if ev.Type == event.TypeConfigReloaded {
			into = append(into, ev.Payload.(*event.ConfigPayload).Path)
		}
	}
	return into
}

func waitReload(t *testing.T, q *event.Queue, timeout time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var got []string
	for time.Now().Before(deadline) {
		if got = drainReloads(q, got); len(got) > 0 {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no reload event arrived")
	return nil
}

func TestWatcherEmitsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scene.yaml", "layers: []\n")
	q := event.NewQueue()

	w, err := NewWatcher(q, path)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(path, []byte("layers:\n  - effect: solid\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := waitReload(t, q, 3*time.Second)
	want, _ := filepath.Abs(path)
	if got[0] != want {
		t.Errorf("reload path %q, want %q", got[0], want)
	}
}

func TestWatcherSeesFileCreatedLater(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	q := event.NewQueue()

	w, err := NewWatcher(q, path)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(path, []byte("layers: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitReload(t, q, 3*time.Second)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	watched := writeFile(t, dir, "scene.yaml", "layers: []\n")
	q := event.NewQueue()

	w, err := NewWatcher(q, watched)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	defer w.Stop()

	writeFile(t, dir, "notes.txt", "unrelated")
	writeFile(t, dir, "scene.yaml", "layers: [] # touched\n")

	got := waitReload(t, q, 3*time.Second)
	time.Sleep(300 * time.Millisecond)
	got = drainReloads(q, got)

	want, _ := filepath.Abs(watched)
	for _, p := range got {
		if p != want {
			t.Errorf("unexpected reload for %q", p)
		}
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scene.yaml", "layers: []\n")
	q := event.NewQueue()

	w, err := NewWatcher(q, path)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("layers: []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := waitReload(t, q, 3*time.Second)
	time.Sleep(400 * time.Millisecond)
	got = drainReloads(q, got)
	if len(got) != 1 {
		t.Errorf("burst produced %d reloads, want 1", len(got))
	}
}

func TestWatcherStop(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scene.yaml", "layers: []\n")
	q := event.NewQueue()

	w, err := NewWatcher(q, path)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	if !w.IsRunning() {
		t.Error("running flag not set")
	}
	w.Stop()
	w.Stop()
	if w.IsRunning() {
		t.Error("running flag still set")
	}

	writeFile(t, dir, "scene.yaml", "layers: [] # after stop\n")
	time.Sleep(400 * time.Millisecond)
	if got := drainReloads(q, nil); len(got) != 0 {
		t.Errorf("reloads after stop: %v", got)
	}
}

func TestWatcherNeedsAPath(t *testing.T) {
	if _, err := NewWatcher(event.NewQueue(), "", ""); err == nil {
		t.Fatal("empty watch list accepted")
	}
}
