package layout

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func buildState(t *testing.T) (*State, *Pane, *Pane) {
	t.Helper()
	size := Size{Rows: 24, Cols: 80}
	state := NewState(size)
	left := NewPane(1, io.Discard, nil)
	right := NewPane(2, io.Discard, nil)
	tab := NewTab(7, "work")
	state.With(func(st *State) {
		tab.SetLayout(size, NewTree(size, []Entry{
			{Pane: left, Row: 0, Col: 0, Size: Size{Rows: 24, Cols: 39}},
			{Pane: right, Row: 0, Col: 40, Size: Size{Rows: 24, Cols: 40}},
		}))
		tab.SetActive(right)
		st.AddTab(tab)
	})
	return state, left, right
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	state, _, _ := buildState(t)
	path := filepath.Join(t.TempDir(), "layout.json")

	saver := NewSaver(state, path, log.New(io.Discard))
	saver.debounce = time.Millisecond
	go saver.Run()
	saver.Notify()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot never written")
		}
		time.Sleep(5 * time.Millisecond)
	}
	saver.RequestExit()

	restored := NewState(Size{})
	err := Restore(restored, path, func(id uint64, cwd string) (*Pane, error) {
		return NewPane(id, io.Discard, nil), nil
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restored.With(func(st *State) {
		if st.Size() != (Size{Rows: 24, Cols: 80}) {
			t.Errorf("size = %+v", st.Size())
		}
		tabs := st.Tabs()
		if len(tabs) != 1 {
			t.Fatalf("got %d tabs, want 1", len(tabs))
		}
		tab := tabs[0]
		if tab.ID() != 7 || tab.Name() != "work" {
			t.Errorf("tab = %d %q", tab.ID(), tab.Name())
		}
		if tab.Active() == nil || tab.Active().ID() != 2 {
			t.Error("active pane should be pane 2")
		}
		// Recency survives: pane 2 (active) before pane 1.
		panes := tab.Panes()
		if len(panes) != 2 || panes[0].ID() != 2 || panes[1].ID() != 1 {
			t.Errorf("recency order = %v, %v", panes[0].ID(), panes[1].ID())
		}
		// Geometry survives for the navigator.
		entry, ok := tab.Tree().FindPane(tab.Active())
		if !ok || entry.Col != 40 {
			t.Errorf("active pane entry = %+v", entry)
		}
	})
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	dir := t.TempDir()
	factory := func(id uint64, cwd string) (*Pane, error) { return NewPane(id, nil, nil), nil }

	missing := filepath.Join(dir, "missing.json")
	if err := Restore(NewState(Size{}), missing, factory); err == nil {
		t.Error("missing snapshot should error")
	}

	garbage := filepath.Join(dir, "garbage.json")
	os.WriteFile(garbage, []byte("{"), 0o600)
	if err := Restore(NewState(Size{}), garbage, factory); err == nil {
		t.Error("corrupt snapshot should error")
	}

	wrongVersion := filepath.Join(dir, "v9.json")
	os.WriteFile(wrongVersion, []byte(`{"version": 9}`), 0o600)
	if err := Restore(NewState(Size{}), wrongVersion, factory); err == nil {
		t.Error("unknown snapshot version should error")
	}

	zeroID := filepath.Join(dir, "zero.json")
	os.WriteFile(zeroID, []byte(`{"version": 1, "tabs": [{"id": 0, "name": "x", "pane_ids_by_recency": [], "panes": []}]}`), 0o600)
	if err := Restore(NewState(Size{}), zeroID, factory); err == nil {
		t.Error("zero tab id should error")
	}
}

func TestSaverFinalFlushOnExit(t *testing.T) {
	state, _, _ := buildState(t)
	path := filepath.Join(t.TempDir(), "layout.json")

	saver := NewSaver(state, path, log.New(io.Discard))
	saver.debounce = time.Hour // never fires on its own
	done := make(chan struct{})
	go func() {
		saver.Run()
		close(done)
	}()
	saver.Notify()
	time.Sleep(10 * time.Millisecond)
	saver.RequestExit()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("saver did not exit")
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("pending snapshot should flush on exit")
	}
}
