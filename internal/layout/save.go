package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Layout snapshot, version 1. Only identity and geometry are persisted;
// registration state is in-memory only.
type snapshotV1 struct {
	Version int       `json:"version"`
	Size    Size      `json:"size"`
	Tabs    []tabV1   `json:"tabs"`
	SavedAt time.Time `json:"saved_at"`
}

type tabV1 struct {
	ID               uint64   `json:"id"`
	Name             string   `json:"name"`
	ActivePaneID     uint64   `json:"active_pane_id,omitempty"`
	FullScreenPaneID uint64   `json:"full_screen_pane_id,omitempty"`
	PaneIDsByRecency []uint64 `json:"pane_ids_by_recency"`
	Panes            []paneV1 `json:"panes"`
}

type paneV1 struct {
	ID   uint64 `json:"id"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Size Size   `json:"size"`
	Cwd  string `json:"cwd,omitempty"`
}

// DefaultSavePath returns the layout snapshot location under the XDG
// state directory.
func DefaultSavePath() (string, error) {
	path, err := xdg.StateFile("weft/layout.json")
	if err != nil {
		return "", fmt.Errorf("failed to resolve layout state path: %w", err)
	}
	return path, nil
}

// Saver persists layout snapshots. Updates are debounced so a burst of
// navigation only writes once.
type Saver struct {
	state    *State
	path     string
	debounce time.Duration
	logger   *log.Logger

	notify chan struct{}
	done   chan struct{}
}

// NewSaver creates a saver writing to path.
func NewSaver(state *State, path string, logger *log.Logger) *Saver {
	return &Saver{
		state:    state,
		path:     path,
		debounce: 500 * time.Millisecond,
		logger:   logger,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Notify schedules a save. Safe to call from any goroutine; never
// blocks.
func (s *Saver) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run consumes update notifications until RequestExit. A final save
// happens on exit if one is pending.
func (s *Saver) Run() {
	var timer *time.Timer
	var fire <-chan time.Time
	pending := false
	for {
		select {
		case <-s.notify:
			pending = true
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case <-fire:
			pending = false
			fire = nil
			s.save()
		case <-s.done:
			if timer != nil {
				timer.Stop()
			}
			if pending {
				s.save()
			}
			return
		}
	}
}

// RequestExit stops the saver.
func (s *Saver) RequestExit() {
	close(s.done)
}

func (s *Saver) save() {
	var snap snapshotV1
	s.state.With(func(st *State) {
		snap = buildSnapshot(st)
	})

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode layout snapshot", "err", err)
		return
	}

	// Write-then-rename so a crash never leaves a torn snapshot.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error("failed to create layout state dir", "err", err)
		return
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Error("failed to write layout snapshot", "err", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("failed to replace layout snapshot", "err", err)
		return
	}
	s.logger.Debug("saved layout snapshot", "path", s.path, "tabs", len(snap.Tabs))
}

func buildSnapshot(st *State) snapshotV1 {
	snap := snapshotV1{Version: 1, Size: st.Size(), SavedAt: time.Now().UTC()}
	for _, tab := range st.Tabs() {
		jt := tabV1{ID: tab.ID(), Name: tab.Name()}
		if p := tab.Active(); p != nil {
			jt.ActivePaneID = p.ID()
		}
		if p := tab.FullScreen(); p != nil {
			jt.FullScreenPaneID = p.ID()
		}
		for _, p := range tab.Panes() {
			jt.PaneIDsByRecency = append(jt.PaneIDsByRecency, p.ID())
		}
		if tree := tab.Tree(); tree != nil {
			for _, e := range tree.Entries() {
				jt.Panes = append(jt.Panes, paneV1{
					ID:   e.Pane.ID(),
					Row:  e.Row,
					Col:  e.Col,
					Size: e.Size,
					Cwd:  e.Pane.Cwd(),
				})
			}
		}
		snap.Tabs = append(snap.Tabs, jt)
	}
	return snap
}

// PaneFactory recreates a pane for a restored id and working directory.
type PaneFactory func(id uint64, cwd string) (*Pane, error)

// Restore loads a layout snapshot and rebuilds the state's tabs through
// the factory. Recency order, active panes, and full-screen panes are
// restored; the first pane becomes active as a fallback, as with a tab
// that never recorded activation.
func Restore(state *State, path string, newPane PaneFactory) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read layout snapshot: %w", err)
	}
	var snap snapshotV1
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode layout snapshot: %w", err)
	}
	if snap.Version != 1 {
		return fmt.Errorf("unsupported layout snapshot version %d", snap.Version)
	}

	var restoreErr error
	state.With(func(st *State) {
		st.SetSize(snap.Size)
		for _, jt := range snap.Tabs {
			if jt.ID == 0 {
				restoreErr = fmt.Errorf("layout snapshot tab with zero id")
				return
			}
			tab := NewTab(jt.ID, jt.Name)
			panes := make(map[uint64]*Pane, len(jt.Panes))
			entries := make([]Entry, 0, len(jt.Panes))
			for _, jp := range jt.Panes {
				p, err := newPane(jp.ID, jp.Cwd)
				if err != nil {
					restoreErr = fmt.Errorf("failed to restore pane %d: %w", jp.ID, err)
					return
				}
				panes[jp.ID] = p
				entries = append(entries, Entry{Pane: p, Row: jp.Row, Col: jp.Col, Size: jp.Size})
			}
			tab.SetLayout(snap.Size, NewTree(snap.Size, entries))

			// Rebuild the recency order before re-activating, so the
			// activation lands at its front.
			var recency []*Pane
			seen := make(map[*Pane]bool, len(panes))
			for _, id := range jt.PaneIDsByRecency {
				if p := panes[id]; p != nil && !seen[p] {
					recency = append(recency, p)
					seen[p] = true
				}
			}
			for _, e := range entries {
				if !seen[e.Pane] {
					recency = append(recency, e.Pane)
				}
			}
			tab.recency = recency
			tab.active = nil

			if p := panes[jt.FullScreenPaneID]; p != nil {
				tab.SetFullScreen(p)
			} else if p := panes[jt.ActivePaneID]; p != nil {
				tab.SetActive(p)
			} else if len(recency) > 0 {
				tab.SetActive(recency[0])
			}
			st.AddTab(tab)
		}
	})
	return restoreErr
}
