package layout

import "sync"

// State is the shared layout state: the screen size, the tabs, and
// which tab is active. It is guarded by a single mutex held while the
// navigator runs and while any mutation occurs. The pending-event queue
// mutex may be held when acquiring this lock, never the reverse.
type State struct {
	mu     sync.Mutex
	size   Size
	tabs   []*Tab
	active *Tab
}

// NewState creates an empty layout state.
func NewState(size Size) *State {
	return &State{size: size}
}

// With runs fn with the state lock held. fn must not retain the state
// pointer past its return and must not call With reentrantly.
func (s *State) With(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Size returns the screen size. Lock must be held.
func (s *State) Size() Size { return s.size }

// SetSize records a screen resize. Lock must be held.
func (s *State) SetSize(size Size) { s.size = size }

// Tabs returns all tabs. Lock must be held.
func (s *State) Tabs() []*Tab { return s.tabs }

// ActiveTab returns the active tab, or nil. Lock must be held.
func (s *State) ActiveTab() *Tab { return s.active }

// ActivePane returns the active tab's active pane, or nil. Lock must be
// held.
func (s *State) ActivePane() *Pane {
	if s.active == nil {
		return nil
	}
	return s.active.Active()
}

// AddTab appends a tab, activating it if it is the first. Lock must be
// held.
func (s *State) AddTab(t *Tab) {
	s.tabs = append(s.tabs, t)
	if s.active == nil {
		s.SetActiveTab(t)
	}
}

// SetActiveTab switches the active tab, driving focus events. Lock must
// be held.
func (s *State) SetActiveTab(t *Tab) bool {
	if s.active == t {
		return false
	}
	if s.active != nil {
		s.active.SetIsActive(false)
	}
	s.active = t
	if t != nil {
		t.SetIsActive(true)
	}
	return true
}

// RemoveTab drops a tab, moving activation to the first survivor. Lock
// must be held.
func (s *State) RemoveTab(t *Tab) bool {
	found := false
	kept := s.tabs[:0]
	for _, q := range s.tabs {
		if q == t {
			found = true
			continue
		}
		kept = append(kept, q)
	}
	s.tabs = kept
	if !found {
		return false
	}
	if s.active == t {
		s.active = nil
		if len(s.tabs) > 0 {
			s.SetActiveTab(s.tabs[0])
		}
	}
	return true
}

// TabByID finds a tab by its identifier. Lock must be held.
func (s *State) TabByID(id uint64) *Tab {
	for _, t := range s.tabs {
		if t.ID() == id {
			return t
		}
	}
	return nil
}
