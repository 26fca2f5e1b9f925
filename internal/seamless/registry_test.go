package seamless

import "testing"

func TestRegistrationPerBuffer(t *testing.T) {
	var s RegistrationState

	s.Register(true)
	if got := s.Current(); !got.Registered || !got.HideCursorOnEnter {
		t.Fatalf("primary registration = %+v", got)
	}

	// The alternate buffer starts unregistered even though the primary is
	// registered.
	s.SetActiveBuffer(AlternateBuffer)
	if got := s.Current(); got.Registered {
		t.Fatalf("alternate buffer inherited registration: %+v", got)
	}

	s.Register(false)
	if got := s.Current(); !got.Registered || got.HideCursorOnEnter {
		t.Fatalf("alternate registration = %+v", got)
	}

	// Switching back restores the primary buffer's state.
	s.SetActiveBuffer(PrimaryBuffer)
	if got := s.Current(); !got.Registered || !got.HideCursorOnEnter {
		t.Fatalf("primary registration lost across buffer switch: %+v", got)
	}

	s.Unregister()
	if s.Current().Registered {
		t.Fatal("unregister did not clear primary buffer")
	}
	s.SetActiveBuffer(AlternateBuffer)
	if !s.Current().Registered {
		t.Fatal("unregister leaked into alternate buffer")
	}
}

func TestRegistrationReset(t *testing.T) {
	var s RegistrationState
	s.Register(true)
	s.SetActiveBuffer(AlternateBuffer)
	s.Register(false)

	s.Reset()

	if s.ActiveBuffer() != PrimaryBuffer {
		t.Error("reset should return to the primary buffer")
	}
	if s.Current().Registered {
		t.Error("primary buffer still registered after reset")
	}
	s.SetActiveBuffer(AlternateBuffer)
	if s.Current().Registered {
		t.Error("alternate buffer still registered after reset")
	}
}
