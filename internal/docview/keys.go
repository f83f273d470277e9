package docview

import "context"

// KeyEnter is the key name of the Enter key.
const KeyEnter = "Enter"

// KeyEvent is a key press delivered by the input surface.
type KeyEvent struct {
	Key   string
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
}

// Modified reports whether any modifier key was held.
func (e KeyEvent) Modified() bool {
	return e.Shift || e.Ctrl || e.Alt || e.Meta
}

// HandleKey submits the pending question on an unmodified Enter. It reports
// whether the input surface should suppress its default behaviour.
func (s *Session) HandleKey(ctx context.Context, ev KeyEvent) (bool, error) {
	if ev.Key != KeyEnter || ev.Modified() {
		return false, nil
	}
	_, err := s.SubmitPending(ctx)
	return true, err
}
