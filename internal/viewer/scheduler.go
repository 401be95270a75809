package viewer

type schedState int

const (
	stateIdle schedState = iota
	stateScheduled
	stateRendering
)

func (s schedState) String() string {
	switch s {
	case stateScheduled:
		return "scheduled"
	case stateRendering:
		return "rendering"
	default:
		return "idle"
	}
}

// scheduler holds at most one scheduled frame and at most one pending
// re-render. It is a plain state machine; the busy flag is the state itself.
type scheduler struct {
	state        schedState
	force        bool
	pending      bool
	pendingForce bool
}

// request asks for a render on the next frame. A forced request stays
// forced until the frame runs.
func (s *scheduler) request(force bool) {
	switch s.state {
	case stateRendering:
		s.pending = true
		s.pendingForce = s.pendingForce || force
	default:
		s.state = stateScheduled
		s.force = s.force || force
	}
}

// begin moves a scheduled frame into rendering.
func (s *scheduler) begin() (force bool, ok bool) {
	if s.state != stateScheduled {
		return false, false
	}
	s.state = stateRendering
	force = s.force
	s.force = false
	return force, true
}

// finish ends the current render. A request that arrived meanwhile becomes
// the next scheduled frame; it is forced only if a forced request was among
// them.
func (s *scheduler) finish() {
	if s.state != stateRendering {
		return
	}
	if s.pending {
		s.state = stateScheduled
		s.force = s.pendingForce
		s.pending = false
		s.pendingForce = false
		return
	}
	s.state = stateIdle
}
