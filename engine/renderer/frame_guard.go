package renderer

// frameGuard tracks whether a frame sits between BeginFrame and EndFrame.
// It is not safe for concurrent use; the backend holds its mutex around every call.
type frameGuard struct {
	held bool
}

// begin marks a frame as held. It fails with ErrFrameInProgress if one already is.
func (g *frameGuard) begin() error {
	if g.held {
		return ErrFrameInProgress
	}
	g.held = true
	return nil
}

// end releases the held frame. It fails with ErrNoFrame if none was begun.
func (g *frameGuard) end() error {
	if !g.held {
		return ErrNoFrame
	}
	g.held = false
	return nil
}

// reset drops the held frame without checking, for failed acquisitions and Release.
func (g *frameGuard) reset() {
	g.held = false
}
