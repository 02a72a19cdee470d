package dom

import "sync"

// Recorder is an in-memory Sink. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	cmds   []Command
	notify chan struct{}
	err    error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// FailWith makes every later Send return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Send records cmds.
func (r *Recorder) Send(cmds ...Command) error {
	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return err
	}
	r.cmds = append(r.cmds, cmds...)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Commands returns a copy of everything sent so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// WithOp returns the recorded commands with the given op.
func (r *Recorder) WithOp(op Op) []Command {
	var out []Command
	for _, c := range r.Commands() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Has reports whether a command equal to want was recorded.
func (r *Recorder) Has(want Command) bool {
	for _, c := range r.Commands() {
		if c == want {
			return true
		}
	}
	return false
}

// Reset drops recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.cmds = nil
	r.mu.Unlock()
}

// Updated is signalled after each Send.
func (r *Recorder) Updated() <-chan struct{} {
	return r.notify
}
