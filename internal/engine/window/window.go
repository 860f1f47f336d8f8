// Package window decides when a transcription pass should run and which
// audio span it covers.
package window

// Window is a contiguous span of buffered audio [Start, End) selected for
// one inference call. Final marks the flush window emitted on end-of-stream.
type Window struct {
	Start int64
	End   int64
	Final bool
}

// Len returns the window's byte length.
func (w Window) Len() int64 { return w.End - w.Start }

// Scheduler emits windows over a growing buffer. Consecutive windows overlap
// by a fixed span so words spoken across a boundary appear in both and the
// reconciler can stitch them.
//
// Not safe for concurrent use; it is owned by a single session worker.
type Scheduler struct {
	interval int64 // unwindowed bytes needed before a window is emitted
	overlap  int64 // bytes shared with the previous window
	prevEnd  int64 // end offset of the last emitted window
	inFlight bool
	count    int // windows emitted so far
}

// New creates a scheduler emitting a window every interval bytes, each
// starting overlap bytes before the previous window's end.
func New(interval, overlap int64) *Scheduler {
	if interval < 1 {
		interval = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Scheduler{interval: interval, overlap: overlap}
}

// Next reports whether a window is due given the current buffer end. At most
// one window is in flight at a time; callers must call Done before the next
// window can be emitted.
func (s *Scheduler) Next(bufEnd int64) (Window, bool) {
	if s.inFlight {
		return Window{}, false
	}
	if bufEnd-s.prevEnd < s.interval {
		return Window{}, false
	}
	return s.emit(bufEnd, false), true
}

// Flush emits the final window covering all remaining unwindowed audio,
// regardless of size. Returns false if everything is already windowed or a
// window is still in flight.
func (s *Scheduler) Flush(bufEnd int64) (Window, bool) {
	if s.inFlight || bufEnd <= s.prevEnd {
		return Window{}, false
	}
	return s.emit(bufEnd, true), true
}

func (s *Scheduler) emit(bufEnd int64, final bool) Window {
	start := s.prevEnd - s.overlap
	if start < 0 {
		start = 0
	}
	w := Window{Start: start, End: bufEnd, Final: final}
	s.prevEnd = bufEnd
	s.inFlight = true
	s.count++
	return w
}

// Done records that the in-flight window was reconciled or definitively
// failed. Failed windows are not replayed; their span counts as covered.
func (s *Scheduler) Done() {
	s.inFlight = false
}

// InFlight reports whether a window is awaiting reconciliation.
func (s *Scheduler) InFlight() bool { return s.inFlight }

// Emitted returns the number of windows emitted so far.
func (s *Scheduler) Emitted() int { return s.count }
