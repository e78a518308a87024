package scanner

// State is the controller's position in the scan cycle. The loop is an
// explicit state machine so every failure path has one transition and one
// recovery action.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateAwaitingStable
	StateRecognizing
	StateValidating
	StateAdvancing
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateAwaitingStable:
		return "awaiting_stable"
	case StateRecognizing:
		return "recognizing"
	case StateValidating:
		return "validating"
	case StateAdvancing:
		return "advancing"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// scanState is the mutable session state owned by the controller.
type scanState struct {
	index       int // absolute slot index, row-major over the grid
	topRow      int // first grid row currently visible
	expected    int // total item count read at scan start, 0 = unknown
	recorded    int
	skipped     int
	stuckCount  int // consecutive adjacent-duplicate detections
	slotRetries int // recognition attempts burned on the current slot
	reselected  bool
}

func (s *scanState) row(cols int) int { return s.index / cols }
func (s *scanState) col(cols int) int { return s.index % cols }

// done reports whether every expected slot has an outcome.
func (s *scanState) done() bool {
	return s.expected > 0 && s.recorded+s.skipped >= s.expected
}
