package arraylist

// Resize reasons
const (
	ReasonFix     = "fix"
	ReasonReserve = "reserve"
)

// ResizeEvent describes one reallocation of a list's buffer
type ResizeEvent struct {
	OldCapacity int
	NewCapacity int
	Length      int
	Reason      string
}

// Grew reports whether the buffer got larger
func (e ResizeEvent) Grew() bool {
	return e.NewCapacity > e.OldCapacity
}

// Observer receives buffer events from a List. Calls happen synchronously
// on the goroutine that owns the list.
type Observer interface {
	ObserveResize(event ResizeEvent)
	ObserveAllocFailure(requested int, err error)
}

// Stats tracks buffer activity of a single list
type Stats struct {
	Reallocations int64
	Grows         int64
	Shrinks       int64
	AllocFailures int64
	PeakCapacity  int
}
