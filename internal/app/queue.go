package app

// TurnQueue holds every roster slot exactly once. The head is the
// participant whose turn it is.
type TurnQueue struct {
	order   []int
	reverse bool
}

// NewTurnQueue returns a queue over slots 0..n-1 in order.
func NewTurnQueue(n int) *TurnQueue {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return &TurnQueue{order: order}
}

// Head returns the slot whose turn it is.
func (q *TurnQueue) Head() int {
	return q.order[0]
}

// Len returns the number of slots.
func (q *TurnQueue) Len() int {
	return len(q.order)
}

// RequestReversal makes the next Rotate invert the order once.
func (q *TurnQueue) RequestReversal() {
	q.reverse = true
}

// Rotate moves the head to the back. If a reversal was requested the whole
// order is then inverted, so the participant who just finished goes again
// and play continues backwards.
func (q *TurnQueue) Rotate() {
	head := q.order[0]
	copy(q.order, q.order[1:])
	q.order[len(q.order)-1] = head
	if q.reverse {
		q.reverse = false
		for i, j := 0, len(q.order)-1; i < j; i, j = i+1, j-1 {
			q.order[i], q.order[j] = q.order[j], q.order[i]
		}
	}
}

// Snapshot returns a copy of the current order, head first.
func (q *TurnQueue) Snapshot() []int {
	return append([]int(nil), q.order...)
}
