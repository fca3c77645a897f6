package session

import "github.com/piwi3910/GridCut/internal/model"

// maxHistory bounds how many steps a session can walk back.
const maxHistory = 50

// Snapshot is a deep copy of a session's stocks, products and pieces.
type Snapshot struct {
	Stocks   []*model.Stock
	Products []*model.Product
	Pieces   []model.PlacedPiece
	Label    string
}

// MakeSnapshot deep-copies the given state. Nil slices stay nil.
func MakeSnapshot(stocks []*model.Stock, products []*model.Product, pieces []model.PlacedPiece, label string) Snapshot {
	snap := Snapshot{
		Stocks:   model.CopyStocks(stocks),
		Products: model.CopyProducts(products),
		Label:    label,
	}
	if pieces != nil {
		snap.Pieces = append(make([]model.PlacedPiece, 0, len(pieces)), pieces...)
	}
	return snap
}

// stack is a LIFO of snapshots that forgets its oldest entry past limit.
type stack struct {
	items []Snapshot
	limit int
}

func (s *stack) push(snap Snapshot) {
	s.items = append(s.items, snap)
	if s.limit > 0 && len(s.items) > s.limit {
		s.items = append(s.items[:0], s.items[len(s.items)-s.limit:]...)
	}
}

func (s *stack) pop() (Snapshot, bool) {
	n := len(s.items)
	if n == 0 {
		return Snapshot{}, false
	}
	top := s.items[n-1]
	s.items[n-1] = Snapshot{}
	s.items = s.items[:n-1]
	return top, true
}

func (s *stack) len() int { return len(s.items) }

func (s *stack) reset() { s.items = nil }

// History holds the states a session can go back to and the states it has
// come back from.
type History struct {
	past   stack
	future stack
}

// NewHistory returns a History that keeps at most maxHistory undo states.
func NewHistory() *History {
	return newHistory(maxHistory)
}

func newHistory(limit int) *History {
	return &History{past: stack{limit: limit}, future: stack{limit: limit}}
}

// Push records the state before a change. Any undone states are discarded.
func (h *History) Push(before Snapshot) {
	h.past.push(before)
	h.future.reset()
}

// Undo trades current for the most recent recorded state.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	return swap(&h.past, &h.future, current)
}

// Redo trades current for the most recently undone state.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	return swap(&h.future, &h.past, current)
}

func swap(from, to *stack, current Snapshot) (Snapshot, bool) {
	snap, ok := from.pop()
	if ok {
		to.push(current)
	}
	return snap, ok
}

// CanUndo reports whether a recorded state is available.
func (h *History) CanUndo() bool { return h.past.len() > 0 }

// CanRedo reports whether an undone state can be reapplied.
func (h *History) CanRedo() bool { return h.future.len() > 0 }

// Depth returns the number of undoable states.
func (h *History) Depth() int { return h.past.len() }

// Clear forgets both directions.
func (h *History) Clear() {
	h.past.reset()
	h.future.reset()
}
