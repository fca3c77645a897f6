// Package session keeps a working set of stocks and products and steps a
// placement policy over it with undo and redo.
package session

import (
	"fmt"
	"sync"

	"github.com/piwi3910/GridCut/internal/engine"
	"github.com/piwi3910/GridCut/internal/model"
)

// Session is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	policy   engine.Policy
	stocks   []*model.Stock
	products []*model.Product
	pieces   []model.PlacedPiece
	history  *History
}

// New starts a session over deep copies of stocks and products.
func New(policy engine.Policy, stocks []*model.Stock, products []*model.Product) *Session {
	return &Session{
		policy:   policy,
		stocks:   model.CopyStocks(stocks),
		products: model.CopyProducts(products),
		history:  NewHistory(),
	}
}

// Step asks the policy for one placement. Exhausted products are dropped
// before the call. A step that places nothing leaves no history entry.
func (s *Session) Step() (model.PlacedPiece, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.snapshot("")
	active := make([]*model.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Quantity > 0 {
			active = append(active, p)
		}
	}
	quantities := make([]int, len(active))
	for i, p := range active {
		quantities[i] = p.Quantity
	}

	placement, ok := s.policy.NextPlacement(s.stocks, active)
	if !ok {
		return model.PlacedPiece{}, false
	}

	piece := model.PlacedPiece{Placement: placement, ProductID: model.AnonymousID}
	for i, p := range active {
		if p.Quantity != quantities[i] {
			piece.ProductID = p.Mark()
			piece.ProductRef = p.Ref
			piece.Label = p.Label
			break
		}
	}
	s.pieces = append(s.pieces, piece)

	before.Label = fmt.Sprintf("Place %s on stock %d", placement.Size, placement.StockIndex)
	s.history.Push(before)
	return piece, true
}

// Undo restores the state before the last step.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.history.Undo(s.snapshot("current"))
	if !ok {
		return false
	}
	s.restore(prev)
	return true
}

// Redo reapplies the last undone step.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.history.Redo(s.snapshot("current"))
	if !ok {
		return false
	}
	s.restore(next)
	return true
}

// CanUndo reports whether a step can be undone.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether an undone step can be reapplied.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Clear drops undo and redo history, keeping the current state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
}

// State returns a deep copy of the current state.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot("current")
}

// Result returns the current state as a run result.
func (s *Session) Result() model.RunResult {
	snap := s.State()
	result := model.RunResult{
		Stocks: snap.Stocks,
		Pieces: snap.Pieces,
		Steps:  len(snap.Pieces),
	}
	for _, p := range snap.Products {
		if p.Quantity > 0 {
			result.Unplaced = append(result.Unplaced, *p)
		}
	}
	return result
}

func (s *Session) snapshot(label string) Snapshot {
	return MakeSnapshot(s.stocks, s.products, s.pieces, label)
}

func (s *Session) restore(snap Snapshot) {
	s.stocks = snap.Stocks
	s.products = snap.Products
	s.pieces = snap.Pieces
}
