package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Cell values with a special meaning. Any other value is the identifier of
// the product occupying the cell.
const (
	EmptyCell   = -1 // Unoccupied cell
	AnonymousID = -2 // Mark used for products that carry no identifier
)

// Size is a rectangular footprint measured in cells.
type Size struct {
	Width  int `json:"width"`  // Cells along the first axis (x)
	Height int `json:"height"` // Cells along the second axis (y)
}

// Area returns the number of cells covered by the footprint.
func (s Size) Area() int {
	return s.Width * s.Height
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Position is the top-left cell of a placed footprint.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NoPosition is returned by searches that found no free region.
var NoPosition = Position{X: -1, Y: -1}

// Product is a demand record: a rectangular piece with a remaining quantity.
type Product struct {
	Ref      string `json:"ref,omitempty"` // Short reference used on labels and reports
	ID       int    `json:"id"`            // Identifier written into occupied cells
	Label    string `json:"label"`
	Size     Size   `json:"size"`
	Quantity int    `json:"quantity"` // Remaining pieces to place
}

// NewProduct creates a product with a fresh reference.
func NewProduct(label string, id, w, h, qty int) *Product {
	return &Product{
		Ref:      uuid.New().String()[:8],
		ID:       id,
		Label:    label,
		Size:     Size{Width: w, Height: h},
		Quantity: qty,
	}
}

// Area returns the product footprint area.
func (p Product) Area() int {
	return p.Size.Area()
}

// Mark returns the value written into cells occupied by this product.
// An identifier equal to EmptyCell would make the piece invisible, so it is
// replaced by AnonymousID.
func (p Product) Mark() int {
	if p.ID == EmptyCell {
		return AnonymousID
	}
	return p.ID
}

// UnmarshalJSON defaults a missing "id" to AnonymousID.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		ID *int `json:"id"`
		*alias
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ID != nil {
		p.ID = *aux.ID
	} else {
		p.ID = AnonymousID
	}
	return nil
}

// CopyProducts returns value copies of the given products.
func CopyProducts(products []*Product) []*Product {
	if products == nil {
		return nil
	}
	cp := make([]*Product, len(products))
	for i, p := range products {
		v := *p
		cp[i] = &v
	}
	return cp
}

// Placement is the decision returned by a policy: which stock, what footprint
// and where its top-left corner goes.
type Placement struct {
	StockIndex int      `json:"stock_index"`
	Size       Size     `json:"size"`
	Position   Position `json:"position"`
}

// PlacedPiece records a committed placement together with the product that
// produced it.
type PlacedPiece struct {
	Placement
	ProductID  int    `json:"product_id"`
	ProductRef string `json:"product_ref,omitempty"`
	Label      string `json:"label"`
}

// RunResult holds the outcome of driving a policy until it stops.
type RunResult struct {
	Stocks   []*Stock      `json:"stocks"`
	Pieces   []PlacedPiece `json:"pieces"`
	Unplaced []Product     `json:"unplaced"` // Products with quantity left over
	Steps    int           `json:"steps"`
}

// UsedCells returns the occupied cell count across all stocks.
func (r RunResult) UsedCells() int {
	total := 0
	for _, s := range r.Stocks {
		total += s.UsedCells()
	}
	return total
}

// TotalCells returns the cell count across all stocks.
func (r RunResult) TotalCells() int {
	total := 0
	for _, s := range r.Stocks {
		total += s.TotalCells()
	}
	return total
}

// TotalEfficiency returns overall cell usage as a percentage.
func (r RunResult) TotalEfficiency() float64 {
	total := r.TotalCells()
	if total == 0 {
		return 0
	}
	return float64(r.UsedCells()) / float64(total) * 100.0
}

// PiecesOn returns the pieces placed on the stock at index.
func (r RunResult) PiecesOn(index int) []PlacedPiece {
	var pieces []PlacedPiece
	for _, p := range r.Pieces {
		if p.StockIndex == index {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// UnplacedCount returns the number of pieces still demanded.
func (r RunResult) UnplacedCount() int {
	n := 0
	for _, p := range r.Unplaced {
		n += p.Quantity
	}
	return n
}
