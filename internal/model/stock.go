package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxStockCells bounds the cell count of a single stock.
const MaxStockCells = 1 << 22

// ErrStockTooLarge is returned when a stock's cell count overflows or
// exceeds MaxStockCells.
var ErrStockTooLarge = errors.New("stock too large")

// CheckStockSize rejects negative dimensions and grids of more than
// MaxStockCells cells, without computing w*h first.
func CheckStockSize(w, h int) error {
	if w < 0 || h < 0 {
		return fmt.Errorf("invalid stock dimensions %dx%d", w, h)
	}
	if w > 0 && h > MaxStockCells/w {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrStockTooLarge, w, h, MaxStockCells)
	}
	return nil
}

// Stock is a rectangular sheet represented as a grid of cells. Each cell
// holds EmptyCell or the identifier of the product occupying it.
// Cells are stored in a flat buffer indexed by x*Height + y.
type Stock struct {
	Label  string
	width  int
	height int
	cells  []int
}

// NewStock creates an empty stock of w x h cells. Negative dimensions are
// treated as zero. It panics past MaxStockCells; untrusted sizes go through
// CheckStockSize first.
func NewStock(label string, w, h int) *Stock {
	w, h = max(w, 0), max(h, 0)
	if err := CheckStockSize(w, h); err != nil {
		panic("model: " + err.Error())
	}
	cells := make([]int, w*h)
	for i := range cells {
		cells[i] = EmptyCell
	}
	return &Stock{Label: label, width: w, height: h, cells: cells}
}

// NewStockFromRows builds a stock from rows indexed [x][y]. Every row must
// have the same length.
func NewStockFromRows(label string, rows [][]int) (*Stock, error) {
	w := len(rows)
	h := 0
	if w > 0 {
		h = len(rows[0])
	}
	s := NewStock(label, w, h)
	for x, row := range rows {
		if len(row) != h {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", x, len(row), h)
		}
		copy(s.cells[x*h:(x+1)*h], row)
	}
	return s, nil
}

// Width returns the number of cells along the first axis.
func (s *Stock) Width() int { return s.width }

// Height returns the number of cells along the second axis.
func (s *Stock) Height() int { return s.height }

// Size returns the stock dimensions.
func (s *Stock) Size() Size { return Size{Width: s.width, Height: s.height} }

func (s *Stock) index(x, y int) int {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		panic(fmt.Sprintf("model: cell (%d, %d) out of range for %dx%d stock", x, y, s.width, s.height))
	}
	return x*s.height + y
}

// At returns the value of cell (x, y). It panics if the cell is out of range.
func (s *Stock) At(x, y int) int {
	return s.cells[s.index(x, y)]
}

// Set writes v into cell (x, y). It panics if the cell is out of range.
func (s *Stock) Set(x, y, v int) {
	s.cells[s.index(x, y)] = v
}

// Contains reports whether the region [pos, pos+size) lies inside the stock.
func (s *Stock) Contains(pos Position, size Size) bool {
	return pos.X >= 0 && pos.Y >= 0 &&
		size.Width >= 0 && size.Height >= 0 &&
		pos.X+size.Width <= s.width && pos.Y+size.Height <= s.height
}

// RegionFree reports whether every cell of [pos, pos+size) is empty.
// The region must lie inside the stock.
func (s *Stock) RegionFree(pos Position, size Size) bool {
	for x := pos.X; x < pos.X+size.Width; x++ {
		row := s.cells[x*s.height : (x+1)*s.height]
		for y := pos.Y; y < pos.Y+size.Height; y++ {
			if row[y] != EmptyCell {
				return false
			}
		}
	}
	return true
}

// Fill writes v into every cell of [pos, pos+size). The region must lie
// inside the stock.
func (s *Stock) Fill(pos Position, size Size, v int) {
	if !s.Contains(pos, size) {
		panic(fmt.Sprintf("model: region %v at (%d, %d) out of range for %v stock", size, pos.X, pos.Y, s.Size()))
	}
	for x := pos.X; x < pos.X+size.Width; x++ {
		row := s.cells[x*s.height : (x+1)*s.height]
		for y := pos.Y; y < pos.Y+size.Height; y++ {
			row[y] = v
		}
	}
}

// Rows returns a copy of the grid indexed [x][y].
func (s *Stock) Rows() [][]int {
	rows := make([][]int, s.width)
	for x := range rows {
		rows[x] = make([]int, s.height)
		copy(rows[x], s.cells[x*s.height:(x+1)*s.height])
	}
	return rows
}

// Clone returns a deep copy of the stock.
func (s *Stock) Clone() *Stock {
	cells := make([]int, len(s.cells))
	copy(cells, s.cells)
	return &Stock{Label: s.Label, width: s.width, height: s.height, cells: cells}
}

// Equal reports whether two stocks have the same dimensions and cells.
func (s *Stock) Equal(other *Stock) bool {
	if s.width != other.width || s.height != other.height {
		return false
	}
	for i, v := range s.cells {
		if other.cells[i] != v {
			return false
		}
	}
	return true
}

// TotalCells returns the number of cells in the stock.
func (s *Stock) TotalCells() int {
	return len(s.cells)
}

// UsedCells returns the number of occupied cells.
func (s *Stock) UsedCells() int {
	n := 0
	for _, v := range s.cells {
		if v != EmptyCell {
			n++
		}
	}
	return n
}

// Efficiency returns the usage percentage.
func (s *Stock) Efficiency() float64 {
	if len(s.cells) == 0 {
		return 0
	}
	return float64(s.UsedCells()) / float64(len(s.cells)) * 100.0
}

type stockJSON struct {
	Label  string  `json:"label,omitempty"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Cells  [][]int `json:"cells,omitempty"`
}

// MarshalJSON encodes the stock with its grid as rows indexed [x][y].
func (s *Stock) MarshalJSON() ([]byte, error) {
	return json.Marshal(stockJSON{
		Label:  s.Label,
		Width:  s.width,
		Height: s.height,
		Cells:  s.Rows(),
	})
}

// UnmarshalJSON accepts either explicit cells or just width and height, in
// which case the stock starts empty.
func (s *Stock) UnmarshalJSON(data []byte) error {
	var aux stockJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Cells) == 0 {
		if err := CheckStockSize(aux.Width, aux.Height); err != nil {
			return err
		}
		*s = *NewStock(aux.Label, aux.Width, aux.Height)
		return nil
	}
	built, err := NewStockFromRows(aux.Label, aux.Cells)
	if err != nil {
		return err
	}
	if (aux.Width != 0 || aux.Height != 0) && (aux.Width != built.width || aux.Height != built.height) {
		return fmt.Errorf("stock cells are %dx%d but dimensions say %dx%d", built.width, built.height, aux.Width, aux.Height)
	}
	*s = *built
	return nil
}

// CopyStocks returns deep copies of the given stocks.
func CopyStocks(stocks []*Stock) []*Stock {
	if stocks == nil {
		return nil
	}
	cp := make([]*Stock, len(stocks))
	for i, s := range stocks {
		cp[i] = s.Clone()
	}
	return cp
}
