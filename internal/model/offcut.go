package model

import (
	"sort"

	"github.com/google/uuid"
)

// Offcut represents a usable rectangular remnant left on a stock after cutting.
type Offcut struct {
	ID         string   `json:"id"`
	StockLabel string   `json:"stock_label"` // Which stock it came from
	StockIndex int      `json:"stock_index"` // Index of the source stock
	Position   Position `json:"position"`
	Size       Size     `json:"size"`
}

// Area returns the offcut area in cells.
func (o Offcut) Area() int {
	return o.Size.Area()
}

// ToStock converts an offcut into an empty stock for reuse in later jobs.
func (o Offcut) ToStock() *Stock {
	return NewStock("Offcut "+o.StockLabel, o.Size.Width, o.Size.Height)
}

// DefaultMinOffcutArea is the smallest remnant, in cells, worth keeping.
const DefaultMinOffcutArea = 4

// offcutMark fills claimed remnants on the scratch grid.
const offcutMark = -3

// DetectOffcuts finds remnants on a stock by repeatedly claiming the largest
// empty rectangle until the next one is smaller than minArea. The stock is
// not modified.
func DetectOffcuts(s *Stock, stockIndex, minArea int) []Offcut {
	if minArea < 1 {
		minArea = 1
	}
	scratch := s.Clone()

	var offcuts []Offcut
	for {
		pos, size := largestEmptyRect(scratch)
		if size.Area() < minArea {
			break
		}
		scratch.Fill(pos, size, offcutMark)
		offcuts = append(offcuts, Offcut{
			ID:         uuid.New().String()[:8],
			StockLabel: s.Label,
			StockIndex: stockIndex,
			Position:   pos,
			Size:       size,
		})
	}

	// Largest first; stable so equal areas keep discovery order
	sort.SliceStable(offcuts, func(i, j int) bool {
		return offcuts[i].Area() > offcuts[j].Area()
	})
	return offcuts
}

// largestEmptyRect returns the largest all-empty rectangle using the
// histogram method: each x row extends column heights of empty runs, and the
// largest rectangle under that histogram is found with a stack.
func largestEmptyRect(s *Stock) (Position, Size) {
	bestPos, bestSize := NoPosition, Size{}
	heights := make([]int, s.height)
	stack := make([]int, 0, s.height+1)

	for x := 0; x < s.width; x++ {
		for y := 0; y < s.height; y++ {
			if s.At(x, y) == EmptyCell {
				heights[y]++
			} else {
				heights[y] = 0
			}
		}

		stack = stack[:0]
		for y := 0; y <= s.height; y++ {
			cur := 0
			if y < s.height {
				cur = heights[y]
			}
			for len(stack) > 0 && heights[stack[len(stack)-1]] >= cur {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				h := heights[top]
				left := 0
				if len(stack) > 0 {
					left = stack[len(stack)-1] + 1
				}
				w := y - left
				if h*w > bestSize.Area() {
					bestPos = Position{X: x - h + 1, Y: left}
					bestSize = Size{Width: h, Height: w}
				}
			}
			stack = append(stack, y)
		}
	}
	return bestPos, bestSize
}

// DetectAllOffcuts finds offcuts across all stocks.
func DetectAllOffcuts(stocks []*Stock, minArea int) []Offcut {
	var all []Offcut
	for i, s := range stocks {
		all = append(all, DetectOffcuts(s, i, minArea)...)
	}
	return all
}

// TotalOffcutArea returns the total area of all offcuts in cells.
func TotalOffcutArea(offcuts []Offcut) int {
	total := 0
	for _, o := range offcuts {
		total += o.Area()
	}
	return total
}
