package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/piwi3910/GridCut/internal/model"
)

// Policy decides the next piece to cut. Implementations mutate the chosen
// stock and product on success and leave everything untouched otherwise.
type Policy interface {
	NextPlacement(stocks []*model.Stock, products []*model.Product) (model.Placement, bool)
}

// FirstFitID is the only policy identifier accepted by New.
const FirstFitID = 1

// ErrUnknownPolicy is returned when constructing a policy with an
// unrecognised identifier.
var ErrUnknownPolicy = errors.New("unknown policy id")

// FirstFit places the largest product that fits at the first free position
// of the first stock that can take it. It never backtracks.
type FirstFit struct {
	id int
}

// New returns the first-fit policy. Any id other than FirstFitID is rejected.
func New(policyID int) (*FirstFit, error) {
	if policyID != FirstFitID {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrUnknownPolicy, policyID, FirstFitID)
	}
	return &FirstFit{id: policyID}, nil
}

// MustNew is like New but panics on an invalid id.
func MustNew(policyID int) *FirstFit {
	p, err := New(policyID)
	if err != nil {
		panic(err)
	}
	return p
}

// ID returns the policy identifier.
func (f *FirstFit) ID() int {
	return f.id
}

// NextPlacement scans stocks in order and, within each stock, products by
// descending area. The first product with a free region is cut there: its
// cells take the product mark and its quantity drops by one. Zero-quantity
// products are not skipped; callers remove exhausted products.
func (f *FirstFit) NextPlacement(stocks []*model.Stock, products []*model.Product) (model.Placement, bool) {
	ordered := byAreaDesc(products)

	for stockIdx, stock := range stocks {
		for _, product := range ordered {
			pos, ok := f.FindPosition(stock, product.Size)
			if !ok {
				continue
			}
			stock.Fill(pos, product.Size, product.Mark())
			product.Quantity--
			return model.Placement{
				StockIndex: stockIdx,
				Size:       product.Size,
				Position:   pos,
			}, true
		}
	}
	return model.Placement{}, false
}

// FindPosition returns the first free top-left position for size, scanning x
// then y from the origin. It returns model.NoPosition when the footprint is
// larger than the stock or no free region exists.
func (f *FirstFit) FindPosition(stock *model.Stock, size model.Size) (model.Position, bool) {
	if size.Width < 0 || size.Height < 0 {
		return model.NoPosition, false
	}
	for x := 0; x <= stock.Width()-size.Width; x++ {
		for y := 0; y <= stock.Height()-size.Height; y++ {
			pos := model.Position{X: x, Y: y}
			if f.CanPlace(stock, size, pos) {
				return pos, true
			}
		}
	}
	return model.NoPosition, false
}

// CanPlace reports whether every cell of the region is empty. Callers pass
// in-bounds regions only.
func (f *FirstFit) CanPlace(stock *model.Stock, size model.Size, pos model.Position) bool {
	return stock.RegionFree(pos, size)
}

// byAreaDesc returns a copy of products sorted by area, largest first.
// Ties keep their input order.
func byAreaDesc(products []*model.Product) []*model.Product {
	ordered := make([]*model.Product, len(products))
	copy(ordered, products)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Area() > ordered[j].Area()
	})
	return ordered
}
