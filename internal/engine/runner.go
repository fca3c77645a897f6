package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/piwi3910/GridCut/internal/metrics"
	"github.com/piwi3910/GridCut/internal/model"
)

// StopReason explains why Run returned.
type StopReason string

const (
	StopExhausted StopReason = "exhausted" // Every product reached zero quantity
	StopNoFit     StopReason = "no_fit"    // Products remain but none fits any stock
	StopMaxSteps  StopReason = "max_steps" // RunOptions.MaxSteps placements were made
	StopCancelled StopReason = "cancelled" // The context was cancelled between steps
)

// RunOptions tunes Run.
type RunOptions struct {
	MaxSteps int // Upper bound on placements; 0 means no limit
}

// Run drives policy one placement at a time until it stops finding room.
// Stocks and products are mutated in place. Before every call exhausted
// products are dropped from the candidate list, which is the bookkeeping the
// policy leaves to its caller. A cancelled context stops the loop between
// steps and its error is returned with the partial result.
func Run(ctx context.Context, policy Policy, stocks []*model.Stock, products []*model.Product, opts RunOptions) (model.RunResult, StopReason, error) {
	result := model.RunResult{Stocks: stocks}
	active := pruneExhausted(products)
	before := make([]int, 0, len(active))
	reason := StopExhausted

	for len(active) > 0 {
		if err := ctx.Err(); err != nil {
			reason = StopCancelled
			result.Unplaced = remaining(active)
			metrics.RecordRun(string(reason))
			return result, reason, err
		}
		if opts.MaxSteps > 0 && result.Steps >= opts.MaxSteps {
			reason = StopMaxSteps
			break
		}

		before = before[:0]
		for _, p := range active {
			before = append(before, p.Quantity)
		}

		start := time.Now()
		placement, ok := policy.NextPlacement(stocks, active)
		metrics.RecordSearch(time.Since(start), ok, placement.Size.Area())
		if !ok {
			reason = StopNoFit
			break
		}
		result.Steps++

		piece := model.PlacedPiece{Placement: placement, ProductID: model.AnonymousID}
		for i, p := range active {
			if p.Quantity != before[i] {
				piece.ProductID = p.Mark()
				piece.ProductRef = p.Ref
				piece.Label = p.Label
				break
			}
		}
		result.Pieces = append(result.Pieces, piece)

		log.Debug().
			Int("step", result.Steps).
			Int("stock", placement.StockIndex).
			Int("x", placement.Position.X).
			Int("y", placement.Position.Y).
			Str("size", placement.Size.String()).
			Int("product", piece.ProductID).
			Msg("piece placed")

		active = pruneExhausted(active)
	}

	result.Unplaced = remaining(active)
	metrics.RecordRun(string(reason))

	log.Info().
		Str("reason", string(reason)).
		Int("steps", result.Steps).
		Int("unplaced", result.UnplacedCount()).
		Float64("efficiency", result.TotalEfficiency()).
		Msg("placement run finished")

	return result, reason, nil
}

// pruneExhausted returns the products that still have pieces to place.
func pruneExhausted(products []*model.Product) []*model.Product {
	kept := make([]*model.Product, 0, len(products))
	for _, p := range products {
		if p.Quantity > 0 {
			kept = append(kept, p)
		}
	}
	return kept
}

func remaining(products []*model.Product) []model.Product {
	var out []model.Product
	for _, p := range products {
		if p.Quantity > 0 {
			out = append(out, *p)
		}
	}
	return out
}
