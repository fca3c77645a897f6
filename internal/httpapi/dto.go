package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/piwi3910/GridCut/internal/engine"
	"github.com/piwi3910/GridCut/internal/model"
)

// gridInput accepts a stock either as a bare 2D array of cells indexed
// [x][y] or as an object {label, width, height, cells}.
type gridInput struct {
	stock *model.Stock
}

func (g *gridInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows [][]int
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return err
		}
		s, err := model.NewStockFromRows("", rows)
		if err != nil {
			return err
		}
		g.stock = s
		return nil
	}
	s := &model.Stock{}
	if err := json.Unmarshal(trimmed, s); err != nil {
		return err
	}
	g.stock = s
	return nil
}

func toStocks(in []gridInput) ([]*model.Stock, error) {
	stocks := make([]*model.Stock, len(in))
	for i, g := range in {
		if g.stock == nil {
			return nil, fmt.Errorf("stock %d is null", i)
		}
		stocks[i] = g.stock
	}
	return stocks, nil
}

func toRows(stocks []*model.Stock) [][][]int {
	rows := make([][][]int, len(stocks))
	for i, s := range stocks {
		rows[i] = s.Rows()
	}
	return rows
}

// NextRequest is the body of POST /v1/placements/next.
type NextRequest struct {
	PolicyID *int             `json:"policy_id,omitempty"`
	Stocks   []gridInput      `json:"stocks"`
	Products []*model.Product `json:"products"`
}

func (r NextRequest) policyID() int {
	if r.PolicyID == nil {
		return engine.FirstFitID
	}
	return *r.PolicyID
}

// NextResponse returns the placement, or null, with the updated state.
type NextResponse struct {
	Placement *model.Placement `json:"placement"`
	Stocks    [][][]int        `json:"stocks"`
	Products  []*model.Product `json:"products"`
}

// RunResponse is the body returned by POST /v1/runs.
type RunResponse struct {
	Reason     engine.StopReason `json:"reason"`
	Efficiency float64           `json:"efficiency"`
	Offcuts    []model.Offcut    `json:"offcuts,omitempty"`
	model.RunResult
}

// SessionRequest is the body of POST /v1/sessions.
type SessionRequest struct {
	Stocks   []gridInput      `json:"stocks"`
	Products []*model.Product `json:"products"`
}

// SessionResponse describes a session's current state.
type SessionResponse struct {
	ID      string              `json:"id"`
	CanUndo bool                `json:"can_undo"`
	CanRedo bool                `json:"can_redo"`
	Piece   *model.PlacedPiece  `json:"piece,omitempty"`
	Stocks  [][][]int           `json:"stocks"`
	Pieces  []model.PlacedPiece `json:"pieces"`
	Remain  []*model.Product    `json:"products"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
