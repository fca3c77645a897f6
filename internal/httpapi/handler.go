package httpapi

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/piwi3910/GridCut/internal/engine"
	"github.com/piwi3910/GridCut/internal/model"
	"github.com/piwi3910/GridCut/internal/project"
	"github.com/piwi3910/GridCut/internal/session"
)

// Handler serves the placement routes.
type Handler struct {
	maxSteps      int
	offcutMinArea int

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewHandler creates a Handler. maxSteps bounds runs (0 = unbounded) and
// offcutMinArea enables offcut reporting when positive.
func NewHandler(maxSteps, offcutMinArea int) *Handler {
	return &Handler{
		maxSteps:      maxSteps,
		offcutMinArea: offcutMinArea,
		sessions:      make(map[string]*session.Session),
	}
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, ErrorResponse{Error: err.Error(), RequestID: GetRequestID(c)})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NextPlacement applies a single policy step to the posted state and returns
// the placement (or null) with the updated grids and quantities.
func (h *Handler) NextPlacement(c *gin.Context) {
	var req NextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	policy, err := engine.New(req.policyID())
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	stocks, err := toStocks(req.Stocks)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	products := req.Products
	for _, p := range products {
		if p == nil {
			respondError(c, http.StatusBadRequest, errors.New("product is null"))
			return
		}
	}

	resp := NextResponse{Products: products}
	if placement, ok := policy.NextPlacement(stocks, products); ok {
		resp.Placement = &placement
	}
	resp.Stocks = toRows(stocks)
	if resp.Products == nil {
		resp.Products = []*model.Product{}
	}
	c.JSON(http.StatusOK, resp)
}

// Run drives the job's policy until it stops and returns the result.
func (h *Handler) Run(c *gin.Context) {
	var job project.Job
	job.PolicyID = engine.FirstFitID
	if err := c.ShouldBindJSON(&job); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := job.Validate(); err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	policy, err := job.Policy()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	result, reason, err := engine.Run(c.Request.Context(), policy, job.Stocks, job.Products, engine.RunOptions{MaxSteps: h.maxSteps})
	if err != nil {
		log.Warn().Err(err).Str("request_id", GetRequestID(c)).Msg("run interrupted")
		respondError(c, http.StatusServiceUnavailable, err)
		return
	}

	resp := RunResponse{Reason: reason, Efficiency: result.TotalEfficiency(), RunResult: result}
	if h.offcutMinArea > 0 {
		resp.Offcuts = model.DetectAllOffcuts(result.Stocks, h.offcutMinArea)
	}
	c.JSON(http.StatusOK, resp)
}

// CreateSession starts an undoable session over the posted state.
func (h *Handler) CreateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	stocks, err := toStocks(req.Stocks)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	for _, p := range req.Products {
		if p == nil {
			respondError(c, http.StatusBadRequest, errors.New("product is null"))
			return
		}
	}

	id := uuid.New().String()
	s := session.New(engine.MustNew(engine.FirstFitID), stocks, req.Products)

	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	c.JSON(http.StatusCreated, sessionResponse(id, s, nil))
}

// GetSession returns a session's current state.
func (h *Handler) GetSession(c *gin.Context) {
	id, s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(id, s, nil))
}

// StepSession places one piece in the session.
func (h *Handler) StepSession(c *gin.Context) {
	id, s, ok := h.lookup(c)
	if !ok {
		return
	}
	var placed *model.PlacedPiece
	if piece, ok := s.Step(); ok {
		placed = &piece
	}
	c.JSON(http.StatusOK, sessionResponse(id, s, placed))
}

// UndoSession reverts the session's last step.
func (h *Handler) UndoSession(c *gin.Context) {
	id, s, ok := h.lookup(c)
	if !ok {
		return
	}
	if !s.Undo() {
		respondError(c, http.StatusConflict, errors.New("nothing to undo"))
		return
	}
	c.JSON(http.StatusOK, sessionResponse(id, s, nil))
}

// RedoSession reapplies the session's last undone step.
func (h *Handler) RedoSession(c *gin.Context) {
	id, s, ok := h.lookup(c)
	if !ok {
		return
	}
	if !s.Redo() {
		respondError(c, http.StatusConflict, errors.New("nothing to redo"))
		return
	}
	c.JSON(http.StatusOK, sessionResponse(id, s, nil))
}

// DeleteSession discards a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		respondError(c, http.StatusNotFound, errors.New("session not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) lookup(c *gin.Context) (string, *session.Session, bool) {
	id := c.Param("id")
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		respondError(c, http.StatusNotFound, errors.New("session not found"))
		return "", nil, false
	}
	return id, s, true
}

func sessionResponse(id string, s *session.Session, piece *model.PlacedPiece) SessionResponse {
	state := s.State()
	pieces := state.Pieces
	if pieces == nil {
		pieces = []model.PlacedPiece{}
	}
	return SessionResponse{
		ID:      id,
		CanUndo: s.CanUndo(),
		CanRedo: s.CanRedo(),
		Piece:   piece,
		Stocks:  toRows(state.Stocks),
		Pieces:  pieces,
		Remain:  state.Products,
	}
}
