package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/GridCut/internal/engine"
	"github.com/piwi3910/GridCut/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter() *gin.Engine {
	return NewRouter(NewHandler(0, model.DefaultMinOffcutArea), RouterConfig{})
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doRequest(setupRouter(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouter()
	doRequest(router, http.MethodGet, "/health", "")

	w := doRequest(router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gridcut_http_requests_total")
}

func TestNextPlacement(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		check          func(*testing.T, NextResponse)
	}{
		{
			name:           "places on empty grid",
			body:           `{"stocks": [[[-1,-1,-1],[-1,-1,-1],[-1,-1,-1]]], "products": [{"id": 5, "size": {"width": 2, "height": 2}, "quantity": 1}]}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp NextResponse) {
				require.NotNil(t, resp.Placement)
				assert.Equal(t, model.Placement{Size: model.Size{Width: 2, Height: 2}}, *resp.Placement)
				assert.Equal(t, [][]int{{5, 5, -1}, {5, 5, -1}, {-1, -1, -1}}, resp.Stocks[0])
				assert.Equal(t, 0, resp.Products[0].Quantity)
			},
		},
		{
			name:           "full grid returns null placement",
			body:           `{"stocks": [[[7,7],[7,7]]], "products": [{"size": {"width": 1, "height": 1}, "quantity": 1}]}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp NextResponse) {
				assert.Nil(t, resp.Placement)
				assert.Equal(t, [][]int{{7, 7}, {7, 7}}, resp.Stocks[0])
				assert.Equal(t, 1, resp.Products[0].Quantity)
				assert.Equal(t, model.AnonymousID, resp.Products[0].ID)
			},
		},
		{
			name:           "object stock form",
			body:           `{"stocks": [{"label": "Small", "width": 2, "height": 2}, {"label": "Big", "width": 3, "height": 3}], "products": [{"id": 1, "size": {"width": 3, "height": 3}, "quantity": 1}]}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp NextResponse) {
				require.NotNil(t, resp.Placement)
				assert.Equal(t, 1, resp.Placement.StockIndex)
			},
		},
		{
			name:           "empty products",
			body:           `{"stocks": [[[-1]]]}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp NextResponse) {
				assert.Nil(t, resp.Placement)
				assert.Empty(t, resp.Products)
			},
		},
		{
			name:           "invalid json",
			body:           `{"stocks": [`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "ragged grid",
			body:           `{"stocks": [[[-1,-1],[-1]]], "products": []}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown policy",
			body:           `{"policy_id": 2, "stocks": [[[-1]]], "products": []}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(setupRouter(), http.MethodPost, "/v1/placements/next", tt.body)

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus != http.StatusOK {
				var errResp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
				assert.NotEmpty(t, errResp.Error)
				return
			}
			var resp NextResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			tt.check(t, resp)
		})
	}
}

func TestRun(t *testing.T) {
	body := `{
		"name": "demo",
		"stocks": [{"label": "A", "width": 4, "height": 4}],
		"products": [
			{"id": 1, "label": "Door", "size": {"width": 2, "height": 2}, "quantity": 2},
			{"id": 2, "label": "Big", "size": {"width": 5, "height": 5}, "quantity": 1}
		]
	}`

	w := doRequest(setupRouter(), http.MethodPost, "/v1/runs", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Reason     engine.StopReason   `json:"reason"`
		Efficiency float64             `json:"efficiency"`
		Steps      int                 `json:"steps"`
		Pieces     []model.PlacedPiece `json:"pieces"`
		Unplaced   []model.Product     `json:"unplaced"`
		Offcuts    []model.Offcut      `json:"offcuts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, engine.StopNoFit, resp.Reason)
	assert.Equal(t, 2, resp.Steps)
	assert.InDelta(t, 50.0, resp.Efficiency, 0.001)
	require.Len(t, resp.Pieces, 2)
	assert.Equal(t, "Door", resp.Pieces[0].Label)
	require.Len(t, resp.Unplaced, 1)
	assert.Equal(t, "Big", resp.Unplaced[0].Label)
	require.NotEmpty(t, resp.Offcuts)
	assert.Equal(t, 8, resp.Offcuts[0].Area())
}

func TestRunValidation(t *testing.T) {
	router := setupRouter()

	w := doRequest(router, http.MethodPost, "/v1/runs", `{"stocks": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(router, http.MethodPost, "/v1/runs", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/v1/runs", `{"policy_id": 9, "stocks": [{"width": 1, "height": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOversizedStockRejected(t *testing.T) {
	router := setupRouter()
	products := `"products": [{"id": 1, "size": {"width": 1, "height": 1}, "quantity": 1}]`

	for _, dims := range []string{
		`{"width": 4294967296, "height": 4294967296}`,
		`{"width": 100000, "height": 100000}`,
	} {
		body := `{"stocks": [` + dims + `], ` + products + `}`
		for _, path := range []string{"/v1/placements/next", "/v1/runs", "/v1/sessions"} {
			w := doRequest(router, http.MethodPost, path, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, "%s %s", path, dims)
			assert.Contains(t, w.Body.String(), "stock too large", "%s %s", path, dims)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := setupRouter()

	w := doRequest(router, http.MethodPost, "/v1/sessions",
		`{"stocks": [[[-1,-1],[-1,-1]]], "products": [{"id": 3, "size": {"width": 1, "height": 1}, "quantity": 2}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CanUndo)
	base := "/v1/sessions/" + created.ID

	w = doRequest(router, http.MethodPost, base+"/step", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stepped SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stepped))
	require.NotNil(t, stepped.Piece)
	assert.Equal(t, 3, stepped.Piece.ProductID)
	assert.Equal(t, [][]int{{3, -1}, {-1, -1}}, stepped.Stocks[0])
	assert.True(t, stepped.CanUndo)

	w = doRequest(router, http.MethodPost, base+"/undo", "")
	require.Equal(t, http.StatusOK, w.Code)
	var undone SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &undone))
	assert.Equal(t, [][]int{{-1, -1}, {-1, -1}}, undone.Stocks[0])
	assert.True(t, undone.CanRedo)
	assert.Empty(t, undone.Pieces)

	w = doRequest(router, http.MethodPost, base+"/redo", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, base+"/redo", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(router, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var current SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.Len(t, current.Pieces, 1)

	w = doRequest(router, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionUndoEmpty(t *testing.T) {
	router := setupRouter()
	w := doRequest(router, http.MethodPost, "/v1/sessions", `{"stocks": [[[-1]]], "products": []}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(router, http.MethodPost, "/v1/sessions/"+created.ID+"/undo", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCompressionEnabled(t *testing.T) {
	router := NewRouter(NewHandler(0, 0), RouterConfig{Compress: true})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}
