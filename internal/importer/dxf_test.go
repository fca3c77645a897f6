package importer

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/piwi3910/GridCut/internal/model"
)

func box(x, y, w, h float64) extent {
	var e extent
	e.add(point{x, y})
	e.add(point{x + w, y + h})
	return e
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestToCells(t *testing.T) {
	tests := []struct {
		length, cell float64
		want         int
	}{
		{100, 10, 10},
		{101, 10, 11},
		{99.9, 10, 10},
		{5, 10, 1},
		{30.0000000001, 10, 3},
	}
	for _, tt := range tests {
		if got := toCells(tt.length, tt.cell); got != tt.want {
			t.Errorf("toCells(%g, %g) = %d, want %d", tt.length, tt.cell, got, tt.want)
		}
	}
}

func TestFootprintsToProducts_MergesEqualFootprints(t *testing.T) {
	shapes := []extent{
		box(0, 0, 40, 20),
		box(100, 100, 38, 19),
		box(0, 0, 10, 10),
	}

	products, warnings := footprintsToProducts(shapes, 10, nil)

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings %v", warnings)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Size != (model.Size{Width: 4, Height: 2}) || products[0].Quantity != 2 || products[0].ID != 1 {
		t.Errorf("unexpected first product %+v", products[0])
	}
	if products[1].Size != (model.Size{Width: 1, Height: 1}) || products[1].ID != 2 {
		t.Errorf("unexpected second product %+v", products[1])
	}
}

func TestFootprintsToProducts_SkipsDegenerate(t *testing.T) {
	products, warnings := footprintsToProducts([]extent{box(0, 0, 50, 0)}, 10, nil)
	if len(products) != 0 {
		t.Errorf("expected no products, got %d", len(products))
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}
}

func TestAddArc_QuadrantCrossings(t *testing.T) {
	var e extent
	// Quarter arc from 45 to 135 degrees crosses the top of the circle only.
	e.addArc(point{0, 0}, 10, math.Pi/4, 3*math.Pi/4)

	if !near(e.max.Y, 10) {
		t.Errorf("expected top at 10, got %g", e.max.Y)
	}
	if !near(e.min.Y, 10*math.Sin(math.Pi/4)) {
		t.Errorf("expected bottom at chord height, got %g", e.min.Y)
	}
	if !near(e.min.X, -10*math.Cos(math.Pi/4)) || !near(e.max.X, 10*math.Cos(math.Pi/4)) {
		t.Errorf("unexpected x range %g..%g", e.min.X, e.max.X)
	}
}

func TestPolylineExtent_Bulge(t *testing.T) {
	vertices := [][]float64{{0, 0}, {20, 0}, {20, 10}, {0, 10}}

	flat := polylineExtent(vertices, nil)
	if w, h := flat.size(); !near(w, 20) || !near(h, 10) {
		t.Errorf("flat polyline size %gx%g, want 20x10", w, h)
	}

	// A semicircle on the top edge pushes the box up by its radius.
	arched := polylineExtent(vertices, []float64{0, 0, 1, 0})
	if w, h := arched.size(); !near(w, 20) || !near(h, 20) {
		t.Errorf("arched polyline size %gx%g, want 20x20", w, h)
	}

	// Negative bulge on the same edge curves inward and leaves the box alone.
	dented := polylineExtent(vertices, []float64{0, 0, -1, 0})
	if w, h := dented.size(); !near(w, 20) || !near(h, 10) {
		t.Errorf("dented polyline size %gx%g, want 20x10", w, h)
	}
}

func TestClosedLoops(t *testing.T) {
	edges := []edge{
		lineEdge(point{0, 0}, point{20, 0}),
		lineEdge(point{100, 100}, point{110, 100}),
		lineEdge(point{20, 10}, point{0, 10}),
		lineEdge(point{20, 0}, point{20, 10}),
		lineEdge(point{110, 100}, point{110, 120}),
		lineEdge(point{0, 10}, point{0, 0}),
	}

	loops, open := closedLoops(edges)

	if open != 1 {
		t.Errorf("expected 1 open group, got %d", open)
	}
	if len(loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(loops))
	}
	if w, h := loops[0].size(); !near(w, 20) || !near(h, 10) {
		t.Errorf("loop size %gx%g, want 20x10", w, h)
	}
}

func TestClosedLoops_FullCircleArc(t *testing.T) {
	loops, open := closedLoops([]edge{arcEdge(point{5, 5}, 5, 0, 360)})
	if open != 0 || len(loops) != 1 {
		t.Fatalf("expected one closed loop, got %d loops and %d open", len(loops), open)
	}
	if w, h := loops[0].size(); !near(w, 10) || !near(h, 10) {
		t.Errorf("circle size %gx%g, want 10x10", w, h)
	}
}

func TestClosedLoops_ArcAndLines(t *testing.T) {
	// A slot: two lines capped by two half circles.
	edges := []edge{
		lineEdge(point{0, 0}, point{30, 0}),
		arcEdge(point{30, 5}, 5, 270, 90),
		lineEdge(point{30, 10}, point{0, 10}),
		arcEdge(point{0, 5}, 5, 90, 270),
	}
	loops, open := closedLoops(edges)
	if open != 0 || len(loops) != 1 {
		t.Fatalf("expected one closed loop, got %d loops and %d open", len(loops), open)
	}
	if w, h := loops[0].size(); !near(w, 40) || !near(h, 10) {
		t.Errorf("slot size %gx%g, want 40x10", w, h)
	}
}

func TestCircleExtent(t *testing.T) {
	e := circleExtent(point{3, 4}, 2)
	if e.min != (point{1, 2}) || e.max != (point{5, 6}) {
		t.Errorf("unexpected circle extent %+v", e)
	}
}

func TestImportDXF_Errors(t *testing.T) {
	if r := ImportDXF("parts.dxf", 0); r.OK() {
		t.Error("expected error for zero cell size")
	}
	if r := ImportDXF(filepath.Join(t.TempDir(), "missing.dxf"), DefaultCellSize); r.OK() {
		t.Error("expected error for missing file")
	}
}
