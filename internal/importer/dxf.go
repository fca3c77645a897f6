package importer

import (
	"fmt"
	"math"

	"github.com/piwi3910/GridCut/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

// DefaultCellSize is the drawing length of one grid cell, in drawing units.
const DefaultCellSize = 10.0

// joinTolerance is how far apart two endpoints may be and still connect.
const joinTolerance = 0.01

type point struct {
	X, Y float64
}

func polar(c point, r, angle float64) point {
	return point{X: c.X + r*math.Cos(angle), Y: c.Y + r*math.Sin(angle)}
}

func pointsClose(a, b point) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) <= joinTolerance
}

// extent is an axis-aligned bounding box grown one point at a time.
type extent struct {
	min, max point
	set      bool
}

func (e *extent) add(p point) {
	if !e.set {
		e.min, e.max, e.set = p, p, true
		return
	}
	e.min.X = math.Min(e.min.X, p.X)
	e.min.Y = math.Min(e.min.Y, p.Y)
	e.max.X = math.Max(e.max.X, p.X)
	e.max.Y = math.Max(e.max.Y, p.Y)
}

func (e *extent) merge(o extent) {
	if o.set {
		e.add(o.min)
		e.add(o.max)
	}
}

func (e extent) size() (w, h float64) {
	return e.max.X - e.min.X, e.max.Y - e.min.Y
}

// addArc grows e by the counter-clockwise arc of radius r around c from
// start to end, in radians. Between the endpoints only the quadrant points
// the sweep crosses can widen the box.
func (e *extent) addArc(c point, r, start, end float64) {
	for end < start {
		end += 2 * math.Pi
	}
	e.add(polar(c, r, start))
	e.add(polar(c, r, end))
	for k := math.Ceil(start / (math.Pi / 2)); k*math.Pi/2 <= end; k++ {
		e.add(polar(c, r, k*math.Pi/2))
	}
}

// addBulge grows e by the polyline segment p1→p2 with the given DXF bulge
// (tangent of a quarter of the included angle, positive = counter-clockwise).
func (e *extent) addBulge(p1, p2 point, bulge float64) {
	e.add(p1)
	e.add(p2)
	chord := math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
	if math.Abs(bulge) < 1e-9 || chord < 1e-9 {
		return
	}
	if bulge < 0 {
		p1, p2, bulge = p2, p1, -bulge
	}
	half := 2 * math.Atan(bulge)
	r := chord / (2 * math.Sin(half))
	d := chord / (2 * math.Tan(half))
	c := point{
		X: (p1.X+p2.X)/2 - (p2.Y-p1.Y)/chord*d,
		Y: (p1.Y+p2.Y)/2 + (p2.X-p1.X)/chord*d,
	}
	e.addArc(c, r, math.Atan2(p1.Y-c.Y, p1.X-c.X), math.Atan2(p2.Y-c.Y, p2.X-c.X))
}

// polylineExtent bounds a closed polyline, including the wrap-around
// segment from the last vertex back to the first.
func polylineExtent(vertices [][]float64, bulges []float64) extent {
	var e extent
	for i, v := range vertices {
		next := vertices[(i+1)%len(vertices)]
		bulge := 0.0
		if i < len(bulges) {
			bulge = bulges[i]
		}
		e.addBulge(point{X: v[0], Y: v[1]}, point{X: next[0], Y: next[1]}, bulge)
	}
	return e
}

func circleExtent(c point, r float64) extent {
	var e extent
	e.add(point{X: c.X - r, Y: c.Y - r})
	e.add(point{X: c.X + r, Y: c.Y + r})
	return e
}

// edge is a loose LINE or ARC: its endpoints and the box it covers.
type edge struct {
	a, b point
	ext  extent
}

func lineEdge(from, to point) edge {
	var e extent
	e.add(from)
	e.add(to)
	return edge{a: from, b: to, ext: e}
}

// arcEdge builds an edge from an arc given in degrees, the way DXF stores it.
func arcEdge(c point, r, startDeg, endDeg float64) edge {
	start, end := startDeg*math.Pi/180, endDeg*math.Pi/180
	if end <= start {
		end += 2 * math.Pi
	}
	var e extent
	e.addArc(c, r, start, end)
	return edge{a: polar(c, r, start), b: polar(c, r, end), ext: e}
}

// closedLoops groups edges that touch end to end and returns one extent per
// group whose every endpoint is met by an even number of edge ends. Groups
// come back in order of their first edge; open counts the rejected ones.
func closedLoops(edges []edge) (loops []extent, open int) {
	parent := make([]int, len(edges))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	touches := func(x, y edge) bool {
		return pointsClose(x.a, y.a) || pointsClose(x.a, y.b) || pointsClose(x.b, y.a) || pointsClose(x.b, y.b)
	}
	for i := range edges {
		for j := i + 1; j < len(edges); j++ {
			if touches(edges[i], edges[j]) {
				parent[find(j)] = find(i)
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := range edges {
		r := find(i)
		if _, seen := groups[r]; !seen {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	for _, r := range roots {
		members := groups[r]
		var ends []point
		for _, i := range members {
			ends = append(ends, edges[i].a, edges[i].b)
		}
		if !allEven(ends) {
			open++
			continue
		}
		var e extent
		for _, i := range members {
			e.merge(edges[i].ext)
		}
		loops = append(loops, e)
	}
	return loops, open
}

func allEven(ends []point) bool {
	for _, p := range ends {
		n := 0
		for _, q := range ends {
			if pointsClose(p, q) {
				n++
			}
		}
		if n%2 != 0 {
			return false
		}
	}
	return true
}

// ImportDXF imports products from a DXF file. Each closed shape (LWPOLYLINE,
// CIRCLE, or loop of connected LINEs and ARCs) contributes its bounding box,
// rounded up to whole cells of cellSize drawing units. Shapes with the same
// cell footprint are merged into one product with a higher quantity.
func ImportDXF(path string, cellSize float64) ImportResult {
	result := ImportResult{}

	if cellSize <= 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Cell size must be positive, got %g", cellSize))
		return result
	}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var shapes []extent
	var edges []edge
	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			if len(e.Vertices) < 3 {
				result.Warnings = append(result.Warnings, "Skipped LWPOLYLINE with fewer than 3 vertices")
				continue
			}
			shapes = append(shapes, polylineExtent(e.Vertices, e.Bulges))
		case *entity.Circle:
			shapes = append(shapes, circleExtent(point{X: e.Center[0], Y: e.Center[1]}, e.Radius))
		case *entity.Arc:
			c := point{X: e.Circle.Center[0], Y: e.Circle.Center[1]}
			edges = append(edges, arcEdge(c, e.Circle.Radius, e.Angle[0], e.Angle[1]))
		case *entity.Line:
			edges = append(edges, lineEdge(point{X: e.Start[0], Y: e.Start[1]}, point{X: e.End[0], Y: e.End[1]}))
		}
	}

	loops, open := closedLoops(edges)
	if open > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped %d open group(s) of LINE/ARC entities", open))
	}
	shapes = append(shapes, loops...)

	if len(shapes) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	result.Products, result.Warnings = footprintsToProducts(shapes, cellSize, result.Warnings)
	if len(result.Products) == 0 {
		result.Errors = append(result.Errors, "No usable shapes found in DXF file")
	}
	return result
}

// footprintsToProducts turns shape extents into cell footprints, merging
// repeats. Products get ids 1, 2, ... in order of first appearance.
func footprintsToProducts(shapes []extent, cellSize float64, warnings []string) ([]*model.Product, []string) {
	var products []*model.Product
	bySize := make(map[model.Size]*model.Product)

	for _, s := range shapes {
		w, h := s.size()
		if w < joinTolerance || h < joinTolerance {
			warnings = append(warnings, fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f)", w, h))
			continue
		}

		size := model.Size{Width: toCells(w, cellSize), Height: toCells(h, cellSize)}
		if p, ok := bySize[size]; ok {
			p.Quantity++
			continue
		}
		id := len(products) + 1
		p := model.NewProduct(fmt.Sprintf("DXF Product %d", id), id, size.Width, size.Height, 1)
		bySize[size] = p
		products = append(products, p)
	}
	return products, warnings
}

// toCells rounds a drawing length up to whole cells. A small tolerance keeps
// exact multiples from spilling into an extra cell.
func toCells(length, cellSize float64) int {
	return int(math.Ceil(length/cellSize - 1e-9))
}
