// Package export writes placement results to PDF, label sheets and Excel
// workbooks.
package export

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/GridCut/internal/model"
)

// ErrNothingToExport is returned when a result has no stocks or pieces.
var ErrNothingToExport = errors.New("nothing to export")

// pieceColor represents an RGB color for a product mark.
type pieceColor struct {
	R, G, B int
}

// Tableau 10, which stays distinguishable in print.
var pieceColors = []pieceColor{
	{78, 121, 167},
	{242, 142, 43},
	{225, 87, 89},
	{118, 183, 178},
	{89, 161, 79},
	{237, 201, 72},
	{176, 122, 161},
	{255, 157, 167},
	{156, 117, 95},
	{186, 176, 172},
}

// anonymousColor fills cells without a product identifier.
var anonymousColor = pieceColor{R: 140, G: 140, B: 140}

// colorFor returns a stable color for a cell mark.
func colorFor(mark int) pieceColor {
	if mark == model.AnonymousID {
		return anonymousColor
	}
	if mark < 0 {
		mark = -mark
	}
	return pieceColors[mark%len(pieceColors)]
}

// A4 landscape, millimetres.
const (
	pageW         = 297.0
	pageH         = 210.0
	margin        = 15.0
	contentW      = pageW - 2*margin
	titleH        = 12.0
	legendReserve = 20.0
	gridTop       = margin + titleH + 5.0
)

// doc wraps fpdf with a vertical cursor for flowing text blocks.
type doc struct {
	*fpdf.Fpdf
	y float64
}

func newDoc() *doc {
	d := &doc{Fpdf: fpdf.New("L", "mm", "A4", "")}
	d.SetAutoPageBreak(false, margin)
	return d
}

func (d *doc) newPage() {
	d.AddPage()
	d.y = margin
}

// room starts a new page unless h millimetres fit above the bottom margin.
func (d *doc) room(h float64) {
	if d.y+h > pageH-margin {
		d.newPage()
	}
}

func (d *doc) font(style string, size float64) {
	d.SetFont("Helvetica", style, size)
}

// line writes one left-aligned line at indent and advances the cursor.
func (d *doc) line(indent, h float64, s string) {
	d.room(h)
	d.SetXY(margin+indent, d.y)
	d.CellFormat(contentW-indent, h, s, "", 0, "L", false, 0, "")
	d.y += h
}

func (d *doc) heading(s string) {
	d.y += 5
	d.font("B", 12)
	d.line(0, 8, s)
	d.y += 1
}

// table draws a bordered table with a shaded header and striped rows.
func (d *doc) table(widths []float64, header []string, rows [][]string) {
	const rowH = 6.0
	row := func(cells []string, fill bool) {
		d.room(rowH)
		x := margin
		for i, c := range cells {
			d.SetXY(x, d.y)
			d.CellFormat(widths[i], rowH, c, "1", 0, "C", fill, 0, "")
			x += widths[i]
		}
		d.y += rowH
	}

	d.font("B", 9)
	d.SetFillColor(225, 225, 225)
	row(header, true)

	d.font("", 9)
	for i, r := range rows {
		shade := 255
		if i%2 == 0 {
			shade = 246
		}
		d.SetFillColor(shade, shade, shade)
		row(r, true)
	}
}

// centered writes s centred on (cx, cy).
func (d *doc) centered(cx, cy, h float64, s string) {
	w := d.GetStringWidth(s)
	d.SetXY(cx-w/2, cy-h/2)
	d.CellFormat(w, h, s, "", 0, "C", false, 0, "")
}

// PDFOptions tunes ExportPDF.
type PDFOptions struct {
	MinOffcutArea int // Offcuts smaller than this are not listed; 0 disables the list
}

// ExportPDF renders each stock holding at least one occupied cell on its own
// page, with the grid drawn to scale and cells colored by product mark,
// followed by a summary page.
func ExportPDF(path string, result model.RunResult, opts PDFOptions) error {
	if len(result.Stocks) == 0 {
		return fmt.Errorf("%w: no stocks in result", ErrNothingToExport)
	}

	d := newDoc()
	for i, stock := range result.Stocks {
		if stock.UsedCells() > 0 {
			d.newPage()
			drawStock(d, stock, result.PiecesOn(i), i)
		}
	}
	d.newPage()
	drawSummary(d, result, opts)

	return d.OutputFileAndClose(path)
}

// drawStock renders one stock grid with its pieces on the current page.
func drawStock(d *doc, stock *model.Stock, pieces []model.PlacedPiece, index int) {
	d.font("B", 14)
	d.line(0, titleH, fmt.Sprintf("Stock %d: %s (%s cells)", index, stock.Label, stock.Size()))
	d.font("", 10)
	d.line(0, 5, fmt.Sprintf("Pieces: %d | Used cells: %d | Total cells: %d | Efficiency: %.1f%%",
		len(pieces), stock.UsedCells(), stock.TotalCells(), stock.Efficiency()))

	// x runs across the page, y down it.
	availH := pageH - gridTop - margin - legendReserve
	scale := math.Min(contentW/float64(stock.Width()), availH/float64(stock.Height()))
	gw, gh := float64(stock.Width())*scale, float64(stock.Height())*scale
	ox, oy := margin+(contentW-gw)/2, gridTop
	cell := func(x, y int) (float64, float64) {
		return ox + float64(x)*scale, oy + float64(y)*scale
	}

	d.SetFillColor(236, 228, 212)
	d.SetDrawColor(90, 90, 90)
	d.SetLineWidth(0.5)
	d.Rect(ox, oy, gw, gh, "FD")

	// Cells filled before the run are drawn too; they have no piece outline.
	d.SetLineWidth(0.05)
	for x := 0; x < stock.Width(); x++ {
		for y := 0; y < stock.Height(); y++ {
			v := stock.At(x, y)
			if v == model.EmptyCell {
				continue
			}
			c := colorFor(v)
			d.SetFillColor(c.R, c.G, c.B)
			d.SetDrawColor(c.R, c.G, c.B)
			px, py := cell(x, y)
			d.Rect(px, py, scale, scale, "FD")
		}
	}

	if scale >= 2 {
		d.SetDrawColor(200, 190, 170)
		for x := 1; x < stock.Width(); x++ {
			px, _ := cell(x, 0)
			d.Line(px, oy, px, oy+gh)
		}
		for y := 1; y < stock.Height(); y++ {
			_, py := cell(0, y)
			d.Line(ox, py, ox+gw, py)
		}
	}

	d.SetDrawColor(20, 20, 20)
	d.SetLineWidth(0.3)
	d.SetTextColor(0, 0, 0)
	for _, p := range pieces {
		px, py := cell(p.Position.X, p.Position.Y)
		pw, ph := float64(p.Size.Width)*scale, float64(p.Size.Height)*scale
		d.Rect(px, py, pw, ph, "D")

		if pw <= 15 || ph <= 8 {
			continue
		}
		d.font("", labelFontSize(pw, ph))
		lines := []string{pieceLabel(p)}
		if ph > 14 {
			lines = append(lines, p.Size.String())
		}
		top := py + ph/2 - float64(len(lines))*2
		for i, s := range lines {
			if d.GetStringWidth(s) < pw-2 {
				d.centered(px+pw/2, top+2+float64(i)*4, 4, s)
			}
		}
	}

	// Extent annotations: width under the grid, height rotated on the left.
	d.font("", 8)
	d.SetTextColor(90, 90, 90)
	d.centered(ox+gw/2, oy+gh+3, 4, fmt.Sprintf("%d cells", stock.Width()))
	d.TransformBegin()
	d.TransformRotate(90, ox-3, oy+gh/2)
	d.centered(ox-3, oy+gh/2, 4, fmt.Sprintf("%d cells", stock.Height()))
	d.TransformEnd()
	d.SetTextColor(0, 0, 0)

	d.y = oy + gh + 7
	drawLegend(d, pieces)
}

// drawLegend lists the pieces on a stock as colour swatches that wrap
// across the page.
func drawLegend(d *doc, pieces []model.PlacedPiece) {
	if len(pieces) == 0 {
		return
	}
	d.font("B", 8)
	d.SetXY(margin, d.y)
	d.CellFormat(30, 4, "Pieces placed:", "", 0, "L", false, 0, "")

	d.font("", 7)
	x := margin + 32
	for _, p := range pieces {
		text := fmt.Sprintf("%s (%s @ %d,%d)", pieceLabel(p), p.Size, p.Position.X, p.Position.Y)
		w := d.GetStringWidth(text) + 6
		if x+w > pageW-margin {
			x = margin
			d.y += 5
		}
		c := colorFor(p.ProductID)
		d.SetFillColor(c.R, c.G, c.B)
		d.Rect(x, d.y+0.5, 3, 3, "F")
		d.SetXY(x+4, d.y)
		d.CellFormat(w-4, 4, text, "", 0, "L", false, 0, "")
		x += w + 2
	}
}

// drawSummary writes run totals, a per-stock table, unplaced demand and
// reusable offcuts, continuing onto new pages as needed.
func drawSummary(d *doc, result model.RunResult, opts PDFOptions) {
	d.font("B", 16)
	d.line(0, 10, "Placement Summary")
	d.SetDrawColor(0, 0, 0)
	d.SetLineWidth(0.5)
	d.Line(margin, d.y+2, pageW-margin, d.y+2)
	d.y += 3

	d.heading("Overall Statistics")
	totals := [][2]string{
		{"Stocks", strconv.Itoa(len(result.Stocks))},
		{"Pieces Placed", strconv.Itoa(len(result.Pieces))},
		{"Overall Efficiency", fmt.Sprintf("%.1f%%", result.TotalEfficiency())},
		{"Unplaced Pieces", strconv.Itoa(result.UnplacedCount())},
	}
	for _, kv := range totals {
		d.SetXY(margin+5, d.y)
		d.font("", 10)
		d.CellFormat(60, 6, kv[0]+":", "", 0, "L", false, 0, "")
		d.font("B", 10)
		d.CellFormat(40, 6, kv[1], "", 0, "L", false, 0, "")
		d.y += 7
	}

	d.heading("Stock Breakdown")
	rows := make([][]string, len(result.Stocks))
	for i, s := range result.Stocks {
		rows[i] = []string{
			strconv.Itoa(i),
			s.Label,
			s.Size().String(),
			strconv.Itoa(len(result.PiecesOn(i))),
			fmt.Sprintf("%.1f%%", s.Efficiency()),
			fmt.Sprintf("%d / %d", s.UsedCells(), s.TotalCells()),
		}
	}
	d.table([]float64{20, 70, 40, 30, 35, 50},
		[]string{"Stock", "Label", "Cells", "Pieces", "Efficiency", "Used / Total"}, rows)

	if len(result.Unplaced) > 0 {
		d.SetTextColor(190, 0, 0)
		d.heading("Unplaced Products")
		d.SetTextColor(0, 0, 0)
		d.font("", 9)
		for _, p := range result.Unplaced {
			d.line(5, 5, fmt.Sprintf("- %s (id %d): %s cells, %d left", productLabel(p), p.ID, p.Size, p.Quantity))
		}
	}

	if opts.MinOffcutArea > 0 {
		if offcuts := model.DetectAllOffcuts(result.Stocks, opts.MinOffcutArea); len(offcuts) > 0 {
			d.heading(fmt.Sprintf("Reusable Offcuts (%d cells total)", model.TotalOffcutArea(offcuts)))
			d.font("", 9)
			for _, o := range offcuts {
				d.line(5, 5, fmt.Sprintf("- Stock %d (%s): %s @ (%d, %d)", o.StockIndex, o.StockLabel, o.Size, o.Position.X, o.Position.Y))
			}
		}
	}

	d.font("I", 8)
	d.SetTextColor(120, 120, 120)
	d.SetXY(margin, pageH-margin)
	d.CellFormat(contentW, 4, "Generated by GridCut", "", 0, "C", false, 0, "")
	d.SetTextColor(0, 0, 0)
}

// labelFontSize picks a font size by the piece's smaller side in millimetres.
func labelFontSize(w, h float64) float64 {
	switch side := math.Min(w, h); {
	case side > 40:
		return 8
	case side > 20:
		return 7
	default:
		return 6
	}
}

func pieceLabel(p model.PlacedPiece) string {
	if p.Label != "" {
		return p.Label
	}
	if p.ProductID == model.AnonymousID {
		return "Anonymous"
	}
	return fmt.Sprintf("#%d", p.ProductID)
}

func productLabel(p model.Product) string {
	if p.Label != "" {
		return p.Label
	}
	return "Unnamed"
}
