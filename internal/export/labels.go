package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/GridCut/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

// LabelInfo holds the data encoded into each piece label's QR code.
type LabelInfo struct {
	Label      string `json:"label"`
	ProductID  int    `json:"product_id"`
	ProductRef string `json:"ref,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	StockIndex int    `json:"stock"`
	StockLabel string `json:"stock_label"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

// Avery 5160 layout on US Letter: 3 columns by 10 rows, millimetres.
const (
	sheetTop      = 12.7
	sheetLeft     = 4.8
	labelW        = 66.7
	labelH        = 25.4
	labelCols     = 3
	labelsPerPage = labelCols * 10
	qrSide        = 20.0
	labelPad      = 2.0
)

// labelOrigin returns the top-left corner of the i-th label on its page.
func labelOrigin(i int) (x, y float64) {
	slot := i % labelsPerPage
	return sheetLeft + float64(slot%labelCols)*labelW, sheetTop + float64(slot/labelCols)*labelH
}

// ExportLabels generates a PDF of QR-coded labels, one per placed piece, on
// US Letter label sheets.
func ExportLabels(path string, result model.RunResult) error {
	infos := CollectLabelInfos(result)
	if len(infos) == 0 {
		return fmt.Errorf("%w: no pieces placed", ErrNothingToExport)
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	for i, info := range infos {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}
		x, y := labelOrigin(i)
		if err := renderLabel(pdf, x, y, i, info); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", info.Label, err)
		}
	}
	return pdf.OutputFileAndClose(path)
}

type labelLine struct {
	style string
	size  float64
	gray  int
	h     float64
	text  string
}

func renderLabel(pdf *fpdf.Fpdf, x, y float64, seq int, info LabelInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	pdf.SetDrawColor(205, 205, 205)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelW, labelH, "D")

	img := fmt.Sprintf("qr_%d", seq)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(img, opts, bytes.NewReader(png))
	pdf.ImageOptions(img, x+labelW-qrSide-labelPad, y+(labelH-qrSide)/2, qrSide, qrSide, false, opts, 0, "")

	textW := labelW - qrSide - 3*labelPad
	lines := []labelLine{
		{"B", 9, 0, 5, fitText(pdf, "B", 9, info.Label, textW)},
		{"", 7, 0, 4, fmt.Sprintf("%d x %d cells | id %d", info.Width, info.Height, info.ProductID)},
		{"", 6, 100, 3.5, fmt.Sprintf("Stock %d @ (%d, %d)", info.StockIndex, info.X, info.Y)},
	}
	if info.ProductRef != "" {
		lines = append(lines, labelLine{"", 6, 100, 3.5, "Ref " + info.ProductRef})
	}

	ty := y + labelPad
	for _, l := range lines {
		pdf.SetFont("Helvetica", l.style, l.size)
		pdf.SetTextColor(l.gray, l.gray, l.gray)
		pdf.SetXY(x+labelPad, ty)
		pdf.CellFormat(textW, l.h, l.text, "", 0, "L", false, 0, "")
		ty += l.h
	}
	pdf.SetTextColor(0, 0, 0)
	return nil
}

// fitText shortens s with an ellipsis until it fits w at the given font.
func fitText(pdf *fpdf.Fpdf, style string, size float64, s string, w float64) string {
	pdf.SetFont("Helvetica", style, size)
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > w {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// CollectLabelInfos extracts label information for every placed piece in
// placement order.
func CollectLabelInfos(result model.RunResult) []LabelInfo {
	infos := make([]LabelInfo, 0, len(result.Pieces))
	for _, p := range result.Pieces {
		info := LabelInfo{
			Label:      pieceLabel(p),
			ProductID:  p.ProductID,
			ProductRef: p.ProductRef,
			Width:      p.Size.Width,
			Height:     p.Size.Height,
			StockIndex: p.StockIndex,
			X:          p.Position.X,
			Y:          p.Position.Y,
		}
		if p.StockIndex >= 0 && p.StockIndex < len(result.Stocks) {
			info.StockLabel = result.Stocks[p.StockIndex].Label
		}
		infos = append(infos, info)
	}
	return infos
}
