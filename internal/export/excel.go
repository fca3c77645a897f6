package export

import (
	"fmt"

	"github.com/piwi3910/GridCut/internal/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names written by ExportExcel.
const (
	PlacementsSheet  = "Placements"
	UtilisationSheet = "Utilisation"
	UnplacedSheet    = "Unplaced"
)

var (
	placementHeader   = []interface{}{"Step", "Stock", "Stock Label", "Product ID", "Label", "Ref", "X", "Y", "Width", "Height"}
	utilisationHeader = []interface{}{"Stock", "Label", "Width", "Height", "Pieces", "Used Cells", "Total Cells", "Efficiency %"}
	unplacedHeader    = []interface{}{"Product ID", "Label", "Width", "Height", "Quantity"}
)

// ExportExcel writes a workbook with the placement log, per-stock
// utilisation and any unplaced demand.
func ExportExcel(path string, result model.RunResult) error {
	if len(result.Stocks) == 0 {
		return fmt.Errorf("%w: no stocks in result", ErrNothingToExport)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), PlacementsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(UtilisationSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	placements := make([][]interface{}, 0, len(result.Pieces))
	for i, p := range result.Pieces {
		stockLabel := ""
		if p.StockIndex >= 0 && p.StockIndex < len(result.Stocks) {
			stockLabel = result.Stocks[p.StockIndex].Label
		}
		placements = append(placements, []interface{}{
			i + 1, p.StockIndex, stockLabel, p.ProductID, p.Label, p.ProductRef,
			p.Position.X, p.Position.Y, p.Size.Width, p.Size.Height,
		})
	}
	if err := writeTable(f, PlacementsSheet, placementHeader, placements, bold); err != nil {
		return err
	}

	utilisation := make([][]interface{}, 0, len(result.Stocks))
	for i, s := range result.Stocks {
		utilisation = append(utilisation, []interface{}{
			i, s.Label, s.Width(), s.Height(), len(result.PiecesOn(i)),
			s.UsedCells(), s.TotalCells(), roundPercent(s.Efficiency()),
		})
	}
	utilisation = append(utilisation, []interface{}{
		"Total", "", "", "", len(result.Pieces),
		result.UsedCells(), result.TotalCells(), roundPercent(result.TotalEfficiency()),
	})
	if err := writeTable(f, UtilisationSheet, utilisationHeader, utilisation, bold); err != nil {
		return err
	}

	if len(result.Unplaced) > 0 {
		if _, err := f.NewSheet(UnplacedSheet); err != nil {
			return fmt.Errorf("failed to add sheet: %w", err)
		}
		unplaced := make([][]interface{}, 0, len(result.Unplaced))
		for _, p := range result.Unplaced {
			unplaced = append(unplaced, []interface{}{p.ID, p.Label, p.Size.Width, p.Size.Height, p.Quantity})
		}
		if err := writeTable(f, UnplacedSheet, unplacedHeader, unplaced, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// writeTable writes a bold header row followed by data rows.
func writeTable(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func roundPercent(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
