// Package importer provides CSV, Excel and DXF import for product and stock
// lists. CSV delimiters are detected automatically and headers are matched
// case-insensitively against a set of aliases.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piwi3910/GridCut/internal/model"
	"github.com/xuri/excelize/v2"
)

// Kind selects what a table describes.
type Kind int

const (
	Products Kind = iota // label, id, width, height, quantity
	Stocks               // label, width, height, count
)

func (k Kind) String() string {
	if k == Stocks {
		return "stocks"
	}
	return "products"
}

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Products []*model.Product
	Stocks   []*model.Stock
	Errors   []string
	Warnings []string
}

// OK reports whether the import produced no errors.
func (r ImportResult) OK() bool {
	return len(r.Errors) == 0
}

// ColumnMapping maps semantic column roles to their indices in the data.
// Quantity doubles as the sheet count for stock tables.
type ColumnMapping struct {
	Label    int
	ID       int
	Width    int
	Height   int
	Quantity int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"label":    {"label", "name", "part", "part name", "product", "description", "desc", "piece", "item", "sheet", "stock"},
	"id":       {"id", "product id", "mark", "code"},
	"width":    {"width", "w", "length", "len", "x"},
	"height":   {"height", "h", "depth", "d", "y"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces", "sheets"},
}

// aliasRole is headerAliases inverted: header text to canonical name.
var aliasRole = func() map[string]string {
	m := make(map[string]string)
	for role, aliases := range headerAliases {
		for _, a := range aliases {
			m[a] = role
		}
	}
	return m
}()

var delimiterNames = map[rune]string{',': "comma", ';': "semicolon", '\t': "tab", '|': "pipe"}

func newCSVReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader
}

// DetectCSVDelimiter determines the most likely CSV delimiter. It tries
// comma, semicolon, tab and pipe. Each candidate scores ten points per row
// as wide as the first row, plus that width; first rows narrower than two
// columns disqualify it. Comma wins when nothing qualifies.
func DetectCSVDelimiter(data []byte) rune {
	best, bestScore := ',', 0
	for _, delim := range []rune{',', ';', '\t', '|'} {
		records, err := newCSVReader(bytes.NewReader(data), delim).ReadAll()
		if err != nil || len(records) == 0 || len(records[0]) < 2 {
			continue
		}
		width := len(records[0])
		score := width
		for _, row := range records {
			if len(row) == width {
				score += 10
			}
		}
		if score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}

// DetectColumns examines a header row and returns a ColumnMapping. It returns
// false and a positional mapping for kind when no header is recognised. When
// a role appears twice the leftmost column wins.
func DetectColumns(row []string, kind Kind) (ColumnMapping, bool) {
	mapping := ColumnMapping{Label: -1, ID: -1, Width: -1, Height: -1, Quantity: -1}
	slots := map[string]*int{
		"label":    &mapping.Label,
		"id":       &mapping.ID,
		"width":    &mapping.Width,
		"height":   &mapping.Height,
		"quantity": &mapping.Quantity,
	}

	found := false
	for i, cell := range row {
		role, ok := aliasRole[strings.ToLower(strings.TrimSpace(cell))]
		if !ok {
			continue
		}
		found = true
		if slot := slots[role]; *slot == -1 {
			*slot = i
		}
	}
	if !found {
		return positionalMapping(kind), false
	}
	return mapping, true
}

// positionalMapping is used for headerless tables: Label, Width, Height,
// Quantity, then ID for products.
func positionalMapping(kind Kind) ColumnMapping {
	m := ColumnMapping{Label: 0, ID: -1, Width: 1, Height: 2, Quantity: 3}
	if kind == Products {
		m.ID = 4
	}
	return m
}

func (r *ImportResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ImportResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Limits on what a single stock row may expand to.
const (
	maxStockCount  = 1000
	maxImportCells = 4 * model.MaxStockCells
)

// record is one data row read through a column mapping. Its readers return
// errors already prefixed with the row's position.
type record struct {
	cells []string
	where string
}

func (r record) text(col int) string {
	if col < 0 || col >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[col])
}

func (r record) blank() bool {
	return strings.TrimSpace(strings.Join(r.cells, "")) == ""
}

func (r record) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: "+format, append([]any{r.where}, args...)...)
}

// whole reads a required whole number. Values such as "3.0" are accepted,
// fractional ones are not.
func (r record) whole(col int, field string) (int, error) {
	v := r.text(col)
	if v == "" {
		return 0, r.errorf("Missing %s value", field)
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, r.errorf("Invalid %s '%s'", field, v)
	}
	return int(f), nil
}

// positive reads a whole number that must be at least one. When optional
// is set an empty cell yields 1.
func (r record) positive(col int, field string, optional bool) (int, error) {
	v := r.text(col)
	if v == "" {
		if optional {
			return 1, nil
		}
		return 0, r.errorf("Missing %s value", field)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, r.errorf("Invalid %s '%s'", field, v)
	}
	if n <= 0 {
		return 0, r.errorf("%s must be positive", strings.ToUpper(field[:1])+field[1:])
	}
	return n, nil
}

func (r record) size(m ColumnMapping) (model.Size, error) {
	w, err := r.whole(m.Width, "width")
	if err != nil {
		return model.Size{}, err
	}
	h, err := r.whole(m.Height, "height")
	if err != nil {
		return model.Size{}, err
	}
	if w <= 0 || h <= 0 {
		return model.Size{}, r.errorf("Width and height must be positive")
	}
	return model.Size{Width: w, Height: h}, nil
}

func (r record) labelOr(col int, fallback string) string {
	if l := r.text(col); l != "" {
		return l
	}
	return fallback
}

// product reads one product row. n is the number of products read so far.
func (r record) product(m ColumnMapping, n int, res *ImportResult) (*model.Product, error) {
	size, err := r.size(m)
	if err != nil {
		return nil, err
	}
	qty, err := r.positive(m.Quantity, "quantity", false)
	if err != nil {
		return nil, err
	}
	id := model.AnonymousID
	if v := r.text(m.ID); v != "" {
		if id, err = strconv.Atoi(v); err != nil {
			return nil, r.errorf("Invalid id '%s'", v)
		}
		if id == model.EmptyCell {
			res.warn("%s: Id %d marks empty cells, pieces will be marked %d", r.where, id, model.AnonymousID)
		}
	}
	label := r.labelOr(m.Label, fmt.Sprintf("Product %d", n+1))
	return model.NewProduct(label, id, size.Width, size.Height, qty), nil
}

// stocks reads one stock row, expanding its count into numbered sheets.
func (r record) stocks(m ColumnMapping, n int) ([]*model.Stock, error) {
	size, err := r.size(m)
	if err != nil {
		return nil, err
	}
	count, err := r.positive(m.Quantity, "count", true)
	if err != nil {
		return nil, err
	}
	if err := model.CheckStockSize(size.Width, size.Height); err != nil {
		return nil, r.errorf("%v", err)
	}
	if count > maxStockCount || count*size.Area() > maxImportCells {
		return nil, r.errorf("Count %d of %s sheets is too large", count, size)
	}
	label := r.labelOr(m.Label, fmt.Sprintf("Stock %d", n+1))
	out := make([]*model.Stock, 0, count)
	for i := 1; i <= count; i++ {
		name := label
		if count > 1 {
			name = fmt.Sprintf("%s #%d", label, i)
		}
		out = append(out, model.NewStock(name, size.Width, size.Height))
	}
	return out, nil
}

// ImportFile imports a table, choosing CSV or Excel by file extension.
func ImportFile(path string, kind Kind) ImportResult {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path, kind)
	case ".csv", ".tsv", ".txt":
		return ImportCSV(path, kind)
	}
	var res ImportResult
	res.fail("Unsupported file type '%s'", ext)
	return res
}

// ImportCSV imports a CSV file, detecting its delimiter and header.
func ImportCSV(path string, kind Kind) ImportResult {
	var res ImportResult
	data, err := os.ReadFile(path)
	switch {
	case err != nil:
		res.fail("Cannot open file: %v", err)
		return res
	case len(bytes.TrimSpace(data)) == 0:
		res.fail("File is empty")
		return res
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		res.warn("Detected %s delimiter", delimiterNames[delimiter])
	}
	records, err := newCSVReader(bytes.NewReader(data), delimiter).ReadAll()
	if err != nil {
		res.fail("Cannot read CSV: %v", err)
		return res
	}
	res.readTable(records, kind, "Line")
	return res
}

// ImportCSVFromReader imports CSV data with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune, kind Kind) ImportResult {
	var res ImportResult
	records, err := newCSVReader(reader, delimiter).ReadAll()
	if err != nil {
		res.fail("Cannot read CSV: %v", err)
		return res
	}
	res.readTable(records, kind, "Line")
	return res
}

// ImportExcel imports the first sheet of an Excel workbook.
func ImportExcel(path string, kind Kind) ImportResult {
	var res ImportResult
	rows, err := firstSheetRows(path)
	if err != nil {
		res.fail("%v", err)
		return res
	}
	res.readTable(rows, kind, "Row")
	return res
}

func firstSheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("Cannot read Excel data: %v", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("Sheet is empty")
	}
	return rows, nil
}

// headerColumns checks a recognised header for the columns kind needs.
func headerColumns(m ColumnMapping, kind Kind) error {
	var missing []string
	for _, c := range []struct {
		name     string
		col      int
		required bool
	}{
		{"Width", m.Width, true},
		{"Height", m.Height, true},
		{"Quantity", m.Quantity, kind == Products},
	} {
		if c.required && c.col == -1 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("Required columns not found in header: %s", strings.Join(missing, ", "))
	}
	return nil
}

// looksLikeHeader reports whether an unrecognised first row is still a
// header: its width column does not hold a number.
func looksLikeHeader(row []string) bool {
	if len(row) < 3 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	return err != nil
}

// readTable parses rows into r, collecting one error per bad row and
// carrying on. Rows are numbered from 1 and named with prefix.
func (r *ImportResult) readTable(rows [][]string, kind Kind, prefix string) {
	if len(rows) == 0 {
		r.fail("File is empty")
		return
	}

	mapping, known := DetectColumns(rows[0], kind)
	if known {
		if err := headerColumns(mapping, kind); err != nil {
			r.fail("%v", err)
			return
		}
	}
	start := 0
	if known || looksLikeHeader(rows[0]) {
		r.warn("Detected header row, skipping")
		start = 1
	}

	for i := start; i < len(rows); i++ {
		rec := record{cells: rows[i], where: fmt.Sprintf("%s %d", prefix, i+1)}
		if rec.blank() {
			continue
		}
		var err error
		if kind == Stocks {
			var stocks []*model.Stock
			if stocks, err = rec.stocks(mapping, len(r.Stocks)); err == nil {
				r.Stocks = append(r.Stocks, stocks...)
			}
		} else {
			var p *model.Product
			if p, err = rec.product(mapping, len(r.Products), r); err == nil {
				r.Products = append(r.Products, p)
			}
		}
		if err != nil {
			r.fail("%v", err)
		}
	}
}
