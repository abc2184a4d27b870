package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadOptions controls CSV decoding. Workbooks ignore it.
type ReadOptions struct {
	// Encoding is an HTML encoding label (e.g. "windows-1252"). Empty or any
	// UTF-8 spelling means no transcoding.
	Encoding string
	// Delimiter forces the CSV separator. Zero sniffs ';' or ',' from the
	// header line.
	Delimiter rune
}

// Read decodes a spreadsheet upload, picking the parser from the file name.
func Read(filename string, r io.Reader, opts ReadOptions) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ReadCSV(r, opts)
	case ".xlsx", ".xlsm", ".xltx", ".xltm", "":
		return ReadWorkbook(r)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadWorkbook reads the first worksheet of an xlsx workbook. Cells stored as
// numbers come back as number cells, everything else as text.
func ReadWorkbook(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	grid := make([][]Cell, len(rows))
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			if v == "" {
				continue
			}
			cells[j] = workbookCell(f, name, i, j, v)
		}
		grid[i] = cells
	}
	return NewTable(grid)
}

func workbookCell(f *excelize.File, sheet string, row, col int, raw string) Cell {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return Text(raw)
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return Text(raw)
	}
	if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return Number(n)
		}
	}
	return Text(raw)
}

// ReadCSV reads a delimited text export. Every non-empty field is a text cell.
// A leading byte order mark is dropped and, for UTF-16, overrides the
// declared encoding.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	var dec transform.Transformer = transform.Nop
	if enc := opts.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		dec = e.NewDecoder()
	}
	r = transform.NewReader(r, unicode.BOMOverride(dec))

	br := bufio.NewReader(r)
	delim := opts.Delimiter
	if delim == 0 {
		head, _ := br.Peek(4096)
		delim = sniffDelimiter(head)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var grid [][]Cell
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(grid)+1, err)
		}
		cells := make([]Cell, len(record))
		for i, v := range record {
			if v != "" {
				cells[i] = Text(v)
			}
		}
		grid = append(grid, cells)
	}
	return NewTable(grid)
}

// sniffDelimiter prefers ';' when the first line has more of them than commas,
// which is what French spreadsheet exports produce.
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}) {
		return ';'
	}
	return ','
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
