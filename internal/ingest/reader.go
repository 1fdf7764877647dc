package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
)

// Row is one uploaded record, normalized across file formats.
type Row struct {
	Name  string
	Email string
}

// RowReader yields rows until io.EOF.
type RowReader interface {
	Next() (Row, error)
	Close() error
}

// CheckFormat rejects file names whose extension has no reader. Legacy
// .xls is not supported.
func CheckFormat(filename string) error {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv", ".xlsx", ".xlsm":
		return nil
	default:
		return appErrors.UnsupportedFormat("unsupported file type %q: upload a .csv or .xlsx file", ext)
	}
}

// NewReader picks a RowReader from the file extension. Unknown extensions
// are rejected before anything is read.
func NewReader(filename string, r io.Reader) (RowReader, error) {
	if err := CheckFormat(filename); err != nil {
		return nil, err
	}
	if strings.ToLower(filepath.Ext(filename)) == ".csv" {
		return newCSVReader(r), nil
	}
	return newXLSXReader(r)
}

func rowFromCells(cells []string) Row {
	var row Row
	if len(cells) > 0 {
		row.Name = cells[0]
	}
	if len(cells) > 1 {
		row.Email = cells[1]
	}
	return row
}

// csvReader surfaces blank lines between records as empty rows, the way a
// blank spreadsheet row would appear. Trailing blank lines are not rows.
type csvReader struct {
	r     *csv.Reader
	first bool
	line  int  // last line consumed by a record
	blank int  // empty rows still owed before held
	held  *Row // record read past a run of blank lines
}

func newCSVReader(r io.Reader) *csvReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &csvReader{r: cr, first: true}
}

func (c *csvReader) Next() (Row, error) {
	if c.blank > 0 {
		c.blank--
		return Row{}, nil
	}
	if c.held != nil {
		row := *c.held
		c.held = nil
		return row, nil
	}

	record, err := c.r.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	if err != nil {
		return Row{}, appErrors.Wrap(appErrors.KindValidation, err, "could not parse CSV file")
	}
	if c.first && len(record) > 0 {
		record[0] = strings.TrimPrefix(record[0], "\ufeff")
		c.first = false
	}
	row := rowFromCells(record)

	start, _ := c.r.FieldPos(0)
	gap := start - c.line - 1
	last := len(record) - 1
	end, _ := c.r.FieldPos(last)
	c.line = end + strings.Count(record[last], "\n")

	if gap > 0 {
		c.blank = gap - 1
		c.held = &row
		return Row{}, nil
	}
	return row, nil
}

func (c *csvReader) Close() error { return nil }

// xlsxReader reads the first two columns of the first sheet.
type xlsxReader struct {
	f    *excelize.File
	rows *excelize.Rows
}

func newXLSXReader(r io.Reader) (*xlsxReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.KindValidation, err, "could not open spreadsheet")
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, appErrors.Validation("spreadsheet has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, appErrors.Wrap(appErrors.KindValidation, err, "could not read sheet %q", sheets[0])
	}
	return &xlsxReader{f: f, rows: rows}, nil
}

func (x *xlsxReader) Next() (Row, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return Row{}, appErrors.Wrap(appErrors.KindValidation, err, "could not read spreadsheet")
		}
		return Row{}, io.EOF
	}
	cells, err := x.rows.Columns()
	if err != nil {
		return Row{}, appErrors.Wrap(appErrors.KindValidation, err, "could not read spreadsheet row")
	}
	return rowFromCells(cells), nil
}

func (x *xlsxReader) Close() error {
	return errors.Join(x.rows.Close(), x.f.Close())
}

var _ RowReader = (*csvReader)(nil)
var _ RowReader = (*xlsxReader)(nil)
