package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by list and detail views that know how to
// lay themselves out as columns.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable renders r as a borderless, left-aligned table with
// uppercased headers.
func PrintTable(w io.Writer, r TableRenderer) error {
	tw := newTable(w)
	tw.SetHeader(r.Headers())
	tw.SetAutoFormatHeaders(true)

	for _, row := range r.Rows() {
		tw.Append(row)
	}

	tw.Render()
	return nil
}

// KeyValueTable prints a two-column table of label/value pairs, used by the
// detail views.
func KeyValueTable(w io.Writer, pairs [][2]string) error {
	tw := newTable(w)
	tw.SetColumnSeparator(":")

	for _, kv := range pairs {
		tw.Append([]string{kv[0], kv[1]})
	}

	tw.Render()
	return nil
}

// newTable strips tablewriter's borders and separators down to plain
// column output.
func newTable(w io.Writer) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetCenterSeparator("")
	tw.SetColumnSeparator("")
	tw.SetRowSeparator("")
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)
	return tw
}

// TableData is an ad-hoc TableRenderer for callers that assemble a
// table row by row instead of defining a view type.
type TableData struct {
	cols []string
	rows [][]string
}

// NewTableData creates a TableData with the given column headers.
func NewTableData(cols ...string) *TableData {
	return &TableData{cols: cols}
}

// AddRow appends one row.
func (d *TableData) AddRow(cells ...string) {
	d.rows = append(d.rows, cells)
}

func (d *TableData) Headers() []string { return d.cols }
func (d *TableData) Rows() [][]string  { return d.rows }
