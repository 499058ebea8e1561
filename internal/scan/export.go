package scan

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Placeholder is written for wells without a reading.
const Placeholder = "-"

// Records returns the matrix as text rows: a header of "Row" and the column
// numbers, then one row per plate row led by its letter.
func (m *Matrix) Records() [][]string {
	header := make([]string, 0, m.Layout.Cols+1)
	header = append(header, "Row")
	for c := 1; c <= m.Layout.Cols; c++ {
		header = append(header, strconv.Itoa(c))
	}

	records := [][]string{header}
	for r, row := range m.Cells {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, m.Layout.RowLabel(r))
		for _, cell := range row {
			rec = append(rec, formatCell(cell))
		}
		records = append(records, rec)
	}
	return records
}

// WriteCSV writes the matrix in row-major CSV form.
func (m *Matrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(m.Records()); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteTable writes the matrix as an aligned text table.
func (m *Matrix) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, rec := range m.Records() {
		if _, err := fmt.Fprintln(tw, strings.Join(rec, "\t")+"\t"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatCell(c Cell) string {
	if !c.Sampled {
		return Placeholder
	}
	return strconv.FormatFloat(c.Concentration, 'f', 2, 64)
}
