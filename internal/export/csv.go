package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// Table is a header row plus records of the same width.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t *Table) Append(row ...string) {
	t.Rows = append(t.Rows, row)
}

// WriteCSV writes the header followed by every row. Fields holding a comma,
// quote or line break are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, table Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Header) {
			return fmt.Errorf("row %d has %d fields, header has %d", i, len(row), len(table.Header))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func CSV(table Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
