package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Table is a parsed ledger.
type Table struct {
	Header []string
	Rows   []Row
}

// Categories returns the category columns of the header.
func (t *Table) Categories() []string {
	if len(t.Header) == 0 {
		return nil
	}
	return t.Header[1:]
}

// ReadAll parses the ledger at path. Every row must have as many fields as
// the header.
func ReadAll(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ledgerError(err, path, "open")
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, ledgerError(fmt.Errorf("empty ledger"), path, "read_header")
	}
	if err != nil {
		return nil, ledgerError(err, path, "read_header")
	}

	table := &Table{Header: header}
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ledgerError(err, path, "read_row")
		}

		row := Row{ImagePath: record[0], Probabilities: make([]float64, len(record)-1)}
		for i, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, ledgerError(fmt.Errorf("line %d column %s: %w", line, header[i+1], err), path, "read_row")
			}
			row.Probabilities[i] = v
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// readHeader returns the first record of an existing ledger, nil for an
// empty file, or an os.IsNotExist error when there is no file.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return nil, nil
	}
	return header, err
}
