package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// RowIndexKey is the JSON field carrying a row's synthetic index.
const RowIndexKey = "_rowIndex"

// Table is the parsed content of one CSV file.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row is one data line matched against the header columns.
type Row struct {
	Index  int
	Values map[string]string
}

// Get returns the value for column, or "" when the row has none.
func (r Row) Get(column string) string {
	return r.Values[column]
}

// MarshalJSON flattens the row into a column->value object with the
// synthetic index stored under RowIndexKey.
func (r Row) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		m[k] = v
	}
	m[RowIndexKey] = r.Index
	return json.Marshal(m)
}

// ParseCSV splits raw text into header columns and rows.
//
// The format is deliberately naive: lines split on '\n', fields split on
// ',', every cell trimmed with '"' characters removed. Quoted commas,
// embedded newlines and escaped quotes are not understood. Rows shorter
// than the header get "" for the missing trailing columns; extra values
// are dropped.
func ParseCSV(data []byte) Table {
	data = sanitizeUTF8(stripBOM(data))

	text := strings.TrimSpace(string(data))
	if text == "" {
		return Table{Columns: []string{}, Rows: []Row{}}
	}

	lines := strings.Split(text, "\n")
	columns := splitCells(lines[0])

	rows := make([]Row, 0, len(lines)-1)
	for i, line := range lines[1:] {
		values := splitCells(line)
		row := Row{Index: i, Values: make(map[string]string, len(columns))}
		for c, col := range columns {
			if c < len(values) {
				row.Values[col] = values[c]
			} else {
				row.Values[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return Table{Columns: columns, Rows: rows}
}

func splitCells(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = CleanCell(p)
	}
	return parts
}

// CleanCell trims whitespace (including a trailing '\r') and removes every
// double quote from a cell.
func CleanCell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, "")
}

// FilterRows returns the rows where any column value contains query,
// ignoring case. An empty query returns rows unchanged.
func FilterRows(columns []string, rows []Row, query string) []Row {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		for _, col := range columns {
			if strings.Contains(strings.ToLower(row.Values[col]), query) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM drops a leading UTF-8 byte order mark, which spreadsheet
// exports commonly prepend to the header line.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
