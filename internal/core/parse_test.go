package core

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantColumns []string
		wantRows    []map[string]string
	}{
		{
			name:        "header and one row",
			input:       "a,b,c\n1,2,3",
			wantColumns: []string{"a", "b", "c"},
			wantRows:    []map[string]string{{"a": "1", "b": "2", "c": "3"}},
		},
		{
			name:        "empty input",
			input:       "",
			wantColumns: []string{},
			wantRows:    []map[string]string{},
		},
		{
			name:        "whitespace only",
			input:       "  \n\n ",
			wantColumns: []string{},
			wantRows:    []map[string]string{},
		},
		{
			name:        "header only",
			input:       "x,y\n",
			wantColumns: []string{"x", "y"},
			wantRows:    []map[string]string{},
		},
		{
			name:        "short row fills trailing columns",
			input:       "a,b,c\n1",
			wantColumns: []string{"a", "b", "c"},
			wantRows:    []map[string]string{{"a": "1", "b": "", "c": ""}},
		},
		{
			name:        "long row drops extra values",
			input:       "a,b\n1,2,3,4",
			wantColumns: []string{"a", "b"},
			wantRows:    []map[string]string{{"a": "1", "b": "2"}},
		},
		{
			name:        "quotes stripped and cells trimmed",
			input:       "\"name\" , \"score\"\n \"alice\" , 10 ",
			wantColumns: []string{"name", "score"},
			wantRows:    []map[string]string{{"name": "alice", "score": "10"}},
		},
		{
			name:        "CRLF line endings",
			input:       "a,b\r\n1,2\r\n3,4\r\n",
			wantColumns: []string{"a", "b"},
			wantRows: []map[string]string{
				{"a": "1", "b": "2"},
				{"a": "3", "b": "4"},
			},
		},
		{
			name:        "quoted comma splits the field",
			input:       "a,b\n\"x,y\",z",
			wantColumns: []string{"a", "b"},
			wantRows:    []map[string]string{{"a": "x", "b": "y"}},
		},
		{
			name:        "blank interior line becomes empty row",
			input:       "a\n1\n\n2",
			wantColumns: []string{"a"},
			wantRows: []map[string]string{
				{"a": "1"},
				{"a": ""},
				{"a": "2"},
			},
		},
		{
			name:        "BOM removed from header",
			input:       "\xEF\xBB\xBFid,value\n7,8",
			wantColumns: []string{"id", "value"},
			wantRows:    []map[string]string{{"id": "7", "value": "8"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCSV([]byte(tt.input))

			if !reflect.DeepEqual(got.Columns, tt.wantColumns) {
				t.Errorf("Columns = %q, want %q", got.Columns, tt.wantColumns)
			}
			if len(got.Rows) != len(tt.wantRows) {
				t.Fatalf("len(Rows) = %d, want %d", len(got.Rows), len(tt.wantRows))
			}
			for i, row := range got.Rows {
				if row.Index != i {
					t.Errorf("Rows[%d].Index = %d, want %d", i, row.Index, i)
				}
				if !reflect.DeepEqual(row.Values, tt.wantRows[i]) {
					t.Errorf("Rows[%d].Values = %v, want %v", i, row.Values, tt.wantRows[i])
				}
			}
		})
	}
}

func TestParseCSV_InvalidUTF8(t *testing.T) {
	got := ParseCSV([]byte("name\ncaf\xe9"))
	if v := got.Rows[0].Get("name"); v != "caf\uFFFD" {
		t.Errorf("Get(name) = %q, want replacement char", v)
	}
}

func TestRow_MarshalJSON(t *testing.T) {
	row := Row{Index: 3, Values: map[string]string{"a": "1"}}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["a"] != "1" {
		t.Errorf("a = %v, want 1", got["a"])
	}
	if got[RowIndexKey] != float64(3) {
		t.Errorf("%s = %v, want 3", RowIndexKey, got[RowIndexKey])
	}
}

func TestFilterRows(t *testing.T) {
	table := ParseCSV([]byte("name,city\nAlice,Paris\nBob,Berlin\nCarol,paris"))

	tests := []struct {
		query string
		want  []int
	}{
		{"", []int{0, 1, 2}},
		{"   ", []int{0, 1, 2}},
		{"paris", []int{0, 2}},
		{"BOB", []int{1}},
		{"zzz", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := FilterRows(table.Columns, table.Rows, tt.query)
			idx := make([]int, 0, len(got))
			for _, r := range got {
				idx = append(idx, r.Index)
			}
			if !reflect.DeepEqual(idx, tt.want) {
				t.Errorf("FilterRows(%q) indexes = %v, want %v", tt.query, idx, tt.want)
			}
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"valid unchanged", []byte("hello"), []byte("hello")},
		{"empty", []byte{}, []byte{}},
		{"invalid byte", []byte{0x80}, []byte("\uFFFD")},
		{"mixed", []byte("a\x80b"), []byte("a\uFFFDb")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeUTF8(tt.input); !bytes.Equal(got, tt.want) {
				t.Errorf("sanitizeUTF8(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
