package core

import (
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Fixtures
// ============================================================================

// metricsCSV builds a CSV with n rows of training metrics.
func metricsCSV(n int) []byte {
	var sb strings.Builder
	sb.WriteString("step,epoch,loss,accuracy,lr,split\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d,%d,%.4f,%.4f,0.001,\"train\"\n", i, i/100, 1/float64(i+1), float64(i%100)/100)
	}
	return []byte(sb.String())
}

// ============================================================================
// Parser Benchmarks
// ============================================================================

// BenchmarkParseCSV measures a typical metrics artifact.
// This runs once per artifact on every card mount.
func BenchmarkParseCSV(b *testing.B) {
	data := metricsCSV(1000)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseCSV(data)
	}
}

// BenchmarkParseCSV_Large measures the upper end of artifact sizes.
func BenchmarkParseCSV_Large(b *testing.B) {
	data := metricsCSV(50000)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseCSV(data)
	}
}

// BenchmarkParseCSV_BOMAndCRLF covers files exported from spreadsheets.
func BenchmarkParseCSV_BOMAndCRLF(b *testing.B) {
	data := append([]byte("\xEF\xBB\xBF"), []byte(strings.ReplaceAll(string(metricsCSV(1000)), "\n", "\r\n"))...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseCSV(data)
	}
}

// BenchmarkCleanCell benchmarks cell trimming and quote removal.
func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"simple value",
		`"quoted"`,
		"  padded  ",
		"trailing\r",
		`"mixed "quotes" inside"`,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

// ============================================================================
// Search Benchmarks
// ============================================================================

// BenchmarkFilterRows measures one keystroke of table search.
func BenchmarkFilterRows(b *testing.B) {
	table := ParseCSV(metricsCSV(10000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FilterRows(table.Columns, table.Rows, "0.99")
	}
}

// BenchmarkFilterRows_Empty is the no-query fast path.
func BenchmarkFilterRows_Empty(b *testing.B) {
	table := ParseCSV(metricsCSV(10000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FilterRows(table.Columns, table.Rows, "")
	}
}

// ============================================================================
// Parallel Benchmarks
// ============================================================================

// BenchmarkParseCSVParallel mimics several cards mounting at once.
func BenchmarkParseCSVParallel(b *testing.B) {
	data := metricsCSV(1000)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ParseCSV(data)
		}
	})
}

// BenchmarkBoardPutParallel measures contention on a single board.
func BenchmarkBoardPutParallel(b *testing.B) {
	board := NewBoard("card-1", "run-1", nil)
	rec := successRecord(Artifact{Name: "a.csv"}, ParseCSV(metricsCSV(10)))

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			board.Put(rec)
			board.Snapshot()
		}
	})
}

// ============================================================================
// Memory Allocation Benchmarks
// ============================================================================

// BenchmarkParseCSVAllocs reports allocations per parse.
func BenchmarkParseCSVAllocs(b *testing.B) {
	data := metricsCSV(100)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseCSV(data)
	}
}
