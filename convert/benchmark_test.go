package convert

import (
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func benchRecord(rows int) arrow.RecordBatch {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "label", Type: arrow.BinaryTypes.String},
		{Name: "ndvi", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	for i := 0; i < rows; i++ {
		b.Field(0).(*array.Int64Builder).Append(int64(i))
		b.Field(1).(*array.StringBuilder).Append("class_" + strconv.Itoa(i%8))
		b.Field(2).(*array.Float64Builder).Append(float64(i%100) / 100)
	}
	return b.NewRecordBatch()
}

// BenchmarkEncodeTable benchmarks record to data frame conversion.
func BenchmarkEncodeTable(b *testing.B) {
	rec := benchRecord(10000)
	defer rec.Release()
	enc := NewEncoder()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := enc.EncodeTable(rec); err != nil {
			b.Fatalf("EncodeTable failed: %v", err)
		}
	}
}

// BenchmarkDecodeTable benchmarks data frame to record materialization.
func BenchmarkDecodeTable(b *testing.B) {
	rec := benchRecord(10000)
	df, err := NewEncoder().EncodeTable(rec)
	rec.Release()
	if err != nil {
		b.Fatalf("EncodeTable failed: %v", err)
	}
	mem := memory.NewGoAllocator()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		out, err := DecodeTable(df, mem)
		if err != nil {
			b.Fatalf("DecodeTable failed: %v", err)
		}
		out.Release()
	}
}
