package rowconv_test

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/flowbit/nl2sql/internal/rowconv"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestNormalizeValue(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   rowconv.Value
		want any
	}{
		{"decimal", rowconv.Decimal("12.50"), 12.5},
		{"decimal integer", rowconv.Decimal("100"), 100.0},
		{"date", rowconv.Date(day), "2024-01-15"},
		{"timestamp", rowconv.Timestamp(ts), "2024-01-15T10:30:00"},
		{"timestamptz", rowconv.TimestampTZ(ts), "2024-01-15T10:30:00Z"},
		{"null", rowconv.Null(), nil},
		{"bool", rowconv.Bool(true), true},
		{"integer", rowconv.Integer(42), int64(42)},
		{"float", rowconv.Float(1.25), 1.25},
		{"text", rowconv.Text("EUR"), "EUR"},
		{"empty text stays", rowconv.Text(""), ""},
		{"bytes", rowconv.Bytes([]byte("héllo")), "héllo"},
		{"other", rowconv.Other("1 day"), "1 day"},
		{"empty other is null", rowconv.Other(""), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowconv.NormalizeValue(tt.in); got != tt.want {
				t.Errorf("NormalizeValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNormalizeInvalidUTF8(t *testing.T) {
	got := rowconv.NormalizeValue(rowconv.Bytes([]byte{'a', 0xff, 'b', 0xfe}))
	s, ok := got.(string)
	if !ok {
		t.Fatalf("expected string, got %T", got)
	}
	if s != "a�b�" {
		t.Errorf("got %q, want replacement characters", s)
	}
}

func TestNormalizeNonFiniteFloat(t *testing.T) {
	got := rowconv.NormalizeValue(rowconv.Float(math.NaN()))
	if _, ok := got.(string); !ok {
		t.Errorf("NaN should normalize to a string, got %T", got)
	}
	if _, err := json.Marshal(rowconv.NormalizeValue(rowconv.Decimal("Infinity"))); err != nil {
		t.Errorf("Infinity decimal should be JSON encodable: %v", err)
	}
}

func TestNormalizeRowKeepsColumnOrder(t *testing.T) {
	row := rowconv.Row{
		{Name: "name", Value: rowconv.Text("Acme")},
		{Name: "total", Value: rowconv.Decimal("12.50")},
		{Name: "invoiceDate", Value: rowconv.Date(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))},
		{Name: "currency", Value: rowconv.Null()},
	}
	rec := rowconv.Normalize(row)

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"Acme","total":12.5,"invoiceDate":"2024-01-15","currency":null}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestNormalizeDuplicateColumns(t *testing.T) {
	row := rowconv.Row{
		{Name: "id", Value: rowconv.Integer(1)},
		{Name: "name", Value: rowconv.Text("a")},
		{Name: "id", Value: rowconv.Integer(2)},
	}
	rec := rowconv.Normalize(row)
	if rec.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rec.Len())
	}
	if got, _ := rec.Get("id"); got != int64(2) {
		t.Errorf("id = %v, want last value 2", got)
	}
	if strings.Join(rec.Keys(), ",") != "id,name" {
		t.Errorf("keys = %v, want first position kept", rec.Keys())
	}
}

func TestFromPgx(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	id := [16]byte{0x55, 0x0e, 0x84, 0x00, 0xe2, 0x9b, 0x41, 0xd4, 0xa7, 0x16, 0x44, 0x66, 0x55, 0x44, 0x00, 0x00}

	tests := []struct {
		name string
		oid  uint32
		in   any
		kind rowconv.Kind
		want any
	}{
		{"numeric", pgtype.NumericOID, pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}, rowconv.KindDecimal, 12.5},
		{"null numeric", pgtype.NumericOID, pgtype.Numeric{}, rowconv.KindNull, nil},
		{"date", pgtype.DateOID, day, rowconv.KindDate, "2024-01-15"},
		{"timestamp", pgtype.TimestampOID, day, rowconv.KindTimestamp, "2024-01-15T00:00:00"},
		{"int4", pgtype.Int4OID, int32(7), rowconv.KindInteger, int64(7)},
		{"float4", pgtype.Float4OID, float32(0.5), rowconv.KindFloat, 0.5},
		{"text", pgtype.TextOID, "INV-1", rowconv.KindText, "INV-1"},
		{"bool", pgtype.BoolOID, false, rowconv.KindBool, false},
		{"nil", pgtype.TextOID, nil, rowconv.KindNull, nil},
		{"uuid", pgtype.UUIDOID, id, rowconv.KindOther, "550e8400-e29b-41d4-a716-446655440000"},
		{"jsonb", pgtype.JSONBOID, map[string]any{"a": float64(1)}, rowconv.KindOther, `{"a":1}`},
		{"empty array", pgtype.TextArrayOID, []any{}, rowconv.KindOther, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := rowconv.FromPgx(tt.oid, tt.in)
			if v.Kind() != tt.kind {
				t.Fatalf("kind = %s, want %s", v.Kind(), tt.kind)
			}
			if got := rowconv.NormalizeValue(v); got != tt.want {
				t.Errorf("normalized = %#v, want %#v", got, tt.want)
			}
		})
	}
}
