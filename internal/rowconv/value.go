// Package rowconv converts database result values into JSON-safe data.
//
// Driver values are first classified into a closed set of variants (Value) and
// then normalized by a fixed set of rules, so the conversion never depends on
// the JSON encoder's handling of driver-specific types.
package rowconv

import (
	"time"
)

// Kind identifies the variant held by a Value
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindText
	KindBytes
	KindDate
	KindTimestamp
	KindDecimal
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindDecimal:
		return "decimal"
	default:
		return "other"
	}
}

// Value is a single database value. Only the field matching kind is set.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string // Text, Decimal digits, Other's string form
	bytes []byte
	t     time.Time
	// zoned distinguishes timestamptz from timestamp for KindTimestamp
	zoned bool
}

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Integer(i int64) Value       { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, f: f} }
func Text(s string) Value         { return Value{kind: KindText, s: s} }
func Bytes(b []byte) Value        { return Value{kind: KindBytes, bytes: b} }
func Date(t time.Time) Value      { return Value{kind: KindDate, t: t} }
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

// TimestampTZ is a timestamp whose offset is part of its rendering
func TimestampTZ(t time.Time) Value { return Value{kind: KindTimestamp, t: t, zoned: true} }

// Decimal holds an exact numeric in its textual form, e.g. "12.50"
func Decimal(text string) Value { return Value{kind: KindDecimal, s: text} }

// Other holds the string form of a value with no dedicated variant
func Other(text string) Value { return Value{kind: KindOther, s: text} }

func (v Value) Kind() Kind { return v.kind }

// Field is one named column value of a row
type Field struct {
	Name  string
	Value Value
}

// Row is a database row in column order
type Row []Field
