package rowconv

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"unicode/utf8"
)

const (
	dateLayout        = "2006-01-02"
	timestampLayout   = "2006-01-02T15:04:05.999999"
	timestampTZLayout = "2006-01-02T15:04:05.999999Z07:00"
)

// Record is a normalized row. It keeps column order for JSON output; a column
// name that appears twice keeps its first position and its last value.
type Record struct {
	keys   []string
	values map[string]any
}

func newRecord(n int) Record {
	return Record{keys: make([]string, 0, n), values: make(map[string]any, n)}
}

func (r *Record) set(key string, v any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Keys returns the column names in result order
func (r Record) Keys() []string { return r.keys }

// Get returns the normalized value of a column
func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len returns the number of distinct columns
func (r Record) Len() int { return len(r.keys) }

// Map returns the record as a plain map
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Normalize converts every field of row into a JSON-safe value
func Normalize(row Row) Record {
	rec := newRecord(len(row))
	for _, f := range row {
		rec.set(f.Name, NormalizeValue(f.Value))
	}
	return rec
}

// NormalizeValue applies the conversion rules in order: decimal to float,
// date/timestamp to ISO-8601 text, primitives unchanged, bytes decoded as
// UTF-8 with replacement, anything else stringified (empty becomes null).
func NormalizeValue(v Value) any {
	switch v.kind {
	case KindDecimal:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			// not a number literal
			return nonEmpty(v.s)
		}
		return jsonFloat(f)
	case KindDate:
		return v.t.Format(dateLayout)
	case KindTimestamp:
		if v.zoned {
			return v.t.Format(timestampTZLayout)
		}
		return v.t.Format(timestampLayout)
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInteger:
		return v.i
	case KindFloat:
		return jsonFloat(v.f)
	case KindText:
		return v.s
	case KindBytes:
		return decodeUTF8(v.bytes)
	default:
		return nonEmpty(v.s)
	}
}

// jsonFloat keeps finite floats as numbers; JSON has no NaN or Infinity
func jsonFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// decodeUTF8 replaces each invalid byte with U+FFFD
func decodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out := make([]rune, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		out = append(out, r) // r is utf8.RuneError for an invalid byte
		b = b[size:]
	}
	return string(out)
}
