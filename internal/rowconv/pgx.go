package rowconv

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// FromPgx classifies a value returned by pgx Rows.Values. oid is the column's
// data type OID and separates dates from timestamps, which pgx both returns as
// time.Time.
func FromPgx(oid uint32, v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case pgtype.Numeric:
		if !x.Valid {
			return Null()
		}
		dv, err := x.Value()
		if s, ok := dv.(string); ok && err == nil {
			return Decimal(s)
		}
		return Other(fmt.Sprint(dv))
	case time.Time:
		switch oid {
		case pgtype.DateOID:
			return Date(x)
		case pgtype.TimestamptzOID:
			return TimestampTZ(x)
		default:
			return Timestamp(x)
		}
	case bool:
		return Bool(x)
	case int16:
		return Integer(int64(x))
	case int32:
		return Integer(int64(x))
	case int64:
		return Integer(x)
	case int:
		return Integer(int64(x))
	case uint32:
		return Integer(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return Text(x)
	case []byte:
		return Bytes(x)
	case [16]byte:
		return Other(uuid.UUID(x).String())
	case map[string]any:
		if len(x) == 0 {
			return Other("")
		}
		return jsonOther(x)
	case []any:
		if len(x) == 0 {
			return Other("")
		}
		return jsonOther(x)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil || dv == nil {
			return Other("")
		}
		return Other(fmt.Sprint(dv))
	default:
		return Other(fmt.Sprint(x))
	}
}

func jsonOther(v any) Value {
	b, err := json.Marshal(v)
	if err != nil {
		return Other(fmt.Sprint(v))
	}
	return Other(string(b))
}
