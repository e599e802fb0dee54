package jsonldb

import (
	"encoding/json"
	"math"
	"strconv"
)

// Affinity is the SQLite type affinity a column is declared with when a table
// is copied into SQLite. See https://www.sqlite.org/datatype3.html.
type Affinity int

// Affinities used by [ColumnTypeAffinity].
const (
	AffinityBLOB Affinity = iota
	AffinityTEXT
	AffinityINTEGER
	AffinityNUMERIC
)

var sqlTypes = [...]string{
	AffinityBLOB:    "BLOB",
	AffinityTEXT:    "TEXT",
	AffinityINTEGER: "INTEGER",
	AffinityNUMERIC: "NUMERIC",
}

// SQLType returns the declared column type that yields a.
func (a Affinity) SQLType() string {
	if a < 0 || int(a) >= len(sqlTypes) {
		return sqlTypes[AffinityBLOB]
	}
	return sqlTypes[a]
}

// ColumnTypeAffinity returns the affinity of a column type. Dates are stored
// as their RFC 3339 text and JSON values as their encoding.
func ColumnTypeAffinity(t ColumnType) Affinity {
	switch t {
	case ColumnTypeText, ColumnTypeDate, ColumnTypeJSONB:
		return AffinityTEXT
	case ColumnTypeNumber:
		return AffinityNUMERIC
	case ColumnTypeBool:
		return AffinityINTEGER
	default:
		return AffinityBLOB
	}
}

// CoerceValue converts a value decoded by encoding/json into one a SQLite
// driver binds under affinity a:
//   - arrays and objects become their JSON text
//   - booleans become 0 or 1
//   - whole numbers become int64 in INTEGER and NUMERIC columns
//   - numbers become their shortest decimal text in TEXT columns
//
// Anything else is returned unchanged.
func CoerceValue(value any, a Affinity) any {
	switch v := value.(type) {
	case []any, map[string]any:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case float64:
		switch a {
		case AffinityINTEGER, AffinityNUMERIC:
			if v == math.Trunc(v) && math.Abs(v) < 1<<63 {
				return int64(v)
			}
		case AffinityTEXT:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return value
}

// CoerceData returns a copy of data with every value of a known column passed
// through [CoerceValue]. Keys that are not columns are copied unchanged.
func CoerceData(data map[string]any, columns []Column) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, col := range columns {
		if v, ok := data[col.Name]; ok {
			out[col.Name] = CoerceValue(v, ColumnTypeAffinity(col.Type))
		}
	}
	return out
}
