// Schema header and column types reflected from the row type.

package jsonldb

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

// currentVersion is the table format written in every header.
const currentVersion = "1.0"

// ColumnType is the JSON shape of a column.
type ColumnType string

// Column types.
const (
	ColumnTypeText   ColumnType = "text"
	ColumnTypeNumber ColumnType = "number"
	ColumnTypeBool   ColumnType = "bool"
	ColumnTypeDate   ColumnType = "date"
	ColumnTypeJSONB  ColumnType = "jsonb"
)

// Column describes one JSON field of a row.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

// schemaHeader is the first line of a table file.
type schemaHeader struct {
	Version string   `json:"version"`
	Columns []Column `json:"columns"`
}

// Validate rejects headers written by another format version and columns
// missing a name or type.
func (h *schemaHeader) Validate() error {
	if h.Version != currentVersion {
		return fmt.Errorf("unsupported table version %q, want %q", h.Version, currentVersion)
	}
	for i := range h.Columns {
		if c := &h.Columns[i]; c.Name == "" || c.Type == "" {
			return fmt.Errorf("column %d: name and type are required", i)
		}
	}
	return nil
}

// schemaFromType lists the columns of T in declaration order.
//
// The JSON schema reflected by invopop/jsonschema supplies the names, the
// required set (fields without omitempty) and descriptions from
// `jsonschema:"description=..."` tags. The column type comes from the Go
// field type.
func schemaFromType[T any]() ([]Column, error) {
	st := reflect.TypeFor[T]()
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("row type %s is not a struct", st)
	}
	fieldTypes := make(map[string]reflect.Type, st.NumField())
	for i := range st.NumField() {
		f := st.Field(i)
		fieldTypes[jsonFieldName(&f)] = f.Type
	}

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(st)
	columns := make([]Column, 0, schema.Properties.Len())
	for p := schema.Properties.Oldest(); p != nil; p = p.Next() {
		typ := ColumnTypeText
		if ft, ok := fieldTypes[p.Key]; ok {
			typ = columnType(ft)
		}
		columns = append(columns, Column{
			Name:        p.Key,
			Type:        typ,
			Required:    contains(schema.Required, p.Key),
			Description: p.Value.Description,
		})
	}
	return columns, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// jsonFieldName is the key encoding/json uses for f.
func jsonFieldName(f *reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

var timeType = reflect.TypeFor[time.Time]()

// columnType maps a Go field type to its column type. Structs convertible to
// time.Time, such as a named timestamp type, are dates; []byte marshals as a
// base64 string and is text.
func columnType(t reflect.Type) ColumnType {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch k := t.Kind(); {
	case k == reflect.Struct && t.ConvertibleTo(timeType):
		return ColumnTypeDate
	case k == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		return ColumnTypeText
	case k == reflect.Bool:
		return ColumnTypeBool
	case k >= reflect.Int && k <= reflect.Float64:
		return ColumnTypeNumber
	case k == reflect.Struct || k == reflect.Slice || k == reflect.Array || k == reflect.Map:
		return ColumnTypeJSONB
	default:
		return ColumnTypeText
	}
}
