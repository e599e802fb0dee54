package jsonldb

import (
	"testing"
)

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		affinity Affinity
		want     any
	}{
		{"nil", nil, AffinityTEXT, nil},
		{"text from whole float", float64(42), AffinityTEXT, "42"},
		{"text from fraction", 3.5, AffinityTEXT, "3.5"},
		{"text keeps string", "abc", AffinityTEXT, "abc"},
		{"bool", true, AffinityTEXT, int64(1)},
		{"integer from bool", false, AffinityINTEGER, int64(0)},
		{"array", []any{"a", "b"}, AffinityTEXT, `["a","b"]`},
		{"object in blob", map[string]any{"k": 1.0}, AffinityBLOB, `{"k":1}`},
		{"numeric whole", 7.0, AffinityNUMERIC, int64(7)},
		{"numeric negative whole", -250.0, AffinityNUMERIC, int64(-250)},
		{"numeric fraction", 7.25, AffinityNUMERIC, 7.25},
		{"numeric too large", 1e20, AffinityNUMERIC, 1e20},
		{"numeric keeps text", "n/a", AffinityNUMERIC, "n/a"},
		{"integer from whole float", 3.0, AffinityINTEGER, int64(3)},
		{"blob number", 1.5, AffinityBLOB, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceValue(tt.value, tt.affinity); got != tt.want {
				t.Errorf("CoerceValue(%v, %v) = %#v, want %#v", tt.value, tt.affinity, got, tt.want)
			}
		})
	}
}

func TestColumnTypeAffinity(t *testing.T) {
	tests := []struct {
		typ  ColumnType
		want Affinity
		sql  string
	}{
		{ColumnTypeText, AffinityTEXT, "TEXT"},
		{ColumnTypeDate, AffinityTEXT, "TEXT"},
		{ColumnTypeJSONB, AffinityTEXT, "TEXT"},
		{ColumnTypeNumber, AffinityNUMERIC, "NUMERIC"},
		{ColumnTypeBool, AffinityINTEGER, "INTEGER"},
		{ColumnType("other"), AffinityBLOB, "BLOB"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got := ColumnTypeAffinity(tt.typ)
			if got != tt.want {
				t.Errorf("ColumnTypeAffinity(%q) = %v, want %v", tt.typ, got, tt.want)
			}
			if s := got.SQLType(); s != tt.sql {
				t.Errorf("SQLType() = %q, want %q", s, tt.sql)
			}
		})
	}
}

func TestCoerceData(t *testing.T) {
	cols := []Column{{Name: "n", Type: ColumnTypeNumber}, {Name: "b", Type: ColumnTypeBool}}
	got := CoerceData(map[string]any{"n": 4.0, "b": true, "other": 1.5}, cols)
	if got["n"] != int64(4) || got["b"] != int64(1) || got["other"] != 1.5 {
		t.Errorf("CoerceData() = %#v", got)
	}
	if CoerceData(nil, cols) != nil {
		t.Error("CoerceData(nil) != nil")
	}
}
