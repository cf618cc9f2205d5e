package models

// TableKind names one of the downstream point table formats.
type TableKind string

const (
	TableKindPLC     TableKind = "plc"
	TableKindHMIBool TableKind = "hmi_bool"
	TableKindHMIReal TableKind = "hmi_real"
	TableKindFAT     TableKind = "fat"
)

// ValidTableKind reports whether k names a known generator.
func ValidTableKind(k TableKind) bool {
	switch k {
	case TableKindPLC, TableKindHMIBool, TableKindHMIReal, TableKindFAT:
		return true
	}
	return false
}

// GeneratedTable is an ordered set of export-ready rows plus the declared
// column schema. One instance per requested table kind.
type GeneratedTable struct {
	Kind    TableKind  `json:"kind" msgpack:"kind"`
	Columns []string   `json:"columns" msgpack:"columns"`
	Rows    [][]string `json:"rows" msgpack:"rows"`
}

// RowCount returns the number of data rows.
func (t *GeneratedTable) RowCount() int {
	return len(t.Rows)
}
