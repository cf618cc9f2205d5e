// Package schema interprets raw key-value form payloads through a declared
// field schema, producing typed records and equipment items.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldKind is the semantic type of a declared field.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindEnum   FieldKind = "enum"
)

// Definition set names.
const (
	SetMain      = "main"
	SetEquipment = "equipment"
)

// Well-known field identifiers used by the typed decoders.
const (
	FieldProjectName = "project_name"
	FieldProjectNo   = "project_no"
	FieldDesignNo    = "design_no"
	FieldClientName  = "client_name"
	FieldStation     = "station"

	FieldEquipmentID    = "equipment_id"
	FieldEquipmentName  = "equipment_name"
	FieldSpecModel      = "spec_model"
	FieldQuantity       = "quantity"
	FieldUnit           = "unit"
	FieldSubsystem      = "subsystem"
	FieldRemark         = "remark"
	FieldContractStatus = "contract_status"
	FieldDICount        = "di_count"
	FieldDOCount        = "do_count"
	FieldAICount        = "ai_count"
	FieldAOCount        = "ao_count"
	FieldRangeLow       = "range_low"
	FieldRangeHigh      = "range_high"
)

// FieldDefinition is an immutable descriptor binding a raw payload key to a
// typed field. Constructed once at startup, never mutated.
type FieldDefinition struct {
	ID          string    `yaml:"id"`
	DisplayName string    `yaml:"name"`
	Kind        FieldKind `yaml:"kind"`
	RawKey      string    `yaml:"key"`
	Required    bool      `yaml:"required,omitempty"`
	// Values lists the accepted raw values for enum fields.
	Values []string `yaml:"values,omitempty"`
}

// definitionFile is the YAML layout of a schema definition file.
type definitionFile struct {
	Sets map[string][]FieldDefinition `yaml:"sets"`
}

// DefaultDefinitions returns the built-in main-form and equipment-subform
// field sets. A YAML schema file replaces these wholesale when configured.
func DefaultDefinitions() map[string][]FieldDefinition {
	return map[string][]FieldDefinition{
		SetMain: {
			{ID: FieldProjectName, DisplayName: "Project Name", Kind: KindText, RawKey: "project_name", Required: true},
			{ID: FieldProjectNo, DisplayName: "Project Number", Kind: KindText, RawKey: "project_no", Required: true},
			{ID: FieldDesignNo, DisplayName: "Design Number", Kind: KindText, RawKey: "design_no"},
			{ID: FieldClientName, DisplayName: "Client Name", Kind: KindText, RawKey: "client_name"},
			{ID: FieldStation, DisplayName: "Station", Kind: KindText, RawKey: "station"},
		},
		SetEquipment: {
			{ID: FieldEquipmentID, DisplayName: "Equipment ID", Kind: KindText, RawKey: "equipment_id"},
			{ID: FieldEquipmentName, DisplayName: "Equipment Name", Kind: KindText, RawKey: "equipment_name", Required: true},
			{ID: FieldSpecModel, DisplayName: "Spec Model", Kind: KindText, RawKey: "spec_model"},
			{ID: FieldQuantity, DisplayName: "Quantity", Kind: KindNumber, RawKey: "quantity"},
			{ID: FieldUnit, DisplayName: "Unit", Kind: KindText, RawKey: "unit"},
			{ID: FieldSubsystem, DisplayName: "Subsystem", Kind: KindText, RawKey: "subsystem"},
			{ID: FieldRemark, DisplayName: "Remark", Kind: KindText, RawKey: "remark"},
			{ID: FieldContractStatus, DisplayName: "Contract Status", Kind: KindEnum, RawKey: "contract_status",
				Values: []string{"in_contract", "out_of_contract"}},
			{ID: FieldStation, DisplayName: "Station", Kind: KindText, RawKey: "station"},
			{ID: FieldDICount, DisplayName: "DI Points", Kind: KindNumber, RawKey: "di_count"},
			{ID: FieldDOCount, DisplayName: "DO Points", Kind: KindNumber, RawKey: "do_count"},
			{ID: FieldAICount, DisplayName: "AI Points", Kind: KindNumber, RawKey: "ai_count"},
			{ID: FieldAOCount, DisplayName: "AO Points", Kind: KindNumber, RawKey: "ao_count"},
			{ID: FieldRangeLow, DisplayName: "Range Low", Kind: KindNumber, RawKey: "range_low"},
			{ID: FieldRangeHigh, DisplayName: "Range High", Kind: KindNumber, RawKey: "range_high"},
		},
	}
}

// LoadDefinitions reads field definitions from a YAML file.
func LoadDefinitions(path string) (map[string][]FieldDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	if len(file.Sets) == 0 {
		return nil, fmt.Errorf("schema file %s declares no field sets", path)
	}
	return file.Sets, nil
}
