package models

import "fmt"

// Error codes for the typed core failures. The API layer maps these onto
// structured responses; nothing in the core retries them.
const (
	CodeSchemaMismatch          = "SCHEMA_MISMATCH"
	CodeUnknownModuleType       = "UNKNOWN_MODULE_TYPE"
	CodeInvalidModuleModel      = "INVALID_MODULE_MODEL"
	CodeInvalidRequirement      = "INVALID_REQUIREMENT"
	CodeEmptyAssignmentSet      = "EMPTY_ASSIGNMENT_SET"
	CodeMissingEngineeringRange = "MISSING_ENGINEERING_RANGE"
)

// CoreError is implemented by all typed core failures.
type CoreError interface {
	error
	Code() string
}

// SchemaMismatchError reports a raw payload missing or malforming a declared
// field.
type SchemaMismatchError struct {
	Set     string
	FieldID string
	RawKey  string
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s form: field %q (key %q): %s", e.Set, e.FieldID, e.RawKey, e.Reason)
}

func (e *SchemaMismatchError) Code() string { return CodeSchemaMismatch }

// UnknownModuleTypeError reports a catalog lookup for an unregistered module
// type.
type UnknownModuleTypeError struct {
	ModuleType string
}

func (e *UnknownModuleTypeError) Error() string {
	return fmt.Sprintf("unknown module type: %s", e.ModuleType)
}

func (e *UnknownModuleTypeError) Code() string { return CodeUnknownModuleType }

// InvalidModuleModelError reports a catalog entry that failed load-time
// validation.
type InvalidModuleModelError struct {
	ModuleType string
	Reason     string
}

func (e *InvalidModuleModelError) Error() string {
	return fmt.Sprintf("invalid module model %s: %s", e.ModuleType, e.Reason)
}

func (e *InvalidModuleModelError) Code() string { return CodeInvalidModuleModel }

// InvalidRequirementError reports a negative or non-integer point count on an
// equipment item. The whole run aborts before any assignment is emitted.
type InvalidRequirementError struct {
	EquipmentID string
	Class       SignalClass
	Value       float64
}

func (e *InvalidRequirementError) Error() string {
	return fmt.Sprintf("invalid %s point count %v on equipment %s", e.Class, e.Value, e.EquipmentID)
}

func (e *InvalidRequirementError) Code() string { return CodeInvalidRequirement }

// EmptyAssignmentSetError reports a generator invoked with no assignments for
// its signal classes. Surfaced instead of writing a misleading empty export.
type EmptyAssignmentSetError struct {
	Kind TableKind
}

func (e *EmptyAssignmentSetError) Error() string {
	return fmt.Sprintf("no assignments match table kind %s", e.Kind)
}

func (e *EmptyAssignmentSetError) Code() string { return CodeEmptyAssignmentSet }

// MissingEngineeringRangeError reports an analog point without scaling limits
// when the target template declares them mandatory.
type MissingEngineeringRangeError struct {
	Tag         string
	EquipmentID string
}

func (e *MissingEngineeringRangeError) Error() string {
	return fmt.Sprintf("engineering range required but absent for %s (equipment %s)", e.Tag, e.EquipmentID)
}

func (e *MissingEngineeringRangeError) Code() string { return CodeMissingEngineeringRange }
