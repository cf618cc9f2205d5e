// registry_test.go - Tests for field schema decoding
package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pointtable/backend/internal/models"
)

func TestRegistry_Decode(t *testing.T) {
	reg := NewDefaultRegistry()

	t.Run("main form happy path", func(t *testing.T) {
		rec, err := reg.Decode(SetMain, map[string]any{
			"project_name": "Pump Station 3",
			"project_no":   "P-2031",
			"client_name":  "Acme Water",
			"station":      "North",
		})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got := rec.Text(FieldProjectName); got != "Pump Station 3" {
			t.Errorf("project_name = %q, want %q", got, "Pump Station 3")
		}
		if rec.Has(FieldDesignNo) {
			t.Error("design_no should be absent")
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := reg.Decode(SetMain, map[string]any{
			"project_name": "Pump Station 3",
		})
		var mismatch *models.SchemaMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected SchemaMismatchError, got %v", err)
		}
		if mismatch.FieldID != FieldProjectNo {
			t.Errorf("FieldID = %s, want %s", mismatch.FieldID, FieldProjectNo)
		}
	})

	t.Run("non-numeric value on number field", func(t *testing.T) {
		_, err := reg.Decode(SetEquipment, map[string]any{
			"equipment_name": "Flow meter",
			"di_count":       "lots",
		})
		var mismatch *models.SchemaMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected SchemaMismatchError, got %v", err)
		}
		if mismatch.FieldID != FieldDICount {
			t.Errorf("FieldID = %s, want %s", mismatch.FieldID, FieldDICount)
		}
	})

	t.Run("numeric string coerces", func(t *testing.T) {
		rec, err := reg.Decode(SetEquipment, map[string]any{
			"equipment_name": "Flow meter",
			"ai_count":       "2",
		})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		f, ok := rec.Number(FieldAICount)
		if !ok || f != 2 {
			t.Errorf("ai_count = %v (%v), want 2", f, ok)
		}
	})

	t.Run("enum accepts declared value", func(t *testing.T) {
		rec, err := reg.Decode(SetEquipment, map[string]any{
			"equipment_name":  "Valve",
			"contract_status": "in_contract",
		})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if rec.Text(FieldContractStatus) != "in_contract" {
			t.Errorf("contract_status = %q", rec.Text(FieldContractStatus))
		}
	})

	t.Run("enum rejects unknown value", func(t *testing.T) {
		_, err := reg.Decode(SetEquipment, map[string]any{
			"equipment_name":  "Valve",
			"contract_status": "maybe",
		})
		var mismatch *models.SchemaMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected SchemaMismatchError, got %v", err)
		}
	})

	t.Run("unknown set", func(t *testing.T) {
		if _, err := reg.Decode("bogus", map[string]any{}); err == nil {
			t.Error("expected error for unknown set")
		}
	})
}

func TestRegistry_DecodeEquipment(t *testing.T) {
	reg := NewDefaultRegistry()

	t.Run("full item", func(t *testing.T) {
		item, err := reg.DecodeEquipment(map[string]any{
			"equipment_id":   "PT-101",
			"equipment_name": "Pressure transmitter",
			"station":        "North",
			"ai_count":       1.0,
			"di_count":       2.0,
			"range_low":      0.0,
			"range_high":     16.0,
		}, 0)
		if err != nil {
			t.Fatalf("DecodeEquipment failed: %v", err)
		}
		if item.ID != "PT-101" {
			t.Errorf("ID = %q", item.ID)
		}
		if item.Count(models.SignalClassAI) != 1 || item.Count(models.SignalClassDI) != 2 {
			t.Errorf("counts = %v", item.Counts)
		}
		if item.Range == nil || item.Range.High != 16 {
			t.Errorf("range = %v", item.Range)
		}
	})

	t.Run("derived identifier", func(t *testing.T) {
		item, err := reg.DecodeEquipment(map[string]any{
			"equipment_name": "Level Switch A",
		}, 4)
		if err != nil {
			t.Fatalf("DecodeEquipment failed: %v", err)
		}
		if item.ID != "level_switch_a_005" {
			t.Errorf("derived ID = %q", item.ID)
		}
	})

	t.Run("fractional count rejected", func(t *testing.T) {
		_, err := reg.DecodeEquipment(map[string]any{
			"equipment_name": "Flow meter",
			"ai_count":       1.5,
		}, 0)
		var invalid *models.InvalidRequirementError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidRequirementError, got %v", err)
		}
		if invalid.Class != models.SignalClassAI {
			t.Errorf("Class = %s", invalid.Class)
		}
	})

	t.Run("range needs both limits", func(t *testing.T) {
		item, err := reg.DecodeEquipment(map[string]any{
			"equipment_name": "Thermocouple",
			"ai_count":       1.0,
			"range_low":      0.0,
		}, 0)
		if err != nil {
			t.Fatalf("DecodeEquipment failed: %v", err)
		}
		if item.Range != nil {
			t.Errorf("range should be nil with only one limit, got %v", item.Range)
		}
	})
}

func TestLoadDefinitions(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		content := `sets:
  main:
    - id: project_name
      name: Project Name
      kind: text
      key: projName
      required: true
`
		path := filepath.Join(t.TempDir(), "schema.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}

		sets, err := LoadDefinitions(path)
		if err != nil {
			t.Fatalf("LoadDefinitions failed: %v", err)
		}
		reg, err := NewRegistry(sets)
		if err != nil {
			t.Fatalf("NewRegistry failed: %v", err)
		}
		rec, err := reg.Decode(SetMain, map[string]any{"projName": "X"})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if rec.Text("project_name") != "X" {
			t.Errorf("project_name = %q", rec.Text("project_name"))
		}
	})

	t.Run("empty file rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.yaml")
		if err := os.WriteFile(path, []byte("sets: {}\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadDefinitions(path); err == nil {
			t.Error("expected error for empty set file")
		}
	})
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name string
		defs []FieldDefinition
	}{
		{
			name: "duplicate id",
			defs: []FieldDefinition{
				{ID: "a", RawKey: "a", Kind: KindText},
				{ID: "a", RawKey: "b", Kind: KindText},
			},
		},
		{
			name: "unknown kind",
			defs: []FieldDefinition{{ID: "a", RawKey: "a", Kind: "blob"}},
		},
		{
			name: "enum without values",
			defs: []FieldDefinition{{ID: "a", RawKey: "a", Kind: KindEnum}},
		},
		{
			name: "missing raw key",
			defs: []FieldDefinition{{ID: "a", Kind: KindText}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(map[string][]FieldDefinition{"main": tt.defs})
			if err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
