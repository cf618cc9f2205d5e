package schema

import (
	"fmt"
	"math"
	"strings"

	"github.com/pointtable/backend/internal/models"
)

// DecodeProject interprets a main-form payload into project metadata.
func (r *Registry) DecodeProject(payload map[string]any) (models.ProjectInfo, error) {
	rec, err := r.Decode(SetMain, payload)
	if err != nil {
		return models.ProjectInfo{}, err
	}
	return models.ProjectInfo{
		ProjectName: rec.Text(FieldProjectName),
		ProjectNo:   rec.Text(FieldProjectNo),
		DesignNo:    rec.Text(FieldDesignNo),
		ClientName:  rec.Text(FieldClientName),
		Station:     rec.Text(FieldStation),
	}, nil
}

// DecodeEquipment interprets an equipment-subform payload into an
// EquipmentItem. ordinal positions the item within its checklist and is used
// to derive an identifier when the payload carries none.
func (r *Registry) DecodeEquipment(payload map[string]any, ordinal int) (*models.EquipmentItem, error) {
	rec, err := r.Decode(SetEquipment, payload)
	if err != nil {
		return nil, err
	}

	item := &models.EquipmentItem{
		ID:        rec.Text(FieldEquipmentID),
		Name:      rec.Text(FieldEquipmentName),
		SpecModel: rec.Text(FieldSpecModel),
		Station:   rec.Text(FieldStation),
		Subsystem: rec.Text(FieldSubsystem),
		Remark:    rec.Text(FieldRemark),
		Counts:    make(map[models.SignalClass]int, 4),
	}
	if item.ID == "" {
		item.ID = deriveID(item.Name, ordinal)
	}

	countFields := map[models.SignalClass]string{
		models.SignalClassDI: FieldDICount,
		models.SignalClassDO: FieldDOCount,
		models.SignalClassAI: FieldAICount,
		models.SignalClassAO: FieldAOCount,
	}
	for class, fieldID := range countFields {
		f, ok := rec.Number(fieldID)
		if !ok {
			continue
		}
		if f != math.Trunc(f) {
			return nil, &models.InvalidRequirementError{EquipmentID: item.ID, Class: class, Value: f}
		}
		item.Counts[class] = int(f)
	}

	low, hasLow := rec.Number(FieldRangeLow)
	high, hasHigh := rec.Number(FieldRangeHigh)
	if hasLow && hasHigh {
		item.Range = &models.EngineeringRange{Low: low, High: high}
	}

	return item, nil
}

// deriveID builds a stable identifier for items whose payload carries none.
func deriveID(name string, ordinal int) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '.':
			return '_'
		default:
			return -1
		}
	}, name)
	if slug == "" {
		slug = "equipment"
	}
	return fmt.Sprintf("%s_%03d", slug, ordinal+1)
}
