package table

import (
	"strconv"

	"github.com/pointtable/backend/internal/models"
)

// HMI channel defaults for points collected over supervisory Modbus.
const (
	hmiTagType         = "user"
	hmiChannelName     = "Network1"
	hmiChannelDriver   = "ModbusMaster"
	hmiDeviceSeries    = "ModbusTCP"
	hmiCollectInterval = 1000 // ms
)

var hmiBoolColumns = []string{
	"Tag Name", "Tag Type", "Tag Data Type", "Comm Address",
	"Channel Name", "Channel Driver", "Device Series", "Collect Interval",
	"Description",
}

var hmiRealColumns = []string{
	"Tag Name", "Tag Type", "Tag Data Type", "Comm Address",
	"Channel Name", "Channel Driver", "Device Series", "Collect Interval",
	"Range Low", "Range High", "Description",
}

// GenerateHMIBool emits rows for discrete-class assignments only.
func GenerateHMIBool(assignments []models.ChannelAssignment, tpl Template, progress ProgressFunc) (*models.GeneratedTable, error) {
	filtered := make([]*models.ChannelAssignment, 0, len(assignments))
	for i := range assignments {
		if assignments[i].Class.IsDiscrete() {
			filtered = append(filtered, &assignments[i])
		}
	}
	if len(filtered) == 0 {
		return nil, &models.EmptyAssignmentSetError{Kind: models.TableKindHMIBool}
	}

	t := &models.GeneratedTable{
		Kind:    models.TableKindHMIBool,
		Columns: hmiBoolColumns,
		Rows:    make([][]string, 0, len(filtered)),
	}
	total := len(filtered)
	for i, a := range filtered {
		t.Rows = append(t.Rows, []string{
			a.Tag,
			hmiTagType,
			"IODisc",
			strconv.Itoa(a.CommAddress),
			hmiChannelName,
			hmiChannelDriver,
			hmiDeviceSeries,
			strconv.Itoa(hmiCollectInterval),
			a.EquipmentName,
		})
		report(progress, i+1, total)
	}
	return t, nil
}

// GenerateHMIReal emits rows for analog-class assignments only. Engineering
// range columns come from the source item; when the template declares them
// mandatory, an absent range fails the generation.
func GenerateHMIReal(assignments []models.ChannelAssignment, tpl Template, progress ProgressFunc) (*models.GeneratedTable, error) {
	filtered := make([]*models.ChannelAssignment, 0, len(assignments))
	for i := range assignments {
		if assignments[i].Class.IsAnalog() {
			filtered = append(filtered, &assignments[i])
		}
	}
	if len(filtered) == 0 {
		return nil, &models.EmptyAssignmentSetError{Kind: models.TableKindHMIReal}
	}

	t := &models.GeneratedTable{
		Kind:    models.TableKindHMIReal,
		Columns: hmiRealColumns,
		Rows:    make([][]string, 0, len(filtered)),
	}
	total := len(filtered)
	for i, a := range filtered {
		if tpl.RequireEngineeringRange && a.Range == nil {
			return nil, &models.MissingEngineeringRangeError{Tag: a.Tag, EquipmentID: a.EquipmentID}
		}
		low, high := formatRange(a.Range)
		t.Rows = append(t.Rows, []string{
			a.Tag,
			hmiTagType,
			"IOFloat",
			strconv.Itoa(a.CommAddress),
			hmiChannelName,
			hmiChannelDriver,
			hmiDeviceSeries,
			strconv.Itoa(hmiCollectInterval),
			low, high,
			a.EquipmentName,
		})
		report(progress, i+1, total)
	}
	return t, nil
}
