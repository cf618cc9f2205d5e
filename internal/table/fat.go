package table

import (
	"strconv"

	"github.com/pointtable/backend/internal/models"
)

var fatColumns = []string{
	"No.", "Tag", "Signal Class", "Module", "Channel Code",
	"Address", "PLC Address", "Comm Address", "Data Type",
	"Equipment", "Station", "Range Low", "Range High",
	"Checked", "Result",
}

// GenerateFAT emits the factory-acceptance view: a superset of the PLC and
// HMI columns over the full assignment sequence. No allocation of its own;
// it re-projects what the calculator produced.
func GenerateFAT(assignments []models.ChannelAssignment, tpl Template, progress ProgressFunc) (*models.GeneratedTable, error) {
	if len(assignments) == 0 {
		return nil, &models.EmptyAssignmentSetError{Kind: models.TableKindFAT}
	}

	t := &models.GeneratedTable{
		Kind:    models.TableKindFAT,
		Columns: fatColumns,
		Rows:    make([][]string, 0, len(assignments)),
	}
	total := len(assignments)
	for i := range assignments {
		a := &assignments[i]
		low, high := formatRange(a.Range)
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1),
			a.Tag,
			string(a.Class),
			moduleID(a),
			channelCode(a),
			strconv.Itoa(a.Address),
			a.PLCAddress,
			strconv.Itoa(a.CommAddress),
			string(a.DataType),
			a.EquipmentName,
			a.Station,
			low, high,
			"", // filled by hand during acceptance
			"",
		})
		report(progress, i+1, total)
	}
	return t, nil
}
