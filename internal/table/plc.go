package table

import (
	"fmt"
	"strconv"

	"github.com/pointtable/backend/internal/catalog"
	"github.com/pointtable/backend/internal/models"
)

var plcColumns = []string{
	"Tag", "Address", "PLC Address", "Module", "Comment",
	"Data Type", "Initial Value", "Retentive", "Forcible", "SOE Enable",
}

// plcDefaults returns the fixed column values per data type. REAL points are
// retentive so setpoints survive a power cycle.
func plcDefaults(dt models.DataType) (initial, retentive, forcible, soe string) {
	if dt == models.DataTypeBool {
		return "FALSE", "FALSE", "TRUE", "FALSE"
	}
	return "0", "TRUE", "TRUE", "FALSE"
}

// GeneratePLC emits one row per assignment on a PLC-targeted module type,
// followed by one row per derived extension point of that assignment.
// Assignments without a tag get the reserved YLDW name for their channel.
func GeneratePLC(assignments []models.ChannelAssignment, tpl Template, progress ProgressFunc) (*models.GeneratedTable, error) {
	filtered := make([]*models.ChannelAssignment, 0, len(assignments))
	total := 0
	for i := range assignments {
		if assignments[i].Target == catalog.TargetPLC {
			filtered = append(filtered, &assignments[i])
			total += 1 + len(assignments[i].Extensions)
		}
	}
	if len(filtered) == 0 {
		return nil, &models.EmptyAssignmentSetError{Kind: models.TableKindPLC}
	}

	t := &models.GeneratedTable{
		Kind:    models.TableKindPLC,
		Columns: plcColumns,
		Rows:    make([][]string, 0, total),
	}
	emitted := 0
	for _, a := range filtered {
		tag, comment := a.Tag, plcComment(a)
		if tag == "" {
			code := channelCode(a)
			tag = "YLDW" + code
			if comment == "" {
				comment = "Reserved point " + code
			}
		}

		initial, retentive, forcible, soe := plcDefaults(a.DataType)
		t.Rows = append(t.Rows, []string{
			tag,
			strconv.Itoa(a.Address),
			a.PLCAddress,
			moduleID(a),
			comment,
			string(a.DataType),
			initial, retentive, forcible, soe,
		})
		emitted++
		report(progress, emitted, total)

		for _, ext := range a.Extensions {
			initial, retentive, forcible, soe := plcDefaults(ext.DataType)
			t.Rows = append(t.Rows, []string{
				tag + ext.Suffix,
				strconv.Itoa(ext.Address),
				ext.PLCAddress,
				moduleID(a),
				comment + " " + ext.Name,
				string(ext.DataType),
				initial, retentive, forcible, soe,
			})
			emitted++
			report(progress, emitted, total)
		}
	}
	return t, nil
}

func plcComment(a *models.ChannelAssignment) string {
	if a.Station != "" && a.EquipmentName != "" {
		return fmt.Sprintf("%s (%s)", a.EquipmentName, a.Station)
	}
	return a.EquipmentName
}
