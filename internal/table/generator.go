package table

import (
	"fmt"

	"github.com/pointtable/backend/internal/models"
)

// ProgressFunc receives (completed, total) as rows are produced. Generators
// invoke it synchronously and never wait on it.
type ProgressFunc func(completed, total int)

// Generate dispatches to the generator for the template's table kind. Pure
// projection: the assignment sequence is never mutated, and generating twice
// from the same sequence yields identical row content.
func Generate(assignments []models.ChannelAssignment, tpl Template, progress ProgressFunc) (*models.GeneratedTable, error) {
	switch tpl.Kind {
	case models.TableKindPLC:
		return GeneratePLC(assignments, tpl, progress)
	case models.TableKindHMIBool:
		return GenerateHMIBool(assignments, tpl, progress)
	case models.TableKindHMIReal:
		return GenerateHMIReal(assignments, tpl, progress)
	case models.TableKindFAT:
		return GenerateFAT(assignments, tpl, progress)
	default:
		return nil, fmt.Errorf("unknown table kind: %s", tpl.Kind)
	}
}

func report(progress ProgressFunc, completed, total int) {
	if progress != nil {
		progress(completed, total)
	}
}

// moduleID renders the module instance identifier used in table rows.
func moduleID(a *models.ChannelAssignment) string {
	return fmt.Sprintf("%s-%d", a.ModuleType, a.Instance)
}

// channelCode renders the physical channel position of an assignment.
func channelCode(a *models.ChannelAssignment) string {
	return fmt.Sprintf("%s_%d_%s_%d", a.ModuleType, a.Instance, a.Class, a.Channel)
}

func formatRange(r *models.EngineeringRange) (low, high string) {
	if r == nil {
		return "", ""
	}
	return trimFloat(r.Low), trimFloat(r.High)
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
