package models

// ProjectInfo holds the main-form fields of a deepened-design checklist.
type ProjectInfo struct {
	ProjectName  string `json:"projectName"`
	ProjectNo    string `json:"projectNo"`
	DesignNo     string `json:"designNo"`
	ClientName   string `json:"clientName"`
	Station      string `json:"station"`
}

// EngineeringRange is optional scaling metadata for analog points.
type EngineeringRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// EquipmentItem is one row of the deepened-design checklist: a physical
// device and the IO points it requires per signal class. Items are built by
// the schema registry and are immutable afterwards.
type EquipmentItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SpecModel string `json:"specModel,omitempty"`
	Station   string `json:"station,omitempty"`
	Subsystem string `json:"subsystem,omitempty"`
	Remark    string `json:"remark,omitempty"`

	// Required point counts keyed by signal class. Missing class means zero.
	Counts map[SignalClass]int `json:"counts"`

	// Range is present only when the source record carries scaling limits.
	Range *EngineeringRange `json:"range,omitempty"`
}

// Count returns the required point count for a class, zero if unset.
func (e *EquipmentItem) Count(class SignalClass) int {
	if e.Counts == nil {
		return 0
	}
	return e.Counts[class]
}

// TotalPoints returns the sum of required counts across all classes.
func (e *EquipmentItem) TotalPoints() int {
	total := 0
	for _, c := range SignalClassOrder {
		total += e.Count(c)
	}
	return total
}
