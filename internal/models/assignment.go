package models

// ChannelAssignment is one allocated IO channel. Produced only by the
// channel calculator; read-only for table generators and the run store.
type ChannelAssignment struct {
	ModuleType string      `json:"moduleType"`
	Instance   int         `json:"instance"` // 0-based module instance
	Channel    int         `json:"channel"`  // 0-based, < module capacity
	Address    int         `json:"address"`  // base + instance*instanceStride + channel*channelStride
	Tag        string      `json:"tag"`
	Class      SignalClass `json:"class"`
	DataType   DataType    `json:"dataType"`
	Target     string      `json:"target"` // downstream system of the module type

	// PLCAddress is the vendor-formatted form of Address: %MXbyte.bit for
	// BOOL channels, %MDn for REAL channels.
	PLCAddress string `json:"plcAddress"`
	// CommAddress is the supervisory (Modbus) register derived from Address.
	CommAddress int `json:"commAddress"`

	// Originating equipment row.
	EquipmentID   string `json:"equipmentId"`
	EquipmentName string `json:"equipmentName"`
	Station       string `json:"station,omitempty"`

	// Range is carried through from the equipment item for analog points.
	Range *EngineeringRange `json:"range,omitempty"`

	// Extensions are the setpoint and alarm points derived from a REAL base
	// channel, addressed outside the module address space.
	Extensions []ExtensionPoint `json:"extensions,omitempty"`
}

// ExtensionPoint is one derived setpoint, alarm, or maintenance point
// attached to a REAL channel. Its tag is the base tag plus Suffix.
type ExtensionPoint struct {
	Suffix      string   `json:"suffix" msgpack:"suffix"`
	Name        string   `json:"name" msgpack:"name"`
	DataType    DataType `json:"dataType" msgpack:"dataType"`
	Address     int      `json:"address" msgpack:"address"`
	PLCAddress  string   `json:"plcAddress" msgpack:"plcAddress"`
	CommAddress int      `json:"commAddress" msgpack:"commAddress"`
}

// Slot identifies the physical channel position of an assignment.
type Slot struct {
	ModuleType string
	Instance   int
	Channel    int
}

// Slot returns the (module type, instance, channel) triple, which is unique
// within one calculation run.
func (a *ChannelAssignment) Slot() Slot {
	return Slot{ModuleType: a.ModuleType, Instance: a.Instance, Channel: a.Channel}
}
