// Package models contains domain types for the IO point table generator.
package models

// SignalClass is the category of an IO point.
type SignalClass string

const (
	SignalClassAI SignalClass = "AI"
	SignalClassAO SignalClass = "AO"
	SignalClassDI SignalClass = "DI"
	SignalClassDO SignalClass = "DO"
)

// SignalClassOrder is the fixed processing order for allocation. Analog
// classes are allocated before discrete ones so their word addresses stay
// contiguous at the front of the address space.
var SignalClassOrder = []SignalClass{SignalClassAI, SignalClassAO, SignalClassDI, SignalClassDO}

// IsDiscrete reports whether the class carries boolean points.
func (c SignalClass) IsDiscrete() bool {
	return c == SignalClassDI || c == SignalClassDO
}

// IsAnalog reports whether the class carries real-valued points.
func (c SignalClass) IsAnalog() bool {
	return c == SignalClassAI || c == SignalClassAO
}

// Valid reports whether c is one of the four known classes.
func (c SignalClass) Valid() bool {
	switch c {
	case SignalClassAI, SignalClassAO, SignalClassDI, SignalClassDO:
		return true
	}
	return false
}

// DataType is the PLC data type carried by a channel.
type DataType string

const (
	DataTypeBool DataType = "BOOL"
	DataTypeReal DataType = "REAL"
)
