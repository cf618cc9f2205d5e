package alloc

import (
	"fmt"

	"github.com/pointtable/backend/internal/models"
)

// Supervisory register bases. Discrete points map into the coil region,
// analog points into the holding-register region.
const (
	commBaseBool = 3001
	commBaseReal = 43001
)

// FormatPLCAddress renders an integer address in the vendor notation:
// bit-addressed %MXbyte.bit for BOOL channels, byte-addressed %MDn for REAL.
func FormatPLCAddress(dataType models.DataType, address int) string {
	if dataType == models.DataTypeBool {
		return fmt.Sprintf("%%MX%d.%d", address/8, address%8)
	}
	return fmt.Sprintf("%%MD%d", address)
}

// CommAddress derives the supervisory (Modbus) register for an address.
func CommAddress(dataType models.DataType, address int) int {
	if dataType == models.DataTypeBool {
		return address + commBaseBool
	}
	return address/2 + commBaseReal
}

// Tag builds the deterministic point tag for an allocated channel.
func Tag(equipmentID string, class models.SignalClass, instance, channel int) string {
	return fmt.Sprintf("%s_%s_%d_%d", equipmentID, class, instance, channel)
}
