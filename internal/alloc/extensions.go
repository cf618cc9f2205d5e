package alloc

import "github.com/pointtable/backend/internal/models"

// Extension point pools. Setpoints and maintenance values are REAL and draw
// word addresses starting at %MD500; alarm and enable flags are BOOL and
// draw bit addresses starting at %MX100.0. Both pools are global to one
// calculation run, outside every module's address region.
const (
	extRealBase   = 500
	extRealStride = 4
	extBoolBase   = 100 * 8
)

// extensionDef describes one derived point per REAL base channel, in table
// emission order.
type extensionDef struct {
	suffix   string
	name     string
	dataType models.DataType
}

var extensionDefs = []extensionDef{
	{"_LoLoLimit", "SLL setpoint", models.DataTypeReal},
	{"_LoLimit", "SL setpoint", models.DataTypeReal},
	{"_HiLimit", "SH setpoint", models.DataTypeReal},
	{"_HiHiLimit", "SHH setpoint", models.DataTypeReal},
	{"_LL", "LL alarm", models.DataTypeBool},
	{"_L", "L alarm", models.DataTypeBool},
	{"_H", "H alarm", models.DataTypeBool},
	{"_HH", "HH alarm", models.DataTypeBool},
	{"_whz", "Maintenance value", models.DataTypeReal},
	{"_MAIN_EN", "Maintenance enable", models.DataTypeBool},
}

// extensionAllocator hands out extension addresses across a whole run.
type extensionAllocator struct {
	nextReal int
	nextBool int
}

func newExtensionAllocator() *extensionAllocator {
	return &extensionAllocator{nextReal: extRealBase, nextBool: extBoolBase}
}

// attach allocates the full extension set for one REAL base channel.
// Non-REAL channels carry no extensions.
func (e *extensionAllocator) attach(a *models.ChannelAssignment) {
	if a.DataType != models.DataTypeReal {
		return
	}
	exts := make([]models.ExtensionPoint, 0, len(extensionDefs))
	for _, def := range extensionDefs {
		var addr int
		if def.dataType == models.DataTypeReal {
			addr = e.nextReal
			e.nextReal += extRealStride
		} else {
			addr = e.nextBool
			e.nextBool++
		}
		exts = append(exts, models.ExtensionPoint{
			Suffix:      def.suffix,
			Name:        def.name,
			DataType:    def.dataType,
			Address:     addr,
			PLCAddress:  FormatPLCAddress(def.dataType, addr),
			CommAddress: CommAddress(def.dataType, addr),
		})
	}
	a.Extensions = exts
}
