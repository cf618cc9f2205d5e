// Package alloc turns per-equipment signal requirements into concrete
// module/channel/address assignments.
package alloc

import (
	"fmt"

	"github.com/pointtable/backend/internal/catalog"
	"github.com/pointtable/backend/internal/models"
)

// Calculate allocates one channel per required point across all items.
// Output is grouped by signal class (AI, AO, DI, DO), then by input item
// order, then by point ordinal within the item. REAL channels additionally
// carry the derived setpoint/alarm extension points, addressed from the
// dedicated extension pools. The run is all-or-nothing:
// any invalid requirement aborts before a single assignment is emitted, and
// re-running with the same inputs yields an identical sequence.
func Calculate(items []models.EquipmentItem, cat *catalog.Catalog) ([]models.ChannelAssignment, error) {
	if err := validateRequirements(items); err != nil {
		return nil, err
	}

	total := 0
	for i := range items {
		total += items[i].TotalPoints()
	}
	out := make([]models.ChannelAssignment, 0, total)

	usedSlots := make(map[models.Slot]struct{}, total)
	usedAddrs := make(map[int]string, total)
	exts := newExtensionAllocator()

	for _, class := range models.SignalClassOrder {
		required := 0
		for i := range items {
			required += items[i].Count(class)
		}
		if required == 0 {
			continue
		}

		ms := cat.ModelsForClass(class)
		if len(ms) == 0 {
			return nil, &models.UnknownModuleTypeError{
				ModuleType: fmt.Sprintf("(no module type serves class %s)", class),
			}
		}

		cur := cursor{models: ms}
		for i := range items {
			item := &items[i]
			count := item.Count(class)
			for ordinal := 0; ordinal < count; ordinal++ {
				m, instance, channel, err := cur.next(class)
				if err != nil {
					return nil, err
				}

				addr := m.Address(instance, channel)
				a := models.ChannelAssignment{
					ModuleType:    m.Type,
					Instance:      instance,
					Channel:       channel,
					Address:       addr,
					Tag:           Tag(item.ID, class, instance, channel),
					Class:         class,
					DataType:      m.DataType,
					Target:        m.Target,
					PLCAddress:    FormatPLCAddress(m.DataType, addr),
					CommAddress:   CommAddress(m.DataType, addr),
					EquipmentID:   item.ID,
					EquipmentName: item.Name,
					Station:       item.Station,
					Range:         item.Range,
				}

				if _, dup := usedSlots[a.Slot()]; dup {
					return nil, &models.InvalidModuleModelError{
						ModuleType: m.Type,
						Reason:     fmt.Sprintf("slot %s/%d/%d allocated twice", m.Type, instance, channel),
					}
				}
				usedSlots[a.Slot()] = struct{}{}

				if prev, dup := usedAddrs[addr]; dup {
					return nil, &models.InvalidModuleModelError{
						ModuleType: m.Type,
						Reason:     fmt.Sprintf("address %d collides with %s", addr, prev),
					}
				}
				usedAddrs[addr] = a.Tag

				exts.attach(&a)
				out = append(out, a)
			}
		}
	}

	return out, nil
}

// validateRequirements rejects negative counts up front so no partial
// allocation can escape.
func validateRequirements(items []models.EquipmentItem) error {
	for i := range items {
		for class, count := range items[i].Counts {
			if !class.Valid() {
				return &models.InvalidRequirementError{
					EquipmentID: items[i].ID, Class: class, Value: float64(count),
				}
			}
			if count < 0 {
				return &models.InvalidRequirementError{
					EquipmentID: items[i].ID, Class: class, Value: float64(count),
				}
			}
		}
	}
	return nil
}

// cursor walks the channel space of a class: channels within an instance,
// instances within a module type, module types in priority order.
type cursor struct {
	models   []*catalog.ChannelModel
	modelIdx int
	instance int
	channel  int
}

// next returns the slot for the following point and advances the cursor.
// When the channel index reaches capacity a new instance starts at channel 0;
// a full module never wraps into itself. A module type with an instance limit
// hands over to the next type in priority order once the limit is reached.
func (c *cursor) next(class models.SignalClass) (*catalog.ChannelModel, int, int, error) {
	for c.modelIdx < len(c.models) {
		m := c.models[c.modelIdx]
		if m.MaxInstances > 0 && c.instance >= m.MaxInstances {
			c.modelIdx++
			c.instance, c.channel = 0, 0
			continue
		}

		instance, channel := c.instance, c.channel
		c.channel++
		if c.channel == m.Capacity {
			c.channel = 0
			c.instance++
		}
		return m, instance, channel, nil
	}
	return nil, 0, 0, &models.InvalidModuleModelError{
		ModuleType: string(class),
		Reason:     fmt.Sprintf("all module types serving class %s are at their instance limit", class),
	}
}
