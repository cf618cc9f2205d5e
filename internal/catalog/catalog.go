// Package catalog declares the hardware module types channels can be
// allocated on: signal class served, capacity, and addressing parameters.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/pointtable/backend/internal/models"
)

// Target names the downstream system a module type belongs to.
const TargetPLC = "plc"

// ChannelModel describes one hardware module type. Loaded once, read-only
// afterwards.
type ChannelModel struct {
	Type     string             `yaml:"type" json:"type"`
	Class    models.SignalClass `yaml:"class" json:"class"`
	DataType models.DataType    `yaml:"dataType" json:"dataType"`
	Capacity int                `yaml:"capacity" json:"capacity"`

	// Addressing formula: address = base + instance*instanceStride +
	// channel*channelStride. BOOL modules address bits, REAL modules bytes.
	AddressBase    int `yaml:"base" json:"base"`
	ChannelStride  int `yaml:"channelStride" json:"channelStride"`
	InstanceStride int `yaml:"instanceStride" json:"instanceStride"`

	// Priority orders module types serving the same class; lower fills first.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`
	// MaxInstances caps how many instances may be allocated; 0 is unlimited.
	MaxInstances int `yaml:"maxInstances,omitempty" json:"maxInstances,omitempty"`

	Target string `yaml:"target,omitempty" json:"target,omitempty"`
}

// Address computes the integer address of (instance, channel) on this model.
func (m *ChannelModel) Address(instance, channel int) int {
	return m.AddressBase + instance*m.InstanceStride + channel*m.ChannelStride
}

// instanceZeroRange returns the inclusive address bounds of instance 0.
func (m *ChannelModel) instanceZeroRange() (lo, hi int) {
	return m.AddressBase, m.AddressBase + (m.Capacity-1)*m.ChannelStride
}

// Catalog is a validated, read-only set of channel models. Concurrent reads
// are safe; a calculation run snapshots the catalog it was started with.
type Catalog struct {
	models  []ChannelModel
	byType  map[string]*ChannelModel
	byClass map[models.SignalClass][]*ChannelModel
	version string
}

// New validates the given models and builds a catalog. Declaration order is
// preserved; within a class, models are tried in priority order (declaration
// order breaks ties).
func New(entries []ChannelModel) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog declares no channel models")
	}

	c := &Catalog{
		models:  make([]ChannelModel, len(entries)),
		byType:  make(map[string]*ChannelModel, len(entries)),
		byClass: make(map[models.SignalClass][]*ChannelModel),
	}
	copy(c.models, entries)

	for i := range c.models {
		m := &c.models[i]
		if err := validateModel(m); err != nil {
			return nil, err
		}
		if _, dup := c.byType[m.Type]; dup {
			return nil, &models.InvalidModuleModelError{ModuleType: m.Type, Reason: "duplicate module type"}
		}
		c.byType[m.Type] = m
		c.byClass[m.Class] = append(c.byClass[m.Class], m)
	}

	for class, ms := range c.byClass {
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].Priority < ms[j].Priority })
		if err := checkClassOverlap(class, ms); err != nil {
			return nil, err
		}
	}

	c.version = fingerprint(c.models)
	return c, nil
}

func validateModel(m *ChannelModel) error {
	if m.Type == "" {
		return &models.InvalidModuleModelError{ModuleType: "(unnamed)", Reason: "missing module type identifier"}
	}
	if !m.Class.Valid() {
		return &models.InvalidModuleModelError{ModuleType: m.Type, Reason: fmt.Sprintf("unknown signal class %q", m.Class)}
	}
	if m.Capacity <= 0 {
		return &models.InvalidModuleModelError{ModuleType: m.Type, Reason: "capacity must be a positive integer"}
	}
	if m.ChannelStride <= 0 || m.InstanceStride <= 0 {
		return &models.InvalidModuleModelError{ModuleType: m.Type, Reason: "stride parameters must be positive integers"}
	}
	if m.AddressBase < 0 {
		return &models.InvalidModuleModelError{ModuleType: m.Type, Reason: "address base must not be negative"}
	}
	if m.MaxInstances < 0 {
		return &models.InvalidModuleModelError{ModuleType: m.Type, Reason: "maxInstances must not be negative"}
	}
	if m.DataType == "" {
		if m.Class.IsDiscrete() {
			m.DataType = models.DataTypeBool
		} else {
			m.DataType = models.DataTypeReal
		}
	}
	if m.Target == "" {
		m.Target = TargetPLC
	}
	return nil
}

// checkClassOverlap rejects two module types of the same class whose
// instance-0 address ranges intersect.
func checkClassOverlap(class models.SignalClass, ms []*ChannelModel) error {
	for i := 0; i < len(ms); i++ {
		loI, hiI := ms[i].instanceZeroRange()
		for j := i + 1; j < len(ms); j++ {
			loJ, hiJ := ms[j].instanceZeroRange()
			if loI <= hiJ && loJ <= hiI {
				return &models.InvalidModuleModelError{
					ModuleType: ms[j].Type,
					Reason: fmt.Sprintf("address range [%d,%d] overlaps %s [%d,%d] for class %s",
						loJ, hiJ, ms[i].Type, loI, hiI, class),
				}
			}
		}
	}
	return nil
}

// Lookup returns the channel model for a module type.
func (c *Catalog) Lookup(moduleType string) (*ChannelModel, error) {
	m, ok := c.byType[moduleType]
	if !ok {
		return nil, &models.UnknownModuleTypeError{ModuleType: moduleType}
	}
	return m, nil
}

// ModelsForClass returns the module types serving a class in priority order.
func (c *Catalog) ModelsForClass(class models.SignalClass) []*ChannelModel {
	return c.byClass[class]
}

// Models returns all models in declaration order.
func (c *Catalog) Models() []ChannelModel {
	out := make([]ChannelModel, len(c.models))
	copy(out, c.models)
	return out
}

// Version is a deterministic content hash of the catalog, used as part of
// run memoization keys.
func (c *Catalog) Version() string {
	return c.version
}

func fingerprint(ms []ChannelModel) string {
	h := sha256.New()
	for _, m := range ms {
		fmt.Fprintf(h, "%s|%s|%s|%d|%d|%d|%d|%d|%d|%s\n",
			m.Type, m.Class, m.DataType, m.Capacity,
			m.AddressBase, m.ChannelStride, m.InstanceStride,
			m.Priority, m.MaxInstances, m.Target)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
