package catalog

import (
	"fmt"
	"os"

	"github.com/pointtable/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML layout of a catalog definition file.
type catalogFile struct {
	Models []ChannelModel `yaml:"models"`
}

// Load reads channel models from a YAML file and validates them.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return New(file.Models)
}

// DefaultModels returns the built-in module family: 16-channel discrete
// modules addressed by bit and 8-channel analog modules addressed by byte,
// in disjoint address regions per class.
func DefaultModels() []ChannelModel {
	return []ChannelModel{
		{Type: "LK411", Class: models.SignalClassAI, Capacity: 8, AddressBase: 100, ChannelStride: 4, InstanceStride: 32},
		{Type: "LK512", Class: models.SignalClassAO, Capacity: 8, AddressBase: 1100, ChannelStride: 4, InstanceStride: 32},
		{Type: "LK610", Class: models.SignalClassDI, Capacity: 16, AddressBase: 10000, ChannelStride: 1, InstanceStride: 16},
		{Type: "LK710", Class: models.SignalClassDO, Capacity: 16, AddressBase: 20000, ChannelStride: 1, InstanceStride: 16},
	}
}

// NewDefault builds a catalog from the built-in module family.
func NewDefault() *Catalog {
	c, err := New(DefaultModels())
	if err != nil {
		// The built-in family is covered by tests; this cannot happen at
		// runtime.
		panic(err)
	}
	return c
}
