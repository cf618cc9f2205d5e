// Package table projects channel assignments into export-ready point tables
// for downstream systems (PLC, HMI, factory acceptance).
package table

import (
	"fmt"

	"github.com/pointtable/backend/internal/models"
)

// Template names an output format variant for one table kind.
type Template struct {
	Name string           `yaml:"name" json:"name"`
	Kind models.TableKind `yaml:"kind" json:"kind"`

	// RequireEngineeringRange makes scaling limits mandatory for HMI-real
	// rows; without it, absent ranges render as blank columns.
	RequireEngineeringRange bool `yaml:"requireEngineeringRange,omitempty" json:"requireEngineeringRange,omitempty"`
}

// Registry resolves template names per table kind. Built at startup,
// read-only afterwards.
type Registry struct {
	templates map[string]Template
	defaults  map[models.TableKind]string
}

// NewTemplateRegistry builds a registry holding the built-in templates plus
// any extras (extras with a repeated name replace the built-in one).
func NewTemplateRegistry(extras ...Template) (*Registry, error) {
	r := &Registry{
		templates: make(map[string]Template),
		defaults:  make(map[models.TableKind]string),
	}

	builtins := []Template{
		{Name: "plc_default", Kind: models.TableKindPLC},
		{Name: "hmi_bool_default", Kind: models.TableKindHMIBool},
		{Name: "hmi_real_default", Kind: models.TableKindHMIReal},
		{Name: "hmi_real_strict", Kind: models.TableKindHMIReal, RequireEngineeringRange: true},
		{Name: "fat_default", Kind: models.TableKindFAT},
	}
	for _, t := range builtins {
		r.templates[t.Name] = t
	}
	r.defaults[models.TableKindPLC] = "plc_default"
	r.defaults[models.TableKindHMIBool] = "hmi_bool_default"
	r.defaults[models.TableKindHMIReal] = "hmi_real_default"
	r.defaults[models.TableKindFAT] = "fat_default"

	for _, t := range extras {
		if t.Name == "" {
			return nil, fmt.Errorf("template with empty name")
		}
		if !models.ValidTableKind(t.Kind) {
			return nil, fmt.Errorf("template %s: unknown table kind %q", t.Name, t.Kind)
		}
		r.templates[t.Name] = t
	}
	return r, nil
}

// Resolve returns the template for a kind; an empty name selects the
// built-in default for that kind.
func (r *Registry) Resolve(kind models.TableKind, name string) (Template, error) {
	if name == "" {
		name = r.defaults[kind]
	}
	t, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template: %s", name)
	}
	if t.Kind != kind {
		return Template{}, fmt.Errorf("template %s targets kind %s, not %s", name, t.Kind, kind)
	}
	return t, nil
}
