package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pointtable/backend/internal/models"
)

// Registry holds the declared field sets. Built once at startup; reads need
// no synchronization afterwards.
type Registry struct {
	sets map[string][]FieldDefinition
}

// NewRegistry builds a registry from the given definition sets, validating
// each definition.
func NewRegistry(sets map[string][]FieldDefinition) (*Registry, error) {
	for setName, defs := range sets {
		seen := make(map[string]struct{}, len(defs))
		for _, def := range defs {
			if def.ID == "" || def.RawKey == "" {
				return nil, fmt.Errorf("set %s: field definition missing id or key", setName)
			}
			if _, dup := seen[def.ID]; dup {
				return nil, fmt.Errorf("set %s: duplicate field id %s", setName, def.ID)
			}
			seen[def.ID] = struct{}{}
			switch def.Kind {
			case KindText, KindNumber, KindEnum:
			default:
				return nil, fmt.Errorf("set %s: field %s has unknown kind %q", setName, def.ID, def.Kind)
			}
			if def.Kind == KindEnum && len(def.Values) == 0 {
				return nil, fmt.Errorf("set %s: enum field %s declares no values", setName, def.ID)
			}
		}
	}
	return &Registry{sets: sets}, nil
}

// NewDefaultRegistry builds a registry from the built-in definitions.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDefinitions())
	if err != nil {
		// Built-in definitions are validated by tests; this cannot happen
		// at runtime.
		panic(err)
	}
	return r
}

// Fields returns the definitions of a set, nil if the set is unknown.
func (r *Registry) Fields(set string) []FieldDefinition {
	return r.sets[set]
}

// Record is a typed view over one decoded payload.
type Record struct {
	set    string
	values map[string]any
}

// Has reports whether the field was present in the payload.
func (rec *Record) Has(fieldID string) bool {
	_, ok := rec.values[fieldID]
	return ok
}

// Text returns the string value of a text or enum field, "" if absent.
func (rec *Record) Text(fieldID string) string {
	if v, ok := rec.values[fieldID].(string); ok {
		return v
	}
	return ""
}

// Number returns the numeric value of a number field and whether it was set.
func (rec *Record) Number(fieldID string) (float64, bool) {
	v, ok := rec.values[fieldID].(float64)
	return v, ok
}

// Decode interprets a raw key-value payload through the named definition
// set. Pure transformation: no side effects, the registry is not mutated.
func (r *Registry) Decode(set string, payload map[string]any) (*Record, error) {
	defs, ok := r.sets[set]
	if !ok {
		return nil, fmt.Errorf("unknown definition set: %s", set)
	}

	rec := &Record{set: set, values: make(map[string]any, len(defs))}
	for _, def := range defs {
		raw, present := payload[def.RawKey]
		if !present || raw == nil {
			if def.Required {
				return nil, &models.SchemaMismatchError{
					Set: set, FieldID: def.ID, RawKey: def.RawKey,
					Reason: "required field absent from payload",
				}
			}
			continue
		}

		switch def.Kind {
		case KindText:
			rec.values[def.ID] = coerceText(raw)

		case KindNumber:
			f, err := coerceNumber(raw)
			if err != nil {
				return nil, &models.SchemaMismatchError{
					Set: set, FieldID: def.ID, RawKey: def.RawKey, Reason: err.Error(),
				}
			}
			rec.values[def.ID] = f

		case KindEnum:
			s := strings.TrimSpace(coerceText(raw))
			if s == "" {
				if def.Required {
					return nil, &models.SchemaMismatchError{
						Set: set, FieldID: def.ID, RawKey: def.RawKey,
						Reason: "required field absent from payload",
					}
				}
				continue
			}
			if !containsValue(def.Values, s) {
				return nil, &models.SchemaMismatchError{
					Set: set, FieldID: def.ID, RawKey: def.RawKey,
					Reason: fmt.Sprintf("value %q not in %v", s, def.Values),
				}
			}
			rec.values[def.ID] = s
		}
	}

	return rec, nil
}

func containsValue(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func coerceText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		// JSON numbers arrive as float64; render integers without decimals.
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("empty string is not numeric")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", raw)
	}
}
