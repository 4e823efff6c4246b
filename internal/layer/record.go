// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package layer

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Setting keys inside a persisted record.
const (
	SettingVisible = "visible"
	SettingParams  = "params"
)

// Record is the persisted form of a layer. Settings stay loosely typed until
// Merge interprets them, so a damaged file surfaces as a merge failure.
type Record struct {
	Kind     string         `yaml:"kind" json:"kind" validate:"required,excludesall=@"`
	Facet    string         `yaml:"facet" json:"facet" validate:"required"`
	Settings map[string]any `yaml:"settings" json:"settings"`

	// shapeErr is set when the stored form could not be decoded.
	shapeErr error
}

// UnmarshalYAML never fails. A record of the wrong shape decodes as an
// invalid record so that Merge reports it instead of the whole file failing.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	*r = Record{}

	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		r.shapeErr = fmt.Errorf("record at line %d: %w", node.Line, err)
		return nil
	}

	var err error
	if r.Kind, err = stringField(raw, "kind"); err != nil {
		r.shapeErr = fmt.Errorf("record at line %d: %w", node.Line, err)
		return nil
	}
	if r.Facet, err = stringField(raw, "facet"); err != nil {
		r.shapeErr = fmt.Errorf("record at line %d: %w", node.Line, err)
		return nil
	}
	switch settings := raw["settings"].(type) {
	case nil:
	case map[string]any:
		r.Settings = settings
	default:
		r.shapeErr = fmt.Errorf("record at line %d: settings must be a map, got %T", node.Line, settings)
	}
	return nil
}

func stringField(raw map[string]any, key string) (string, error) {
	switch v := raw[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
}

// DecodeRecords decodes a stored record list. Like Record.UnmarshalYAML it
// never fails: a node that is not a list yields one invalid record.
func DecodeRecords(node *yaml.Node) []Record {
	var recs []Record
	if err := node.Decode(&recs); err != nil {
		return []Record{{shapeErr: fmt.Errorf("layer records at line %d: %w", node.Line, err)}}
	}
	return recs
}

// Err returns the decode error of a record read from storage, if any.
func (r Record) Err() error {
	return r.shapeErr
}

// Key returns the record's "kind@facet" identity.
func (r Record) Key() string {
	return Key(Kind(r.Kind), typecatalog.TypeID(r.Facet))
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func recordValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// interpret converts a record into typed settings.
func (r Record) interpret() (Settings, error) {
	if r.shapeErr != nil {
		return Settings{}, r.shapeErr
	}
	if err := recordValidator().Struct(r); err != nil {
		if ves, ok := err.(validator.ValidationErrors); ok {
			fe := ves[0]
			return Settings{}, fmt.Errorf("field %s failed validation for tag '%s'", fe.Field(), fe.Tag())
		}
		return Settings{}, err
	}

	var s Settings
	sawVisible := false
	for key, raw := range r.Settings {
		switch key {
		case SettingVisible:
			v, ok := raw.(bool)
			if !ok {
				return Settings{}, fmt.Errorf("setting %q must be a boolean, got %T", key, raw)
			}
			s.Visible = v
			sawVisible = true
		case SettingParams:
			params, err := interpretParams(raw)
			if err != nil {
				return Settings{}, err
			}
			s.Params = params
		default:
			return Settings{}, fmt.Errorf("unknown setting %q", key)
		}
	}
	if !sawVisible {
		return Settings{}, fmt.Errorf("setting %q is required", SettingVisible)
	}
	return s, nil
}

func interpretParams(raw any) (map[string]float64, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("setting %q must be a map, got %T", SettingParams, raw)
	}
	out := make(map[string]float64, len(m))
	for name, v := range m {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("param %q must be a number, got %T", name, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("param %q must be finite", name)
		}
		out[name] = f
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

// recordFor builds the persisted form of a layer's current settings.
func recordFor(l *Layer) Record {
	s := l.Settings()
	params := make(map[string]any, len(s.Params))
	for k, v := range s.Params {
		params[k] = v
	}
	return Record{
		Kind:  string(l.Kind()),
		Facet: string(l.Facet()),
		Settings: map[string]any{
			SettingVisible: s.Visible,
			SettingParams:  params,
		},
	}
}
