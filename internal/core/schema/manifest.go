// Package schema loads class declarations from YAML or JSON manifests and
// registers them in a class registry.
package schema

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/objgraph/internal/core/class"
	objerrors "github.com/zeusync/objgraph/internal/core/errors"
)

// Manifest is a list of classes in registration order.
type Manifest struct {
	Classes []ClassManifest `json:"classes" yaml:"classes"`
}

type ClassManifest struct {
	Name       string             `json:"name" yaml:"name"`
	ID         string             `json:"id,omitempty" yaml:"id,omitempty"`
	Extends    string             `json:"extends,omitempty" yaml:"extends,omitempty"`
	Host       bool               `json:"host,omitempty" yaml:"host,omitempty"`
	Properties []PropertyManifest `json:"properties,omitempty" yaml:"properties,omitempty"`
}

type PropertyManifest struct {
	Name            string         `json:"name" yaml:"name"`
	Default         any            `json:"default,omitempty" yaml:"default,omitempty"`
	Serializable    *bool          `json:"serializable,omitempty" yaml:"serializable,omitempty"`
	EditorOnly      bool           `json:"editorOnly,omitempty" yaml:"editorOnly,omitempty"`
	HideInInspector bool           `json:"hideInInspector,omitempty" yaml:"hideInInspector,omitempty"`
	ReadOnly        bool           `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	RawType         string         `json:"rawType,omitempty" yaml:"rawType,omitempty"`
	Nullable        string         `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Type            string         `json:"type,omitempty" yaml:"type,omitempty"`
	Tooltip         string         `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Range           []float64      `json:"range,omitempty" yaml:"range,omitempty"`
	Extra           map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// LoadJSON loads a manifest from a JSON reader.
func LoadJSON(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, objerrors.Registration(objerrors.ErrInvalidManifest, "json: %v", err)
	}
	return &m, nil
}

// LoadYAML loads a manifest from a YAML reader. Numbers are normalized to
// float64 so defaults match what the JSON wire format produces.
func LoadYAML(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, objerrors.Registration(objerrors.ErrInvalidManifest, "yaml: %v", err)
	}
	for i := range m.Classes {
		for j := range m.Classes[i].Properties {
			p := &m.Classes[i].Properties[j]
			p.Default = normalize(p.Default)
			for k, v := range p.Extra {
				p.Extra[k] = normalize(v)
			}
		}
	}
	return &m, nil
}

// Register defines every class of the manifest in file order. A class may only
// extend a class that is built in or defined earlier. Registration stops at the
// first failure; classes defined before it stay registered.
func (m *Manifest) Register(reg *class.Registry) ([]*class.Descriptor, error) {
	out := make([]*class.Descriptor, 0, len(m.Classes))
	for _, c := range m.Classes {
		spec, err := c.spec(reg)
		if err != nil {
			return out, err
		}
		d, err := reg.DefineClass(spec)
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (c ClassManifest) spec(reg *class.Registry) (class.ClassSpec, error) {
	spec := class.ClassSpec{Name: c.Name, ID: c.ID, Host: c.Host}
	if c.Extends != "" {
		super, ok := reg.Resolve(c.Extends)
		if !ok {
			return spec, objerrors.Registration(objerrors.ErrUnknownSuperclass, "%s extends %q", c.Name, c.Extends)
		}
		spec.Extends = super
	}
	for _, p := range c.Properties {
		attrs, err := p.attributes()
		if err != nil {
			return spec, objerrors.Registration(err, "%s.%s", c.Name, p.Name)
		}
		spec.Properties = append(spec.Properties, class.PropertySpec{
			Name:       p.Name,
			Default:    p.Default,
			Attributes: attrs,
		})
	}
	return spec, nil
}

func (p PropertyManifest) attributes() ([]class.Attribute, error) {
	var attrs []class.Attribute
	if p.Serializable != nil {
		attrs = append(attrs, class.Serializable(*p.Serializable))
	}
	if p.EditorOnly {
		attrs = append(attrs, class.EditorOnlyAttr())
	}
	if p.HideInInspector {
		attrs = append(attrs, class.HideInInspector())
	}
	if p.ReadOnly {
		attrs = append(attrs, class.ReadOnly())
	}
	if p.Type != "" {
		attrs = append(attrs, class.TypeHint(p.Type))
	}
	if p.Tooltip != "" {
		attrs = append(attrs, class.Tooltip(p.Tooltip))
	}
	switch len(p.Range) {
	case 0:
	case 2:
		if p.Range[0] > p.Range[1] {
			return nil, objerrors.ErrInvalidManifest
		}
		attrs = append(attrs, class.RangeAttr(p.Range[0], p.Range[1]))
	default:
		return nil, objerrors.ErrInvalidManifest
	}
	for k, v := range p.Extra {
		attrs = append(attrs, class.Extra(k, v))
	}
	if p.RawType != "" {
		attrs = append(attrs, class.RawType(p.RawType))
	}
	if p.Nullable != "" {
		attrs = append(attrs, class.Nullable(p.Nullable))
	}
	return attrs, nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}
