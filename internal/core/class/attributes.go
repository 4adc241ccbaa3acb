package class

import (
	"maps"
	"strings"

	objerrors "github.com/zeusync/objgraph/internal/core/errors"
)

const (
	// PrivatePrefix marks keys owned by the engine. Host attribute merges and
	// generic object copies skip them.
	PrivatePrefix = "__"

	// ExtNameKey is the hidden companion a raw-type property adds to its class.
	ExtNameKey = "__ext__"
)

// WatchFunc is invoked by Object.Set after a property value changed.
type WatchFunc func(obj *Object, prop string, old, value any)

// Range bounds a numeric property.
type Range struct {
	Min float64
	Max float64
}

// Attributes is the metadata record of a single property.
type Attributes struct {
	Default         any
	DefaultFunc     func() any
	Serializable    bool
	EditorOnly      bool
	HideInInspector bool
	ReadOnly        bool
	RawType         string
	Nullable        string
	TypeHint        string
	Tooltip         string
	Range           *Range
	Watch           []WatchFunc
	Extra           map[string]any
}

func newAttributes() *Attributes {
	return &Attributes{Serializable: true}
}

func (a *Attributes) clone() *Attributes {
	c := *a
	if a.Range != nil {
		r := *a.Range
		c.Range = &r
	}
	if a.Watch != nil {
		c.Watch = append([]WatchFunc(nil), a.Watch...)
	}
	if a.Extra != nil {
		c.Extra = maps.Clone(a.Extra)
	}
	return &c
}

// NewValue returns a fresh value for the property default.
func (a *Attributes) NewValue() any {
	if a.DefaultFunc != nil {
		return a.DefaultFunc()
	}
	return copyDefault(a.Default)
}

func (a *Attributes) mergeExtra(values map[string]any) {
	for k, v := range values {
		if strings.HasPrefix(k, PrivatePrefix) {
			continue
		}
		if a.Extra == nil {
			a.Extra = make(map[string]any, len(values))
		}
		a.Extra[k] = v
	}
}

// Attribute is one declaration applied to a property record. Some attributes
// carry a hook that runs right after the property is registered.
type Attribute struct {
	name  string
	apply func(*Attributes)
	hook  func(d *Descriptor, prop string) error
}

// Name returns the attribute kind, e.g. "rawType".
func (a Attribute) Name() string {
	return a.name
}

// DefaultFunc makes every new instance call fn for the property value.
func DefaultFunc(fn func() any) Attribute {
	return Attribute{name: "default", apply: func(a *Attributes) { a.DefaultFunc = fn }}
}

func Serializable(v bool) Attribute {
	return Attribute{name: "serializable", apply: func(a *Attributes) { a.Serializable = v }}
}

func EditorOnlyAttr() Attribute {
	return Attribute{name: "editorOnly", apply: func(a *Attributes) { a.EditorOnly = true }}
}

func HideInInspector() Attribute {
	return Attribute{name: "hideInInspector", apply: func(a *Attributes) { a.HideInInspector = true }}
}

func ReadOnly() Attribute {
	return Attribute{name: "readonly", apply: func(a *Attributes) { a.ReadOnly = true }}
}

func TypeHint(t string) Attribute {
	return Attribute{name: "type", apply: func(a *Attributes) { a.TypeHint = t }}
}

func Tooltip(s string) Attribute {
	return Attribute{name: "tooltip", apply: func(a *Attributes) { a.Tooltip = s }}
}

// RangeAttr bounds a numeric property. Object.Set rejects values outside it.
func RangeAttr(minValue, maxValue float64) Attribute {
	return Attribute{name: "range", apply: func(a *Attributes) { a.Range = &Range{Min: minValue, Max: maxValue} }}
}

const watchAttr = "watch"

// Watch appends a change callback. Re-declaring a property with watchers
// replaces the previous ones.
func Watch(fn WatchFunc) Attribute {
	return Attribute{name: watchAttr, apply: func(a *Attributes) { a.Watch = append(a.Watch, fn) }}
}

// Extra merges a host defined key. Keys with the private prefix are ignored.
func Extra(key string, value any) Attribute {
	return Attribute{name: "extra", apply: func(a *Attributes) { a.mergeExtra(map[string]any{key: value}) }}
}

// RawType declares the property as an out-of-band payload. The owning class must
// derive from the asset root and no other property on its chain may be raw.
// The hidden ExtNameKey companion is added to the class.
func RawType(tag string) Attribute {
	return Attribute{
		name:  "rawType",
		apply: func(a *Attributes) { a.RawType = tag },
		hook:  rawTypeHook,
	}
}

// Nullable adds a hidden boolean companion property that records whether the
// value is present.
func Nullable(companion string) Attribute {
	return Attribute{
		name:  "nullable",
		apply: func(a *Attributes) { a.Nullable = companion },
		hook: func(d *Descriptor, prop string) error {
			if companion == "" || companion == prop {
				return objerrors.Registration(objerrors.ErrInvalidPropertyKey,
					"%s.%s: nullable companion %q", d.name, prop, companion)
			}
			d.addCompanion(companion, false)
			return nil
		},
	}
}

func rawTypeHook(d *Descriptor, prop string) error {
	if !d.IsAsset() {
		return objerrors.Registration(objerrors.ErrRawTypeNotAsset, "%s.%s", d.name, prop)
	}
	for _, p := range d.props {
		if p != prop && d.attrs[p].RawType != "" {
			return objerrors.Registration(objerrors.ErrDuplicateRawType, "%s.%s conflicts with %s", d.name, prop, p)
		}
	}
	for s := d.super; s != nil; s = s.super {
		if raw, ok := s.RawProperty(); ok && raw != prop {
			return objerrors.Registration(objerrors.ErrDuplicateRawType, "%s.%s conflicts with %s.%s", d.name, prop, s.name, raw)
		}
	}
	d.addCompanion(ExtNameKey, "")
	return nil
}
