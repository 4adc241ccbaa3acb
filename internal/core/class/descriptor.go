package class

import (
	"maps"
	"strings"

	objerrors "github.com/zeusync/objgraph/internal/core/errors"
	"github.com/zeusync/objgraph/internal/core/observability/log"
)

// CtorHook runs when an instance is constructed, after defaults are assigned.
// Hooks of ancestors run first.
type CtorHook func(obj *Object, ctx Context)

// DeserializeHook replaces the generic field reader for a class. It receives the
// JSON node with the type tag still present.
type DeserializeHook func(obj *Object, data map[string]any, ctx Context) error

// Descriptor describes a registered class.
//
// The property list of a subclass is a snapshot of its superclass at the time the
// subclass was defined. Properties added to an ancestor afterwards are not visible
// on the subclass.
type Descriptor struct {
	registry    *Registry
	name        string
	id          string
	super       *Descriptor
	props       []string
	attrs       map[string]*Attributes
	ctor        CtorHook
	deserialize DeserializeHook
	reflective  bool
}

func (d *Descriptor) Name() string {
	return d.name
}

func (d *Descriptor) ID() string {
	return d.id
}

func (d *Descriptor) Super() *Descriptor {
	return d.super
}

func (d *Descriptor) Registry() *Registry {
	return d.registry
}

// Reflective reports whether the class declares its properties. Host types
// are not reflective: every key of their JSON nodes is read generically.
func (d *Descriptor) Reflective() bool {
	return d.reflective
}

// DeserializeHook returns the custom reader, if any.
func (d *Descriptor) DeserializeHook() DeserializeHook {
	return d.deserialize
}

// Props returns the ordered property list (inherited prefix first).
func (d *Descriptor) Props() []string {
	return append([]string(nil), d.props...)
}

// HasProperty reports whether prop is declared on this descriptor.
func (d *Descriptor) HasProperty(prop string) bool {
	_, ok := d.attrs[prop]
	return ok
}

// Attrs returns a copy of the attribute record of prop.
func (d *Descriptor) Attrs(prop string) (Attributes, bool) {
	a, ok := d.attrs[prop]
	if !ok {
		return Attributes{}, false
	}
	return *a.clone(), true
}

func (d *Descriptor) attr(prop string) *Attributes {
	return d.attrs[prop]
}

// RawProperty returns the raw-typed property of the class chain.
func (d *Descriptor) RawProperty() (string, bool) {
	for _, p := range d.props {
		if d.attrs[p].RawType != "" {
			return p, true
		}
	}
	return "", false
}

// IsChildOf walks the superclass chain. A class is a child of itself.
func (d *Descriptor) IsChildOf(super *Descriptor) bool {
	if super == nil {
		return false
	}
	for c := d; c != nil; c = c.super {
		if c == super {
			return true
		}
	}
	return false
}

// IsAsset reports whether instances are shared asset resources.
func (d *Descriptor) IsAsset() bool {
	return d.registry != nil && d.IsChildOf(d.registry.assetRoot)
}

// IsLifecycleAware reports whether instances derive from the object root and
// therefore carry a name and lifecycle flags in their serialized form.
func (d *Descriptor) IsLifecycleAware() bool {
	return d.registry != nil && d.IsChildOf(d.registry.objectRoot)
}

type descriptorState struct {
	props []string
	attrs map[string]*Attributes
}

func (d *Descriptor) capture(prop string) descriptorState {
	st := descriptorState{
		props: append([]string(nil), d.props...),
		attrs: maps.Clone(d.attrs),
	}
	if a, ok := d.attrs[prop]; ok {
		st.attrs[prop] = a.clone()
	}
	return st
}

func (d *Descriptor) restore(st descriptorState) {
	d.props = st.props
	d.attrs = st.attrs
}

// Property declares prop with the given default and attributes. Re-declaring a
// property owned by this class merges the attributes and overwrites the default;
// declaring a name that belongs to an ancestor fails. Attribute hooks run right
// after the record is stored; when one fails the declaration is rolled back.
func (d *Descriptor) Property(prop string, def any, attrs ...Attribute) (*Descriptor, error) {
	if prop == "" || strings.HasPrefix(prop, PrivatePrefix) {
		err := objerrors.Registration(objerrors.ErrInvalidPropertyKey, "%s.%q", d.name, prop)
		d.logger().Error("property rejected", log.String("class", d.name), log.Error(err))
		return d, err
	}
	for s := d.super; s != nil; s = s.super {
		if s.HasProperty(prop) {
			err := objerrors.Registration(objerrors.ErrDuplicateProperty, "%s.%s already declared by %s", d.name, prop, s.name)
			d.logger().Error("property rejected", log.String("class", d.name), log.Error(err))
			return d, err
		}
	}

	st := d.capture(prop)
	rec, ok := d.attrs[prop]
	if !ok {
		rec = newAttributes()
		d.attrs[prop] = rec
		d.props = append(d.props, prop)
	}
	rec.Default = def
	rec.DefaultFunc = nil
	if ok && hasAttribute(attrs, watchAttr) {
		// a re-declaration restates its watchers instead of stacking them
		rec.Watch = nil
	}
	for _, a := range attrs {
		if a.apply != nil {
			a.apply(rec)
		}
	}
	for _, a := range attrs {
		if a.hook == nil {
			continue
		}
		if err := a.hook(d, prop); err != nil {
			d.restore(st)
			d.logger().Error("property rejected",
				log.String("class", d.name), log.String("attribute", a.name), log.Error(err))
			return d, err
		}
	}
	return d, nil
}

// SetAttrs merges host supplied keys into the record of prop. Known keys map onto
// the typed fields, the rest land in Extra. Private keys are ignored.
func (d *Descriptor) SetAttrs(prop string, values map[string]any) error {
	rec, ok := d.attrs[prop]
	if !ok {
		return objerrors.Registration(objerrors.ErrUnknownProperty, "%s.%s", d.name, prop)
	}
	rest := make(map[string]any)
	for k, v := range values {
		if strings.HasPrefix(k, PrivatePrefix) {
			continue
		}
		switch k {
		case "default":
			rec.Default = v
			rec.DefaultFunc = nil
		case "serializable":
			rec.Serializable, _ = v.(bool)
		case "editorOnly":
			rec.EditorOnly, _ = v.(bool)
		case "visible":
			b, _ := v.(bool)
			rec.HideInInspector = !b
		case "readonly":
			rec.ReadOnly, _ = v.(bool)
		case "tooltip":
			rec.Tooltip, _ = v.(string)
		case "type":
			rec.TypeHint, _ = v.(string)
		default:
			rest[k] = v
		}
	}
	rec.mergeExtra(rest)
	return nil
}

// addCompanion declares a hidden property unless the chain already has it.
func (d *Descriptor) addCompanion(prop string, def any) {
	if d.HasProperty(prop) {
		return
	}
	rec := newAttributes()
	rec.Default = def
	rec.HideInInspector = true
	d.attrs[prop] = rec
	d.props = append(d.props, prop)
}

// New constructs an instance with default values, then runs constructor hooks
// from the root ancestor down. EditorOnly properties are left out unless
// ctx.EditorMode is set.
func (d *Descriptor) New(ctx Context) *Object {
	obj := newObject(d)
	if d.reflective {
		for _, p := range d.props {
			a := d.attrs[p]
			if a.EditorOnly && !ctx.EditorMode {
				continue
			}
			obj.assign(p, a.NewValue())
		}
	}
	var chain []*Descriptor
	for c := d; c != nil; c = c.super {
		chain = append(chain, c)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].ctor != nil {
			chain[i].ctor(obj, ctx)
		}
	}
	return obj
}

func hasAttribute(attrs []Attribute, name string) bool {
	for _, a := range attrs {
		if a.name == name {
			return true
		}
	}
	return false
}

func (d *Descriptor) logger() log.Log {
	if d.registry == nil {
		return log.NewNop()
	}
	return d.registry.log
}

func (d *Descriptor) String() string {
	return d.name
}
