package class

import (
	"reflect"

	objerrors "github.com/zeusync/objgraph/internal/core/errors"
)

// Object is an instance of a Descriptor. Field values are kept in declaration
// order for reflective classes and in insertion order for host types.
type Object struct {
	class  *Descriptor
	fields map[string]any
	keys   []string
	flags  Flags
}

func newObject(d *Descriptor) *Object {
	return &Object{
		class:  d,
		fields: make(map[string]any, len(d.props)),
		keys:   make([]string, 0, len(d.props)),
	}
}

func (o *Object) Class() *Descriptor {
	return o.class
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if key == FlagsKey {
		return float64(o.flags), true
	}
	v, ok := o.fields[key]
	return v, ok
}

// Value returns the value under key or nil.
func (o *Object) Value(key string) any {
	v, _ := o.Get(key)
	return v
}

// Keys returns field names in order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.keys)
}

// Assign stores value without running validation or watch callbacks. It is what
// the deserializer and the instantiator use to fill objects in bulk.
func (o *Object) Assign(key string, value any) {
	o.assign(key, value)
}

func (o *Object) assign(key string, value any) {
	if key == FlagsKey {
		o.flags = toFlags(value)
		if _, ok := o.fields[key]; !ok {
			o.keys = append(o.keys, key)
			o.fields[key] = nil
		}
		return
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = value
}

// Set assigns a declared property, enforcing readonly and range attributes, and
// notifies watchers when the value changed. Host types accept any key.
func (o *Object) Set(key string, value any) error {
	if !o.class.reflective {
		o.assign(key, value)
		return nil
	}
	attrs := o.class.attr(key)
	if attrs == nil {
		return objerrors.Wrap(objerrors.KindUnknown, objerrors.ErrUnknownProperty, "%s.%s", o.class.name, key)
	}
	if attrs.ReadOnly {
		return objerrors.Wrap(objerrors.KindUnknown, objerrors.ErrReadOnlyProperty, "%s.%s", o.class.name, key)
	}
	if attrs.Range != nil {
		if n, ok := toFloat(value); ok && (n < attrs.Range.Min || n > attrs.Range.Max) {
			return objerrors.Wrap(objerrors.KindUnknown, objerrors.ErrOutOfRange,
				"%s.%s = %v not in [%v, %v]", o.class.name, key, n, attrs.Range.Min, attrs.Range.Max)
		}
	}
	old, _ := o.Get(key)
	o.assign(key, value)
	if attrs.Nullable != "" {
		o.assign(attrs.Nullable, value != nil)
	}
	if !sameValue(old, value) {
		for _, fn := range attrs.Watch {
			fn(o, key, old, value)
		}
	}
	return nil
}

// Name returns the _name field of lifecycle-aware objects.
func (o *Object) Name() string {
	s, _ := o.fields[NameKey].(string)
	return s
}

func (o *Object) SetName(name string) {
	o.assign(NameKey, name)
}

func (o *Object) Flags() Flags {
	return o.flags
}

func (o *Object) SetFlags(f Flags) {
	o.flags = f
}

// IsValid reports whether the object has not been destroyed.
func (o *Object) IsValid() bool {
	return o != nil && o.flags&Destroyed == 0
}

// IsAsset reports whether the object is a shared asset resource.
func (o *Object) IsAsset() bool {
	return o.class.IsAsset()
}

// UUID returns the asset uuid, empty for non-assets.
func (o *Object) UUID() string {
	s, _ := o.fields[UUIDKey].(string)
	return s
}

func toFlags(v any) Flags {
	switch n := v.(type) {
	case Flags:
		return n
	case nil:
		return 0
	}
	if f, ok := toFloat(v); ok && f >= 0 {
		return Flags(uint32(f))
	}
	return 0
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
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// sameValue compares values without panicking on uncomparable dynamic types.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
