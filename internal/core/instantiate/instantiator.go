// Package instantiate deep-copies live object graphs.
//
// Cycles are handled with a per-call visited table from source identity to the
// clone allocated for it. The clone is recorded before its children are copied,
// so a cycle that leads back to a node finds the half-built copy. Source objects
// are never written to, which makes concurrent calls over shared graphs safe.
package instantiate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zeusync/objgraph/internal/core/class"
	objerrors "github.com/zeusync/objgraph/internal/core/errors"
	"github.com/zeusync/objgraph/internal/core/observability/log"
	"github.com/zeusync/objgraph/pkg/generic"
)

type Instantiator struct {
	log  log.Log
	pool *generic.Pool[*cloneState]
}

type Option func(*Instantiator)

func WithLogger(l log.Log) Option {
	return func(in *Instantiator) { in.log = log.OrNop(l) }
}

func New(opts ...Option) *Instantiator {
	in := &Instantiator{
		log: log.NewNop(),
		pool: generic.NewPool(
			func() *cloneState {
				return &cloneState{
					objects:    make(map[*class.Object]*class.Object),
					containers: make(map[identity]any),
				}
			},
			func(s *cloneState) {
				clear(s.objects)
				clear(s.containers)
				s.log = nil
			},
		),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

var defaultInstantiator = New()

// Instantiate clones original with a default instantiator.
func Instantiate(original any) (any, error) {
	return defaultInstantiator.Instantiate(original)
}

// Instantiate returns an independent copy of original. The root must be a live
// *class.Object or a map[string]any; anything else is rejected before copying.
func (in *Instantiator) Instantiate(original any) (any, error) {
	if err := checkRoot(original); err != nil {
		in.log.Error("instantiate rejected", log.String("type", fmt.Sprintf("%T", original)), log.Error(err))
		return nil, err
	}

	s := in.pool.Get()
	defer in.pool.Put(s)
	s.log = in.log
	s.ctx = class.Context{Instantiating: true}

	var clone any
	switch root := original.(type) {
	case *class.Object:
		clone = s.copyObject(root)
	case map[string]any:
		clone = s.cloneMap(root)
	}

	in.log.Debug("instantiated",
		log.Int("objects", len(s.objects)),
		log.Int("containers", len(s.containers)))
	return clone, nil
}

func checkRoot(original any) error {
	switch v := original.(type) {
	case nil:
		return objerrors.Instantiate(objerrors.ErrNilRoot, "")
	case *class.Object:
		if v == nil {
			return objerrors.Instantiate(objerrors.ErrNilRoot, "")
		}
		if !v.IsValid() {
			return objerrors.Instantiate(objerrors.ErrDestroyedRoot, "%s %q", v.Class().Name(), v.Name())
		}
		return nil
	case map[string]any:
		if v == nil {
			return objerrors.Instantiate(objerrors.ErrNilRoot, "")
		}
		return nil
	case class.HostHandle:
		return objerrors.Instantiate(objerrors.ErrHostRoot, "%s", v.HostHandle())
	}
	switch reflect.TypeOf(original).Kind() {
	case reflect.Slice, reflect.Array:
		return objerrors.Instantiate(objerrors.ErrArrayRoot, "%T", original)
	default:
		return objerrors.Instantiate(objerrors.ErrNotObjectRoot, "%T", original)
	}
}

type cloneState struct {
	ctx        class.Context
	objects    map[*class.Object]*class.Object
	containers map[identity]any
	log        log.Log
}

// clone returns the copy of v to install in a cloned container.
func (s *cloneState) clone(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string, float64, float32, int, int64, int32, uint32, uint64:
		return v
	case *class.Object:
		return s.cloneObject(val)
	case map[string]any:
		return s.cloneMap(val)
	case []any:
		return s.cloneSlice(val)
	case class.HostHandle:
		s.log.Warn("host handle cannot be cloned, set to nil", log.String("handle", val.HostHandle()))
		return nil
	case class.Cloner:
		return val.Clone()
	}
	return s.cloneReflect(reflect.ValueOf(v))
}

// cloneReflect handles typed host containers. Slices, arrays and maps are
// copied element by element; pointers to other host types are shared.
func (s *cloneState) cloneReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Func:
		return nil
	case reflect.Slice:
		if rv.IsNil() {
			return rv.Interface()
		}
		id := identityOf(rv.Interface())
		if id.ptr != 0 {
			if c, ok := s.containers[id]; ok {
				return c
			}
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		if id.ptr != 0 {
			s.containers[id] = out.Interface()
		}
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(s.element(rv.Index(i), rv.Type().Elem()))
		}
		return out.Interface()
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(s.element(rv.Index(i), rv.Type().Elem()))
		}
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return rv.Interface()
		}
		id := identityOf(rv.Interface())
		if c, ok := s.containers[id]; ok {
			return c
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		s.containers[id] = out.Interface()
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() == reflect.String && strings.HasPrefix(k.String(), class.PrivatePrefix) {
				continue
			}
			out.SetMapIndex(k, s.element(iter.Value(), rv.Type().Elem()))
		}
		return out.Interface()
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		if !rv.IsNil() {
			s.log.Debug("host value shared by reference", log.String("type", rv.Type().String()))
		}
		return rv.Interface()
	default:
		return rv.Interface()
	}
}

// element clones one container element and converts it back to the element
// type. Values that clone to nil become the zero element.
func (s *cloneState) element(ev reflect.Value, t reflect.Type) reflect.Value {
	c := s.clone(ev.Interface())
	if c == nil {
		return reflect.Zero(t)
	}
	cv := reflect.ValueOf(c)
	switch {
	case cv.Type().AssignableTo(t):
		return cv
	case cv.Type().ConvertibleTo(t):
		return cv.Convert(t)
	default:
		return reflect.Zero(t)
	}
}

func (s *cloneState) cloneObject(o *class.Object) any {
	if o == nil {
		return nil
	}
	if o.IsAsset() {
		return o
	}
	if !o.IsValid() {
		s.log.Debug("destroyed reference cloned to nil", log.String("class", o.Class().Name()))
		return nil
	}
	return s.copyObject(o)
}

// copyObject allocates the clone of o, records it, then copies fields.
func (s *cloneState) copyObject(o *class.Object) *class.Object {
	if c, ok := s.objects[o]; ok {
		return c
	}
	desc := o.Class()
	c := desc.New(s.ctx)
	s.objects[o] = c

	if desc.Reflective() {
		for _, p := range desc.Props() {
			if a, _ := desc.Attrs(p); !a.Serializable {
				continue
			}
			v, ok := o.Get(p)
			if !ok {
				continue
			}
			c.Assign(p, s.clone(v))
		}
	} else {
		for _, k := range o.Keys() {
			if strings.HasPrefix(k, class.PrivatePrefix) {
				continue
			}
			v, _ := o.Get(k)
			c.Assign(k, s.clone(v))
		}
	}
	c.SetFlags(o.Flags().Persistent())
	return c
}

func (s *cloneState) cloneMap(m map[string]any) any {
	if m == nil {
		return map[string]any(nil)
	}
	id := identityOf(m)
	if c, ok := s.containers[id]; ok {
		return c
	}
	out := make(map[string]any, len(m))
	s.containers[id] = out
	for k, v := range m {
		if strings.HasPrefix(k, class.PrivatePrefix) {
			continue
		}
		out[k] = s.clone(v)
	}
	return out
}

func (s *cloneState) cloneSlice(arr []any) any {
	if arr == nil {
		return []any(nil)
	}
	id := identityOf(arr)
	if id.ptr != 0 {
		if c, ok := s.containers[id]; ok {
			return c
		}
	}
	out := make([]any, len(arr))
	if id.ptr != 0 {
		s.containers[id] = out
	}
	for i, v := range arr {
		out[i] = s.clone(v)
	}
	return out
}

// identity names a reference container of the source graph. Slices are keyed by
// backing array and length so two views of one array stay distinct.
type identity struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

func identityOf(v any) identity {
	rv := reflect.ValueOf(v)
	id := identity{kind: rv.Kind(), ptr: rv.Pointer()}
	if rv.Kind() == reflect.Slice {
		id.len = rv.Len()
		if id.len == 0 {
			id.ptr = 0
		}
	}
	return id
}
