// Package deserialize builds live object graphs from the tagged JSON format.
//
// A payload is either one node or an array of nodes where index 0 is the root.
// Nodes reference each other with {"__id__": N} and external assets with
// {"__uuid__": "..."}. Intra-graph references to nodes that are not built yet
// are queued and patched once every node exists, which is what makes forward
// references and cycles resolve without recursion. Asset references are never
// resolved here; they are returned in the Result for the host to fill.
package deserialize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/zeusync/objgraph/internal/core/class"
	objerrors "github.com/zeusync/objgraph/internal/core/errors"
	"github.com/zeusync/objgraph/internal/core/observability/log"
)

// Wire markers.
const (
	TypeTag = "__type__"
	IDTag   = "__id__"
	UUIDTag = "__uuid__"
)

type Deserializer struct {
	finder     class.ClassFinder
	editorMode bool
	log        log.Log
}

type Option func(*Deserializer)

// WithClassFinder replaces the default registry lookup.
func WithClassFinder(finder class.ClassFinder) Option {
	return func(d *Deserializer) { d.finder = finder }
}

// WithEditorMode controls whether editorOnly properties are read.
func WithEditorMode(editor bool) Option {
	return func(d *Deserializer) { d.editorMode = editor }
}

func WithLogger(l log.Log) Option {
	return func(d *Deserializer) { d.log = log.OrNop(l) }
}

func New(opts ...Option) *Deserializer {
	d := &Deserializer{log: log.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.finder == nil {
		d.finder = class.Default().Finder()
	}
	return d
}

// Deserialize parses data and builds the graph it describes.
func Deserialize(data []byte, opts ...Option) (any, *Result, error) {
	return New(opts...).Deserialize(data)
}

// Deserialize parses data and builds the graph it describes. On a fatal error
// the root and result are nil.
func (d *Deserializer) Deserialize(data []byte) (any, *Result, error) {
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		err = objerrors.Deserialize(objerrors.ErrMalformedInput, "%v", err)
		d.log.Error("deserialize failed", log.Error(err))
		return nil, nil, err
	}
	return d.DeserializeValue(input)
}

// DeserializeValue builds the graph described by an already decoded JSON value.
func (d *Deserializer) DeserializeValue(input any) (any, *Result, error) {
	var nodes []any
	switch v := input.(type) {
	case []any:
		nodes = v
	case map[string]any:
		nodes = []any{v}
	default:
		err := objerrors.Deserialize(objerrors.ErrMalformedInput, "root must be an object or an array, got %T", input)
		d.log.Error("deserialize failed", log.Error(err))
		return nil, nil, err
	}

	s := &state{
		d:      d,
		nodes:  nodes,
		objs:   make([]any, len(nodes)),
		built:  make([]bool, len(nodes)),
		result: &Result{},
		ctx:    class.Context{Deserializing: true, EditorMode: d.editorMode},
	}
	if len(nodes) == 0 {
		return nil, s.result, nil
	}

	for i := range nodes {
		if err := s.buildNode(i); err != nil {
			d.log.Error("deserialize failed", log.Int("node", i), log.Error(err))
			return nil, nil, err
		}
	}
	for _, p := range s.patches {
		setMember(p.owner, p.key, s.objs[p.id])
	}

	d.log.Debug("deserialized",
		log.Int("nodes", len(nodes)),
		log.Int("patches", len(s.patches)),
		log.Int("uuids", s.result.Len()),
		log.String("rawProp", s.result.RawProp))
	return s.objs[0], s.result, nil
}

// patch is a reference to a node that was not built when it was read.
type patch struct {
	owner any
	key   any
	id    int
}

type state struct {
	d       *Deserializer
	nodes   []any
	objs    []any
	built   []bool
	patches []patch
	result  *Result
	ctx     class.Context
}

// buildNode constructs node i. The container is published in the resolved table
// before any field is read so self references resolve immediately.
func (s *state) buildNode(i int) error {
	switch n := s.nodes[i].(type) {
	case map[string]any:
		if tag, ok := n[TypeTag]; ok {
			obj, err := s.newInstance(tag)
			if err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			s.publish(i, obj)
			return s.readObject(obj, n)
		}
		m := make(map[string]any, len(n))
		s.publish(i, m)
		return s.readMap(m, n)
	case []any:
		arr := make([]any, len(n))
		s.publish(i, arr)
		return s.readArray(arr, n)
	default:
		s.publish(i, n)
		return nil
	}
}

func (s *state) publish(i int, v any) {
	s.objs[i] = v
	s.built[i] = true
}

func (s *state) newInstance(tag any) (*class.Object, error) {
	name, _ := tag.(string)
	desc, ok := s.d.finder(name)
	if !ok || desc == nil {
		return nil, objerrors.Deserialize(objerrors.ErrUnknownType, "%q", name)
	}
	return desc.New(s.ctx), nil
}

// value classifies a JSON value read for owner[key] and returns what to store.
// References that cannot be resolved yet return nil and are recorded.
func (s *state) value(owner any, key any, v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if u, ok := val[UUIDTag]; ok {
			uuid, _ := u.(string)
			s.result.Push(uuid, owner, key)
			return nil, nil
		}
		if ref, ok := val[IDTag]; ok {
			id, ok := toIndex(ref)
			if !ok || id < 0 || id >= len(s.objs) {
				return nil, objerrors.Deserialize(objerrors.ErrInvalidReference, "%v", ref)
			}
			if s.built[id] {
				return s.objs[id], nil
			}
			s.patches = append(s.patches, patch{owner: owner, key: key, id: id})
			return nil, nil
		}
		if tag, ok := val[TypeTag]; ok {
			obj, err := s.newInstance(tag)
			if err != nil {
				return nil, err
			}
			return obj, s.readObject(obj, val)
		}
		m := make(map[string]any, len(val))
		return m, s.readMap(m, val)
	case []any:
		arr := make([]any, len(val))
		return arr, s.readArray(arr, val)
	default:
		return v, nil
	}
}

func (s *state) readMap(dst, src map[string]any) error {
	for _, k := range sortedKeys(src) {
		v, err := s.value(dst, k, src[k])
		if err != nil {
			return err
		}
		dst[k] = v
	}
	return nil
}

func (s *state) readArray(dst, src []any) error {
	for i, item := range src {
		v, err := s.value(dst, i, item)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

// readObject fills obj from data. Reflective classes read their declared
// properties only; host types take every key but the type tag.
func (s *state) readObject(obj *class.Object, data map[string]any) error {
	desc := obj.Class()
	if hook := desc.DeserializeHook(); hook != nil {
		if err := hook(obj, data, s.ctx); err != nil {
			return objerrors.Deserialize(err, "%s", desc.Name())
		}
		return nil
	}

	if !desc.Reflective() {
		for _, k := range sortedKeys(data) {
			if k == TypeTag {
				continue
			}
			v, err := s.value(obj, k, data[k])
			if err != nil {
				return err
			}
			obj.Assign(k, v)
		}
		return nil
	}

	for _, prop := range desc.Props() {
		attrs, _ := desc.Attrs(prop)
		if !attrs.Serializable {
			continue
		}
		if attrs.EditorOnly && !s.ctx.EditorMode {
			continue
		}
		if attrs.RawType != "" {
			s.rawProp(desc, prop)
			continue
		}
		raw, ok := data[prop]
		if !ok {
			continue
		}
		v, err := s.value(obj, prop, raw)
		if err != nil {
			return err
		}
		obj.Assign(prop, v)
	}
	return nil
}

// rawProp records the raw payload property. A file carries at most one; a second
// one is reported and otherwise ignored.
func (s *state) rawProp(desc *class.Descriptor, prop string) {
	if s.result.RawProp != "" {
		err := objerrors.Deserialize(objerrors.ErrDuplicateRaw, "%s.%s, already have %q", desc.Name(), prop, s.result.RawProp)
		s.result.Errors = append(s.result.Errors, err)
		s.d.log.Error("duplicate raw payload", log.String("class", desc.Name()), log.Error(err))
		return
	}
	s.result.RawProp = prop
}

func toIndex(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
