package class

import (
	"sort"
	"sync"

	objerrors "github.com/zeusync/objgraph/internal/core/errors"
	"github.com/zeusync/objgraph/internal/core/observability/log"
)

// Built-in class names and the properties they declare.
const (
	ObjectClassName = "Object"
	AssetClassName  = "Asset"

	NameKey  = "_name"
	FlagsKey = "_objFlags"
	UUIDKey  = "_uuid"
)

// ClassFinder resolves a type tag to a descriptor.
type ClassFinder func(idOrName string) (*Descriptor, bool)

// Registry maps class names and ids to descriptors. Every registry owns the
// built-in Object root and the Asset root derived from it.
type Registry struct {
	mu         sync.RWMutex
	byName     map[string]*Descriptor
	byID       map[string]*Descriptor
	objectRoot *Descriptor
	assetRoot  *Descriptor
	log        log.Log
}

type RegistryOption func(*Registry)

// WithLogger sets the logger registration failures are reported to.
func WithLogger(l log.Log) RegistryOption {
	return func(r *Registry) { r.log = log.OrNop(l) }
}

// NewRegistry returns a registry holding only the built-in roots.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName: make(map[string]*Descriptor),
		byID:   make(map[string]*Descriptor),
		log:    log.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.objectRoot = r.mustDefine(ObjectClassName)
	r.mustProperty(r.objectRoot, NameKey, "")
	r.mustProperty(r.objectRoot, FlagsKey, float64(0))

	r.assetRoot = r.mustDefine(AssetClassName, Extends(r.objectRoot))
	r.mustProperty(r.assetRoot, UUIDKey, "", Serializable(false), HideInInspector())

	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() { defaultRegistry = NewRegistry(WithLogger(log.Provide())) })
	return defaultRegistry
}

func (r *Registry) mustDefine(name string, opts ...DefineOption) *Descriptor {
	d, err := r.Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (r *Registry) mustProperty(d *Descriptor, prop string, def any, attrs ...Attribute) {
	if _, err := d.Property(prop, def, attrs...); err != nil {
		panic(err)
	}
}

// ObjectRoot returns the built-in lifecycle-aware root class.
func (r *Registry) ObjectRoot() *Descriptor {
	return r.objectRoot
}

// AssetRoot returns the built-in asset root class.
func (r *Registry) AssetRoot() *Descriptor {
	return r.assetRoot
}

type defineConfig struct {
	id          string
	super       *Descriptor
	ctor        CtorHook
	deserialize DeserializeHook
	host        bool
}

type DefineOption func(*defineConfig)

func Extends(super *Descriptor) DefineOption {
	return func(c *defineConfig) { c.super = super }
}

func WithID(id string) DefineOption {
	return func(c *defineConfig) { c.id = id }
}

func WithCtor(hook CtorHook) DefineOption {
	return func(c *defineConfig) { c.ctor = hook }
}

func WithDeserializer(hook DeserializeHook) DefineOption {
	return func(c *defineConfig) { c.deserialize = hook }
}

// AsHostType defines a non-reflective class whose instances accept any key.
func AsHostType() DefineOption {
	return func(c *defineConfig) { c.host = true }
}

// Define registers a new class. The name and id must not be taken.
func (r *Registry) Define(name string, opts ...DefineOption) (*Descriptor, error) {
	cfg := defineConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if name == "" {
		return nil, objerrors.Registration(objerrors.ErrInvalidClassName, "empty class name")
	}
	if cfg.id == "" {
		cfg.id = name
	}
	if cfg.super != nil && cfg.super.registry != r {
		return nil, objerrors.Registration(objerrors.ErrUnknownSuperclass, "%s extends %s from another registry", name, cfg.super.name)
	}

	d := &Descriptor{
		registry:    r,
		name:        name,
		id:          cfg.id,
		super:       cfg.super,
		attrs:       make(map[string]*Attributes),
		ctor:        cfg.ctor,
		deserialize: cfg.deserialize,
		reflective:  !cfg.host,
	}
	if cfg.super != nil {
		d.props = append([]string(nil), cfg.super.props...)
		for p, a := range cfg.super.attrs {
			d.attrs[p] = a.clone()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if other, ok := r.lookup(name); ok && other != d {
		err := objerrors.Registration(objerrors.ErrClassExists, "name %q", name)
		r.log.Error("class rejected", log.String("class", name), log.Error(err))
		return nil, err
	}
	if other, ok := r.lookup(cfg.id); ok && other != d {
		err := objerrors.Registration(objerrors.ErrClassExists, "id %q", cfg.id)
		r.log.Error("class rejected", log.String("class", name), log.Error(err))
		return nil, err
	}
	r.byName[name] = d
	r.byID[cfg.id] = d
	r.log.Debug("class defined", log.String("class", name), log.String("id", cfg.id))
	return d, nil
}

// PropertySpec is one entry of a ClassSpec.
type PropertySpec struct {
	Name       string
	Default    any
	Attributes []Attribute
}

// ClassSpec is the declarative form of Define followed by Property calls.
type ClassSpec struct {
	Name       string
	ID         string
	Extends    *Descriptor
	Ctor       CtorHook
	Host       bool
	Properties []PropertySpec
}

// DefineClass registers spec. If any property fails, the class is unregistered
// and the error returned.
func (r *Registry) DefineClass(spec ClassSpec) (*Descriptor, error) {
	opts := []DefineOption{WithID(spec.ID), Extends(spec.Extends), WithCtor(spec.Ctor)}
	if spec.Host {
		opts = append(opts, AsHostType())
	}
	d, err := r.Define(spec.Name, opts...)
	if err != nil {
		return nil, err
	}
	for _, p := range spec.Properties {
		if _, err = d.Property(p.Name, p.Default, p.Attributes...); err != nil {
			r.Unregister(d)
			return nil, err
		}
	}
	return d, nil
}

// Unregister removes d. Built-in roots cannot be removed.
func (r *Registry) Unregister(d *Descriptor) bool {
	if d == nil || d == r.objectRoot || d == r.assetRoot {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := false
	if r.byName[d.name] == d {
		delete(r.byName, d.name)
		removed = true
	}
	if r.byID[d.id] == d {
		delete(r.byID, d.id)
		removed = true
	}
	return removed
}

// Resolve looks idOrName up, ids first. Matching is case-sensitive.
func (r *Registry) Resolve(idOrName string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(idOrName)
}

func (r *Registry) lookup(idOrName string) (*Descriptor, bool) {
	if d, ok := r.byID[idOrName]; ok {
		return d, true
	}
	d, ok := r.byName[idOrName]
	return d, ok
}

// Finder returns Resolve as a ClassFinder.
func (r *Registry) Finder() ClassFinder {
	return r.Resolve
}

// Names returns the sorted class names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
