// Package engine bundles a class registry with the deserializer, the
// instantiator and an asset library that share it.
package engine

import (
	"context"
	"os"

	"github.com/zeusync/objgraph/internal/core/assets"
	"github.com/zeusync/objgraph/internal/core/class"
	"github.com/zeusync/objgraph/internal/core/deserialize"
	"github.com/zeusync/objgraph/internal/core/instantiate"
	"github.com/zeusync/objgraph/internal/core/observability/log"
)

type Engine struct {
	log          log.Log
	registry     *class.Registry
	deserializer *deserialize.Deserializer
	instantiator *instantiate.Instantiator
	assets       *assets.Library
	destroyed    *class.DestroyQueue
}

func New(
	logger log.Log,
	registry *class.Registry,
	deserializer *deserialize.Deserializer,
	instantiator *instantiate.Instantiator,
	library *assets.Library,
) *Engine {
	return &Engine{
		log:          log.OrNop(logger).With(log.String("component", "engine")),
		registry:     registry,
		deserializer: deserializer,
		instantiator: instantiator,
		assets:       library,
		destroyed:    class.NewDestroyQueue(),
	}
}

func (e *Engine) Registry() *class.Registry { return e.registry }

func (e *Engine) Assets() *assets.Library { return e.assets }

// Deserialize builds the graph in data. Asset references stay in the result.
func (e *Engine) Deserialize(data []byte) (any, *deserialize.Result, error) {
	return e.deserializer.Deserialize(data)
}

// Load builds the graph in data and fills its asset references from the
// library. Assets that could not be resolved are appended to res.Errors; only
// a fatal deserialize error is returned as err.
func (e *Engine) Load(ctx context.Context, data []byte) (any, *deserialize.Result, error) {
	root, res, err := e.deserializer.Deserialize(data)
	if err != nil {
		return nil, nil, err
	}
	if errs := e.assets.ResolveAll(ctx, res); len(errs) > 0 {
		res.Errors = append(res.Errors, errs...)
		e.log.Warn("unresolved assets", log.Int("count", len(errs)))
	}
	return root, res, nil
}

// LoadFile is Load over the contents of path.
func (e *Engine) LoadFile(ctx context.Context, path string) (any, *deserialize.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return e.Load(ctx, data)
}

// Instantiate returns an independent copy of original.
func (e *Engine) Instantiate(original any) (any, error) {
	return e.instantiator.Instantiate(original)
}

// Destroy marks obj for destruction at the next FlushDestroyed. A stored asset
// leaves the library right away so later loads stop resolving to it.
func (e *Engine) Destroy(obj *class.Object) error {
	if err := e.destroyed.Destroy(obj); err != nil {
		return err
	}
	if id := obj.UUID(); obj.IsAsset() && id != "" {
		if stored, ok := e.assets.Get(id); ok && stored == obj {
			e.assets.Remove(id)
		}
	}
	return nil
}

// FlushDestroyed destroys every object marked since the last flush and returns
// how many there were.
func (e *Engine) FlushDestroyed() int {
	n := e.destroyed.Flush()
	if n > 0 {
		e.log.Debug("objects destroyed", log.Int("count", n))
	}
	return n
}
