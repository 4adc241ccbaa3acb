// Package assets keeps the external assets that serialized graphs reference by
// uuid, and fills the deferred references a deserialize call leaves behind.
package assets

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/zeusync/objgraph/internal/core/class"
	"github.com/zeusync/objgraph/internal/core/deserialize"
	objerrors "github.com/zeusync/objgraph/internal/core/errors"
	"github.com/zeusync/objgraph/internal/core/observability/log"
	"github.com/zeusync/objgraph/pkg/concurrent"
	"github.com/zeusync/objgraph/pkg/sequence"
)

const defaultShards = 16

// Loader fetches an asset the library does not hold yet.
type Loader interface {
	LoadAsset(ctx context.Context, id string) (*class.Object, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id string) (*class.Object, error)

func (f LoaderFunc) LoadAsset(ctx context.Context, id string) (*class.Object, error) {
	return f(ctx, id)
}

type shard struct {
	mx    sync.RWMutex
	items map[string]*class.Object
}

// Library is an in-memory asset store keyed by uuid. It is safe for concurrent use.
type Library struct {
	shards []shard
	loader Loader
	group  singleflight.Group
	limit  int
	log    log.Log
}

var _ deserialize.AssetResolver = (*Library)(nil)

type Option func(*Library)

// WithShards sets the number of lock shards.
func WithShards(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.shards = make([]shard, n)
		}
	}
}

// WithLoader sets the fallback used by Load and ResolveAll for unknown uuids.
func WithLoader(loader Loader) Option {
	return func(l *Library) { l.loader = loader }
}

// WithConcurrency caps the parallel loads ResolveAll starts. Zero is unbounded.
func WithConcurrency(n int) Option {
	return func(l *Library) { l.limit = n }
}

func WithLogger(lg log.Log) Option {
	return func(l *Library) { l.log = log.OrNop(lg) }
}

func New(opts ...Option) *Library {
	l := &Library{
		shards: make([]shard, defaultShards),
		log:    log.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	for i := range l.shards {
		l.shards[i].items = make(map[string]*class.Object)
	}
	return l
}

// NewUUID returns a fresh random asset id.
func NewUUID() string {
	return uuid.NewString()
}

func (l *Library) shardFor(id string) *shard {
	return &l.shards[xxhash.Sum64String(id)%uint64(len(l.shards))]
}

// Add stores asset under id and stamps the id on it. A previous asset with the
// same id is replaced.
func (l *Library) Add(id string, asset *class.Object) error {
	if err := validate(id, asset); err != nil {
		return err
	}
	asset.Assign(class.UUIDKey, id)

	s := l.shardFor(id)
	s.mx.Lock()
	s.items[id] = asset
	s.mx.Unlock()
	return nil
}

// Get returns the asset stored under id.
func (l *Library) Get(id string) (*class.Object, bool) {
	s := l.shardFor(id)
	s.mx.RLock()
	defer s.mx.RUnlock()
	a, ok := s.items[id]
	return a, ok
}

// Remove drops id from the library and reports whether it was present.
func (l *Library) Remove(id string) bool {
	s := l.shardFor(id)
	s.mx.Lock()
	defer s.mx.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// Len returns the number of stored assets.
func (l *Library) Len() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mx.RLock()
		n += len(s.items)
		s.mx.RUnlock()
	}
	return n
}

// ResolveAsset returns a stored asset. It never calls the loader.
func (l *Library) ResolveAsset(id string) (any, bool) {
	a, ok := l.Get(id)
	if !ok {
		return nil, false
	}
	return a, true
}

// Load returns the asset for id, asking the loader when it is not stored.
// Concurrent loads of the same id share one loader call.
func (l *Library) Load(ctx context.Context, id string) (*class.Object, error) {
	if a, ok := l.Get(id); ok {
		return a, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, objerrors.AssetResolution(objerrors.ErrInvalidUUID, "%q", id)
	}
	if l.loader == nil {
		return nil, objerrors.AssetResolution(objerrors.ErrAssetNotFound, "uuid %q", id)
	}

	v, err, shared := l.group.Do(id, func() (any, error) {
		if a, ok := l.Get(id); ok {
			return a, nil
		}
		a, err := l.loader.LoadAsset(ctx, id)
		if err != nil {
			return nil, objerrors.AssetResolution(err, "load %q", id)
		}
		if a == nil {
			return nil, objerrors.AssetResolution(objerrors.ErrAssetNotFound, "uuid %q", id)
		}
		if err = l.Add(id, a); err != nil {
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		l.log.Warn("asset load failed", log.String("uuid", id), log.Error(err))
		return nil, err
	}
	l.log.Debug("asset loaded", log.String("uuid", id), log.Bool("shared", shared))
	return v.(*class.Object), nil
}

// Preload loads every id not stored yet, at most WithConcurrency at a time.
// The first failure cancels the loads still running and is returned.
func (l *Library) Preload(ctx context.Context, ids []string) error {
	pending := sequence.Distinct(sequence.From(ids)).
		Filter(func(id string) bool {
			_, ok := l.Get(id)
			return !ok
		}).
		Collect()
	if len(pending) == 0 {
		return nil
	}

	err := concurrent.Concurrent(ctx, sequence.From(pending), l.limit,
		func(ctx context.Context, id string) error {
			if err := ctx.Err(); err != nil {
				return objerrors.AssetResolution(err, "uuid %q", id)
			}
			_, err := l.Load(ctx, id)
			return err
		})
	if err != nil {
		return err
	}
	l.log.Info("assets preloaded", log.Int("requested", len(ids)), log.Int("loaded", len(pending)))
	return nil
}

// ResolveAll loads every distinct uuid of res concurrently, then assigns the
// entries in order. Each entry that could not be filled yields one error; the
// rest are still assigned. A cancelled context fails the entries not loaded yet.
func (l *Library) ResolveAll(ctx context.Context, res *deserialize.Result) []error {
	if res == nil || res.Len() == 0 {
		return nil
	}

	var (
		mx     sync.Mutex
		loaded = make(map[string]*class.Object, res.Len())
		failed = make(map[string]error)
	)
	concurrent.ParallelMute(ctx, sequence.Distinct(sequence.From(res.UUIDList)), l.limit,
		func(ctx context.Context, id string) error {
			if err := ctx.Err(); err != nil {
				return objerrors.AssetResolution(err, "uuid %q", id)
			}
			a, err := l.Load(ctx, id)
			if err != nil {
				return err
			}
			mx.Lock()
			loaded[id] = a
			mx.Unlock()
			return nil
		},
		func(id string, err error) {
			mx.Lock()
			failed[id] = err
			mx.Unlock()
		})

	var errs []error
	for i, id := range res.UUIDList {
		if a, ok := loaded[id]; ok {
			res.Assign(i, a)
			continue
		}
		err := failed[id]
		if err == nil {
			err = objerrors.AssetResolution(objerrors.ErrAssetNotFound, "uuid %q", id)
		}
		l.log.Warn("asset unresolved", log.String("uuid", id), log.Int("entry", i), log.Error(err))
		errs = append(errs, err)
	}
	l.log.Debug("assets resolved",
		log.Int("entries", res.Len()),
		log.Int("distinct", len(loaded)+len(failed)),
		log.Int("errors", len(errs)))
	return errs
}

func validate(id string, asset *class.Object) error {
	if _, err := uuid.Parse(id); err != nil {
		return objerrors.AssetResolution(objerrors.ErrInvalidUUID, "%q", id)
	}
	if asset == nil || !asset.IsAsset() {
		return objerrors.AssetResolution(objerrors.ErrNotAsset, "uuid %q", id)
	}
	return nil
}
