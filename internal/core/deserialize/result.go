package deserialize

import (
	"github.com/zeusync/objgraph/internal/core/class"
	objerrors "github.com/zeusync/objgraph/internal/core/errors"
	"github.com/zeusync/objgraph/internal/core/observability/log"
)

// AssetResolver looks an external asset up by uuid.
type AssetResolver interface {
	ResolveAsset(uuid string) (any, bool)
}

// AssetResolverFunc adapts a function to AssetResolver.
type AssetResolverFunc func(uuid string) (any, bool)

func (f AssetResolverFunc) ResolveAsset(uuid string) (any, bool) {
	return f(uuid)
}

// Result collects what a deserialize call could not resolve by itself.
//
// UUIDList, UUIDObjList and UUIDPropList are parallel: entry i says that the
// member UUIDPropList[i] of container UUIDObjList[i] must receive the asset
// UUIDList[i]. Containers are *class.Object, map[string]any or []any; members are
// property names for the first two and int indices for slices.
type Result struct {
	UUIDList     []string
	UUIDObjList  []any
	UUIDPropList []any

	// RawProp names the raw payload property found in the file, if any.
	RawProp string

	// Errors holds the non-fatal problems met during the call.
	Errors []error
}

// Push records a deferred asset reference.
func (r *Result) Push(uuid string, owner any, key any) {
	r.UUIDList = append(r.UUIDList, uuid)
	r.UUIDObjList = append(r.UUIDObjList, owner)
	r.UUIDPropList = append(r.UUIDPropList, key)
}

// Len returns the number of deferred asset references.
func (r *Result) Len() int {
	return len(r.UUIDList)
}

// Assign stores value into the member referenced by entry i.
func (r *Result) Assign(i int, value any) {
	setMember(r.UUIDObjList[i], r.UUIDPropList[i], value)
}

// Resolve looks every entry up through resolver and assigns the assets found.
// A missing asset yields one AssetResolution error for that entry, logged to
// logger (which may be nil); the other entries are still assigned.
func (r *Result) Resolve(resolver AssetResolver, logger log.Log) []error {
	logger = log.OrNop(logger)
	var errs []error
	for i, uuid := range r.UUIDList {
		asset, ok := resolver.ResolveAsset(uuid)
		if !ok || asset == nil {
			err := objerrors.AssetResolution(objerrors.ErrAssetNotFound, "uuid %q", uuid)
			logger.Warn("asset unresolved", log.String("uuid", uuid), log.Int("entry", i), log.Error(err))
			errs = append(errs, err)
			continue
		}
		r.Assign(i, asset)
	}
	return errs
}

// setMember writes value into owner[key].
func setMember(owner any, key any, value any) {
	switch o := owner.(type) {
	case *class.Object:
		if k, ok := key.(string); ok {
			o.Assign(k, value)
		}
	case map[string]any:
		if k, ok := key.(string); ok {
			o[k] = value
		}
	case []any:
		if i, ok := key.(int); ok && i >= 0 && i < len(o) {
			o[i] = value
		}
	}
}
