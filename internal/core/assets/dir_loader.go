package assets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeusync/objgraph/internal/core/class"
	"github.com/zeusync/objgraph/internal/core/deserialize"
	objerrors "github.com/zeusync/objgraph/internal/core/errors"
	"github.com/zeusync/objgraph/internal/core/observability/log"
)

// DirLoader loads assets from <Dir>/<uuid>.json files in the tagged JSON
// format. The root of each file must be an asset object. Asset references
// inside a loaded asset are left unresolved.
type DirLoader struct {
	Dir          string
	Deserializer *deserialize.Deserializer
	Log          log.Log
}

var _ Loader = (*DirLoader)(nil)

func (l *DirLoader) LoadAsset(ctx context.Context, id string) (*class.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(l.Dir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	root, res, err := l.Deserializer.Deserialize(data)
	if err != nil {
		return nil, err
	}
	obj, ok := root.(*class.Object)
	if !ok || !obj.IsAsset() {
		return nil, objerrors.ErrNotAsset
	}
	if res.Len() > 0 {
		log.OrNop(l.Log).Warn("nested asset references left unresolved",
			log.String("uuid", id), log.Strings("refs", res.UUIDList))
	}
	return obj, nil
}
