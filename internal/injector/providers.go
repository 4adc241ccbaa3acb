package injector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeusync/objgraph/internal/config"
	"github.com/zeusync/objgraph/internal/core/assets"
	"github.com/zeusync/objgraph/internal/core/class"
	"github.com/zeusync/objgraph/internal/core/deserialize"
	"github.com/zeusync/objgraph/internal/core/instantiate"
	"github.com/zeusync/objgraph/internal/core/observability/log"
	"github.com/zeusync/objgraph/internal/core/schema"
)

func ProvideLogger(cfg *config.Config) log.Log {
	return log.New(log.ParseLevel(cfg.LogLevel))
}

// ProvideRegistry builds a registry and registers the configured manifests in
// order. Files ending in .json are read as JSON, everything else as YAML.
func ProvideRegistry(cfg *config.Config, logger log.Log) (*class.Registry, error) {
	reg := class.NewRegistry(class.WithLogger(logger))
	for _, path := range cfg.Manifests {
		if err := registerManifest(reg, path); err != nil {
			return nil, err
		}
		logger.Info("manifest registered", log.String("path", path))
	}
	return reg, nil
}

func registerManifest(reg *class.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var m *schema.Manifest
	if strings.EqualFold(filepath.Ext(path), ".json") {
		m, err = schema.LoadJSON(f)
	} else {
		m, err = schema.LoadYAML(f)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err = m.Register(reg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func ProvideDeserializer(cfg *config.Config, reg *class.Registry, logger log.Log) *deserialize.Deserializer {
	return deserialize.New(
		deserialize.WithClassFinder(reg.Finder()),
		deserialize.WithEditorMode(cfg.EditorMode),
		deserialize.WithLogger(logger),
	)
}

func ProvideInstantiator(logger log.Log) *instantiate.Instantiator {
	return instantiate.New(instantiate.WithLogger(logger))
}

func ProvideLibrary(cfg *config.Config, d *deserialize.Deserializer, logger log.Log) *assets.Library {
	opts := []assets.Option{
		assets.WithShards(cfg.Assets.Shards),
		assets.WithConcurrency(cfg.Assets.Concurrency),
		assets.WithLogger(logger),
	}
	if cfg.Assets.Dir != "" {
		opts = append(opts, assets.WithLoader(&assets.DirLoader{Dir: cfg.Assets.Dir, Deserializer: d, Log: logger}))
	}
	return assets.New(opts...)
}
