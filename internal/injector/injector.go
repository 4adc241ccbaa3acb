//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/objgraph/internal/config"
	"github.com/zeusync/objgraph/internal/core/engine"
)

func InitializeEngine(cfg *config.Config) (*engine.Engine, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideDeserializer,
		ProvideInstantiator,
		ProvideLibrary,
		engine.New,
	)
	return nil, nil
}
