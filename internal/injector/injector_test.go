package injector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/objgraph/internal/config"
	"github.com/zeusync/objgraph/internal/core/class"
)

func TestInitializeEngineFromConfig(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "classes.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
classes:
  - name: Texture
    extends: Asset
  - name: Sprite
    extends: Object
    properties:
      - name: texture
`), 0o600))

	assetDir := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(assetDir, 0o700))
	id := "6f1c1c7e-8d0f-4a55-9a53-2a8f0d1e7b10"
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, id+".json"),
		[]byte(`{"__type__":"Texture","_name":"stone"}`), 0o600))

	cfg := config.Default()
	cfg.LogLevel = "silent"
	cfg.Manifests = []string{manifest}
	cfg.Assets.Dir = assetDir

	e, err := InitializeEngine(&cfg)
	require.NoError(t, err)
	assert.Contains(t, e.Registry().Names(), "Sprite")

	root, res, err := e.Load(context.Background(), []byte(`{"__type__":"Sprite","texture":{"__uuid__":"`+id+`"}}`))
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	tex := root.(*class.Object).Value("texture").(*class.Object)
	assert.Equal(t, "stone", tex.Name())
	assert.Equal(t, id, tex.UUID())
}

func TestInitializeEngineBadManifest(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "silent"
	cfg.Manifests = []string{filepath.Join(t.TempDir(), "missing.yaml")}

	_, err := InitializeEngine(&cfg)
	assert.Error(t, err)
}
