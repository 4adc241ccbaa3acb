package deserialize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/objgraph/internal/core/class"
	objerrors "github.com/zeusync/objgraph/internal/core/errors"
	"github.com/zeusync/objgraph/internal/core/observability/log"
)

func nodeRegistry(t *testing.T) (*class.Registry, *class.Descriptor) {
	t.Helper()
	r := class.NewRegistry()
	node, err := r.DefineClass(class.ClassSpec{
		Name: "Node",
		Properties: []class.PropertySpec{
			{Name: "name", Default: ""},
			{Name: "next"},
		},
	})
	require.NoError(t, err)
	return r, node
}

func TestCycleOfThreeNodes(t *testing.T) {
	r, _ := nodeRegistry(t)
	data := `[
		{"__type__":"Node","name":"a","next":{"__id__":1}},
		{"__type__":"Node","name":"b","next":{"__id__":2}},
		{"__type__":"Node","name":"c","next":{"__id__":0}}
	]`

	root, res, err := Deserialize([]byte(data), WithClassFinder(r.Finder()))
	require.NoError(t, err)
	require.NotNil(t, res)

	a := root.(*class.Object)
	b := a.Value("next").(*class.Object)
	c := b.Value("next").(*class.Object)
	assert.Equal(t, "a", a.Value("name"))
	assert.Equal(t, "b", b.Value("name"))
	assert.Equal(t, "c", c.Value("name"))
	assert.Same(t, a, c.Value("next"))
	assert.Zero(t, res.Len())
}

func TestForwardAndSelfReferences(t *testing.T) {
	r, _ := nodeRegistry(t)
	data := `[
		{"__type__":"Node","name":"root","next":{"__id__":2}},
		{"__type__":"Node","name":"self","next":{"__id__":1}},
		{"__type__":"Node","name":"tail","next":null}
	]`

	root, _, err := Deserialize([]byte(data), WithClassFinder(r.Finder()))
	require.NoError(t, err)

	a := root.(*class.Object)
	tail := a.Value("next").(*class.Object)
	assert.Equal(t, "tail", tail.Value("name"))
	assert.Nil(t, tail.Value("next"))
}

func TestNestedContainersAreInlineAndPatched(t *testing.T) {
	r := class.NewRegistry()
	list, err := r.DefineClass(class.ClassSpec{
		Name:       "List",
		Properties: []class.PropertySpec{{Name: "items", Default: []any{}}, {Name: "meta"}},
	})
	require.NoError(t, err)
	_ = list
	_, err = r.DefineClass(class.ClassSpec{Name: "Item", Properties: []class.PropertySpec{{Name: "v", Default: 0.0}}})
	require.NoError(t, err)

	data := `[
		{"__type__":"List",
		 "items":[{"__id__":1}, {"__type__":"Item","v":7}, [1, {"__id__":1}], {"__uuid__":"tex-1"}],
		 "meta":{"owner":{"__id__":0},"later":{"__id__":1},"icon":{"__uuid__":"icon-1"}}},
		{"__type__":"Item","v":3}
	]`
	root, res, err := Deserialize([]byte(data), WithClassFinder(r.Finder()))
	require.NoError(t, err)

	obj := root.(*class.Object)
	items := obj.Value("items").([]any)
	require.Len(t, items, 4)
	second := items[0].(*class.Object)
	assert.Equal(t, 3.0, second.Value("v"))
	assert.Equal(t, 7.0, items[1].(*class.Object).Value("v"))
	assert.Same(t, second, items[2].([]any)[1])
	assert.Nil(t, items[3])

	meta := obj.Value("meta").(map[string]any)
	assert.Same(t, obj, meta["owner"])
	assert.Same(t, second, meta["later"])

	require.Equal(t, 2, res.Len())
	assert.ElementsMatch(t, []string{"tex-1", "icon-1"}, res.UUIDList)

	textures := map[string]any{"tex-1": "TEXTURE", "icon-1": "ICON"}
	errs := res.Resolve(AssetResolverFunc(func(uuid string) (any, bool) {
		v, ok := textures[uuid]
		return v, ok
	}), nil)
	assert.Empty(t, errs)
	assert.Equal(t, "TEXTURE", items[3])
	assert.Equal(t, "ICON", meta["icon"])
}

func TestUUIDReferencesAreDeferredInOrder(t *testing.T) {
	r := class.NewRegistry()
	sprite, _ := r.DefineClass(class.ClassSpec{
		Name:       "Sprite",
		Properties: []class.PropertySpec{{Name: "frame"}, {Name: "material"}},
	})

	root, res, err := Deserialize(
		[]byte(`{"__type__":"Sprite","frame":{"__uuid__":"f-1"},"material":{"__uuid__":"m-1"}}`),
		WithClassFinder(r.Finder()))
	require.NoError(t, err)
	obj := root.(*class.Object)
	assert.Same(t, sprite, obj.Class())
	assert.Nil(t, obj.Value("frame"))

	assert.Equal(t, []string{"f-1", "m-1"}, res.UUIDList)
	assert.Equal(t, []any{obj, obj}, res.UUIDObjList)
	assert.Equal(t, []any{"frame", "material"}, res.UUIDPropList)

	core, logs := observer.New(zapcore.DebugLevel)
	errs := res.Resolve(AssetResolverFunc(func(uuid string) (any, bool) {
		if uuid == "f-1" {
			return "FRAME", true
		}
		return nil, false
	}), log.FromZap(zap.New(core)))
	require.Len(t, errs, 1)
	unresolved := logs.FilterMessage("asset unresolved").All()
	require.Len(t, unresolved, 1)
	assert.Equal(t, "m-1", unresolved[0].ContextMap()["uuid"])
	assert.True(t, objerrors.IsKind(errs[0], objerrors.KindAssetResolution))
	assert.True(t, errors.Is(errs[0], objerrors.ErrAssetNotFound))
	assert.Equal(t, "FRAME", obj.Value("frame"))
	assert.Nil(t, obj.Value("material"))
}

func TestEditorOnlyDependsOnMode(t *testing.T) {
	r := class.NewRegistry()
	_, err := r.DefineClass(class.ClassSpec{
		Name: "Widget",
		Properties: []class.PropertySpec{
			{Name: "label", Default: ""},
			{Name: "gizmo", Default: "none", Attributes: []class.Attribute{class.EditorOnlyAttr()}},
		},
	})
	require.NoError(t, err)
	data := []byte(`{"__type__":"Widget","label":"ok","gizmo":"arrow"}`)

	root, _, err := Deserialize(data, WithClassFinder(r.Finder()), WithEditorMode(true))
	require.NoError(t, err)
	assert.Equal(t, "arrow", root.(*class.Object).Value("gizmo"))

	root, _, err = Deserialize(data, WithClassFinder(r.Finder()), WithEditorMode(false))
	require.NoError(t, err)
	obj := root.(*class.Object)
	_, ok := obj.Get("gizmo")
	assert.False(t, ok, "editorOnly property is absent outside editor mode")
	assert.NotContains(t, obj.Keys(), "gizmo")
	assert.Equal(t, "ok", obj.Value("label"))
}

func TestNonSerializableAndUndeclaredKeysIgnored(t *testing.T) {
	r := class.NewRegistry()
	_, _ = r.DefineClass(class.ClassSpec{
		Name: "Cache",
		Properties: []class.PropertySpec{
			{Name: "hits", Default: 0.0, Attributes: []class.Attribute{class.Serializable(false)}},
			{Name: "size", Default: 1.0},
		},
	})

	root, _, err := Deserialize([]byte(`{"__type__":"Cache","hits":9,"size":4,"junk":true}`), WithClassFinder(r.Finder()))
	require.NoError(t, err)
	obj := root.(*class.Object)
	assert.Equal(t, 0.0, obj.Value("hits"))
	assert.Equal(t, 4.0, obj.Value("size"))
	_, ok := obj.Get("junk")
	assert.False(t, ok)
}

func TestHostTypeReadsEveryKey(t *testing.T) {
	r := class.NewRegistry()
	_, _ = r.Define("Blob", class.AsHostType())

	root, _, err := Deserialize([]byte(`[{"__type__":"Blob","b":1,"a":{"__id__":1}},{"x":2}]`), WithClassFinder(r.Finder()))
	require.NoError(t, err)
	obj := root.(*class.Object)
	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	assert.Equal(t, map[string]any{"x": 2.0}, obj.Value("a"))
}

func TestUnknownTypeIsFatal(t *testing.T) {
	r, _ := nodeRegistry(t)
	core, logs := observer.New(zapcore.DebugLevel)

	root, res, err := Deserialize(
		[]byte(`[{"__type__":"Node","next":{"__id__":1}},{"__type__":"Ghost"}]`),
		WithClassFinder(r.Finder()),
		WithLogger(log.FromZap(zap.New(core))))
	require.Error(t, err)
	assert.Nil(t, root)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, objerrors.ErrUnknownType))
	assert.True(t, objerrors.IsKind(err, objerrors.KindDeserialize))
	assert.Contains(t, err.Error(), "Ghost")
	assert.Equal(t, 1, logs.FilterMessage("deserialize failed").Len())
}

func TestInvalidReferenceIsFatal(t *testing.T) {
	r, _ := nodeRegistry(t)
	for _, data := range []string{
		`{"__type__":"Node","next":{"__id__":5}}`,
		`{"__type__":"Node","next":{"__id__":0.5}}`,
		`{"__type__":"Node","next":{"__id__":"0"}}`,
	} {
		_, _, err := Deserialize([]byte(data), WithClassFinder(r.Finder()))
		assert.True(t, errors.Is(err, objerrors.ErrInvalidReference), data)
	}
}

func TestMalformedInput(t *testing.T) {
	_, _, err := Deserialize([]byte(`{`))
	assert.True(t, errors.Is(err, objerrors.ErrMalformedInput))

	_, _, err = New().DeserializeValue("scalar")
	assert.True(t, errors.Is(err, objerrors.ErrMalformedInput))

	root, res, err := Deserialize([]byte(`[]`))
	require.NoError(t, err)
	assert.Nil(t, root)
	assert.Zero(t, res.Len())
}

func TestRawPropertyRecordedOnceAndDuplicateReported(t *testing.T) {
	r := class.NewRegistry()
	tex, err := r.Define("Texture", class.Extends(r.AssetRoot()))
	require.NoError(t, err)
	_, err = tex.Property("image", nil, class.RawType("image"))
	require.NoError(t, err)
	_, err = tex.Property("width", 0.0)
	require.NoError(t, err)

	root, res, err := Deserialize([]byte(`{"__type__":"Texture","image":"ignored","width":64,"__ext__":".png"}`),
		WithClassFinder(r.Finder()))
	require.NoError(t, err)
	obj := root.(*class.Object)
	assert.Equal(t, "image", res.RawProp)
	assert.Nil(t, obj.Value("image"))
	assert.Equal(t, ".png", obj.Value(class.ExtNameKey))
	assert.Equal(t, 64.0, obj.Value("width"))
	assert.Empty(t, res.Errors)

	root, res, err = Deserialize([]byte(`[{"__type__":"Texture","width":1},{"__type__":"Texture","width":2}]`),
		WithClassFinder(r.Finder()))
	require.NoError(t, err, "a duplicate raw payload is not fatal")
	require.NotNil(t, root)
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], objerrors.ErrDuplicateRaw))
	assert.Equal(t, 1.0, root.(*class.Object).Value("width"))
}

func TestCustomDeserializeHook(t *testing.T) {
	r := class.NewRegistry()
	_, err := r.Define("Vec2", class.WithDeserializer(func(obj *class.Object, data map[string]any, ctx class.Context) error {
		xy, ok := data["xy"].([]any)
		if !ok || len(xy) != 2 {
			return errors.New("want xy pair")
		}
		assert.True(t, ctx.Deserializing)
		obj.Assign("x", xy[0])
		obj.Assign("y", xy[1])
		return nil
	}))
	require.NoError(t, err)

	root, _, err := Deserialize([]byte(`{"__type__":"Vec2","xy":[3,4]}`), WithClassFinder(r.Finder()))
	require.NoError(t, err)
	assert.Equal(t, 4.0, root.(*class.Object).Value("y"))

	_, _, err = Deserialize([]byte(`{"__type__":"Vec2"}`), WithClassFinder(r.Finder()))
	assert.True(t, objerrors.IsKind(err, objerrors.KindDeserialize))
}

func TestClassLookupByID(t *testing.T) {
	r := class.NewRegistry()
	d, _ := r.Define("cc.LongClassName", class.WithID("0a1b2"))

	root, _, err := Deserialize([]byte(`{"__type__":"0a1b2"}`), WithClassFinder(r.Finder()))
	require.NoError(t, err)
	assert.Same(t, d, root.(*class.Object).Class())
}

func TestLifecycleFieldsRead(t *testing.T) {
	r := class.NewRegistry()
	_, _ = r.Define("Entity", class.Extends(r.ObjectRoot()))

	root, _, err := Deserialize([]byte(`{"__type__":"Entity","_name":"hero","_objFlags":32}`), WithClassFinder(r.Finder()))
	require.NoError(t, err)
	obj := root.(*class.Object)
	assert.Equal(t, "hero", obj.Name())
	assert.Equal(t, class.Dirty, obj.Flags())
}

// serialize is a minimal writer of the wire format used to check round trips.
// Every *class.Object becomes its own node; assets become uuid references.
func serialize(root *class.Object) []byte {
	var nodes []any
	index := map[*class.Object]int{}
	var enc func(v any) any
	var encObj func(o *class.Object) int
	encObj = func(o *class.Object) int {
		if i, ok := index[o]; ok {
			return i
		}
		i := len(nodes)
		index[o] = i
		nodes = append(nodes, nil)
		node := map[string]any{TypeTag: o.Class().Name()}
		for _, p := range o.Class().Props() {
			if a, _ := o.Class().Attrs(p); a.Serializable {
				node[p] = enc(o.Value(p))
			}
		}
		nodes[i] = node
		return i
	}
	enc = func(v any) any {
		switch val := v.(type) {
		case *class.Object:
			if val.IsAsset() {
				return map[string]any{UUIDTag: val.UUID()}
			}
			return map[string]any{IDTag: encObj(val)}
		case []any:
			out := make([]any, len(val))
			for i, item := range val {
				out[i] = enc(item)
			}
			return out
		case map[string]any:
			out := make(map[string]any, len(val))
			for k, item := range val {
				out[k] = enc(item)
			}
			return out
		default:
			return v
		}
	}
	encObj(root)
	data, _ := json.Marshal(nodes)
	return data
}

func TestRoundTripPreservesDeclaredProperties(t *testing.T) {
	r := class.NewRegistry()
	tex, _ := r.Define("Texture", class.Extends(r.AssetRoot()))
	part, _ := r.DefineClass(class.ClassSpec{
		Name:    "Part",
		Extends: r.ObjectRoot(),
		Properties: []class.PropertySpec{
			{Name: "hp", Default: 1.0},
			{Name: "tags", Default: []any{}},
			{Name: "child"},
			{Name: "skin"},
			{Name: "stats", Default: map[string]any{}},
			{Name: "cached", Default: "", Attributes: []class.Attribute{class.Serializable(false)}},
		},
	})

	skin := tex.New(class.Context{})
	skin.Assign(class.UUIDKey, "skin-uuid")
	leaf := part.New(class.Context{})
	leaf.Assign("hp", 2.0)
	root := part.New(class.Context{})
	root.SetName("root")
	root.Assign("hp", 5.0)
	root.Assign("tags", []any{"x", 1.0, true})
	root.Assign("child", leaf)
	root.Assign("skin", skin)
	root.Assign("stats", map[string]any{"str": 3.0, "nested": []any{leaf}})
	root.Assign("cached", "not written")

	data := serialize(root)
	require.False(t, strings.Contains(string(data), "not written"))

	out, res, err := Deserialize(data, WithClassFinder(r.Finder()))
	require.NoError(t, err)
	copied := out.(*class.Object)

	assert.Equal(t, "root", copied.Name())
	assert.Equal(t, 5.0, copied.Value("hp"))
	assert.Equal(t, []any{"x", 1.0, true}, copied.Value("tags"))
	copiedLeaf := copied.Value("child").(*class.Object)
	assert.Equal(t, 2.0, copiedLeaf.Value("hp"))
	stats := copied.Value("stats").(map[string]any)
	assert.Equal(t, 3.0, stats["str"])
	assert.Same(t, copiedLeaf, stats["nested"].([]any)[0])
	assert.Equal(t, "", copied.Value("cached"))
	assert.Equal(t, []string{"skin-uuid"}, res.UUIDList)

	res.Resolve(AssetResolverFunc(func(string) (any, bool) { return skin, true }), nil)
	assert.Same(t, skin, copied.Value("skin"))
}
