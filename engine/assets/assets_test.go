package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-xr/engine/systems"
)

func spirv() []byte {
	code := make([]byte, 24)
	binary.LittleEndian.PutUint32(code, 0x07230203)
	return code
}

func newAssetRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shaders"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "materials"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", "unlit.vert.spv"), spirv(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "materials", "cube.amt"), []byte(`shader = "unlit"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("not an asset"), 0o644))
	return root
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]metadata.ResourceType{
		"a/b.spv":   metadata.ResourceTypeShader,
		"rock.ASTC": metadata.ResourceTypeAstc,
		"sky.jpeg":  metadata.ResourceTypeImage,
		"sky.webp":  metadata.ResourceTypeImage,
		"m.amt":     metadata.ResourceTypeMaterial,
		"ui.fnt":    metadata.ResourceTypeBitmapFont,
		"ui.otf":    metadata.ResourceTypeSystemFont,
		"blob.bin":  metadata.ResourceTypeBinary,
		"notes.txt": metadata.ResourceTypeNone,
	}
	for path, want := range tests {
		assert.Equal(t, want, determineAssetType(path), path)
	}
}

func TestAssetManagerLoad(t *testing.T) {
	am, err := NewAssetManager(newAssetRoot(t), false, nil)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	defer am.Shutdown()

	assert.Equal(t, []string{"materials/cube.amt", "shaders/unlit.vert.spv"}, am.Assets())

	info, ok := am.Asset("shaders/unlit.vert.spv")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeShader, info.Type)
	assert.True(t, info.LastLoaded.IsZero())

	res, err := am.Load("shaders/unlit.vert.spv", nil)
	require.NoError(t, err)
	assert.Equal(t, spirv(), res.Data)
	info, _ = am.Asset("shaders/unlit.vert.spv")
	assert.False(t, info.LastLoaded.IsZero())

	require.NoError(t, am.Unload(res))
	assert.Nil(t, res.Data)

	_, err = am.Load("README.md", nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedAsset)
	_, err = am.Load("../secret.spv", nil)
	assert.Error(t, err)
	_, err = am.Load("shaders/missing.spv", nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = am.LoadAsync("shaders/unlit.vert.spv", nil, nil, nil)
	assert.Error(t, err, "no job system")
}

func TestAssetManagerMissingRoot(t *testing.T) {
	am, err := NewAssetManager(filepath.Join(t.TempDir(), "nope"), false, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, am.Initialize(), os.ErrNotExist)
}

func TestAssetManagerLoadAsync(t *testing.T) {
	jobs, err := systems.NewJobSystem(2, 4)
	require.NoError(t, err)
	defer jobs.Shutdown()

	am, err := NewAssetManager(newAssetRoot(t), false, jobs)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	defer am.Shutdown()

	var loaded *metadata.Resource
	var failed error
	require.NoError(t, am.LoadAsync("materials/cube.amt", nil, func(r *metadata.Resource) { loaded = r }, nil))
	require.NoError(t, am.LoadAsync("materials/gone.amt", nil, nil, func(err error) { failed = err }))

	require.Eventually(t, func() bool {
		jobs.Update()
		return jobs.Pending() == 0
	}, 5*time.Second, time.Millisecond)

	require.NotNil(t, loaded)
	assert.Equal(t, "unlit", loaded.Data.(*metadata.MaterialConfig).Shader)
	assert.ErrorIs(t, failed, os.ErrNotExist)
}

func TestAssetManagerHotReload(t *testing.T) {
	core.EventInitialize()
	root := newAssetRoot(t)
	am, err := NewAssetManager(root, true, nil)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())

	var mu sync.Mutex
	seen := map[string]bool{}
	listener := new(int)
	require.True(t, core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, listener, func(ctx core.EventContext, l interface{}) bool {
		mu.Lock()
		defer mu.Unlock()
		seen[ctx.Data.(*core.AssetEvent).Path] = true
		return false
	}))
	defer core.EventUnregister(core.EVENT_CODE_ASSET_CHANGED, listener)

	require.NoError(t, os.WriteFile(filepath.Join(root, "materials", "cube.amt"), []byte(`shader = "lit"`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))

	require.Eventually(t, func() bool {
		am.Update()
		mu.Lock()
		defer mu.Unlock()
		return seen["materials/cube.amt"]
	}, 5*time.Second, 5*time.Millisecond)

	// New directories are watched too.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(root, "textures", "blob.bin"), []byte{1}, 0o644)
		am.Update()
		mu.Lock()
		defer mu.Unlock()
		return seen["textures/blob.bin"]
	}, 5*time.Second, 20*time.Millisecond)

	_, ok := am.Asset("textures/blob.bin")
	assert.True(t, ok)
	assert.False(t, seen["README.md"])

	require.NoError(t, am.Shutdown())
	assert.ErrorIs(t, am.Shutdown(), ErrAssetManagerClosed)
}
