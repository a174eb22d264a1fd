package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-xr/engine/assets/loaders"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-xr/engine/systems"
)

var ErrAssetManagerClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/**
 * @brief Indexes the files below a root directory and loads them with the
 * loader registered for their extension. With hot reload on, file changes
 * are collected by a watcher goroutine and announced from Update as
 * EVENT_CODE_ASSET_CHANGED, on the caller's thread.
 */
type AssetManager struct {
	root      string
	hotReload bool
	jobs      *systems.JobSystem

	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	changed map[string]struct{}

	mutex sync.RWMutex

	wg       sync.WaitGroup
	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

// NewAssetManager creates a manager for root. jobs may be nil, in which
// case LoadAsync is unavailable.
func NewAssetManager(root string, hotReload bool, jobs *systems.JobSystem) (*AssetManager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	am := &AssetManager{
		root:      abs,
		hotReload: hotReload,
		jobs:      jobs,
		assets:    make(map[string]AssetInfo),
		loaders:   make(map[metadata.ResourceType]Loader),
		changed:   make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	if hotReload {
		if am.fsnotify, err = fsnotify.NewWatcher(); err != nil {
			return nil, err
		}
	}
	return am, nil
}

func (am *AssetManager) Initialize() error {
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeAstc, &loaders.AstcLoader{})
	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})
	am.registerLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})
	am.registerLoader(metadata.ResourceTypeSystemFont, &loaders.SystemFontLoader{})

	if _, err := os.Stat(am.root); err != nil {
		return fmt.Errorf("asset root: %w", err)
	}
	if err := am.watchRecursive(am.root); err != nil {
		return err
	}
	if am.hotReload {
		am.wg.Add(1)
		go am.start()
	}
	core.LogInfo("Asset manager indexed %d assets in %s (hot reload: %t).", len(am.assets), am.root, am.hotReload)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Root is the absolute asset directory.
func (am *AssetManager) Root() string {
	return am.root
}

// Asset looks up an indexed asset by its path relative to the root.
func (am *AssetManager) Asset(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.ToSlash(name)]
	return info, ok
}

// Assets lists the indexed relative paths in lexical order.
func (am *AssetManager) Assets() []string {
	am.mutex.RLock()
	names := make([]string, 0, len(am.assets))
	for name := range am.assets {
		names = append(names, name)
	}
	am.mutex.RUnlock()
	sort.Strings(names)
	return names
}

/**
 * @brief Loads the asset at name, relative to the root, with the loader
 * matching its extension. Safe to call from job workers.
 */
func (am *AssetManager) Load(name string, params interface{}) (*metadata.Resource, error) {
	rel := filepath.ToSlash(filepath.Clean(name))
	if filepath.IsAbs(name) || rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, fmt.Errorf("asset %q is outside of %s", name, am.root)
	}
	assetType := determineAssetType(rel)
	loader, ok := am.loaders[assetType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedAsset, name)
	}

	res, err := loader.Load(filepath.Join(am.root, filepath.FromSlash(rel)), assetType, params)
	if err != nil {
		core.LogError("failed to load asset %s: %s", rel, err)
		return nil, err
	}

	am.mutex.Lock()
	am.assets[rel] = AssetInfo{Path: rel, Type: assetType, LastLoaded: time.Now()}
	am.mutex.Unlock()
	return res, nil
}

/**
 * @brief Loads an asset on the job system. Exactly one of the callbacks runs,
 * from the JobSystem's Update.
 */
func (am *AssetManager) LoadAsync(name string, params interface{}, onLoaded func(*metadata.Resource), onFailure func(error)) error {
	if am.jobs == nil {
		return fmt.Errorf("LoadAsync %q: asset manager has no job system", name)
	}
	return am.jobs.Submit(systems.JobTask{
		Name: "load " + name,
		Run: func() (interface{}, error) {
			return am.Load(name, params)
		},
		OnComplete: func(result interface{}) {
			if onLoaded != nil {
				onLoaded(result.(*metadata.Resource))
			}
		},
		OnFailure: onFailure,
	})
}

func (am *AssetManager) Unload(resource *metadata.Resource) error {
	if resource == nil {
		return nil
	}
	loader, ok := am.loaders[resource.Type]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnsupportedAsset, resource.Type)
	}
	return loader.Unload(resource)
}

/**
 * @brief Fires EVENT_CODE_ASSET_CHANGED once for every asset written since
 * the previous call. Returns the number of events fired.
 */
func (am *AssetManager) Update() int {
	am.mutex.Lock()
	if len(am.changed) == 0 {
		am.mutex.Unlock()
		return 0
	}
	paths := make([]string, 0, len(am.changed))
	for p := range am.changed {
		paths = append(paths, p)
	}
	am.changed = make(map[string]struct{})
	am.mutex.Unlock()

	sort.Strings(paths)
	for _, p := range paths {
		core.LogDebug("asset changed: %s", p)
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_ASSET_CHANGED,
			Data: &core.AssetEvent{Path: p},
		})
	}
	return len(paths)
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return ErrAssetManagerClosed
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	if am.fsnotify != nil {
		return am.fsnotify.Close()
	}
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
			return
		}
	}
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if rel, ok := am.handleFileEvent(e.Name); ok {
			am.mutex.Lock()
			am.changed[rel] = struct{}{}
			am.mutex.Unlock()
		}
	}
	// A removed path may have been a directory, the watcher drops it either way.
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
	}
}

// watchRecursive indexes every file below path and, with hot reload on,
// watches every directory.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			am.handleFileEvent(walkPath)
			return nil
		}
		if am.fsnotify == nil {
			return nil
		}
		return am.fsnotify.Add(walkPath)
	})
}

// handleFileEvent indexes a created or modified file and returns its path
// relative to the root.
func (am *AssetManager) handleFileEvent(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	assetType := determineAssetType(rel)
	if assetType == metadata.ResourceTypeNone {
		return "", false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, exists := am.assets[rel]
	if !exists {
		info = AssetInfo{Path: rel, Type: assetType}
	}
	am.assets[rel] = info
	return rel, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, filepath.ToSlash(rel))
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".astc":
		return metadata.ResourceTypeAstc
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".amt":
		return metadata.ResourceTypeMaterial
	case ".fnt":
		return metadata.ResourceTypeBitmapFont
	case ".ttf", ".otf":
		return metadata.ResourceTypeSystemFont
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}
