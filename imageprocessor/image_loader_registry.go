package imageprocessor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"raycheck/logging"
)

// ImageLoaderRegistry maps file extensions to an ordered list of loaders
type ImageLoaderRegistry struct {
	loaders        map[string][]ImageLoader
	defaultLoaders []ImageLoader
	mutex          sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with OpenCV first and the Go
// decoders as fallback
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string][]ImageLoader),
	}

	opencv := NewOpenCVImageLoader()
	goLoader := NewGoImageLoader()

	for ext := range formatExtensions {
		if opencv.CanLoad("x" + ext) {
			registry.RegisterLoader(ext, opencv)
		}
		registry.RegisterLoader(ext, goLoader)
	}

	registry.defaultLoaders = []ImageLoader{opencv, goLoader}
	return registry
}

// RegisterLoader appends a loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ext = strings.ToLower(ext)
	r.loaders[ext] = append(r.loaders[ext], loader)
}

// GetLoaders returns the loaders to try for the given path, in order
func (r *ImageLoaderRegistry) GetLoaders(path string) []ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if loaders, ok := r.loaders[ext]; ok {
		return loaders
	}
	return r.defaultLoaders
}

// LoadImage tries each registered loader in turn. The first success wins;
// if every loader fails the result is a *DecodeError.
func (r *ImageLoaderRegistry) LoadImage(path string) (*Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	var errs []error
	for _, loader := range r.GetLoaders(path) {
		img, err := loader.LoadImage(path)
		if err == nil {
			return img, nil
		}
		logging.DebugLog("Loader %s failed for %s: %v", loader.Name(), path, err)
		errs = append(errs, fmt.Errorf("%s: %w", loader.Name(), err))
	}

	return nil, &DecodeError{
		Path:   path,
		Err:    errors.Join(errs...),
		Detail: probeMetadata(path),
	}
}

var (
	defaultRegistry     *ImageLoaderRegistry
	defaultRegistryOnce sync.Once
)

// LoadImage loads an image through the shared default registry
func LoadImage(path string) (*Image, error) {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewImageLoaderRegistry()
	})
	return defaultRegistry.LoadImage(path)
}
