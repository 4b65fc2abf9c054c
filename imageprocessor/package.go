// Package imageprocessor loads rendered images into normalized float rasters
// and writes the diff and montage images produced for each comparison.
package imageprocessor

import "raycheck/types"

// Image is the normalized raster returned by every loader
type Image = types.Image

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// Name identifies the loader in error messages
	Name() string

	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage decodes the file into a three-channel image in [0, 1]
	LoadImage(path string) (*Image, error)
}
