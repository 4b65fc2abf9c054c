package processor

import (
	"fmt"
	"runtime/debug"

	"raycheck/imageprocessor"
	"raycheck/logging"
	"raycheck/similarity"
	"raycheck/types"
)

// ImageProcessor is an adapter that simplifies interactions between the scanner
// and the imageprocessor and similarity packages
type ImageProcessor struct {
	DebugMode  bool
	WindowSize int
	registry   *imageprocessor.ImageLoaderRegistry
}

// NewImageProcessor creates a new ImageProcessor with appropriate configuration
func NewImageProcessor(windowSize int, debugMode bool) *ImageProcessor {
	if windowSize <= 0 {
		windowSize = similarity.DefaultWindowSize
	}
	return &ImageProcessor{
		DebugMode:  debugMode,
		WindowSize: windowSize,
		registry:   imageprocessor.NewImageLoaderRegistry(),
	}
}

// LoadImage loads a rendered image. Decoder panics are turned into errors.
func (p *ImageProcessor) LoadImage(path string) (img *imageprocessor.Image, err error) {
	// Use defer to recover from any panics during image loading
	defer func() {
		if r := recover(); r != nil {
			stackTrace := debug.Stack()
			logging.DebugLog("Panic during image loading: %v, file: %s\nStack trace: %s", r, path, string(stackTrace))
			img = nil
			err = &imageprocessor.DecodeError{Path: path, Err: fmt.Errorf("panic during image loading: %v", r)}
		}
	}()

	img, err = p.registry.LoadImage(path)
	if err != nil {
		return nil, err
	}

	if p.DebugMode {
		logging.DebugLog("Loaded %s image %s", img.Shape(), path)
	}
	return img, nil
}

// Compare computes both metrics with six decimal rounding applied
func (p *ImageProcessor) Compare(candidate, reference *imageprocessor.Image) (similarity.Comparison, error) {
	cmp, err := similarity.Compare(candidate, reference, p.WindowSize)
	if err != nil {
		return cmp, err
	}
	cmp.SSIM = similarity.Round6(cmp.SSIM)
	cmp.RMSD = similarity.Round6(cmp.RMSD)
	return cmp, nil
}

// WriteArtifacts writes the diff image and the candidate | reference | diff
// montage of one test
func (p *ImageProcessor) WriteArtifacts(tc types.TestCase, candidate, reference *imageprocessor.Image, cmp similarity.Comparison) error {
	if err := imageprocessor.WriteDiff(tc.DiffPath, cmp.Map); err != nil {
		return err
	}
	if err := imageprocessor.WriteMontage(tc.MontagePath, candidate, reference, cmp.Map); err != nil {
		return err
	}

	if p.DebugMode {
		logging.DebugLog("Wrote %s and %s", tc.DiffPath, tc.MontagePath)
	}
	return nil
}
