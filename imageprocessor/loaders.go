package imageprocessor

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// ErrUnsupportedPixelFormat is returned for images that are not 8-bit
// gray, RGB or RGBA
var ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return true
		}
	}
	return false
}

// OpenCVImageLoader decodes through OpenCV without any colour conversion
// on load, so the channel count of the file is preserved.
type OpenCVImageLoader struct {
	BaseImageLoader
}

// NewOpenCVImageLoader creates a loader for every format OpenCV reads
func NewOpenCVImageLoader() *OpenCVImageLoader {
	return &OpenCVImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatPNG,
				FormatJPEG,
				FormatBMP,
				FormatTIFF,
				FormatWEBP,
			},
		},
	}
}

// Name returns the loader name
func (l *OpenCVImageLoader) Name() string {
	return "opencv"
}

// LoadImage reads the file with IMReadUnchanged and normalizes it
func (l *OpenCVImageLoader) LoadImage(path string) (*Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("opencv could not read %s", path)
	}
	return imageFromMat(mat)
}

// imageFromMat converts an 8-bit BGR, BGRA or gray Mat into an RGB image
func imageFromMat(mat gocv.Mat) (*Image, error) {
	var src int
	switch mat.Type() {
	case gocv.MatTypeCV8UC1:
		src = 1
	case gocv.MatTypeCV8UC3:
		src = 3
	case gocv.MatTypeCV8UC4:
		src = 4
	default:
		return nil, fmt.Errorf("%w: mat type %v", ErrUnsupportedPixelFormat, mat.Type())
	}

	rows, cols := mat.Rows(), mat.Cols()
	data := mat.ToBytes()
	if len(data) != rows*cols*src {
		return nil, fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrUnsupportedPixelFormat, len(data), rows, cols, src)
	}

	img := NewImage(rows, cols)
	for i := 0; i < rows*cols; i++ {
		px := data[i*src : i*src+src]
		if src == 1 {
			v := float32(px[0]) / 255
			img.Pix[i*3], img.Pix[i*3+1], img.Pix[i*3+2] = v, v, v
			continue
		}
		// OpenCV stores BGR(A); alpha is dropped
		img.Pix[i*3] = float32(px[2]) / 255
		img.Pix[i*3+1] = float32(px[1]) / 255
		img.Pix[i*3+2] = float32(px[0]) / 255
	}
	return img, nil
}

// NewImage allocates a zeroed three-channel image
func NewImage(height, width int) *Image {
	return &Image{
		Height:   height,
		Width:    width,
		Channels: 3,
		Pix:      make([]float32, height*width*3),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
