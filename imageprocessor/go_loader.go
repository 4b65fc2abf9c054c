package imageprocessor

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// GoImageLoader decodes with the Go image packages. It is registered after
// the OpenCV loader and handles files OpenCV rejects, such as 16-bit PNGs
// or palette GIFs.
type GoImageLoader struct {
	BaseImageLoader
}

// NewGoImageLoader creates the fallback loader
func NewGoImageLoader() *GoImageLoader {
	return &GoImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatPNG,
				FormatJPEG,
				FormatGIF,
				FormatBMP,
				FormatTIFF,
				FormatWEBP,
			},
		},
	}
}

// Name returns the loader name
func (l *GoImageLoader) Name() string {
	return "go"
}

// LoadImage decodes the file and normalizes it to 8-bit RGB in [0, 1]
func (l *GoImageLoader) LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("go decoder: %w", err)
	}
	img := imageFromGo(src)
	if img.Height == 0 || img.Width == 0 {
		return nil, fmt.Errorf("empty %s image", format)
	}
	return img, nil
}

// imageFromGo converts any decoded image. Colours are taken non-premultiplied
// so transparent pixels keep their stored RGB values.
func imageFromGo(src image.Image) *Image {
	b := src.Bounds()
	img := NewImage(b.Dy(), b.Dx())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			img.Pix[i] = float32(c.R) / 255
			img.Pix[i+1] = float32(c.G) / 255
			img.Pix[i+2] = float32(c.B) / 255
			i += 3
		}
	}
	return img
}
