package types

import (
	"fmt"
	"image"
	"image/color"
)

// Image is a float32 raster stored row-major with interleaved channels.
// Images produced by the loaders have three channels normalized to [0, 1].
type Image struct {
	Height   int
	Width    int
	Channels int
	Pix      []float32
}

// NewImage allocates a zeroed image
func NewImage(height, width, channels int) *Image {
	return &Image{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]float32, height*width*channels),
	}
}

// Size returns the number of elements
func (m *Image) Size() int {
	return m.Height * m.Width * m.Channels
}

// Shape formats the dimensions as (H, W, C)
func (m *Image) Shape() string {
	return fmt.Sprintf("(%d, %d, %d)", m.Height, m.Width, m.Channels)
}

// SameShape reports whether both images have identical dimensions
func (m *Image) SameShape(o *Image) bool {
	return m.Height == o.Height && m.Width == o.Width && m.Channels == o.Channels
}

// At returns the sample at row y, column x, channel c
func (m *Image) At(y, x, c int) float32 {
	return m.Pix[(y*m.Width+x)*m.Channels+c]
}

// Set stores the sample at row y, column x, channel c
func (m *Image) Set(y, x, c int, v float32) {
	m.Pix[(y*m.Width+x)*m.Channels+c] = v
}

// Channel extracts channel c as a single-channel image
func (m *Image) Channel(c int) *Image {
	out := NewImage(m.Height, m.Width, 1)
	for i := 0; i < m.Height*m.Width; i++ {
		out.Pix[i] = m.Pix[i*m.Channels+c]
	}
	return out
}

// SetChannel copies a single-channel image into channel c
func (m *Image) SetChannel(c int, plane *Image) {
	for i := 0; i < m.Height*m.Width; i++ {
		m.Pix[i*m.Channels+c] = plane.Pix[i]
	}
}

// ToRGBA8 scales samples by 255 and truncates to 8 bits, clamping values
// outside [0, 1]. Single-channel images are written as gray.
func (m *Image) ToRGBA8() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			var r, g, b uint8
			if m.Channels >= 3 {
				r = to8(m.At(y, x, 0))
				g = to8(m.At(y, x, 1))
				b = to8(m.At(y, x, 2))
			} else {
				r = to8(m.At(y, x, 0))
				g, b = r, r
			}
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}

func to8(v float32) uint8 {
	s := v * 255
	switch {
	case s <= 0 || s != s:
		return 0
	case s >= 255:
		return 255
	}
	return uint8(s)
}
