package imageprocessor

import (
	"fmt"
	"image/color"

	"gocv.io/x/gocv"
)

// montageBorder is the frame drawn around every montage tile
const montageBorder = 1

var montageBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// matFromImage converts samples to 8 bits (scaled by 255, clamped,
// truncated) and returns a BGR Mat. The caller must Close it.
func matFromImage(img *Image) (gocv.Mat, error) {
	rgba := img.ToRGBA8()
	n := img.Height * img.Width
	bgr := make([]byte, n*3)
	for i := 0; i < n; i++ {
		bgr[i*3] = rgba.Pix[i*4+2]
		bgr[i*3+1] = rgba.Pix[i*4+1]
		bgr[i*3+2] = rgba.Pix[i*4]
	}
	return gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, bgr)
}

// WriteDiff writes an SSIM map as an 8-bit image
func WriteDiff(path string, ssimMap *Image) error {
	mat, err := matFromImage(ssimMap)
	if err != nil {
		return fmt.Errorf("cannot convert diff image: %w", err)
	}
	defer mat.Close()

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("cannot write diff image %s", path)
	}
	return nil
}

// WriteMontage places the images side by side, each framed by a one pixel
// white border. All images must share the same dimensions.
func WriteMontage(path string, images ...*Image) error {
	if len(images) == 0 {
		return fmt.Errorf("montage %s has no tiles", path)
	}
	for _, img := range images[1:] {
		if img.Height != images[0].Height || img.Width != images[0].Width {
			return fmt.Errorf("montage tiles differ in size: %s vs %s", images[0].Shape(), img.Shape())
		}
	}

	montage := gocv.NewMat()
	defer montage.Close()

	for i, img := range images {
		tile, err := framedTile(img)
		if err != nil {
			return fmt.Errorf("cannot build montage tile %d: %w", i, err)
		}
		if i == 0 {
			tile.CopyTo(&montage)
		} else {
			joined := gocv.NewMat()
			gocv.Hconcat(montage, tile, &joined)
			montage.Close()
			montage = joined
		}
		tile.Close()
	}

	if !gocv.IMWrite(path, montage) {
		return fmt.Errorf("cannot write montage image %s", path)
	}
	return nil
}

func framedTile(img *Image) (gocv.Mat, error) {
	mat, err := matFromImage(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer mat.Close()

	tile := gocv.NewMat()
	gocv.CopyMakeBorder(mat, &tile, montageBorder, montageBorder, montageBorder, montageBorder,
		gocv.BorderConstant, montageBackground)
	if tile.Empty() {
		tile.Close()
		return gocv.NewMat(), fmt.Errorf("border padding produced an empty image")
	}
	return tile, nil
}
