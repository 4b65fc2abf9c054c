// Package similarity measures how close a rendered image is to its reference.
//
// Two metrics are provided. RMSD is the global root-mean-square distance.
// StructuralSimilarity is the mean structural similarity index of Wang et
// al. (2004) computed with a uniform sliding window, following the
// parameterization of scikit-image's structural_similarity: window size,
// K1/K2, sample or population covariance and an explicit data range. Samples
// within (window+1)/2 of the border are excluded from the mean, and the same
// strip is painted with 1.0 in the returned map so that filter edge effects
// never show up in diff images.
package similarity

import (
	"errors"
	"fmt"
	"math"

	"raycheck/types"
)

// Default parameters
const (
	DefaultWindowSize = 7
	DefaultK1         = 0.01
	DefaultK2         = 0.03
	DefaultSigma      = 1.5
)

var (
	ErrShapeMismatch    = errors.New("input images must have the same dimensions")
	ErrEvenWindow       = errors.New("window size must be odd")
	ErrWindowTooLarge   = errors.New("window size exceeds image extent")
	ErrInvalidParameter = errors.New("invalid SSIM parameter")
	ErrDataRange        = errors.New("data range must be specified and positive")
)

// Options controls StructuralSimilarity. A zero WindowSize and nil K1, K2
// and Sigma select the defaults; values that are set must be positive.
// DataRange has no default.
type Options struct {
	WindowSize int
	DataRange  float64
	K1         *float64
	K2         *float64
	// Sigma is validated for compatibility with the Gaussian variant but
	// the uniform window ignores it.
	Sigma *float64
	// PopulationCovariance normalizes by N instead of N-1.
	PopulationCovariance bool
	// Full requests the per-pixel similarity map.
	Full bool
	// Gradient requests the gradient of the mean SSIM with respect to the
	// second image.
	Gradient bool
}

// Result is the outcome of StructuralSimilarity. Map is set only when
// Options.Full was requested and Gradient only when Options.Gradient was.
type Result struct {
	MSSIM    float64
	Map      *types.Image
	Gradient *types.Image
}

// Float returns a pointer to v for the optional Options fields
func Float(v float64) *float64 {
	return &v
}

// settings are Options with every default resolved
type settings struct {
	Options
	k1, k2, sigma float64
}

func positive(name string, v *float64, def float64) (float64, error) {
	if v == nil {
		return def, nil
	}
	if !(*v > 0) || math.IsInf(*v, 0) {
		return 0, fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidParameter, name, *v)
	}
	return *v, nil
}

func (o Options) resolve(height, width int) (settings, error) {
	s := settings{Options: o}
	if s.WindowSize == 0 {
		s.WindowSize = DefaultWindowSize
	}
	if err := s.validate(height, width); err != nil {
		return s, err
	}
	var err error
	if s.k1, err = positive("K1", o.K1, DefaultK1); err != nil {
		return s, err
	}
	if s.k2, err = positive("K2", o.K2, DefaultK2); err != nil {
		return s, err
	}
	if s.sigma, err = positive("sigma", o.Sigma, DefaultSigma); err != nil {
		return s, err
	}
	return s, nil
}

func (o Options) validate(height, width int) error {
	if !(o.DataRange > 0) || math.IsInf(o.DataRange, 0) {
		return fmt.Errorf("%w: got %v", ErrDataRange, o.DataRange)
	}
	if o.WindowSize < 0 {
		return fmt.Errorf("%w: window size must be positive", ErrInvalidParameter)
	}
	if o.WindowSize > height || o.WindowSize > width {
		return fmt.Errorf("%w: window %d, image %dx%d; pass an odd window no larger than the smaller side",
			ErrWindowTooLarge, o.WindowSize, height, width)
	}
	if o.WindowSize%2 != 1 {
		return fmt.Errorf("%w: got %d", ErrEvenWindow, o.WindowSize)
	}
	pad := (o.WindowSize + 1) / 2
	if height <= 2*pad || width <= 2*pad {
		return fmt.Errorf("%w: nothing left after cropping a %d pixel border from %dx%d",
			ErrWindowTooLarge, pad, height, width)
	}
	return nil
}

// StructuralSimilarity computes the mean SSIM between a and b. Images with
// more than one channel are compared channel by channel and the scalar is the
// mean of the per-channel scalars.
func StructuralSimilarity(a, b *types.Image, opts Options) (Result, error) {
	if err := checkShapes(a, b); err != nil {
		return Result{}, err
	}
	cfg, err := opts.resolve(a.Height, a.Width)
	if err != nil {
		return Result{}, err
	}

	if a.Channels == 1 {
		return ssimPlane(a.Pix, b.Pix, a.Height, a.Width, cfg), nil
	}

	var res Result
	if cfg.Full {
		res.Map = types.NewImage(a.Height, a.Width, a.Channels)
	}
	if cfg.Gradient {
		res.Gradient = types.NewImage(a.Height, a.Width, a.Channels)
	}

	var total float64
	for c := 0; c < a.Channels; c++ {
		ch := ssimPlane(a.Channel(c).Pix, b.Channel(c).Pix, a.Height, a.Width, cfg)
		total += ch.MSSIM
		if res.Map != nil {
			res.Map.SetChannel(c, ch.Map)
		}
		if res.Gradient != nil {
			res.Gradient.SetChannel(c, ch.Gradient)
		}
	}
	res.MSSIM = total / float64(a.Channels)
	return res, nil
}

func ssimPlane(im1, im2 []float32, h, w int, o settings) Result {
	win := o.WindowSize
	np := float64(win * win)

	covNorm := float32(1.0)
	if !o.PopulationCovariance {
		covNorm = float32(np / (np - 1))
	}

	n := h * w
	xx := make([]float32, n)
	yy := make([]float32, n)
	xy := make([]float32, n)
	for i := 0; i < n; i++ {
		xx[i] = im1[i] * im1[i]
		yy[i] = im2[i] * im2[i]
		xy[i] = im1[i] * im2[i]
	}

	ux := uniformFilter(im1, h, w, win)
	uy := uniformFilter(im2, h, w, win)
	uxx := uniformFilter(xx, h, w, win)
	uyy := uniformFilter(yy, h, w, win)
	uxy := uniformFilter(xy, h, w, win)

	c1 := float32((o.k1 * o.DataRange) * (o.k1 * o.DataRange))
	c2 := float32((o.k2 * o.DataRange) * (o.k2 * o.DataRange))

	// uxx..uxy are no longer needed once the moments are formed; reuse them
	// for A1, A2, B1 and B2.
	a1, a2, b1, b2 := uxx, uyy, uxy, xx
	s := xy
	for i := 0; i < n; i++ {
		vx := covNorm * (uxx[i] - ux[i]*ux[i])
		vy := covNorm * (uyy[i] - uy[i]*uy[i])
		vxy := covNorm * (uxy[i] - ux[i]*uy[i])

		a1[i] = 2*ux[i]*uy[i] + c1
		a2[i] = 2*vxy + c2
		b1[i] = ux[i]*ux[i] + uy[i]*uy[i] + c1
		b2[i] = vx + vy + c2
		s[i] = (a1[i] * a2[i]) / (b1[i] * b2[i])
	}

	pad := (win + 1) / 2
	var sum float64
	for y := pad; y < h-pad; y++ {
		for x := pad; x < w-pad; x++ {
			sum += float64(s[y*w+x])
		}
	}
	res := Result{MSSIM: sum / float64((h-2*pad)*(w-2*pad))}

	forceBorder(s, h, w, pad)

	if o.Gradient {
		res.Gradient = &types.Image{Height: h, Width: w, Channels: 1, Pix: gradient(im1, im2, ux, uy, a1, a2, b1, b2, s, h, w, win)}
	}
	if o.Full {
		res.Map = &types.Image{Height: h, Width: w, Channels: 1, Pix: s}
	}
	return res
}

// forceBorder paints the pad-wide frame of the map with perfect similarity
func forceBorder(s []float32, h, w, pad int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y < pad || y >= h-pad || x < pad || x >= w-pad {
				s[y*w+x] = 1.0
			}
		}
	}
}

// gradient follows Eqs. 7-8 of Avanaki (2009). It is evaluated on the
// border-forced map.
func gradient(im1, im2, ux, uy, a1, a2, b1, b2, s []float32, h, w, win int) []float32 {
	n := h * w
	t1 := make([]float32, n)
	t2 := make([]float32, n)
	t3 := make([]float32, n)
	for i := 0; i < n; i++ {
		d := b1[i] * b2[i]
		t1[i] = a1[i] / d
		t2[i] = -s[i] / b2[i]
		t3[i] = (ux[i]*(a2[i]-a1[i]) - uy[i]*(b2[i]-b1[i])*s[i]) / d
	}
	f1 := uniformFilter(t1, h, w, win)
	f2 := uniformFilter(t2, h, w, win)
	f3 := uniformFilter(t3, h, w, win)

	scale := float32(2.0 / float64(n))
	grad := make([]float32, n)
	for i := 0; i < n; i++ {
		grad[i] = (f1[i]*im1[i] + f2[i]*im2[i] + f3[i]) * scale
	}
	return grad
}
