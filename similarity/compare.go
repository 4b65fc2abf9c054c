package similarity

import (
	"math"

	"raycheck/types"
)

// Comparison bundles the metrics computed for one rendered image pair
type Comparison struct {
	SSIM float64
	RMSD float64
	// Map is the border-corrected SSIM map used for diff images
	Map *types.Image
}

// Compare computes RMSD and full-map SSIM for a candidate/reference pair of
// normalized images (data range 1.0).
func Compare(candidate, reference *types.Image, windowSize int) (Comparison, error) {
	rmsd, err := RMSD(candidate, reference)
	if err != nil {
		return Comparison{}, err
	}

	res, err := StructuralSimilarity(candidate, reference, Options{
		WindowSize: windowSize,
		DataRange:  1.0,
		Full:       true,
	})
	if err != nil {
		return Comparison{}, err
	}

	return Comparison{
		SSIM: res.MSSIM,
		RMSD: rmsd,
		Map:  res.Map,
	}, nil
}

// Round6 rounds to six decimal places, ties to even
func Round6(x float64) float64 {
	return math.RoundToEven(x*1e6) / 1e6
}
