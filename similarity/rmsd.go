package similarity

import (
	"fmt"
	"math"

	"raycheck/types"
)

// RMSD returns the root-mean-square distance between two images of the same
// shape: the Euclidean norm of the difference divided by the square root of
// the element count.
func RMSD(a, b *types.Image) (float64, error) {
	if err := checkShapes(a, b); err != nil {
		return 0, err
	}

	var sum float64
	for i := range a.Pix {
		d := float64(a.Pix[i] - b.Pix[i])
		sum += d * d
	}
	return math.Sqrt(sum) / math.Sqrt(float64(len(a.Pix))), nil
}

func checkShapes(a, b *types.Image) error {
	if a == nil || b == nil {
		return fmt.Errorf("%w: nil image", ErrShapeMismatch)
	}
	if !a.SameShape(b) {
		return fmt.Errorf("%w: %s vs %s", ErrShapeMismatch, a.Shape(), b.Shape())
	}
	if len(a.Pix) != a.Size() || len(b.Pix) != b.Size() {
		return fmt.Errorf("%w: pixel buffer does not match dimensions", ErrShapeMismatch)
	}
	if a.Size() == 0 {
		return fmt.Errorf("%w: empty image", ErrShapeMismatch)
	}
	return nil
}
