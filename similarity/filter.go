package similarity

// uniformFilter applies a size x size box average to a single-channel plane.
// The filter is separable and runs along rows first, then columns. Each pass
// keeps a running float64 sum and stores float32, and samples past the border
// are mirrored including the edge sample (d c b a | a b c d).
func uniformFilter(src []float32, h, w, size int) []float32 {
	n := h
	if w > n {
		n = w
	}
	in := make([]float64, n)
	out := make([]float64, n)

	tmp := make([]float32, len(src))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			in[y] = float64(src[y*w+x])
		}
		filterLine(in[:h], out[:h], size)
		for y := 0; y < h; y++ {
			tmp[y*w+x] = float32(out[y])
		}
	}

	dst := make([]float32, len(src))
	for y := 0; y < h; y++ {
		row := tmp[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			in[x] = float64(row[x])
		}
		filterLine(in[:w], out[:w], size)
		for x := 0; x < w; x++ {
			dst[y*w+x] = float32(out[x])
		}
	}
	return dst
}

func filterLine(in, out []float64, size int) {
	n := len(in)
	half := size / 2
	norm := 1.0 / float64(size)

	var sum float64
	for k := -half; k <= half; k++ {
		sum += in[mirror(k, n)]
	}
	out[0] = sum * norm
	for i := 1; i < n; i++ {
		sum += in[mirror(i+half, n)] - in[mirror(i-1-half, n)]
		out[i] = sum * norm
	}
}

func mirror(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		} else {
			i = 2*n - i - 1
		}
	}
	return i
}
