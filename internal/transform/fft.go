package transform

import "math"

// fftRadix2 computes the in-place Cooley-Tukey FFT of x, whose length
// must be a power of two. This is the one standard-library-only
// implementation in the core: no FFT/DSP package exists anywhere in
// the retrieved corpus (checked by grepping every example repo's
// go.mod and other_examples/), so there is no library to defer to —
// see DESIGN.md.
func fftRadix2(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j &^= bit
		}
		j |= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wlen := complex(math.Cos(ang), math.Sin(ang))
		for i := 0; i < n; i += length {
			w := complex(1.0, 0.0)
			for j := 0; j < length/2; j++ {
				u := x[i+j]
				v := x[i+j+length/2] * w
				x[i+j] = u + v
				x[i+j+length/2] = u - v
				w *= wlen
			}
		}
	}
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// hannWindow returns the n-sample Hann window used before every FFT
// column, per spec.md §4.E ("windowed, at the configured block/step").
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}
