package domain

import "math"

// Dot returns the dot product of two vectors. For unit-normalized
// vectors this equals cosine similarity.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the L2 norm of a vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. Zero vectors are returned
// unchanged so a degenerate embedding never produces NaN scores.
func Normalize(v []float32) []float32 {
	n := Norm(v)
	out := make([]float32, len(v))
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}
