package vector

import "math"

// zeroNorm is the norm below which a vector is treated as the zero vector.
const zeroNorm = 1e-12

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns dot(a, b) / (|a| |b|) in [-1, 1]. It returns 0 when
// either norm is ~0 (zero-vector fallback entries), when the lengths differ,
// or when the result is not a number.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na < zeroNorm || nb < zeroNorm {
		return 0
	}
	sim := InnerProduct(a, b) / (na * nb)
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(-1, math.Min(1, sim))
}
