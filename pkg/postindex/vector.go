package postindex

import (
	"fmt"
	"math"
)

// CosineDistance returns 1 - cos(a, b). The result lies in [0, 2].
// A zero-length vector has no direction and is treated as orthogonal to everything.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d != %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 1, nil
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Rounding can push |cos| marginally past 1
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	return 1 - cos, nil
}
