package window

import (
	"fmt"

	"qrlsim/internal/model"
)

// Count is the number of windows of size over a cycle of length n.
func Count(n, size int) int {
	if size < 1 || size > n {
		return 0
	}
	return n - size + 1
}

// Means returns the arithmetic mean of every contiguous window of size values,
// in offset order. Each window is summed afresh rather than with a running sum
// so the result does not drift over long cycles.
func Means(cycle model.Cycle, size int) ([]float64, error) {
	return MeansOf(cycle.Values(), size)
}

func MeansOf(values []float64, size int) ([]float64, error) {
	count := Count(len(values), size)
	if count == 0 {
		return nil, fmt.Errorf("%w: window size %d yields no windows over cycle length %d", model.ErrConfig, size, len(values))
	}

	means := make([]float64, count)
	for i := 0; i < count; i++ {
		sum := 0.0
		for _, v := range values[i : i+size] {
			sum += v
		}
		means[i] = sum / float64(size)
	}
	return means, nil
}
