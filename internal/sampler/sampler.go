package sampler

import (
	"fmt"
	"math/rand"

	"qrlsim/internal/model"
)

// Draw picks n distinct indices from [0, len(population)) without replacement
// and returns the corresponding samples in draw order. It runs a partial
// Fisher-Yates shuffle over a sparse swap table, so memory stays O(n) for very
// large populations.
func Draw(population []float64, n int, rng *rand.Rand) (model.Cycle, error) {
	indices, err := DrawIndices(len(population), n, rng)
	if err != nil {
		return nil, err
	}
	cycle := make(model.Cycle, n)
	for i, idx := range indices {
		cycle[i] = model.Sample{Index: idx, Value: population[idx]}
	}
	return cycle, nil
}

// DrawIndices is Draw without the value lookup.
func DrawIndices(populationSize, n int, rng *rand.Rand) ([]int, error) {
	if rng == nil {
		return nil, fmt.Errorf("sampler requires a random source")
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: cycle length must be positive, got %d", model.ErrConfig, n)
	}
	if n > populationSize {
		return nil, fmt.Errorf("%w: cycle length %d exceeds population size %d", model.ErrConfig, n, populationSize)
	}

	swapped := make(map[int]int, n)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}

	indices := make([]int, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(populationSize-i)
		vi, vj := at(i), at(j)
		swapped[i], swapped[j] = vj, vi
		indices[i] = vj
	}
	return indices, nil
}
