// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import (
	"math"
	"math/rand"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// RandomGenerator is the random generator for lowrank.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// NewRandomGeneratorFromSource creates a RandomGenerator drawing from an arbitrary source.
func NewRandomGeneratorFromSource(source rand.Source) RandomGenerator {
	return RandomGenerator{rand.New(source)}
}

// Sample n values between low and high, but not in exclude.
func (rng RandomGenerator) Sample(low, high, n int, exclude ...mapset.Set[int]) []int {
	intervalLength := high - low
	excludeSet := mapset.NewSet[int]()
	for _, set := range exclude {
		excludeSet = excludeSet.Union(set)
	}
	sampled := make([]int, 0, n)
	if n >= intervalLength-excludeSet.Cardinality() {
		for i := low; i < high; i++ {
			if !excludeSet.Contains(i) {
				sampled = append(sampled, i)
				excludeSet.Add(i)
			}
		}
	} else {
		for len(sampled) < n {
			v := rng.Intn(intervalLength) + low
			if !excludeSet.Contains(v) {
				sampled = append(sampled, v)
				excludeSet.Add(v)
			}
		}
	}
	return sampled
}

// WeightedSample draws n distinct indices of weights without replacement. Each draw picks index i with
// probability weights[i] / sum(remaining weights), then removes i from the pool. Indices in exclude are
// never drawn.
func (rng RandomGenerator) WeightedSample(weights []float64, n int, exclude ...mapset.Set[int]) ([]int, error) {
	if n < 0 {
		return nil, errors.NotValidf("sample size %d", n)
	}
	remaining := make([]float64, len(weights))
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.NotValidf("weight %v at %d", w, i)
		}
		remaining[i] = w
	}
	for _, set := range exclude {
		set.Each(func(i int) bool {
			if i >= 0 && i < len(remaining) {
				remaining[i] = 0
			}
			return false
		})
	}
	candidates := lo.CountBy(remaining, func(w float64) bool { return w > 0 })
	if n > candidates {
		return nil, errors.NotValidf("sample size %d with %d non-zero weights", n, candidates)
	}
	sampled := make([]int, 0, n)
	for len(sampled) < n {
		total := lo.Sum(remaining)
		u := rng.Float64() * total
		chosen, cumulative := -1, 0.0
		for i, w := range remaining {
			if w <= 0 {
				continue
			}
			cumulative += w
			chosen = i
			if u < cumulative {
				break
			}
		}
		sampled = append(sampled, chosen)
		remaining[chosen] = 0
	}
	return sampled, nil
}
