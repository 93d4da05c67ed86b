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
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

// constSource makes Float64() return value/2^63 forever.
type constSource struct {
	value int64
}

func (s constSource) Int63() int64 { return s.value }

func (s constSource) Seed(int64) {}

func TestRandomGenerator_Sample(t *testing.T) {
	excludeSet := mapset.NewSet(0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	for i := 1; i <= 10; i++ {
		sampled := rng.Sample(0, 10, i, excludeSet)
		for j := range sampled {
			assert.False(t, excludeSet.Contains(sampled[j]))
		}
		assert.Equal(t, mapset.NewSet(sampled...).Cardinality(), len(sampled))
	}
}

func TestRandomGenerator_WeightedSample(t *testing.T) {
	rng := NewRandomGeneratorFromSource(constSource{value: (1 << 63) / 10})
	// u = 0.1 picks index 0, then 0.1 * 0.66 picks index 1
	sampled, err := rng.WeightedSample([]float64{0.34, 0.41, 0.25}, 2)
	assert.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sampled)
	// u = 0.9 always lands on the last remaining index
	rng = NewRandomGeneratorFromSource(constSource{value: (1 << 63) / 10 * 9})
	sampled, err = rng.WeightedSample([]float64{0.34, 0.41, 0.25}, 3)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, sampled)
}

func TestRandomGenerator_WeightedSampleDistinct(t *testing.T) {
	rng := NewRandomGenerator(0)
	weights := []float64{1, 2, 3, 4, 5, 0, 7, 8, 9, 10}
	for i := 1; i <= 9; i++ {
		sampled, err := rng.WeightedSample(weights, i)
		assert.NoError(t, err)
		assert.Len(t, sampled, i)
		assert.Equal(t, i, mapset.NewSet(sampled...).Cardinality())
		assert.NotContains(t, sampled, 5)
	}
	// only nine positive weights
	_, err := rng.WeightedSample(weights, 10)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestRandomGenerator_WeightedSampleExclude(t *testing.T) {
	rng := NewRandomGenerator(0)
	sampled, err := rng.WeightedSample([]float64{1, 1, 1, 1}, 2, mapset.NewSet(0, 1))
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3}, sampled)
}

func TestRandomGenerator_WeightedSampleInvalid(t *testing.T) {
	rng := NewRandomGenerator(0)
	_, err := rng.WeightedSample([]float64{1, -1}, 1)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = rng.WeightedSample([]float64{1, 1}, -1)
	assert.True(t, errors.Is(err, errors.NotValid))
	sampled, err := rng.WeightedSample([]float64{1, 1}, 0)
	assert.NoError(t, err)
	assert.Empty(t, sampled)
}

func TestRandomGenerator_WeightedSampleFrequency(t *testing.T) {
	rng := NewRandomGenerator(0)
	counts := make([]int, 3)
	for i := 0; i < 10000; i++ {
		sampled, err := rng.WeightedSample([]float64{0.1, 0.3, 0.6}, 1)
		assert.NoError(t, err)
		counts[sampled[0]]++
	}
	assert.InDelta(t, 0.1, float64(counts[0])/10000, 0.02)
	assert.InDelta(t, 0.3, float64(counts[1])/10000, 0.02)
	assert.InDelta(t, 0.6, float64(counts[2])/10000, 0.02)
}
