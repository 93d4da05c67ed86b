// Copyright 2026 gorse Project Authors
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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/lowrank/model"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

const configText = `
[dataset]
ratings_path = "ratings.dat"
separator = "::"
test_ratio = 0.25
random_state = 1

[cur]
num_samples = 1000
energy = 0.8
random_state = 2

[svd]
energy = 0.95
rank = 20

[knn]
k = 5
baseline = true

[evaluate]
methods = ["cur", "knn"]
top_k = 10
relevant = 4

[output]
dir = "snapshots"
`

func writeConfig(t *testing.T, text string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, configText))
	assert.NoError(t, err)
	// [dataset]
	assert.Equal(t, "ratings.dat", config.Dataset.RatingsPath)
	assert.Equal(t, "::", config.Dataset.Separator)
	assert.Equal(t, 0.25, config.Dataset.TestRatio)
	assert.Equal(t, int64(1), config.Dataset.RandomState)
	// [cur]
	assert.Equal(t, 1000, config.CUR.NumSamples)
	assert.Equal(t, 0.8, config.CUR.Energy)
	assert.Equal(t, int64(2), config.CUR.RandomState)
	// [svd]
	assert.Equal(t, 0.95, config.SVD.Energy)
	assert.Equal(t, 20, config.SVD.Rank)
	// [knn]
	assert.Equal(t, 5, config.KNN.K)
	assert.True(t, config.KNN.Baseline)
	// [evaluate]
	assert.Equal(t, []string{MethodCUR, MethodKNN}, config.Evaluate.Methods)
	assert.Equal(t, 10, config.Evaluate.TopK)
	assert.Equal(t, 4.0, config.Evaluate.Relevant)
	// [output]
	assert.Equal(t, "snapshots", config.Output.Dir)
}

func TestLoadConfigDefault(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, ""))
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)

	config, err = LoadConfig("")
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("LOWRANK_DATASET_RATINGS_PATH", "/data/ratings.dat")
	t.Setenv("LOWRANK_CUR_NUM_SAMPLES", "500")
	t.Setenv("LOWRANK_KNN_BASELINE", "true")
	t.Setenv("LOWRANK_EVALUATE_METHODS", "svd,knn_baseline")
	config, err := LoadConfig(writeConfig(t, configText))
	assert.NoError(t, err)
	assert.Equal(t, "/data/ratings.dat", config.Dataset.RatingsPath)
	assert.Equal(t, 500, config.CUR.NumSamples)
	assert.True(t, config.KNN.Baseline)
	assert.Equal(t, []string{MethodSVD, MethodKNNBaseline}, config.Evaluate.Methods)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "[dataset]\ntest_ratio = 1.5\n"))
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = LoadConfig(writeConfig(t, "[evaluate]\nmethods = [\"als\"]\n"))
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = LoadConfig(writeConfig(t, "[dataset]\ntrain_path = \"train.csv\"\n"))
	assert.True(t, errors.Is(err, errors.NotValid))

	t.Setenv("LOWRANK_KNN_K", "0")
	_, err = LoadConfig("")
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestConfig_Params(t *testing.T) {
	config := GetDefaultConfig()
	params := config.CURParams()
	assert.Equal(t, 3000, params.GetInt(model.NumSamples, 0))
	assert.Equal(t, 0.9, params.GetFloat64(model.Energy, 0))
	assert.Equal(t, int64(0), params.GetInt64(model.RandomState, -1))
	params = config.SVDParams()
	assert.Equal(t, 0.9, params.GetFloat64(model.Energy, 0))
	assert.Equal(t, 0, params.GetInt(model.Rank, -1))
	params = config.KNNParams(true)
	assert.Equal(t, 10, params.GetInt(model.K, 0))
	assert.True(t, params.GetBool(model.Baseline, false))
}
