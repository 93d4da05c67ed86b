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
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/lowrank/model"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	MethodCUR         = "cur"
	MethodCUREnergy   = "cur_energy"
	MethodSVD         = "svd"
	MethodKNN         = "knn"
	MethodKNNBaseline = "knn_baseline"
)

// Config is the configuration of an evaluation run.
type Config struct {
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	CUR      CURConfig      `mapstructure:"cur"`
	SVD      SVDConfig      `mapstructure:"svd"`
	KNN      KNNConfig      `mapstructure:"knn"`
	Evaluate EvaluateConfig `mapstructure:"evaluate"`
	Output   OutputConfig   `mapstructure:"output"`
}

// DatasetConfig locates the ratings. TrainPath and TestPath are read as pre-split CSV files if set,
// otherwise RatingsPath is split into train and test sets. MatrixPath optionally replaces the
// matrix built from the training records.
type DatasetConfig struct {
	RatingsPath string  `mapstructure:"ratings_path"`
	Separator   string  `mapstructure:"separator" validate:"required"`
	TrainPath   string  `mapstructure:"train_path" validate:"required_with=TestPath"`
	TestPath    string  `mapstructure:"test_path" validate:"required_with=TrainPath"`
	MatrixPath  string  `mapstructure:"matrix_path"`
	TestRatio   float64 `mapstructure:"test_ratio" validate:"gt=0,lt=1"`
	RandomState int64   `mapstructure:"random_state"`
}

type CURConfig struct {
	NumSamples  int     `mapstructure:"num_samples" validate:"gt=0"`
	Energy      float64 `mapstructure:"energy" validate:"gt=0,lte=1"`
	RandomState int64   `mapstructure:"random_state"`
}

// SVDConfig keeps Rank components if Rank is positive, otherwise the components retaining Energy.
type SVDConfig struct {
	Energy float64 `mapstructure:"energy" validate:"gt=0,lte=1"`
	Rank   int     `mapstructure:"rank" validate:"gte=0"`
}

type KNNConfig struct {
	K        int  `mapstructure:"k" validate:"gt=0"`
	Baseline bool `mapstructure:"baseline"`
}

type EvaluateConfig struct {
	Methods  []string `mapstructure:"methods" validate:"required,dive,oneof=cur cur_energy svd knn knn_baseline"`
	TopK     int      `mapstructure:"top_k" validate:"gt=0"`
	Relevant float64  `mapstructure:"relevant"`
}

// OutputConfig is where split records and matrices are saved. Nothing is saved if Dir is empty.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Separator: "::",
			TestRatio: 0.2,
		},
		CUR: CURConfig{
			NumSamples: 3000,
			Energy:     0.9,
		},
		SVD: SVDConfig{
			Energy: 0.9,
		},
		KNN: KNNConfig{
			K: 10,
		},
		Evaluate: EvaluateConfig{
			Methods:  []string{MethodCUR, MethodCUREnergy, MethodSVD, MethodKNN, MethodKNNBaseline},
			TopK:     model.DefaultTopK,
			Relevant: model.DefaultRelevant,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [dataset]
	v.SetDefault("dataset.ratings_path", defaultConfig.Dataset.RatingsPath)
	v.SetDefault("dataset.separator", defaultConfig.Dataset.Separator)
	v.SetDefault("dataset.train_path", defaultConfig.Dataset.TrainPath)
	v.SetDefault("dataset.test_path", defaultConfig.Dataset.TestPath)
	v.SetDefault("dataset.matrix_path", defaultConfig.Dataset.MatrixPath)
	v.SetDefault("dataset.test_ratio", defaultConfig.Dataset.TestRatio)
	v.SetDefault("dataset.random_state", defaultConfig.Dataset.RandomState)
	// [cur]
	v.SetDefault("cur.num_samples", defaultConfig.CUR.NumSamples)
	v.SetDefault("cur.energy", defaultConfig.CUR.Energy)
	v.SetDefault("cur.random_state", defaultConfig.CUR.RandomState)
	// [svd]
	v.SetDefault("svd.energy", defaultConfig.SVD.Energy)
	v.SetDefault("svd.rank", defaultConfig.SVD.Rank)
	// [knn]
	v.SetDefault("knn.k", defaultConfig.KNN.K)
	v.SetDefault("knn.baseline", defaultConfig.KNN.Baseline)
	// [evaluate]
	v.SetDefault("evaluate.methods", defaultConfig.Evaluate.Methods)
	v.SetDefault("evaluate.top_k", defaultConfig.Evaluate.TopK)
	v.SetDefault("evaluate.relevant", defaultConfig.Evaluate.Relevant)
	// [output]
	v.SetDefault("output.dir", defaultConfig.Output.Dir)
}

// LoadConfig reads a TOML file and overrides it with LOWRANK_* environment variables, for example
// LOWRANK_CUR_NUM_SAMPLES for cur.num_samples. An empty path reads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix("LOWRANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}

// CURParams converts the CUR section to model parameters.
func (config *Config) CURParams() model.Params {
	return model.Params{
		model.NumSamples:  config.CUR.NumSamples,
		model.Energy:      config.CUR.Energy,
		model.RandomState: config.CUR.RandomState,
	}
}

// SVDParams converts the SVD section to model parameters.
func (config *Config) SVDParams() model.Params {
	return model.Params{
		model.Energy: config.SVD.Energy,
		model.Rank:   config.SVD.Rank,
	}
}

// KNNParams converts the k-NN section to model parameters. The baseline option of the section is
// overwritten by baseline.
func (config *Config) KNNParams(baseline bool) model.Params {
	return model.Params{
		model.K:        config.KNN.K,
		model.Baseline: baseline,
	}
}
