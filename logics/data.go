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

package logics

import (
	"os"
	"path/filepath"

	"github.com/gorse-io/lowrank/base"
	"github.com/gorse-io/lowrank/base/log"
	"github.com/gorse-io/lowrank/config"
	"github.com/gorse-io/lowrank/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	TrainFile  = "train.csv"
	TestFile   = "test.csv"
	MatrixFile = "matrix.csv"
)

// Data is a train/test split and the ratings matrix of the training records.
type Data struct {
	Train  []dataset.Rating
	Test   []dataset.Rating
	Users  *dataset.Index
	Items  *dataset.Index
	Matrix *dataset.RatingsMatrix
}

// NewData indexes the users and items of both sets and fills the matrix with the training records.
func NewData(train, test []dataset.Rating) (*Data, error) {
	users := dataset.NewUserIndex(train, test)
	items := dataset.NewItemIndex(train, test)
	matrix, err := dataset.NewRatingsMatrix(train, users, items)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Data{Train: train, Test: test, Users: users, Items: items, Matrix: matrix}, nil
}

// LoadData reads the records and the matrix located by cfg.
func LoadData(cfg config.DatasetConfig) (*Data, error) {
	var train, test []dataset.Rating
	var err error
	switch {
	case cfg.TrainPath != "" && cfg.TestPath != "":
		if train, err = dataset.LoadRecordsCSV(cfg.TrainPath); err != nil {
			return nil, errors.Trace(err)
		}
		if test, err = dataset.LoadRecordsCSV(cfg.TestPath); err != nil {
			return nil, errors.Trace(err)
		}
	case cfg.RatingsPath != "":
		ratings, err := dataset.LoadRatings(cfg.RatingsPath, cfg.Separator)
		if err != nil {
			return nil, errors.Trace(err)
		}
		train, test, err = dataset.SplitRatings(ratings, cfg.TestRatio, base.NewRandomGenerator(cfg.RandomState))
		if err != nil {
			return nil, errors.Trace(err)
		}
	default:
		return nil, errors.NotValidf("dataset without ratings_path or train_path and test_path")
	}

	var data *Data
	if cfg.MatrixPath != "" {
		matrix, err := dataset.LoadMatrixCSV(cfg.MatrixPath)
		if err != nil {
			return nil, errors.Trace(err)
		}
		data = &Data{Train: train, Test: test, Users: matrix.Users, Items: matrix.Items, Matrix: matrix}
	} else if data, err = NewData(train, test); err != nil {
		return nil, errors.Trace(err)
	}
	users, items := data.Matrix.Dims()
	log.Logger().Info("load dataset",
		zap.Int("n_train", len(data.Train)),
		zap.Int("n_test", len(data.Test)),
		zap.Int("n_users", users),
		zap.Int("n_items", items),
		zap.Int("n_observed", data.Matrix.CountObserved()))
	return data, nil
}

// Save writes the records and the matrix to dir in the formats read by LoadData.
func (d *Data) Save(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	save := func(name string, write func(f *os.File) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return errors.Trace(err)
		}
		if err = write(f); err != nil {
			_ = f.Close()
			return errors.Annotatef(err, "failed to save %s", name)
		}
		return errors.Trace(f.Close())
	}
	if err := save(TrainFile, func(f *os.File) error { return dataset.SaveRecordsCSV(f, d.Train) }); err != nil {
		return err
	}
	if err := save(TestFile, func(f *os.File) error { return dataset.SaveRecordsCSV(f, d.Test) }); err != nil {
		return err
	}
	if err := save(MatrixFile, func(f *os.File) error {
		return dataset.SaveMatrixCSV(f, d.Matrix.Dense(), d.Items)
	}); err != nil {
		return err
	}
	log.Logger().Info("save dataset", zap.String("dir", dir))
	return nil
}
