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
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorse-io/lowrank/config"
	"github.com/gorse-io/lowrank/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/mat"
)

const (
	numUsers = 6
	numItems = 5
)

type countingProgress struct {
	count int
}

func (p *countingProgress) Add(num int) error {
	p.count += num
	return nil
}

type PipelineTestSuite struct {
	suite.Suite
	config *config.Config
	data   *Data
}

func (suite *PipelineTestSuite) SetupTest() {
	var builder strings.Builder
	for u := 1; u <= numUsers; u++ {
		for i := 1; i <= numItems; i++ {
			if (u+i)%4 == 0 {
				continue
			}
			builder.WriteString(fmt.Sprintf("%d::%d::%d::%d\n", u, i, (u*7+i*3)%5+1, 978300760+u*10+i))
		}
	}
	path := filepath.Join(suite.T().TempDir(), "ratings.dat")
	suite.NoError(os.WriteFile(path, []byte(builder.String()), 0o644))

	suite.config = config.GetDefaultConfig()
	suite.config.Dataset.RatingsPath = path
	suite.config.CUR.NumSamples = 3
	suite.config.KNN.K = 2
	suite.config.Evaluate.TopK = 2
	var err error
	suite.data, err = LoadData(suite.config.Dataset)
	suite.NoError(err)
}

func (suite *PipelineTestSuite) TestLoadData() {
	users, items := suite.data.Matrix.Dims()
	suite.Equal(numUsers, users)
	suite.Equal(numItems, items)
	suite.Len(suite.data.Test, numUsers)
	suite.Equal(len(suite.data.Train), suite.data.Matrix.CountObserved())
	for _, record := range suite.data.Train {
		value, err := suite.data.Matrix.Rating(record.UserId, record.ItemId)
		suite.NoError(err)
		suite.Equal(record.Value, value)
	}

	_, err := LoadData(config.DatasetConfig{Separator: "::", TestRatio: 0.2})
	suite.True(errors.Is(err, errors.NotValid))
}

func withoutTimestamps(records []dataset.Rating) []dataset.Rating {
	return lo.Map(records, func(record dataset.Rating, _ int) dataset.Rating {
		record.Timestamp = time.Time{}
		return record
	})
}

func (suite *PipelineTestSuite) TestSaveAndLoad() {
	dir := suite.T().TempDir()
	suite.NoError(suite.data.Save(dir))
	loaded, err := LoadData(config.DatasetConfig{
		TrainPath:  filepath.Join(dir, TrainFile),
		TestPath:   filepath.Join(dir, TestFile),
		MatrixPath: filepath.Join(dir, MatrixFile),
	})
	suite.NoError(err)
	// timestamps are not saved
	suite.Equal(withoutTimestamps(suite.data.Train), loaded.Train)
	suite.Equal(withoutTimestamps(suite.data.Test), loaded.Test)
	suite.Equal(suite.data.Items.IDs(), loaded.Items.IDs())
	suite.True(mat.Equal(suite.data.Matrix.Dense(), loaded.Matrix.Dense()))

	// without a matrix snapshot the matrix is rebuilt from the records
	loaded, err = LoadData(config.DatasetConfig{
		TrainPath: filepath.Join(dir, TrainFile),
		TestPath:  filepath.Join(dir, TestFile),
	})
	suite.NoError(err)
	suite.True(mat.Equal(suite.data.Matrix.Dense(), loaded.Matrix.Dense()))
}

func (suite *PipelineTestSuite) checkReport(report *Report, method string) {
	suite.Equal(method, report.Method)
	for _, value := range []float64{report.TrainRMSE, report.TestRMSE, report.Spearman, report.Precision} {
		suite.False(math.IsNaN(value))
		suite.False(math.IsInf(value, 0))
	}
	suite.GreaterOrEqual(report.TrainRMSE, 0.0)
	suite.GreaterOrEqual(report.TestRMSE, 0.0)
	suite.GreaterOrEqual(report.Precision, 0.0)
	suite.LessOrEqual(report.Precision, 1.0)
	suite.LessOrEqual(math.Abs(report.Spearman), 1.0+1e-9)
}

func (suite *PipelineTestSuite) TestRunCUR() {
	pipeline := NewPipeline(suite.config, suite.data)
	report, err := pipeline.RunCUR(false)
	suite.NoError(err)
	suite.checkReport(report, config.MethodCUR)
	suite.Equal(3, report.Rank)

	report, err = pipeline.RunCUR(true)
	suite.NoError(err)
	suite.checkReport(report, config.MethodCUREnergy)

	// the number of samples is capped by the matrix size
	suite.config.CUR.NumSamples = 100
	report, err = pipeline.RunCUR(false)
	suite.NoError(err)
	suite.Equal(numItems, report.Rank)
}

func (suite *PipelineTestSuite) TestRunSVD() {
	pipeline := NewPipeline(suite.config, suite.data)
	report, err := pipeline.RunSVD()
	suite.NoError(err)
	suite.checkReport(report, config.MethodSVD)
	suite.LessOrEqual(report.Rank, numItems)

	suite.config.SVD.Rank = numItems
	report, err = pipeline.RunSVD()
	suite.NoError(err)
	suite.Equal(numItems, report.Rank)
	suite.InDelta(0, report.TrainRMSE, 1e-9)
}

func (suite *PipelineTestSuite) TestRunKNN() {
	pipeline := NewPipeline(suite.config, suite.data)
	progress := &countingProgress{}
	pipeline.SetProgress(func(description string, total int) Progress {
		suite.Equal(config.MethodKNN, description)
		suite.Equal(numUsers, total)
		return progress
	})
	report, err := pipeline.RunKNN(false)
	suite.NoError(err)
	suite.checkReport(report, config.MethodKNN)
	suite.Equal(2, report.Rank)
	suite.Equal(numUsers, progress.count)

	pipeline.SetProgress(nil)
	report, err = pipeline.RunKNN(true)
	suite.NoError(err)
	suite.checkReport(report, config.MethodKNNBaseline)

	suite.config.KNN.K = numUsers
	_, err = pipeline.RunKNN(false)
	suite.True(errors.Is(err, errors.NotValid))
}

func (suite *PipelineTestSuite) TestRunAll() {
	pipeline := NewPipeline(suite.config, suite.data)
	reports, err := pipeline.RunAll(suite.config.Evaluate.Methods)
	suite.NoError(err)
	suite.Len(reports, len(suite.config.Evaluate.Methods))
	for i, report := range reports {
		suite.checkReport(report, suite.config.Evaluate.Methods[i])
	}

	_, err = pipeline.Run("als")
	suite.True(errors.Is(err, errors.NotSupported))
	_, err = pipeline.RunAll([]string{config.MethodSVD, "als"})
	suite.True(errors.Is(err, errors.NotSupported))
}

func TestPipeline(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}
