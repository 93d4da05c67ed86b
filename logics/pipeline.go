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
	"time"

	"github.com/gorse-io/lowrank/base/log"
	"github.com/gorse-io/lowrank/config"
	"github.com/gorse-io/lowrank/model"
	"github.com/gorse-io/lowrank/model/cur"
	"github.com/gorse-io/lowrank/model/knn"
	"github.com/gorse-io/lowrank/model/svd"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"modernc.org/mathutil"
)

// Report holds the metrics of one method.
type Report struct {
	Method    string
	Rank      int // retained rank or number of neighbors
	TrainRMSE float64
	TestRMSE  float64
	Spearman  float64
	Precision float64
	Duration  time.Duration
}

// Progress is notified after each predicted user.
type Progress interface {
	Add(num int) error
}

// Pipeline fits each method on the training matrix and evaluates it.
type Pipeline struct {
	config   *config.Config
	data     *Data
	progress func(description string, total int) Progress
}

func NewPipeline(cfg *config.Config, data *Data) *Pipeline {
	return &Pipeline{config: cfg, data: data}
}

// SetProgress installs a factory of progress trackers for long predictions.
func (p *Pipeline) SetProgress(progress func(description string, total int) Progress) {
	p.progress = progress
}

// RunAll evaluates methods in order and stops at the first failure.
func (p *Pipeline) RunAll(methods []string) ([]*Report, error) {
	reports := make([]*Report, 0, len(methods))
	for _, method := range methods {
		report, err := p.Run(method)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to evaluate %s", method)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Run evaluates a method by name.
func (p *Pipeline) Run(method string) (*Report, error) {
	switch method {
	case config.MethodCUR:
		return p.RunCUR(false)
	case config.MethodCUREnergy:
		return p.RunCUR(true)
	case config.MethodSVD:
		return p.RunSVD()
	case config.MethodKNN:
		return p.RunKNN(false)
	case config.MethodKNNBaseline:
		return p.RunKNN(true)
	default:
		return nil, errors.NotSupportedf("method %s", method)
	}
}

// RunCUR approximates the training matrix by CUR decomposition. The number of samples is capped by the
// matrix size.
func (p *Pipeline) RunCUR(energy bool) (*Report, error) {
	start := time.Now()
	users, items := p.data.Matrix.Dims()
	engine := cur.NewCUR(p.data.Matrix, p.config.CURParams())
	r := mathutil.Min(engine.NumSamples(), mathutil.Min(users, items))
	if r < engine.NumSamples() {
		log.Logger().Warn("cap number of samples by matrix size",
			zap.Int("num_samples", engine.NumSamples()), zap.Int("capped", r))
	}
	var (
		decomposition *cur.Decomposition
		err           error
		method        = config.MethodCUR
	)
	if energy {
		method = config.MethodCUREnergy
		decomposition, err = engine.DecomposeEnergy(r, engine.Energy())
	} else {
		decomposition, err = engine.Decompose(r)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	report, err := p.evaluate(method, decomposition.Approx, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	report.Rank = r
	report.Duration = time.Since(start)
	return report, nil
}

// RunSVD approximates the training matrix by truncated singular value decomposition.
func (p *Pipeline) RunSVD() (*Report, error) {
	start := time.Now()
	factors, err := svd.Decompose(p.data.Matrix)
	if err != nil {
		return nil, errors.Trace(err)
	}
	params := p.config.SVDParams()
	if rank := params.GetInt(model.Rank, 0); rank > 0 {
		factors = svd.Truncate(factors, rank)
	} else {
		factors = svd.Truncate(factors, svd.EnergyRank(factors.Sigma, params.GetFloat64(model.Energy, svd.DefaultEnergy)))
	}
	report, err := p.evaluate(config.MethodSVD, svd.Reconstruct(factors), nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	report.Rank = factors.Rank()
	report.Duration = time.Since(start)
	return report, nil
}

// RunKNN predicts the training matrix by user based k-NN. Held-out records are predicted one by one.
func (p *Pipeline) RunKNN(baseline bool) (*Report, error) {
	start := time.Now()
	method := config.MethodKNN
	if baseline {
		method = config.MethodKNNBaseline
	}
	neighbors := knn.NewKNN(p.config.KNNParams(baseline))
	if err := neighbors.Fit(p.data.Matrix.Dense()); err != nil {
		return nil, errors.Trace(err)
	}
	users, items := p.data.Matrix.Dims()
	var tracker Progress
	if p.progress != nil {
		tracker = p.progress(method, users)
	}
	prediction := mat.NewDense(users, items, nil)
	for i := 0; i < users; i++ {
		prediction.SetRow(i, neighbors.PredictRow(i))
		if tracker != nil {
			_ = tracker.Add(1)
		}
	}
	predictions, err := neighbors.PredictRecords(p.data.Test, p.data.Users, p.data.Items)
	if err != nil {
		return nil, errors.Trace(err)
	}
	report, err := p.evaluate(method, prediction, predictions)
	if err != nil {
		return nil, errors.Trace(err)
	}
	report.Rank = neighbors.K()
	report.Duration = time.Since(start)
	return report, nil
}

// evaluate scores a predicted matrix. Held-out records are looked up in prediction unless their
// predictions are given.
func (p *Pipeline) evaluate(method string, prediction mat.Matrix, testPredictions []float64) (*Report, error) {
	report := &Report{Method: method}
	var err error
	if report.TrainRMSE, err = model.RMSE(p.data.Matrix, prediction, p.data.Matrix.Observed()); err != nil {
		return nil, errors.Annotate(err, "training rmse")
	}
	if testPredictions != nil {
		actual := make([]float64, len(p.data.Test))
		for i, record := range p.data.Test {
			actual[i] = record.Value
		}
		report.TestRMSE, err = model.RMSEOnRecords(actual, testPredictions)
	} else {
		report.TestRMSE, err = model.HeldOutRMSE(p.data.Test, prediction, p.data.Users, p.data.Items)
	}
	if err != nil {
		return nil, errors.Annotate(err, "testing rmse")
	}
	if report.Spearman, err = model.RankCorrelation(p.data.Matrix, prediction); err != nil {
		return nil, errors.Annotate(err, "rank correlation")
	}
	if report.Precision, err = model.PrecisionAtK(p.config.Evaluate.TopK, p.data.Matrix, prediction,
		p.config.Evaluate.Relevant); err != nil {
		return nil, errors.Annotate(err, "precision")
	}
	log.Logger().Info("evaluate",
		zap.String("method", method),
		zap.Float64("train_rmse", report.TrainRMSE),
		zap.Float64("test_rmse", report.TestRMSE),
		zap.Float64("spearman", report.Spearman),
		zap.Float64("precision", report.Precision))
	return report, nil
}
