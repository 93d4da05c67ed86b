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

// Package cur approximates a matrix by sampled columns C, sampled rows R and a core matrix built
// from their intersection W.
package cur

import (
	"math"

	"github.com/gorse-io/lowrank/model"
	"github.com/gorse-io/lowrank/model/svd"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const DefaultNumSamples = 3000

// Probabilities are the sampling distributions of rows and columns. Each sums to 1.
type Probabilities struct {
	Rows []float64
	Cols []float64
}

// SampleProbabilities returns the share of the squared Frobenius norm held by each row and column.
func SampleProbabilities(a mat.Matrix) (*Probabilities, error) {
	rows, cols := a.Dims()
	p := &Probabilities{
		Rows: make([]float64, rows),
		Cols: make([]float64, cols),
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := a.At(i, j)
			p.Rows[i] += v * v
			p.Cols[j] += v * v
		}
	}
	total := floats.Sum(p.Rows)
	if total == 0 {
		return nil, errors.NotValidf("sampling probabilities of a zero matrix")
	}
	floats.Scale(1/total, p.Rows)
	floats.Scale(1/total, p.Cols)
	return p, nil
}

// Factors are the scaled samples of one decomposition.
type Factors struct {
	C    *mat.Dense // m × r, sampled columns
	R    *mat.Dense // r × n, sampled rows
	W    *mat.Dense // r × r, intersection
	Rows []int      // sampled row indices
	Cols []int      // sampled column indices
}

// Decomposition is A ≈ C · Core · R.
type Decomposition struct {
	*Factors
	Core   *mat.Dense
	Approx *mat.Dense
}

// CUR samples rows and columns of an immutable matrix. Every call draws fresh samples from the
// random generator and returns its own result.
type CUR struct {
	model.BaseModel
	matrix     mat.Matrix
	numSamples int
	energy     float64
}

// NewCUR creates a CUR engine over matrix.
func NewCUR(matrix mat.Matrix, params model.Params) *CUR {
	c := &CUR{matrix: matrix}
	c.SetParams(params)
	return c
}

func (c *CUR) SetParams(params model.Params) {
	c.BaseModel.SetParams(params)
	c.numSamples = c.Params.GetInt(model.NumSamples, DefaultNumSamples)
	c.energy = c.Params.GetFloat64(model.Energy, svd.DefaultEnergy)
}

// NumSamples returns the configured number of sampled rows and columns.
func (c *CUR) NumSamples() int {
	return c.numSamples
}

// Energy returns the configured energy threshold.
func (c *CUR) Energy() float64 {
	return c.energy
}

// SelectAndScale draws r distinct rows and then r distinct columns weighted by their squared norms,
// and scales them so that the products are unbiased.
func (c *CUR) SelectAndScale(r int) (*Factors, error) {
	rows, cols := c.matrix.Dims()
	if r <= 0 || r > rows || r > cols {
		return nil, errors.NotValidf("sample size %d for %dx%d matrix", r, rows, cols)
	}
	p, err := SampleProbabilities(c.matrix)
	if err != nil {
		return nil, errors.Trace(err)
	}
	rng := c.GetRandomGenerator()
	sampledRows, err := rng.WeightedSample(p.Rows, r)
	if err != nil {
		return nil, errors.Annotate(err, "failed to sample rows")
	}
	sampledCols, err := rng.WeightedSample(p.Cols, r)
	if err != nil {
		return nil, errors.Annotate(err, "failed to sample columns")
	}

	f := &Factors{
		C:    mat.NewDense(rows, r, nil),
		R:    mat.NewDense(r, cols, nil),
		W:    mat.NewDense(r, r, nil),
		Rows: sampledRows,
		Cols: sampledCols,
	}
	colScales := make([]float64, r)
	for k, j := range sampledCols {
		colScales[k] = math.Sqrt(float64(r) * p.Cols[j])
		column := mat.Col(nil, j, c.matrix)
		floats.Scale(1/colScales[k], column)
		f.C.SetCol(k, column)
	}
	for k, i := range sampledRows {
		row := mat.Row(nil, i, c.matrix)
		floats.Scale(1/math.Sqrt(float64(r)*p.Rows[i]), row)
		f.R.SetRow(k, row)
		// R already carries the row scale
		for l, j := range sampledCols {
			f.W.Set(k, l, f.R.At(k, j)/colScales[l])
		}
	}
	return f, nil
}

// Decompose approximates the matrix with the pseudo-inverse of W as core.
func (c *CUR) Decompose(r int) (*Decomposition, error) {
	f, err := c.SelectAndScale(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	core, err := svd.PseudoInverse(f.W)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return newDecomposition(f, core), nil
}

// DecomposeEnergy approximates the matrix with a core built from the energy truncated decomposition
// W ≈ X Σ Yᵀ as Y Σ⁻² Xᵀ. Singular values not above svd.Rcond times the largest are dropped before
// inversion.
func (c *CUR) DecomposeEnergy(r int, threshold float64) (*Decomposition, error) {
	f, err := c.SelectAndScale(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	w, err := svd.DecomposeEnergy(f.W, threshold)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cutoff := svd.Rcond * w.Sigma[0]
	rank := 0
	for rank < w.Rank() && w.Sigma[rank] > cutoff {
		rank++
	}
	if rank == 0 {
		return nil, errors.NotValidf("intersection matrix without non-zero singular values")
	}
	w = svd.Truncate(w, rank)
	inverse := make([]float64, rank)
	for i, s := range w.Sigma {
		inverse[i] = 1 / (s * s)
	}
	var yd, core mat.Dense
	yd.Mul(w.V, mat.NewDiagDense(rank, inverse))
	core.Mul(&yd, w.U.T())
	return newDecomposition(f, &core), nil
}

func newDecomposition(f *Factors, core *mat.Dense) *Decomposition {
	var cu, approx mat.Dense
	cu.Mul(f.C, core)
	approx.Mul(&cu, f.R)
	return &Decomposition{Factors: f, Core: core, Approx: &approx}
}
