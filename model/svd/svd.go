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

// Package svd implements rank reduction by singular value decomposition.
package svd

import (
	"sort"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
	"modernc.org/mathutil"
)

const (
	// DefaultEnergy is the default share of squared singular values kept by DecomposeEnergy.
	DefaultEnergy = 0.9
	// Rcond is the relative cutoff for small singular values in PseudoInverse.
	Rcond = 1e-15
)

// Factors is the thin decomposition A = U diag(Sigma) V^T. Singular values are in descending order.
type Factors struct {
	U     *mat.Dense // m × k
	Sigma []float64  // k
	V     *mat.Dense // n × k
}

// Rank returns the number of retained singular values.
func (f *Factors) Rank() int {
	return len(f.Sigma)
}

// VT returns V^T without copying.
func (f *Factors) VT() mat.Matrix {
	return f.V.T()
}

// Decompose computes the thin singular value decomposition of a.
func Decompose(a mat.Matrix) (*Factors, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("singular value decomposition failed to converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)
	order := make([]int, len(sigma))
	for i := range order {
		order[i] = i
	}
	if sort.SliceIsSorted(order, func(i, j int) bool { return sigma[order[i]] > sigma[order[j]] }) {
		return &Factors{U: &u, Sigma: sigma, V: &v}, nil
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sigma[order[i]] > sigma[order[j]]
	})
	return gather(&u, sigma, &v, order), nil
}

// gather copies the components listed in order into new factors.
func gather(u *mat.Dense, sigma []float64, v *mat.Dense, order []int) *Factors {
	m, _ := u.Dims()
	n, _ := v.Dims()
	f := &Factors{
		U:     mat.NewDense(m, len(order), nil),
		Sigma: make([]float64, len(order)),
		V:     mat.NewDense(n, len(order), nil),
	}
	for k, index := range order {
		f.U.SetCol(k, mat.Col(nil, index, u))
		f.V.SetCol(k, mat.Col(nil, index, v))
		f.Sigma[k] = sigma[index]
	}
	return f
}

// EnergyRank returns the smallest number of leading singular values whose squared sum reaches threshold of
// the total squared sum. At least one component is kept.
func EnergyRank(sigma []float64, threshold float64) int {
	if len(sigma) == 0 {
		return 0
	}
	if threshold <= 0 {
		return 1
	}
	total := 0.0
	for _, s := range sigma {
		total += s * s
	}
	if total == 0 {
		return 1
	}
	retained := 0.0
	for i, s := range sigma {
		retained += s * s
		if retained/total >= threshold {
			return i + 1
		}
	}
	return len(sigma)
}

// Truncate keeps the leading rank components. The result shares memory with f.
func Truncate(f *Factors, rank int) *Factors {
	rank = mathutil.Max(1, mathutil.Min(rank, f.Rank()))
	m, _ := f.U.Dims()
	n, _ := f.V.Dims()
	return &Factors{
		U:     f.U.Slice(0, m, 0, rank).(*mat.Dense),
		Sigma: f.Sigma[:rank],
		V:     f.V.Slice(0, n, 0, rank).(*mat.Dense),
	}
}

// DecomposeEnergy computes the decomposition of a and keeps the shortest prefix of singular values that
// retains threshold of the energy (sum of squared singular values).
func DecomposeEnergy(a mat.Matrix, threshold float64) (*Factors, error) {
	f, err := Decompose(a)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return Truncate(f, EnergyRank(f.Sigma, threshold)), nil
}

// Reconstruct computes U diag(Sigma) V^T.
func Reconstruct(f *Factors) *mat.Dense {
	var us, a mat.Dense
	us.Mul(f.U, mat.NewDiagDense(f.Rank(), f.Sigma))
	a.Mul(&us, f.VT())
	return &a
}

// PseudoInverse computes the Moore-Penrose pseudo-inverse V diag(1/Sigma) U^T. Singular values not above
// Rcond times the largest one are treated as zero, so singular matrices are accepted.
func PseudoInverse(a mat.Matrix) (*mat.Dense, error) {
	f, err := Decompose(a)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cutoff := 0.0
	if f.Rank() > 0 {
		cutoff = Rcond * f.Sigma[0]
	}
	inverse := make([]float64, f.Rank())
	for i, s := range f.Sigma {
		if s > cutoff {
			inverse[i] = 1 / s
		}
	}
	var vs, pinv mat.Dense
	vs.Mul(f.V, mat.NewDiagDense(f.Rank(), inverse))
	pinv.Mul(&vs, f.U.T())
	return &pinv, nil
}
