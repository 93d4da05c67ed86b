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

package knn

import (
	"sort"

	"github.com/gorse-io/lowrank/dataset"
	"github.com/gorse-io/lowrank/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const DefaultK = 10

// KNN is a user based neighborhood model. Users are compared by the cosine similarity of their rows
// and a rating is the similarity weighted mean of the k nearest users. With the baseline option the
// model is fitted on the residuals after removing the global mean and item deviations.
type KNN struct {
	model.BaseModel
	k        int
	baseline bool

	ratings      *mat.Dense // fitted matrix or residual copy
	globalMean   float64    // baseline: mean of observed ratings
	itemBias     []float64  // baseline: item mean minus global mean
	neighbors    [][]int
	similarities [][]float64
}

// NewKNN creates a k-NN model.
func NewKNN(params model.Params) *KNN {
	knn := new(KNN)
	knn.SetParams(params)
	return knn
}

func (knn *KNN) SetParams(params model.Params) {
	knn.BaseModel.SetParams(params)
	knn.k = knn.Params.GetInt(model.K, DefaultK)
	knn.baseline = knn.Params.GetBool(model.Baseline, false)
}

// K returns the number of neighbors.
func (knn *KNN) K() int {
	return knn.k
}

// Baseline reports whether the model removes the global mean and item deviations.
func (knn *KNN) Baseline() bool {
	return knn.baseline
}

// Fit finds the k nearest neighbors of every user. Zeros in matrix are unobserved. The model keeps a
// reference to matrix, which must not be modified afterwards.
func (knn *KNN) Fit(matrix *mat.Dense) error {
	users, _ := matrix.Dims()
	if knn.k <= 0 || knn.k > users-1 {
		return errors.NotValidf("k = %d for %d users", knn.k, users)
	}
	knn.ratings = matrix
	knn.globalMean, knn.itemBias = 0, nil
	if knn.baseline {
		if err := knn.removeBaseline(); err != nil {
			return errors.Trace(err)
		}
	}

	// cosine similarity
	norms := make([]float64, users)
	for i := range norms {
		norms[i] = floats.Norm(knn.ratings.RawRowView(i), 2)
	}
	knn.neighbors = make([][]int, users)
	knn.similarities = make([][]float64, users)
	dots := mat.NewVecDense(users, nil)
	for i := 0; i < users; i++ {
		dots.MulVec(knn.ratings, knn.ratings.RowView(i))
		sims := make([]float64, users)
		for j := range sims {
			if norms[i] > 0 && norms[j] > 0 {
				sims[j] = dots.AtVec(j) / (norms[i] * norms[j])
			}
		}
		candidates := lo.Filter(lo.Range(users), func(j, _ int) bool { return j != i })
		sort.SliceStable(candidates, func(a, b int) bool {
			return sims[candidates[a]] > sims[candidates[b]]
		})
		knn.neighbors[i] = candidates[:knn.k]
		knn.similarities[i] = lo.Map(knn.neighbors[i], func(j, _ int) float64 { return sims[j] })
	}
	return nil
}

// removeBaseline replaces the ratings by a residual copy. The fitted matrix is not modified.
func (knn *KNN) removeBaseline() error {
	knn.ratings = mat.DenseCopyOf(knn.ratings)
	users, items := knn.ratings.Dims()
	sum, count := 0.0, 0
	itemSum := make([]float64, items)
	itemCount := make([]int, items)
	for i := 0; i < users; i++ {
		for j, r := range knn.ratings.RawRowView(i) {
			if r != 0 {
				sum += r
				count++
				itemSum[j] += r
				itemCount[j]++
			}
		}
	}
	if count == 0 {
		return errors.NotValidf("baseline of a matrix without observed ratings")
	}
	knn.globalMean = sum / float64(count)
	knn.itemBias = make([]float64, items)
	for j := range knn.itemBias {
		if itemCount[j] > 0 {
			knn.itemBias[j] = itemSum[j]/float64(itemCount[j]) - knn.globalMean
		}
	}
	for i := 0; i < users; i++ {
		row := knn.ratings.RawRowView(i)
		for j, r := range row {
			if r != 0 {
				row[j] = r - knn.globalMean - knn.itemBias[j]
			}
		}
	}
	return nil
}

// Neighbors returns the nearest users of user and their similarities in descending order.
func (knn *KNN) Neighbors(user int) ([]int, []float64) {
	return knn.neighbors[user], knn.similarities[user]
}

// Predict rates item for user by indices. If the similarities of all neighbors sum to zero, the
// neighbors are weighted equally.
func (knn *KNN) Predict(user, item int) float64 {
	weightSum, weightRating, ratingSum := 0.0, 0.0, 0.0
	for n, neighbor := range knn.neighbors[user] {
		rating := knn.ratings.At(neighbor, item)
		weightSum += knn.similarities[user][n]
		weightRating += knn.similarities[user][n] * rating
		ratingSum += rating
	}
	var prediction float64
	if weightSum != 0 {
		prediction = weightRating / weightSum
	} else {
		prediction = ratingSum / float64(len(knn.neighbors[user]))
	}
	if knn.baseline {
		prediction += knn.globalMean + knn.itemBias[item]
	}
	return prediction
}

// PredictRow rates every item for user.
func (knn *KNN) PredictRow(user int) []float64 {
	_, items := knn.ratings.Dims()
	row := make([]float64, items)
	for j := range row {
		row[j] = knn.Predict(user, j)
	}
	return row
}

// PredictMatrix rates every item for every user.
func (knn *KNN) PredictMatrix() *mat.Dense {
	users, items := knn.ratings.Dims()
	prediction := mat.NewDense(users, items, nil)
	for i := 0; i < users; i++ {
		prediction.SetRow(i, knn.PredictRow(i))
	}
	return prediction
}

// PredictRecords rates records by their external ids.
func (knn *KNN) PredictRecords(records []dataset.Rating, users, items *dataset.Index) ([]float64, error) {
	predictions := make([]float64, len(records))
	for i, record := range records {
		user, item := users.ToIndex(record.UserId), items.ToIndex(record.ItemId)
		if user == dataset.NotId {
			return nil, errors.NotFoundf("user %d", record.UserId)
		}
		if item == dataset.NotId {
			return nil, errors.NotFoundf("item %d", record.ItemId)
		}
		predictions[i] = knn.Predict(user, item)
	}
	return predictions, nil
}
