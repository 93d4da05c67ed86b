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

package model

import (
	"math"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/lowrank/dataset"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultTopK is the cutoff of precision@k.
	DefaultTopK = 4
	// DefaultRelevant is the predicted rating above which an item counts as relevant.
	DefaultRelevant = 3.0
)

func checkShape(truth, prediction mat.Matrix) (int, int, error) {
	rows, cols := truth.Dims()
	predRows, predCols := prediction.Dims()
	if rows != predRows || cols != predCols {
		return 0, 0, errors.NotValidf("prediction %dx%d for truth %dx%d", predRows, predCols, rows, cols)
	}
	return rows, cols, nil
}

// RMSE is the root mean square error over masked entries. Bit i*cols+j of mask selects entry (i, j);
// a nil mask selects the nonzero entries of truth.
//
//	\sqrt{\frac{1}{|M|}\sum_{(i,j)\in M}(r_{ij}-\hat{r}_{ij})^2}
func RMSE(truth, prediction mat.Matrix, mask *bitset.BitSet) (float64, error) {
	rows, cols, err := checkShape(truth, prediction)
	if err != nil {
		return 0, err
	}
	sum, count := 0.0, 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			value := truth.At(i, j)
			if (mask != nil && !mask.Test(uint(i*cols+j))) || (mask == nil && value == 0) {
				continue
			}
			diff := value - prediction.At(i, j)
			sum += diff * diff
			count++
		}
	}
	if count == 0 {
		return 0, errors.NotValidf("empty mask")
	}
	return math.Sqrt(sum / float64(count)), nil
}

// RMSEOnRecords is the root mean square error between paired actual and predicted ratings.
func RMSEOnRecords(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, errors.NotValidf("%d predictions for %d ratings", len(predicted), len(actual))
	}
	if len(actual) == 0 {
		return 0, errors.NotValidf("empty ratings")
	}
	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}

// HeldOutRMSE looks up held-out records in a prediction matrix indexed by users and items.
func HeldOutRMSE(records []dataset.Rating, prediction mat.Matrix, users, items *dataset.Index) (float64, error) {
	actual := make([]float64, len(records))
	predicted := make([]float64, len(records))
	for i, record := range records {
		userIndex := users.ToIndex(record.UserId)
		if userIndex == dataset.NotId {
			return 0, errors.NotFoundf("user %d", record.UserId)
		}
		itemIndex := items.ToIndex(record.ItemId)
		if itemIndex == dataset.NotId {
			return 0, errors.NotFoundf("item %d", record.ItemId)
		}
		actual[i] = record.Value
		predicted[i] = prediction.At(userIndex, itemIndex)
	}
	return RMSEOnRecords(actual, predicted)
}

// Rank returns the 1-based ranks of x in ascending order. Tied values share the average of their ranks.
func Rank(x []float64) []float64 {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return x[order[i]] < x[order[j]]
	})
	ranks := make([]float64, len(x))
	for begin := 0; begin < len(order); {
		end := begin + 1
		for end < len(order) && x[order[end]] == x[order[begin]] {
			end++
		}
		// positions begin..end-1 hold ranks begin+1..end
		rank := float64(begin+1+end) / 2
		for _, i := range order[begin:end] {
			ranks[i] = rank
		}
		begin = end
	}
	return ranks
}

// Spearman is the Spearman rank correlation coefficient: the Pearson correlation of tie-averaged ranks.
// It is NaN if either vector is constant.
func Spearman(x, y []float64) float64 {
	return stat.Correlation(Rank(x), Rank(y), nil)
}

// RankCorrelation averages the Spearman correlation between each row of truth and prediction. Rows where
// the correlation is undefined (a constant row) are skipped, so the mean is taken over the rows with a
// defined correlation rather than over all users.
func RankCorrelation(truth, prediction mat.Matrix) (float64, error) {
	rows, cols, err := checkShape(truth, prediction)
	if err != nil {
		return 0, err
	}
	if cols < 2 {
		return 0, errors.NotValidf("rank correlation over %d columns", cols)
	}
	x := make([]float64, cols)
	y := make([]float64, cols)
	sum, count := 0.0, 0
	for i := 0; i < rows; i++ {
		mat.Row(x, i, truth)
		mat.Row(y, i, prediction)
		if corr := Spearman(x, y); !math.IsNaN(corr) {
			sum += corr
			count++
		}
	}
	if count == 0 {
		return 0, errors.NotValidf("rank correlation undefined for every row")
	}
	return sum / float64(count), nil
}

// PrecisionAtK takes the top-k items of each user by true rating (ties broken by lower item index) and
// counts those predicted above relevant. The fraction is averaged over all users.
func PrecisionAtK(k int, truth, prediction mat.Matrix, relevant float64) (float64, error) {
	rows, cols, err := checkShape(truth, prediction)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, errors.NotValidf("precision over 0 users")
	}
	if k <= 0 || k > cols {
		return 0, errors.NotValidf("precision at %d over %d items", k, cols)
	}
	row := make([]float64, cols)
	order := make([]int, cols)
	sum := 0.0
	for i := 0; i < rows; i++ {
		mat.Row(row, i, truth)
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool {
			return row[order[a]] > row[order[b]]
		})
		hit := 0
		for _, j := range order[:k] {
			if prediction.At(i, j) > relevant {
				hit++
			}
		}
		sum += float64(hit) / float64(k)
	}
	return sum / float64(rows), nil
}
