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

package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// RatingsMatrix is a dense users × items rating matrix. Zero means unobserved. It implements mat.Matrix
// and must not be modified after construction.
type RatingsMatrix struct {
	Users    *Index
	Items    *Index
	data     *mat.Dense
	observed *bitset.BitSet
}

// NewRatingsMatrix fills a matrix from training records. Every record must be covered by the indices.
func NewRatingsMatrix(records []Rating, users, items *Index) (*RatingsMatrix, error) {
	if users.Len() == 0 || items.Len() == 0 {
		return nil, errors.NotValidf("empty ratings matrix %dx%d", users.Len(), items.Len())
	}
	data := mat.NewDense(users.Len(), items.Len(), nil)
	for _, record := range records {
		userIndex := users.ToIndex(record.UserId)
		if userIndex == NotId {
			return nil, errors.NotFoundf("user %d", record.UserId)
		}
		itemIndex := items.ToIndex(record.ItemId)
		if itemIndex == NotId {
			return nil, errors.NotFoundf("item %d", record.ItemId)
		}
		data.Set(userIndex, itemIndex, record.Value)
	}
	return NewRatingsMatrixFromDense(data, users, items)
}

// NewRatingsMatrixFromDense wraps an assembled matrix. Rows follow users and columns follow items.
func NewRatingsMatrixFromDense(data *mat.Dense, users, items *Index) (*RatingsMatrix, error) {
	rows, cols := data.Dims()
	if rows != users.Len() || cols != items.Len() {
		return nil, errors.NotValidf("matrix %dx%d with %d users and %d items", rows, cols, users.Len(), items.Len())
	}
	observed := bitset.New(uint(rows * cols))
	for i := 0; i < rows; i++ {
		for j, value := range data.RawRowView(i) {
			if value != 0 {
				observed.Set(uint(i*cols + j))
			}
		}
	}
	return &RatingsMatrix{Users: users, Items: items, data: data, observed: observed}, nil
}

func (m *RatingsMatrix) Dims() (r, c int) {
	return m.data.Dims()
}

func (m *RatingsMatrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

func (m *RatingsMatrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// Dense returns the underlying matrix without copying.
func (m *RatingsMatrix) Dense() *mat.Dense {
	return m.data
}

// Observed returns the mask of observed entries: bit i*cols+j is set if rating (i, j) is nonzero.
func (m *RatingsMatrix) Observed() *bitset.BitSet {
	return m.observed
}

func (m *RatingsMatrix) CountObserved() int {
	return int(m.observed.Count())
}

// Rating returns the rating given by an external user id to an external item id.
func (m *RatingsMatrix) Rating(userId, itemId int) (float64, error) {
	userIndex := m.Users.ToIndex(userId)
	if userIndex == NotId {
		return 0, errors.NotFoundf("user %d", userId)
	}
	itemIndex := m.Items.ToIndex(itemId)
	if itemIndex == NotId {
		return 0, errors.NotFoundf("item %d", itemId)
	}
	return m.data.At(userIndex, itemIndex), nil
}

// LoadMatrixCSV loads a dense matrix snapshot. The header row holds item ids. If the first header cell is
// empty, the first column is a row label and is skipped. Users are numbered 1..U in row order.
func LoadMatrixCSV(path string) (*RatingsMatrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	return ReadMatrixCSV(file)
}

// ReadMatrixCSV parses a dense matrix snapshot.
func ReadMatrixCSV(r io.Reader) (*RatingsMatrix, error) {
	var (
		itemIds  []int
		offset   int
		values   []float64
		rowCount int
		lineErr  error
	)
	err := ReadLines(NewScanner(r), ",", func(line int, fields []string) bool {
		if line == 0 {
			if len(fields) > 0 && strings.TrimSpace(fields[0]) == "" {
				offset = 1
			}
			for _, field := range fields[offset:] {
				itemId, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
				if err != nil {
					lineErr = errors.Annotatef(err, "header")
					return false
				}
				itemIds = append(itemIds, int(itemId))
			}
			return true
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		if len(fields)-offset != len(itemIds) {
			lineErr = errors.NotValidf("line %d: expect %d values but got %d", line+1, len(itemIds), len(fields)-offset)
			return false
		}
		for _, field := range fields[offset:] {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				lineErr = errors.Annotatef(err, "line %d", line+1)
				return false
			}
			values = append(values, value)
		}
		rowCount++
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if lineErr != nil {
		return nil, lineErr
	}
	if rowCount == 0 || len(itemIds) == 0 {
		return nil, errors.NotValidf("empty matrix csv")
	}
	items := NewIndex(itemIds...)
	if items.Len() != len(itemIds) {
		return nil, errors.NotValidf("duplicate item ids in header")
	}
	// reorder columns so that they follow ascending item ids
	data := mat.NewDense(rowCount, len(itemIds), nil)
	for i := 0; i < rowCount; i++ {
		for j, itemId := range itemIds {
			data.Set(i, items.ToIndex(itemId), values[i*len(itemIds)+j])
		}
	}
	userIds := make([]int, rowCount)
	for i := range userIds {
		userIds[i] = i + 1
	}
	return NewRatingsMatrixFromDense(data, NewIndex(userIds...), items)
}

// SaveMatrixCSV writes a dense matrix snapshot readable by LoadMatrixCSV, with a leading row label column.
func SaveMatrixCSV(w io.Writer, m mat.Matrix, items *Index) error {
	rows, cols := m.Dims()
	if cols != items.Len() {
		return errors.NotValidf("matrix with %d columns and %d items", cols, items.Len())
	}
	writer := bufio.NewWriter(w)
	for _, itemId := range items.IDs() {
		if _, err := writer.WriteString("," + strconv.Itoa(itemId)); err != nil {
			return errors.Trace(err)
		}
	}
	if err := writer.WriteByte('\n'); err != nil {
		return errors.Trace(err)
	}
	for i := 0; i < rows; i++ {
		if _, err := writer.WriteString(strconv.Itoa(i)); err != nil {
			return errors.Trace(err)
		}
		for j := 0; j < cols; j++ {
			if _, err := writer.WriteString("," + strconv.FormatFloat(m.At(i, j), 'g', -1, 64)); err != nil {
				return errors.Trace(err)
			}
		}
		if err := writer.WriteByte('\n'); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(writer.Flush())
}
