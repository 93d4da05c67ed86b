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
	"sort"

	"github.com/samber/lo"
)

// NotId is returned by ToIndex for unknown ids.
const NotId = -1

// Index is a fixed bidirectional map between external ids and dense matrix indices. Ids are assigned
// indices in ascending order, so comparing indices is equivalent to comparing ids.
type Index struct {
	si map[int]int
	is []int
}

// NewIndex builds an index over the distinct ids.
func NewIndex(ids ...int) *Index {
	is := lo.Uniq(ids)
	sort.Ints(is)
	si := make(map[int]int, len(is))
	for i, id := range is {
		si[id] = i
	}
	return &Index{si: si, is: is}
}

// NewUserIndex builds the user index of rating records.
func NewUserIndex(records ...[]Rating) *Index {
	var ids []int
	for _, part := range records {
		ids = append(ids, lo.Map(part, func(r Rating, _ int) int { return r.UserId })...)
	}
	return NewIndex(ids...)
}

// NewItemIndex builds the item index of rating records.
func NewItemIndex(records ...[]Rating) *Index {
	var ids []int
	for _, part := range records {
		ids = append(ids, lo.Map(part, func(r Rating, _ int) int { return r.ItemId })...)
	}
	return NewIndex(ids...)
}

func (d *Index) Len() int {
	return len(d.is)
}

// ToIndex returns the index of an id or NotId.
func (d *Index) ToIndex(id int) int {
	if index, ok := d.si[id]; ok {
		return index
	}
	return NotId
}

// ToID returns the id at an index.
func (d *Index) ToID(index int) (int, bool) {
	if index < 0 || index >= len(d.is) {
		return 0, false
	}
	return d.is[index], true
}

// IDs returns a copy of all ids in index order.
func (d *Index) IDs() []int {
	return append([]int(nil), d.is...)
}
