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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	index := NewIndex(30, 10, 20, 10)
	assert.Equal(t, 3, index.Len())
	assert.Equal(t, 0, index.ToIndex(10))
	assert.Equal(t, 1, index.ToIndex(20))
	assert.Equal(t, 2, index.ToIndex(30))
	assert.Equal(t, NotId, index.ToIndex(40))
	id, ok := index.ToID(2)
	assert.True(t, ok)
	assert.Equal(t, 30, id)
	_, ok = index.ToID(3)
	assert.False(t, ok)
	_, ok = index.ToID(-1)
	assert.False(t, ok)
	assert.Equal(t, []int{10, 20, 30}, index.IDs())
}

func TestNewUserItemIndex(t *testing.T) {
	train := []Rating{{UserId: 2, ItemId: 7}, {UserId: 1, ItemId: 3}}
	test := []Rating{{UserId: 3, ItemId: 7}, {UserId: 1, ItemId: 5}}
	assert.Equal(t, []int{1, 2, 3}, NewUserIndex(train, test).IDs())
	assert.Equal(t, []int{3, 5, 7}, NewItemIndex(train, test).IDs())
}
