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

package dataset

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadLines(t *testing.T) {
	lines := [][]string{
		{"1", "2", "3"},
		{"1", "2,3", "4"},
		{"1", "2\"3", "4"},
		{"1", "2\r\n3", "4"},
		{"", "4", ""},
	}
	text := "1,2,3\n1,\"2,3\",4\n1,\"2\"\"3\",4\n1,\"2\n3\",4\n,4,"
	sc := bufio.NewScanner(strings.NewReader(text))
	var parsed [][]string
	err := ReadLines(sc, ",", func(i int, fields []string) bool {
		parsed = append(parsed, fields)
		return true
	})
	assert.NoError(t, err)
	assert.Equal(t, lines, parsed)
}

func TestReadLinesMultiCharSeparator(t *testing.T) {
	text := "1::1193::5::978300760\n1::661::3::978302109\n2::1357::5::978298709"
	sc := bufio.NewScanner(strings.NewReader(text))
	var parsed [][]string
	err := ReadLines(sc, "::", func(i int, fields []string) bool {
		parsed = append(parsed, fields)
		return i < 1
	})
	assert.NoError(t, err)
	assert.Equal(t, [][]string{
		{"1", "1193", "5", "978300760"},
		{"1", "661", "3", "978302109"},
	}, parsed)
}

func TestReadLinesLongLine(t *testing.T) {
	text := "0" + strings.Repeat(",0", 40000) + "\n1,2\n"
	var lengths []int
	err := ReadLines(NewScanner(strings.NewReader(text)), ",", func(i int, fields []string) bool {
		lengths = append(lengths, len(fields))
		return true
	})
	assert.NoError(t, err)
	assert.Equal(t, []int{40001, 2}, lengths)
}
