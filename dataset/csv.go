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
	"io"
	"strings"
)

// MaxLineSize is the longest line accepted by NewScanner. A dense matrix row holds one field per item.
const MaxLineSize = 1 << 30

// NewScanner creates a line scanner for ReadLines that accepts lines up to MaxLineSize.
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return sc
}

// ReadLines parse fields of each line for csv file. The separator may span several characters
// (MovieLens uses "::"). Parsing stops early if handler returns false.
func ReadLines(sc *bufio.Scanner, sep string, handler func(int, []string) bool) error {
	separator := []rune(sep)
	lineCount := 0               // line number of current position
	fields := make([]string, 0)  // fields for current line
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	for sc.Scan() {
		// read line
		line := []rune(sc.Text())
		// start of line
		if quoted {
			builder.WriteString("\r\n")
		}
		// parse line
		for i := 0; i < len(line); i++ {
			if !quoted && hasSeparator(line, i, separator) {
				// end of field
				fields = append(fields, builder.String())
				builder.Reset()
				i += len(separator) - 1
			} else if line[i] == '"' {
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						// end of quoted
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					// start of quoted
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
			}
		}
		// end of line
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if !handler(lineCount, fields) {
				return nil
			}
			fields = []string{}
		}
		// increase line count
		lineCount++
	}
	return sc.Err()
}

func hasSeparator(line []rune, pos int, sep []rune) bool {
	if len(sep) == 0 || pos+len(sep) > len(line) {
		return false
	}
	for i := range sep {
		if line[pos+i] != sep[i] {
			return false
		}
	}
	return true
}
