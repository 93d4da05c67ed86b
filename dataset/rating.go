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
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorse-io/lowrank/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"modernc.org/mathutil"
)

// Rating is a (user, item, rating) record. Ids are external 1-based identifiers.
type Rating struct {
	UserId    int
	ItemId    int
	Value     float64
	Timestamp time.Time
}

// LoadRatings loads records from a delimited ratings file, such as MovieLens ratings.dat:
//
//	UserID::MovieID::Rating::Timestamp
//
// The timestamp column is optional.
func LoadRatings(path, sep string) ([]Rating, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	return ReadRatings(file, sep)
}

// ReadRatings parses delimited rating records.
func ReadRatings(r io.Reader, sep string) ([]Rating, error) {
	var (
		records []Rating
		lineErr error
	)
	err := ReadLines(NewScanner(r), sep, func(line int, fields []string) bool {
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		if len(fields) < 3 {
			lineErr = errors.NotValidf("line %d: expect at least 3 fields but got %d", line+1, len(fields))
			return false
		}
		var record Rating
		if record, lineErr = parseRating(fields[0], fields[1], fields[2]); lineErr != nil {
			lineErr = errors.Annotatef(lineErr, "line %d", line+1)
			return false
		}
		if len(fields) > 3 {
			if record.Timestamp, lineErr = parseTimestamp(fields[3]); lineErr != nil {
				lineErr = errors.Annotatef(lineErr, "line %d", line+1)
				return false
			}
		}
		records = append(records, record)
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if lineErr != nil {
		return nil, lineErr
	}
	return records, nil
}

func parseRating(userField, itemField, ratingField string) (Rating, error) {
	userId, err := strconv.Atoi(strings.TrimSpace(userField))
	if err != nil {
		return Rating{}, errors.Trace(err)
	}
	itemId, err := strconv.Atoi(strings.TrimSpace(itemField))
	if err != nil {
		return Rating{}, errors.Trace(err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(ratingField), 64)
	if err != nil {
		return Rating{}, errors.Trace(err)
	}
	return Rating{UserId: userId, ItemId: itemId, Value: value}, nil
}

// parseTimestamp accepts unix seconds or any layout understood by dateparse. Dates without a zone are UTC.
func parseTimestamp(field string) (time.Time, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return time.Time{}, nil
	}
	if seconds, err := strconv.ParseInt(field, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}
	t, err := dateparse.ParseIn(field, time.UTC)
	if err != nil {
		return time.Time{}, errors.Trace(err)
	}
	return t, nil
}

var columnAliases = map[string][]string{
	"user":   {"userid", "user_id", "user"},
	"item":   {"movieid", "movie_id", "itemid", "item_id", "item"},
	"rating": {"ratings", "rating"},
}

// LoadRecordsCSV loads a train or test split written as CSV with a header row. Columns are matched by
// name (userid, movieid, ratings and common aliases), so a leading unnamed index column is ignored.
func LoadRecordsCSV(path string) ([]Rating, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	return ReadRecordsCSV(file)
}

// ReadRecordsCSV parses rating records from CSV with a header row.
func ReadRecordsCSV(r io.Reader) ([]Rating, error) {
	var (
		records []Rating
		columns map[string]int
		lineErr error
	)
	err := ReadLines(NewScanner(r), ",", func(line int, fields []string) bool {
		if line == 0 {
			columns, lineErr = matchColumns(fields)
			return lineErr == nil
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		for _, col := range columns {
			if col >= len(fields) {
				lineErr = errors.NotValidf("line %d: missing fields", line+1)
				return false
			}
		}
		var record Rating
		if record, lineErr = parseRating(fields[columns["user"]], fields[columns["item"]], fields[columns["rating"]]); lineErr != nil {
			lineErr = errors.Annotatef(lineErr, "line %d", line+1)
			return false
		}
		records = append(records, record)
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if lineErr != nil {
		return nil, lineErr
	}
	if columns == nil {
		return nil, errors.NotValidf("empty csv")
	}
	return records, nil
}

func matchColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for column, aliases := range columnAliases {
			if lo.Contains(aliases, name) {
				columns[column] = i
			}
		}
	}
	for column := range columnAliases {
		if _, ok := columns[column]; !ok {
			return nil, errors.NotValidf("header %v: %s column", header, column)
		}
	}
	return columns, nil
}

// SaveRecordsCSV writes records in the format read by LoadRecordsCSV.
func SaveRecordsCSV(w io.Writer, records []Rating) error {
	writer := bufio.NewWriter(w)
	if _, err := writer.WriteString(",userid,movieid,ratings\n"); err != nil {
		return errors.Trace(err)
	}
	for i, record := range records {
		if _, err := fmt.Fprintf(writer, "%d,%d,%d,%s\n", i, record.UserId, record.ItemId,
			strconv.FormatFloat(record.Value, 'g', -1, 64)); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(writer.Flush())
}

// SplitRatings splits records into train and test sets stratified by user: each user keeps the share
// testRatio of its records (rounded) in the test set, but always at least one record in the train set.
// Both sets are sorted by user id, then rating.
func SplitRatings(records []Rating, testRatio float64, rng base.RandomGenerator) (train, test []Rating, err error) {
	if testRatio <= 0 || testRatio >= 1 || math.IsNaN(testRatio) {
		return nil, nil, errors.NotValidf("test ratio %v", testRatio)
	}
	groups := lo.GroupBy(records, func(r Rating) int { return r.UserId })
	userIds := lo.Keys(groups)
	sort.Ints(userIds)
	train = make([]Rating, 0, len(records))
	test = make([]Rating, 0, int(float64(len(records))*testRatio)+len(userIds))
	for _, userId := range userIds {
		group := groups[userId]
		testSize := int(math.Round(float64(len(group)) * testRatio))
		testSize = mathutil.Min(testSize, len(group)-1)
		sampled := lo.SliceToMap(rng.Sample(0, len(group), testSize), func(i int) (int, struct{}) {
			return i, struct{}{}
		})
		for i, record := range group {
			if _, isTest := sampled[i]; isTest {
				test = append(test, record)
			} else {
				train = append(train, record)
			}
		}
	}
	sortRatings(train)
	sortRatings(test)
	return train, test, nil
}

func sortRatings(records []Rating) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UserId != records[j].UserId {
			return records[i].UserId < records[j].UserId
		}
		return records[i].Value < records[j].Value
	})
}
