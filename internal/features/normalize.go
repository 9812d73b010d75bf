// Package features maps signal sets onto the fixed column schema the classifier
// was trained on.
package features

import (
	"errors"
	"fmt"
	"math"

	"instaguard/internal/models"
)

// NumColumns is the width of every feature vector.
const NumColumns = 11

// Columns is the canonical column order expected by the classifier.
var Columns = [NumColumns]string{
	"profile pic",
	"nums/length username",
	"fullname words",
	"nums/length fullname",
	"name==username",
	"description length",
	"external URL",
	"private",
	"#posts",
	"#followers",
	"#follows",
}

// PrivateColumn is always zero: no extraction path detects account privacy.
const PrivateColumn = "private"

// ErrMalformedVector is returned when a vector does not fit the schema.
var ErrMalformedVector = errors.New("malformed feature vector")

// renames maps source signal names onto canonical column names.
var renames = map[string]string{
	"has_profile_pic":      "profile pic",
	"nums/length_username": "nums/length username",
	"fullname_words":       "fullname words",
	"nums/length_fullname": "nums/length fullname",
	"name==username":       "name==username",
	"bio_length":           "description length",
	"external_url":         "external URL",
	"posts":                "#posts",
	"followers":            "#followers",
	"followees":            "#follows",
}

var columnIndex = func() map[string]int {
	idx := make(map[string]int, NumColumns)
	for i, c := range Columns {
		idx[c] = i
	}
	return idx
}()

// Vector is one classifier input row in canonical column order.
type Vector [NumColumns]float64

// Slice returns the vector as a newly allocated slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumColumns)
	copy(out, v[:])
	return out
}

// Get returns the value of a canonical column.
func (v Vector) Get(column string) (float64, bool) {
	i, ok := columnIndex[column]
	if !ok {
		return 0, false
	}
	return v[i], true
}

// Validate checks that every value is finite and non-negative.
func (v Vector) Validate() error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: column %q is not finite", ErrMalformedVector, Columns[i])
		}
		if x < 0 {
			return fmt.Errorf("%w: column %q is negative", ErrMalformedVector, Columns[i])
		}
	}
	return nil
}

// Normalize maps a signal set onto a feature vector. Missing columns are 0.
func Normalize(s models.SignalSet) Vector {
	return FromMap(s.Fields())
}

// FromMap builds a vector from signals keyed either by source name or by
// canonical column name. Unknown keys are ignored and missing columns are 0.
// A source name wins over a canonical name for the same column.
func FromMap(fields map[string]float64) Vector {
	var v Vector
	for i, column := range Columns {
		if value, ok := fields[column]; ok {
			v[i] = value
		}
	}
	for key, column := range renames {
		if value, ok := fields[key]; ok {
			v[columnIndex[column]] = value
		}
	}
	v[columnIndex[PrivateColumn]] = 0
	return v
}
