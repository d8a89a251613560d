package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Quantity is a stock count decoded leniently: catalog rows written by hand
// or by the vision extractor may hold strings, nulls or garbage, all of
// which count as zero.
type Quantity float64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = 0

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*q = Quantity(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		*q = Quantity(n)
	}
	return nil
}

func (q Quantity) Float() float64 {
	return float64(q)
}
