package model

import (
	"encoding/json"
	"testing"
)

func TestQuantityLenientDecode(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{
		`{"name":"Coca","quantity":8}`:          8,
		`{"name":"Coca","quantity":"12"}`:       12,
		`{"name":"Coca","quantity":"2,5"}`:      2.5,
		`{"name":"Coca","quantity":"beaucoup"}`: 0,
		`{"name":"Coca","quantity":null}`:       0,
		`{"name":"Coca","quantity":"NaN"}`:      0,
		`{"name":"Coca"}`:                       0,
		`{"name":"Coca","quantity":{"x":1}}`:    0,
	}

	for raw, want := range cases {
		var p Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", raw, err)
		}
		if p.Quantity.Float() != want {
			t.Fatalf("Unmarshal(%s) quantity = %v, want %v", raw, p.Quantity, want)
		}
	}
}
