// Package inflation rescales monetary values between currency years
// using an annual price index.
package inflation

import (
	"github.com/shopspring/decimal"

	"gencost/internal/errors"
)

// PriceIndex maps calendar years to price index values. Index values are
// held as decimals so ratios between years stay exact until the final
// float conversion.
type PriceIndex struct {
	values map[int]decimal.Decimal
}

// NewPriceIndex creates a price index from per-year values.
func NewPriceIndex(values map[int]decimal.Decimal) *PriceIndex {
	copied := make(map[int]decimal.Decimal, len(values))
	for year, v := range values {
		copied[year] = v
	}
	return &PriceIndex{values: copied}
}

// Has reports whether the index covers a year.
func (ix *PriceIndex) Has(year int) bool {
	_, ok := ix.values[year]
	return ok
}

// Years returns the number of covered years.
func (ix *PriceIndex) Years() int {
	return len(ix.values)
}

// Ratio returns index[targetYear] / index[baseYear]. Either year missing
// from the index is a not-found error.
func (ix *PriceIndex) Ratio(baseYear, targetYear int) (float64, error) {
	base, ok := ix.values[baseYear]
	if !ok {
		return 0, errors.MissingYear(baseYear)
	}
	target, ok := ix.values[targetYear]
	if !ok {
		return 0, errors.MissingYear(targetYear)
	}
	if base.IsZero() {
		return 0, errors.Numeric("price index base year value is zero").
			WithContext("year", baseYear)
	}
	return target.Div(base).InexactFloat64(), nil
}

// Adjust rescales one price from the base year to the target year.
// NaN prices propagate through unchanged in kind.
func (ix *PriceIndex) Adjust(price float64, baseYear, targetYear int) (float64, error) {
	ratio, err := ix.Ratio(baseYear, targetYear)
	if err != nil {
		return 0, err
	}
	return price * ratio, nil
}

// AdjustSeries rescales a series of prices from the base year to the
// target year, returning a new slice.
func (ix *PriceIndex) AdjustSeries(prices []float64, baseYear, targetYear int) ([]float64, error) {
	ratio, err := ix.Ratio(baseYear, targetYear)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p * ratio
	}
	return out, nil
}
