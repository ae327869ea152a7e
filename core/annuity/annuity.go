// Package annuity converts overnight capital costs into levelized
// annual investment costs using a continuous-compounding capital
// recovery factor.
package annuity

import (
	"math"

	"gencost/internal/errors"
)

// InvestmentCost returns the levelized annual cost of recovering capex
// over years at the given rate:
//
//	capex * exp(r*n) * (exp(r) - 1) / (exp(r*n) - 1)
//
// Any NaN input is a numeric validation error.
func InvestmentCost(capex, rate, years float64) (float64, error) {
	if math.IsNaN(capex) || math.IsNaN(rate) || math.IsNaN(years) {
		return 0, errors.Numeric("investment cost inputs contain NaN values")
	}
	return annualCost(capex, rate, years), nil
}

// InvestmentCostSeries is the elementwise form of InvestmentCost over
// equal-length slices. Inputs are validated in full before any output is
// produced.
func InvestmentCostSeries(capex, rates, years []float64) ([]float64, error) {
	if len(rates) != len(capex) || len(years) != len(capex) {
		return nil, errors.Newf(errors.TypeInput,
			"investment cost series lengths differ: capex %d, rates %d, years %d",
			len(capex), len(rates), len(years))
	}
	for i := range capex {
		if math.IsNaN(capex[i]) || math.IsNaN(rates[i]) || math.IsNaN(years[i]) {
			return nil, errors.Numeric("investment cost inputs contain NaN values").
				WithContext("index", i)
		}
	}
	out := make([]float64, len(capex))
	for i := range capex {
		out[i] = annualCost(capex[i], rates[i], years[i])
	}
	return out, nil
}

func annualCost(capex, rate, years float64) float64 {
	return capex * (math.Exp(rate*years) * (math.Exp(rate) - 1) / (math.Exp(rate*years) - 1))
}
