package tables

import (
	"github.com/shopspring/decimal"

	"gencost/core/inflation"
	"gencost/internal/errors"
)

// ReadPriceIndex loads the annual price index. Values are parsed as
// decimals so currency ratios stay exact.
func ReadPriceIndex(path string) (*inflation.PriceIndex, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}

	values := make(map[int]decimal.Decimal, len(table.rows))
	for i := range table.rows {
		year, err := table.whole(i, "year")
		if err != nil {
			return nil, err
		}
		if year == 0 {
			return nil, errors.Configf("%s line %d: missing year", path, i+2)
		}
		cell := table.text(i, "price_index")
		if cell == "" {
			return nil, errors.Configf("%s line %d: missing price_index", path, i+2)
		}
		v, err := decimal.NewFromString(cell)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeParsing, err, "%s line %d: price_index", path, i+2)
		}
		values[year] = v
	}
	return inflation.NewPriceIndex(values), nil
}
