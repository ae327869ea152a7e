package tables

import (
	"strings"

	"gencost/core/regional"
	"gencost/internal/errors"
)

// ReadMultipliers loads the regional cost multiplier matrix. The first
// column names the cost region and the remaining headers are fleet
// technology names. Rows from userPath, when given, are appended on
// top and replace same-named regions; technologies the user file does
// not cover fall back to the row mean at apply time.
func ReadMultipliers(path, userPath string) (*regional.MultiplierTable, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if len(table.cols) < 2 {
		return nil, errors.Configf("%s needs a region column and at least one technology column", path)
	}

	mt := regional.NewMultiplierTable(table.cols[1:])
	if err := addMultiplierRows(mt, table); err != nil {
		return nil, err
	}

	if userPath != "" {
		user, err := readTable(userPath)
		if err != nil {
			return nil, err
		}
		if err := addMultiplierRows(mt, user); err != nil {
			return nil, err
		}
	}
	return mt, nil
}

func addMultiplierRows(mt *regional.MultiplierTable, table *csvTable) error {
	techs := mt.Technologies()
	for i := range table.rows {
		region := strings.TrimSpace(table.rows[i][0])
		if region == "" {
			continue
		}
		values := make([]float64, len(techs))
		for j, tech := range techs {
			v, err := table.float(i, tech)
			if err != nil {
				return err
			}
			values[j] = v
		}
		if err := mt.AddRow(region, values); err != nil {
			return err
		}
	}
	return nil
}
