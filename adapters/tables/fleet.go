package tables

import (
	"gencost/core/types"
)

// ReadFleet loads existing generating units. The capacity column name
// is configurable because fleet snapshots disagree on it; missing
// capacities read as zero while missing heat rates stay NaN so group
// means skip them.
func ReadFleet(path, capacityCol string) ([]types.FleetUnit, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}

	units := make([]types.FleetUnit, 0, len(table.rows))
	for i := range table.rows {
		unit := types.FleetUnit{
			Technology: table.text(i, types.ColTechnology),
			Region:     table.text(i, types.ColRegion),
		}
		var err error
		if unit.PlantID, err = table.whole(i, types.ColPlantID); err != nil {
			return nil, err
		}
		if unit.CapacityMW, err = table.number(i, capacityCol); err != nil {
			return nil, err
		}
		if unit.HeatRate, err = table.float(i, types.ColFleetHeatRate); err != nil {
			return nil, err
		}
		if unit.OperatingYear, err = table.whole(i, types.ColOperatingYear); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}
