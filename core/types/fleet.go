package types

// FleetUnit is one existing generating unit. Units sharing a plant and
// technology label form a fleet group for O&M resolution.
type FleetUnit struct {
	// PlantID is the EIA plant identifier.
	PlantID int

	// Technology is the fleet technology label (EIA naming).
	Technology string

	// Region is the model region the unit is assigned to.
	Region string

	// CapacityMW is the unit's nameplate capacity.
	CapacityMW float64

	// HeatRate is the unit's heat rate in MMBtu per MWh.
	HeatRate float64

	// OperatingYear is the year the unit entered commercial operation.
	OperatingYear int

	// FixedOMMWYr is the resolved fixed O&M per MW-year.
	FixedOMMWYr float64

	// VarOMMWh is the resolved variable O&M per MWh.
	VarOMMWh float64
}

// FleetGroupKey identifies a fleet group.
type FleetGroupKey struct {
	// PlantID is the EIA plant identifier.
	PlantID int

	// Technology is the fleet technology label.
	Technology string
}

// FleetGroup is the set of unit indices sharing one group key, in input
// order.
type FleetGroup struct {
	// Key identifies the group.
	Key FleetGroupKey

	// Units holds indices into the source unit slice.
	Units []int
}

// GroupFleet partitions units into groups keyed by (plant, technology),
// ordered by first appearance.
func GroupFleet(units []FleetUnit) []FleetGroup {
	index := make(map[FleetGroupKey]int)
	var groups []FleetGroup
	for i := range units {
		key := FleetGroupKey{PlantID: units[i].PlantID, Technology: units[i].Technology}
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, FleetGroup{Key: key})
		}
		groups[gi].Units = append(groups[gi].Units, i)
	}
	return groups
}
