// Package resources maps cost-table technologies onto renewable
// resource descriptors and serves site clusters from a directory of
// per-technology cluster files.
package resources

import (
	"strconv"
	"strings"

	"gencost/core/cluster"
)

// Descriptor technology names used by the bundled resource data.
const (
	TechUtilityPV     = "utilitypv"
	TechLandbasedWind = "landbasedwind"
	TechOffshoreWind  = "offshorewind"
)

// Mapper is the default technology mapper for the raw cost table's
// technology names. Offshore wind details carry the turbine type,
// either as an OTRG resource group (groups 1-5 are fixed bottom,
// deeper groups floating) or as a Fixed/Floating detail prefix; a
// detail in neither form leaves the attribute unset, so only
// scenarios without a turbine_type filter match it.
type Mapper struct{}

// MapTechnology implements cluster.TechnologyMapper.
func (Mapper) MapTechnology(technology, techDetail string) (cluster.Descriptor, bool) {
	switch technology {
	case "UtilityPV":
		return cluster.Descriptor{Technology: TechUtilityPV}, true
	case "LandbasedWind":
		return cluster.Descriptor{Technology: TechLandbasedWind}, true
	case "OffShoreWind":
		desc := cluster.Descriptor{Technology: TechOffshoreWind}
		if turbine, ok := turbineType(techDetail); ok {
			desc.Attrs = map[string]string{"turbine_type": turbine}
		}
		return desc, true
	}
	return cluster.Descriptor{}, false
}

func turbineType(detail string) (string, bool) {
	if group, ok := strings.CutPrefix(detail, "OTRG"); ok {
		n, err := strconv.Atoi(group)
		if err != nil || n < 1 {
			return "", false
		}
		if n <= 5 {
			return "fixed", true
		}
		return "floating", true
	}
	switch {
	case strings.HasPrefix(detail, "Fixed"):
		return "fixed", true
	case strings.HasPrefix(detail, "Float"):
		return "floating", true
	}
	return "", false
}
