package resources

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gencost/core/cluster"
	"gencost/internal/errors"
	"gencost/internal/logging"
)

// capacityCol is the developable capacity column of site files.
const capacityCol = "mw"

// SiteProvider serves resource clusters from a directory of CSV
// files, one per technology and IPM region, named
// <technology>_<region>.csv with an _existing suffix for existing
// units. Each row is one cluster candidate: mw carries developable
// capacity, string columns are filterable site metadata, and every
// other numeric cell becomes a site metric on the expanded record.
type SiteProvider struct {
	dir string
}

// NewSiteProvider creates a provider rooted at dir.
func NewSiteProvider(dir string) *SiteProvider {
	return &SiteProvider{dir: dir}
}

// Clusters implements cluster.Provider. Candidates from every
// requested IPM region are pooled, filtered, and ordered by
// descending capacity; MaxClusters keeps the largest. Regions without
// a site file are skipped, but a request no file covers fails.
func (p *SiteProvider) Clusters(req cluster.ClusterRequest) ([]cluster.ClusterRow, error) {
	var rows []cluster.ClusterRow
	covered := 0
	for _, region := range req.IPMRegions {
		path := filepath.Join(p.dir, siteFile(req, region))
		regionRows, ok, err := readSites(path, req)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		covered++
		rows = append(rows, regionRows...)
	}
	if covered == 0 {
		return nil, errors.NotFound("resource data",
			req.Technology+" in "+strings.Join(req.IPMRegions, ", "))
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("resource sites",
			req.Technology+" matching scenario filters")
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CapacityMW > rows[j].CapacityMW
	})
	if req.MaxClusters > 0 && len(rows) > req.MaxClusters {
		var dropped float64
		for _, row := range rows[req.MaxClusters:] {
			dropped += row.CapacityMW
		}
		logging.Debug("keeping largest resource clusters",
			zap.String("technology", req.Technology),
			zap.Int("max_clusters", req.MaxClusters),
			zap.Int("sites", len(rows)),
			zap.Float64("dropped_mw", dropped))
		rows = rows[:req.MaxClusters]
	}
	return rows, nil
}

func siteFile(req cluster.ClusterRequest, region string) string {
	name := req.Technology + "_" + region
	if req.Existing {
		name += "_existing"
	}
	return name + ".csv"
}

// readSites loads one region's candidates. A missing file reports
// ok=false so callers can treat it as an uncovered region.
func readSites(path string, req cluster.ClusterRequest) ([]cluster.ClusterRow, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(errors.TypeInput, err, "opening %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, false, errors.Wrapf(errors.TypeParsing, err, "reading %s", path)
	}
	if len(records) == 0 {
		return nil, false, errors.Configf("%s has no header row", path)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}
	if _, ok := header[capacityCol]; !ok {
		return nil, false, errors.Configf("%s has no %s column", path, capacityCol)
	}
	for _, filter := range req.Filters {
		if _, ok := header[filter.Key]; !ok {
			return nil, false, errors.Configf("%s has no %s column to filter on", path, filter.Key)
		}
	}

	var rows []cluster.ClusterRow
	for line, record := range records[1:] {
		if !matchesFilters(record, header, req) {
			continue
		}
		capacity := strings.TrimSpace(record[header[capacityCol]])
		if capacity == "" {
			continue
		}
		mw, err := strconv.ParseFloat(capacity, 64)
		if err != nil {
			return nil, false, errors.Wrapf(errors.TypeParsing, err, "%s line %d: %s", path, line+2, capacityCol)
		}
		rows = append(rows, cluster.ClusterRow{
			CapacityMW: mw,
			Extra:      siteMetrics(record, records[0]),
		})
	}
	return rows, true, nil
}

func matchesFilters(record []string, header map[string]int, req cluster.ClusterRequest) bool {
	for _, filter := range req.Filters {
		if strings.TrimSpace(record[header[filter.Key]]) != filter.Value {
			return false
		}
	}
	return true
}

// siteMetrics collects the row's numeric cells apart from capacity.
func siteMetrics(record, cols []string) map[string]float64 {
	var extra map[string]float64
	for i, name := range cols {
		name = strings.TrimSpace(name)
		if name == capacityCol || i >= len(record) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			continue
		}
		if extra == nil {
			extra = make(map[string]float64)
		}
		extra[name] = v
	}
	return extra
}
