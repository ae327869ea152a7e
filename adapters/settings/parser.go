// Package settings parses HCL scenario files into run settings.
//
// Scalar run parameters are top-level attributes; ordered collections
// are blocks. Block author order is preserved wherever the pipeline's
// behavior depends on it.
package settings

import (
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"gencost/core/override"
	"gencost/core/settings"
	"gencost/internal/errors"
)

// topSchema lists every construct a scenario file may contain. The
// body is decoded with Content, not PartialContent, so misspelled
// attributes and blocks surface as diagnostics.
var topSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "model_year"},
		{Name: "first_planning_year"},
		{Name: "atb_usd_year"},
		{Name: "target_usd_year"},
		{Name: "atb_existing_year"},
		{Name: "atb_financial_case"},
		{Name: "atb_cap_recovery_years"},
		{Name: "atb_battery_wacc"},
		{Name: "pv_ac_dc_ratio"},
		{Name: "use_lifetime"},
		{Name: "capacity_col"},
		{Name: "model_regions"},
		{Name: "region_aggregations"},
		{Name: "new_gen_not_available"},
		{Name: "tech_groups"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "new_gen", LabelNames: []string{"technology", "tech_detail"}},
		{Type: "modified_tech", LabelNames: []string{"name"}},
		{Type: "atb_modifier", LabelNames: []string{"name"}},
		{Type: "tech_map", LabelNames: []string{"eia"}},
		{Type: "retirement", LabelNames: []string{"technology"}},
		{Type: "alt_cap_recovery", LabelNames: []string{"match"}},
		{Type: "cost_region", LabelNames: []string{"name"}},
		{Type: "tech_multiplier", LabelNames: []string{"eia"}},
		{Type: "renewables_cluster", LabelNames: []string{"region", "technology"}},
		{Type: "user_techs"},
	},
}

// modifySchema is the body of a modify block inside modified_tech and
// atb_modifier blocks.
var modifySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "op", Required: true},
		{Name: "value", Required: true},
	},
}

// Parser reads scenario settings files.
type Parser struct {
	parser *hclparse.Parser
}

// NewParser creates a scenario settings parser.
func NewParser() *Parser {
	return &Parser{
		parser: hclparse.NewParser(),
	}
}

// ParseFile reads and decodes one scenario file.
func (p *Parser) ParseFile(path string) (*settings.Settings, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "reading scenario file %s", path)
	}
	return p.Parse(src, path)
}

// Parse decodes scenario settings from HCL source. The result is not
// semantically validated; callers run Settings.Validate before use.
func (p *Parser) Parse(src []byte, filename string) (*settings.Settings, error) {
	file, diags := p.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(diags)
	}

	content, diags := file.Body.Content(topSchema)
	if diags.HasErrors() {
		return nil, diagError(diags)
	}

	s := &settings.Settings{CapacityCol: "capacity_mw"}
	if err := decodeRunAttributes(s, content.Attributes); err != nil {
		return nil, err
	}

	for _, block := range content.Blocks {
		var err error
		switch block.Type {
		case "new_gen":
			err = decodeNewGen(s, block)
		case "modified_tech":
			err = decodeModifiedTech(s, block)
		case "atb_modifier":
			err = decodeModifier(s, block)
		case "tech_map":
			err = decodeTechMap(s, block)
		case "retirement":
			err = decodeRetirement(s, block)
		case "alt_cap_recovery":
			err = decodeAltRecovery(s, block)
		case "cost_region":
			err = decodeCostRegion(s, block)
		case "tech_multiplier":
			err = decodeTechMultiplier(s, block)
		case "renewables_cluster":
			err = decodeClusterScenario(s, block)
		case "user_techs":
			err = decodeUserTechs(s, block)
		}
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

func decodeRunAttributes(s *settings.Settings, attrs hcl.Attributes) error {
	for name, attr := range attrs {
		var err error
		switch name {
		case "model_year":
			s.ModelYear, err = intAttr(attr)
		case "first_planning_year":
			s.FirstPlanningYear, err = intAttr(attr)
		case "atb_usd_year":
			s.ATBUSDYear, err = intAttr(attr)
		case "target_usd_year":
			s.TargetUSDYear, err = intAttr(attr)
		case "atb_existing_year":
			s.ATBExistingYear, err = intAttr(attr)
		case "atb_financial_case":
			s.ATBFinancialCase, err = stringAttr(attr)
		case "atb_cap_recovery_years":
			s.ATBCapRecoveryYears, err = intAttr(attr)
		case "atb_battery_wacc":
			s.BatteryWACC, err = batteryWACCAttr(attr)
		case "pv_ac_dc_ratio":
			s.PVACDCRatio, err = floatAttr(attr)
		case "use_lifetime":
			s.UseLifetime, err = boolAttr(attr)
		case "capacity_col":
			s.CapacityCol, err = stringAttr(attr)
		case "model_regions":
			s.ModelRegions, err = stringListAttr(attr)
		case "region_aggregations":
			s.RegionAggregations, err = stringListMapAttr(attr)
		case "new_gen_not_available":
			s.NewGenNotAvailable, err = stringListMapAttr(attr)
		case "tech_groups":
			s.TechGroups, err = stringListMapAttr(attr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// batteryWACCAttr accepts either a literal financing rate or the name
// of a technology to inherit the rate from.
func batteryWACCAttr(attr *hcl.Attribute) (settings.BatteryWACC, error) {
	val, err := attrValue(attr)
	if err != nil {
		return settings.BatteryWACC{}, err
	}
	switch val.Type() {
	case cty.Number:
		rate, _ := val.AsBigFloat().Float64()
		return settings.BatteryWACC{Value: rate}, nil
	case cty.String:
		return settings.BatteryWACC{Inherit: val.AsString()}, nil
	}
	return settings.BatteryWACC{}, typeError(attr, val, "a rate or a technology name")
}

func decodeNewGen(s *settings.Settings, block *hcl.Block) error {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "cost_case", Required: true},
			{Name: "size_mw", Required: true},
		},
	})
	if diags.HasErrors() {
		return diagError(diags)
	}

	spec := settings.NewGenSpec{
		Technology: block.Labels[0],
		TechDetail: block.Labels[1],
	}
	var err error
	if spec.CostCase, err = stringAttr(content.Attributes["cost_case"]); err != nil {
		return err
	}
	if spec.SizeMW, err = floatAttr(content.Attributes["size_mw"]); err != nil {
		return err
	}
	s.NewGenSpecs = append(s.NewGenSpecs, spec)
	return nil
}

func decodeModifiedTech(s *settings.Settings, block *hcl.Block) error {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "atb_technology", Required: true},
			{Name: "atb_tech_detail"},
			{Name: "atb_cost_case", Required: true},
			{Name: "size_mw", Required: true},
			{Name: "new_technology", Required: true},
			{Name: "new_tech_detail"},
			{Name: "new_cost_case", Required: true},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "modify", LabelNames: []string{"field"}},
		},
	})
	if diags.HasErrors() {
		return diagError(diags)
	}

	mod := settings.ModifiedTech{Name: block.Labels[0]}
	attrs := content.Attributes
	var err error
	if mod.ATBTechnology, err = optString(attrs, "atb_technology"); err != nil {
		return err
	}
	if mod.ATBTechDetail, err = optString(attrs, "atb_tech_detail"); err != nil {
		return err
	}
	if mod.ATBCostCase, err = optString(attrs, "atb_cost_case"); err != nil {
		return err
	}
	if mod.SizeMW, err = optFloat(attrs, "size_mw"); err != nil {
		return err
	}
	if mod.NewTechnology, err = optString(attrs, "new_technology"); err != nil {
		return err
	}
	if mod.NewTechDetail, err = optString(attrs, "new_tech_detail"); err != nil {
		return err
	}
	if mod.NewCostCase, err = optString(attrs, "new_cost_case"); err != nil {
		return err
	}

	for _, mb := range content.Blocks.OfType("modify") {
		spec, err := decodeModify(mb)
		if err != nil {
			return err
		}
		mod.Specs = append(mod.Specs, spec)
	}

	s.ModifiedTechs = append(s.ModifiedTechs, mod)
	return nil
}

func decodeModifier(s *settings.Settings, block *hcl.Block) error {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "technology", Required: true},
			{Name: "tech_detail"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "modify", LabelNames: []string{"field"}},
		},
	})
	if diags.HasErrors() {
		return diagError(diags)
	}

	gm := settings.GlobalModifier{Name: block.Labels[0]}
	var err error
	if gm.Technology, err = optString(content.Attributes, "technology"); err != nil {
		return err
	}
	if gm.TechDetail, err = optString(content.Attributes, "tech_detail"); err != nil {
		return err
	}

	for _, mb := range content.Blocks.OfType("modify") {
		spec, err := decodeModify(mb)
		if err != nil {
			return err
		}
		gm.Specs = append(gm.Specs, spec)
	}

	s.GlobalModifiers = append(s.GlobalModifiers, gm)
	return nil
}

func decodeModify(block *hcl.Block) (override.Spec, error) {
	content, diags := block.Body.Content(modifySchema)
	if diags.HasErrors() {
		return override.Spec{}, diagError(diags)
	}

	spec := override.Spec{Field: block.Labels[0]}

	name, err := stringAttr(content.Attributes["op"])
	if err != nil {
		return override.Spec{}, err
	}
	if spec.Op, err = override.ParseOp(name); err != nil {
		return override.Spec{}, errors.Wrapf(errors.TypeConfig, err, "%s", block.DefRange)
	}
	if spec.Operand, err = floatAttr(content.Attributes["value"]); err != nil {
		return override.Spec{}, err
	}
	return spec, nil
}

func decodeTechMap(s *settings.Settings, block *hcl.Block) error {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "atb_technology", Required: true},
			{Name: "atb_tech_detail"},
		},
	})
	if diags.HasErrors() {
		return diagError(diags)
	}

	entry := settings.TechMapEntry{EIA: block.Labels[0]}
	var err error
	if entry.ATBTechnology, err = optString(content.Attributes, "atb_technology"); err != nil {
		return err
	}
	if entry.ATBTechDetail, err = optString(content.Attributes, "atb_tech_detail"); err != nil {
		return err
	}
	s.TechMap = append(s.TechMap, entry)
	return nil
}

func decodeRetirement(s *settings.Settings, block *hcl.Block) error {
	years, err := blockYears(block)
	if err != nil {
		return err
	}
	s.RetirementAges = append(s.RetirementAges, settings.Retirement{
		Technology: block.Labels[0],
		Years:      years,
	})
	return nil
}

func decodeAltRecovery(s *settings.Settings, block *hcl.Block) error {
	years, err := blockYears(block)
	if err != nil {
		return err
	}
	s.AltCapRecoveryYears = append(s.AltCapRecoveryYears, settings.AltRecovery{
		Match: block.Labels[0],
		Years: years,
	})
	return nil
}

// blockYears decodes a block whose body is a single years attribute.
func blockYears(block *hcl.Block) (int, error) {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "years", Required: true},
		},
	})
	if diags.HasErrors() {
		return 0, diagError(diags)
	}
	return intAttr(content.Attributes["years"])
}

func decodeCostRegion(s *settings.Settings, block *hcl.Block) error {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "regions", Required: true},
		},
	})
	if diags.HasErrors() {
		return diagError(diags)
	}

	regions, err := stringListAttr(content.Attributes["regions"])
	if err != nil {
		return err
	}
	s.CostMultiplierRegionMap = append(s.CostMultiplierRegionMap, settings.RegionMapEntry{
		CostRegion: block.Labels[0],
		Regions:    regions,
	})
	return nil
}

func decodeTechMultiplier(s *settings.Settings, block *hcl.Block) error {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "atb_technologies", Required: true},
		},
	})
	if diags.HasErrors() {
		return diagError(diags)
	}

	techs, err := stringListAttr(content.Attributes["atb_technologies"])
	if err != nil {
		return err
	}
	s.CostMultiplierTechMap = append(s.CostMultiplierTechMap, settings.TechMultiplierEntry{
		EIA:      block.Labels[0],
		ATBTechs: techs,
	})
	return nil
}

func decodeClusterScenario(s *settings.Settings, block *hcl.Block) error {
	content, remain, diags := block.Body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "max_clusters"},
			{Name: "min_capacity"},
		},
	})
	if diags.HasErrors() {
		return diagError(diags)
	}

	sc := settings.ClusterScenario{
		Region:     block.Labels[0],
		Technology: block.Labels[1],
	}
	var err error
	if sc.MaxClusters, err = optInt(content.Attributes, "max_clusters"); err != nil {
		return err
	}
	if sc.MinCapacityMW, err = optFloat(content.Attributes, "min_capacity"); err != nil {
		return err
	}

	// Remaining attributes are resource filters. Author order decides
	// both descriptor matching and the cluster name suffix, so the map
	// is re-sorted by source position.
	attrs, diags := remain.JustAttributes()
	if diags.HasErrors() {
		return diagError(diags)
	}
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})
	for _, attr := range ordered {
		text, err := filterValue(attr)
		if err != nil {
			return err
		}
		sc.Filters = append(sc.Filters, settings.Filter{Key: attr.Name, Value: text})
	}

	s.ClusterScenarios = append(s.ClusterScenarios, sc)
	return nil
}

func decodeUserTechs(s *settings.Settings, block *hcl.Block) error {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "file", Required: true},
			{Name: "include"},
		},
	})
	if diags.HasErrors() {
		return diagError(diags)
	}

	var err error
	if s.UserTechFile, err = stringAttr(content.Attributes["file"]); err != nil {
		return err
	}
	if s.AdditionalNewGen, err = optStringList(content.Attributes, "include"); err != nil {
		return err
	}
	return nil
}

// diagError converts parse diagnostics to a configuration error,
// keeping the first error's source position.
func diagError(diags hcl.Diagnostics) error {
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		if diag.Subject != nil {
			return errors.Configf("%s: %s: %s", diag.Subject, diag.Summary, diag.Detail)
		}
		return errors.Configf("%s: %s", diag.Summary, diag.Detail)
	}
	return errors.Config("invalid scenario file")
}
