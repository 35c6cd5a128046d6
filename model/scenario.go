package model

// Scenario is the decoded policy configuration for one simulation run.
// Optional sectors are nil or empty when absent.
type Scenario struct {
	BaselineYear int `json:"baseline_year" yaml:"baseline_year"`
	TargetYear   int `json:"target_year" yaml:"target_year"`

	Forestry             []ForestryConfig    `json:"forestry,omitempty" yaml:"forestry,omitempty"`
	NonCattleAgriculture []NonCattleConfig   `json:"non_cattle_agriculture,omitempty" yaml:"non_cattle_agriculture,omitempty"`
	CattleSystems        *CattleConfig       `json:"cattle_systems,omitempty" yaml:"cattle_systems,omitempty"`
	OrganicSoils         []OrganicSoilConfig `json:"organic_soils,omitempty" yaml:"organic_soils,omitempty"`
	ADEmissions          *ADConfig           `json:"ad_emissions,omitempty" yaml:"ad_emissions,omitempty"`
}

// ForestryConfig configures existing_forest or afforestation. The
// afforestation-only fields are ignored for existing_forest.
type ForestryConfig struct {
	Name    string `json:"name" yaml:"name"`
	Harvest string `json:"harvest" yaml:"harvest"`
	CCS     bool   `json:"ccs" yaml:"ccs"`

	AfforestationRate float64 `json:"afforestation_rate,omitempty" yaml:"afforestation_rate,omitempty"`
	BroadleafFrac     float64 `json:"broadleaf_frac,omitempty" yaml:"broadleaf_frac,omitempty"`
	OrganicSoil       float64 `json:"organic_soil,omitempty" yaml:"organic_soil,omitempty"`
}

// AgricultureWayPoint targets one non-cattle system at Year.
type AgricultureWayPoint struct {
	Year           int     `json:"year" yaml:"year"`
	Abatement      string  `json:"abatement" yaml:"abatement"`
	Productivity   string  `json:"productivity" yaml:"productivity"`
	Scaler         float64 `json:"scaler" yaml:"scaler"`
	ScaleParameter string  `json:"scale_parameter" yaml:"scale_parameter"`
	// Absolute is true when Scaler is an absolute value of ScaleParameter and
	// false when it is a fraction of the baseline value.
	Absolute bool `json:"scale_absolute_or_percentage" yaml:"scale_absolute_or_percentage"`
}

// NonCattleConfig configures one non-cattle agriculture system.
type NonCattleConfig struct {
	Name         string                `json:"name" yaml:"name"`
	Abatement    string                `json:"abatement" yaml:"abatement"`
	Productivity string                `json:"productivity" yaml:"productivity"`
	WayPoints    []AgricultureWayPoint `json:"waypoints" yaml:"waypoints"`
}

// CattleWayPoint is a shared budget for dairy and beef at Year.
type CattleWayPoint struct {
	Year              int     `json:"year" yaml:"year"`
	Abatement         string  `json:"abatement" yaml:"abatement"`
	Scaler            float64 `json:"scaler" yaml:"scaler"`
	ScaleParameter    string  `json:"scale_parameter" yaml:"scale_parameter"`
	Absolute          bool    `json:"scale_absolute_or_percentage" yaml:"scale_absolute_or_percentage"`
	DairyProductivity string  `json:"dairy_productivity" yaml:"dairy_productivity"`
	BeefProductivity  string  `json:"beef_productivity" yaml:"beef_productivity"`
}

// CattleConfig configures the dairy, beef and spared-area systems.
type CattleConfig struct {
	Abatement    string `json:"abatement" yaml:"abatement"`
	Productivity string `json:"productivity" yaml:"productivity"`
	// SurplusToDairy hands an ample budget to dairy after holding beef at its
	// current level instead of holding both at their current levels.
	SurplusToDairy bool             `json:"surplus_to_dairy,omitempty" yaml:"surplus_to_dairy,omitempty"`
	WayPoints      []CattleWayPoint `json:"waypoints" yaml:"waypoints"`
}

// OrganicSoilWayPoint rewets a share of the baseline drained area by Year.
type OrganicSoilWayPoint struct {
	Year           int     `json:"year" yaml:"year"`
	RewettingRatio float64 `json:"rewetting_ratio" yaml:"rewetting_ratio"`
}

// OrganicSoilConfig configures one organic soil type.
type OrganicSoilConfig struct {
	Name           string                `json:"name" yaml:"name"`
	DrainageStatus []string              `json:"drainage_status" yaml:"drainage_status"`
	WayPoints      []OrganicSoilWayPoint `json:"waypoints,omitempty" yaml:"waypoints,omitempty"`
}

// ADConfig configures anaerobic digestion.
type ADConfig struct {
	ImplementationYear        int     `json:"implementation_year" yaml:"implementation_year"`
	CCS                       bool    `json:"ccs" yaml:"ccs"`
	AdditionalBiomethaneYear  int     `json:"additional_biomethane_year" yaml:"additional_biomethane_year"`
	AdditionalGrassBiomethane float64 `json:"additional_grass_biomethane" yaml:"additional_grass_biomethane"`
	WillowYear                int     `json:"willow_year" yaml:"willow_year"`
	CDRBioenergy              float64 `json:"cdr_bioenergy" yaml:"cdr_bioenergy"`
}

// SoilType is one drainage class of an organic soil with its per-hectare
// coefficients. Parameters never contains the area itself.
type SoilType struct {
	Area           float64
	DrainageStatus string
	Parameters     *Record
}
