package model

import (
	"fmt"
	"strings"
)

// Field names.
const (
	FieldForestry     = "forestry"
	FieldNonCattle    = "non_cattle_agriculture"
	FieldCattle       = "cattle_agriculture"
	FieldOrganicSoils = "organic_soils"
	FieldAD           = "ad_emissions"
)

// System names with balancing or allocation roles.
const (
	SystemExistingForest        = "existing_forest"
	SystemAfforestation         = "afforestation"
	SystemCrops                 = "Crops"
	SystemNoCrops               = "No crops"
	SystemSheep                 = "Sheep"
	SystemDairy                 = "Dairy"
	SystemBeef                  = "Beef"
	SystemSparedArea            = "Spared area"
	SystemOrganicSoilUnderGrass = "Organic soil under grass"
	SystemAD                    = "ad_emissions"
)

// Drainage statuses of organic soil types.
const (
	Drained  = "Drained"
	Rewetted = "Rewetted"
	Natural  = "Natural"
)

// Metric names.
const (
	MetricArea                       = "area"
	MetricCO2e                       = "co2e"
	MetricDairyArea                  = "dairy_area"
	MetricBeefArea                   = "beef_area"
	MetricOrganicSoilArea            = "organic_soil_area"
	MetricADAdditionalArea           = "additional_ad_area"
	MetricADWillowArea               = "willow_ad_area"
	MetricProtein                    = "protein"
	MetricProteinMilk                = "protein_milk"
	MetricProteinBeef                = "protein_beef"
	MetricHNVArea                    = "hnv_area"
	MetricHarvestVolume              = "harvest_volume"
	MetricWoodEnergy                 = "wood_energy"
	MetricMaterialSubstitution       = "hwp_material_substitution_credit"
	MetricEnergySubstitution         = "hwp_energy_substitution_credit"
	MetricBiomethaneEnergy           = "biomethane_energy"
	MetricAdditionalBiomethaneEnergy = "additional_biomethane_energy"
	MetricBECCS                      = "BECCS"
	MetricWillowBECCS                = "willow_BECCS"
)

const unitSuffix = "_unit"

// UnitKey returns the text metric holding the unit label of metric.
func UnitKey(metric string) string { return metric + unitSuffix }

// IsUnitKey reports whether key names a unit label.
func IsUnitKey(key string) bool { return strings.HasSuffix(key, unitSuffix) }

// StatusKey prefixes metric with an organic-soil drainage status.
func StatusKey(status, metric string) string { return status + "_" + metric }

// Parameter selects which evaluation series the engine reports.
type Parameter string

const (
	ParamCO2e         Parameter = "co2e"
	ParamArea         Parameter = "area"
	ParamProtein      Parameter = "protein"
	ParamBioEnergy    Parameter = "bio_energy"
	ParamHWP          Parameter = "hwp"
	ParamSubstitution Parameter = "substitution"
	ParamBiodiversity Parameter = "biodiversity"
)

// Parameters lists every evaluation parameter in report order.
func Parameters() []Parameter {
	return []Parameter{
		ParamCO2e,
		ParamArea,
		ParamProtein,
		ParamBioEnergy,
		ParamHWP,
		ParamSubstitution,
		ParamBiodiversity,
	}
}

// ParseParameter maps a case-insensitive name to a Parameter.
func ParseParameter(s string) (Parameter, error) {
	v := Parameter(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Parameters() {
		if p == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown evaluation parameter %q", s)
}
