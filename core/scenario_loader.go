// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/landuse-simulator/model"
)

// Scenario file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatFromPath picks the decoder for a scenario file by extension. Anything
// that is not .yaml or .yml is read as JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadScenarioFile reads and validates a scenario file.
func LoadScenarioFile(path string) (*model.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadScenarioFile: %w", err)
	}
	defer f.Close()
	return LoadScenario(f, FormatFromPath(path))
}

// LoadScenario decodes a scenario from r and validates it. Unknown keys are
// rejected so typos fail at load time rather than silently dropping a sector.
func LoadScenario(r io.Reader, format string) (*model.Scenario, error) {
	var sc model.Scenario
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&sc); err != nil {
			return nil, fmt.Errorf("%w: decode failed: %w", ErrInvalidScenario, err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&sc); err != nil {
			return nil, fmt.Errorf("%w: decode failed: %w", ErrInvalidScenario, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidScenario, format)
	}

	if err := ValidateScenario(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// ValidateScenario checks structural rules that the engine relies on. Every
// failure wraps ErrInvalidScenario and names the offending field.
func ValidateScenario(sc *model.Scenario) error {
	if sc.TargetYear <= sc.BaselineYear {
		return invalid("target_year", "must be after baseline_year (%d <= %d)", sc.TargetYear, sc.BaselineYear)
	}
	inHorizon := func(field string, year int) error {
		if year <= sc.BaselineYear || year > sc.TargetYear {
			return invalid(field, "year %d outside (%d, %d]", year, sc.BaselineYear, sc.TargetYear)
		}
		return nil
	}

	//
	// ---------- Forestry ----------
	//
	seen := make(map[string]bool)
	for i, f := range sc.Forestry {
		field := fmt.Sprintf("forestry[%d]", i)
		switch f.Name {
		case model.SystemExistingForest, model.SystemAfforestation:
		default:
			return invalid(field+".name", "unknown forestry system %q", f.Name)
		}
		if seen[f.Name] {
			return invalid(field+".name", "duplicate system %q", f.Name)
		}
		seen[f.Name] = true
		if f.AfforestationRate < 0 {
			return invalid(field+".afforestation_rate", "must be >= 0, got %g", f.AfforestationRate)
		}
	}

	//
	// ---------- Non-cattle agriculture ----------
	//
	seen = make(map[string]bool)
	for i, s := range sc.NonCattleAgriculture {
		field := fmt.Sprintf("non_cattle_agriculture[%d]", i)
		if s.Name == "" {
			return invalid(field+".name", "must not be empty")
		}
		if s.Name == model.SystemNoCrops {
			return invalid(field+".name", "%q is derived from %q and cannot be configured", model.SystemNoCrops, model.SystemCrops)
		}
		if seen[s.Name] {
			return invalid(field+".name", "duplicate system %q", s.Name)
		}
		seen[s.Name] = true
		for j, wp := range s.WayPoints {
			wpField := fmt.Sprintf("%s.waypoints[%d]", field, j)
			if err := inHorizon(wpField+".year", wp.Year); err != nil {
				return err
			}
			if wp.ScaleParameter == "" {
				return invalid(wpField+".scale_parameter", "must not be empty")
			}
		}
	}

	//
	// ---------- Cattle ----------
	//
	if c := sc.CattleSystems; c != nil {
		for j, wp := range c.WayPoints {
			wpField := fmt.Sprintf("cattle_systems.waypoints[%d]", j)
			if err := inHorizon(wpField+".year", wp.Year); err != nil {
				return err
			}
			if wp.ScaleParameter == "" {
				return invalid(wpField+".scale_parameter", "must not be empty")
			}
		}
	}

	//
	// ---------- Organic soils ----------
	//
	seen = make(map[string]bool)
	for i, s := range sc.OrganicSoils {
		field := fmt.Sprintf("organic_soils[%d]", i)
		if s.Name == "" {
			return invalid(field+".name", "must not be empty")
		}
		if seen[s.Name] {
			return invalid(field+".name", "duplicate soil %q", s.Name)
		}
		seen[s.Name] = true
		if len(s.DrainageStatus) == 0 {
			return invalid(field+".drainage_status", "must list at least one status")
		}
		for j, wp := range s.WayPoints {
			wpField := fmt.Sprintf("%s.waypoints[%d]", field, j)
			if err := inHorizon(wpField+".year", wp.Year); err != nil {
				return err
			}
			if wp.RewettingRatio < 0 || wp.RewettingRatio > 1 {
				return invalid(wpField+".rewetting_ratio", "must be within [0, 1], got %g", wp.RewettingRatio)
			}
		}
	}

	//
	// ---------- Anaerobic digestion ----------
	//
	if ad := sc.ADEmissions; ad != nil {
		// AD may already be running at baseline, so the baseline year is allowed.
		adYear := func(field string, year int) error {
			if year < sc.BaselineYear || year > sc.TargetYear {
				return invalid(field, "year %d outside [%d, %d]", year, sc.BaselineYear, sc.TargetYear)
			}
			return nil
		}
		if err := adYear("ad_emissions.implementation_year", ad.ImplementationYear); err != nil {
			return err
		}
		if ad.AdditionalGrassBiomethane > 0 {
			if err := adYear("ad_emissions.additional_biomethane_year", ad.AdditionalBiomethaneYear); err != nil {
				return err
			}
		}
		if ad.CDRBioenergy > 0 {
			if err := adYear("ad_emissions.willow_year", ad.WillowYear); err != nil {
				return err
			}
		}
		if ad.AdditionalGrassBiomethane < 0 {
			return invalid("ad_emissions.additional_grass_biomethane", "must be >= 0, got %g", ad.AdditionalGrassBiomethane)
		}
		if ad.CDRBioenergy < 0 {
			return invalid("ad_emissions.cdr_bioenergy", "must be >= 0, got %g", ad.CDRBioenergy)
		}
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidScenario, field, fmt.Sprintf(format, args...))
}
