package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
)

var _ kb.Lookup = (*Store)(nil)

// cell is one (year, metric) value read back from a long-format table.
type cell struct {
	Year   int     `db:"year"`
	Metric string  `db:"metric"`
	Unit   string  `db:"unit"`
	Value  float64 `db:"value"`
}

// scalar is one metric of a single-year table.
type scalar struct {
	Metric string  `db:"metric"`
	Unit   string  `db:"unit"`
	Value  float64 `db:"value"`
}

func (s *Store) ExistingForest(ctx context.Context, harvest string, ccs bool) (*model.TimeSeries, error) {
	const q = `SELECT year, metric, unit, value FROM forestry
		WHERE system = ? AND harvest = ? AND ccs = ?
		ORDER BY metric, year`
	var cells []cell
	if err := s.db.SelectContext(ctx, &cells, s.db.Rebind(q), model.SystemExistingForest, harvest, Flag(ccs)); err != nil {
		return nil, fmt.Errorf("store: existing forest: %w", err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: existing forest harvest=%q ccs=%t", kb.ErrNotFound, harvest, ccs)
	}
	return seriesFromCells(cells)
}

func (s *Store) Afforestation(ctx context.Context, rate, broadleafFrac, organicSoilFrac float64, harvest string, ccs bool) (*model.TimeSeries, error) {
	const q = `SELECT year, metric, unit, value FROM forestry
		WHERE system = ? AND harvest = ? AND ccs = ? AND broadleaf_frac = ? AND organic_soil_frac = ?
		ORDER BY metric, year`
	var cells []cell
	if err := s.db.SelectContext(ctx, &cells, s.db.Rebind(q),
		model.SystemAfforestation, harvest, Flag(ccs), broadleafFrac, organicSoilFrac); err != nil {
		return nil, fmt.Errorf("store: afforestation: %w", err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: afforestation harvest=%q ccs=%t broadleaf=%g organic_soil=%g",
			kb.ErrNotFound, harvest, ccs, broadleafFrac, organicSoilFrac)
	}
	ts, err := seriesFromCells(cells)
	if err != nil {
		return nil, err
	}
	return kb.ScaleSeries(ts, rate), nil
}

func (s *Store) NetZeroMetrics(ctx context.Context, system string, ccs bool) ([]string, error) {
	const q = `SELECT metric FROM nz_metrics WHERE system = ? AND ccs = ? ORDER BY position`
	var metrics []string
	if err := s.db.SelectContext(ctx, &metrics, s.db.Rebind(q), system, Flag(ccs)); err != nil {
		return nil, fmt.Errorf("store: net-zero metrics: %w", err)
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("%w: net-zero metrics system=%q ccs=%t", kb.ErrNotFound, system, ccs)
	}
	return metrics, nil
}

func (s *Store) Agriculture(ctx context.Context, kind kb.AgricultureKind, system, abatement, productivity string) (*model.Record, error) {
	const q = `SELECT metric, unit, value FROM agriculture
		WHERE kind = ? AND system = ? AND abatement = ? AND productivity = ?
		ORDER BY metric`
	var rows []scalar
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), string(kind), system, abatement, productivity); err != nil {
		return nil, fmt.Errorf("store: agriculture: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s agriculture system=%q abatement=%q productivity=%q",
			kb.ErrNotFound, kind, system, abatement, productivity)
	}
	return recordFromScalars(rows), nil
}

func (s *Store) OrganicSoil(ctx context.Context, soilType, drainageStatus string) (*model.Record, error) {
	const q = `SELECT metric, unit, value FROM organic_soils
		WHERE soil_type = ? AND drainage_status = ?
		ORDER BY metric`
	var rows []scalar
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), soilType, drainageStatus); err != nil {
		return nil, fmt.Errorf("store: organic soil: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: organic soil %q drainage=%q", kb.ErrNotFound, soilType, drainageStatus)
	}
	return recordFromScalars(rows), nil
}

func (s *Store) AnaerobicDigestion(ctx context.Context, req kb.ADRequest) (*model.TimeSeries, error) {
	var refs []ADReferenceRow
	if err := s.db.SelectContext(ctx, &refs, `SELECT component, reference_year FROM ad_reference ORDER BY component`); err != nil {
		return nil, fmt.Errorf("store: ad reference years: %w", err)
	}
	const q = `SELECT year, metric, unit, value FROM ad_series WHERE component = ? ORDER BY metric, year`
	components := make(map[string]kb.ADComponent, len(refs))
	for _, ref := range refs {
		var cells []cell
		if err := s.db.SelectContext(ctx, &cells, s.db.Rebind(q), ref.Component); err != nil {
			return nil, fmt.Errorf("store: ad component %q: %w", ref.Component, err)
		}
		if len(cells) == 0 {
			continue
		}
		ts, err := seriesFromCells(cells)
		if err != nil {
			return nil, fmt.Errorf("store: ad component %q: %w", ref.Component, err)
		}
		components[ref.Component] = kb.ADComponent{ReferenceYear: ref.ReferenceYear, Series: ts}
	}
	return kb.BuildAD(req, components)
}

func (s *Store) Scalers(ctx context.Context) (*kb.ScalerTable, error) {
	var rows []ScalerRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT year, system, value FROM scalers ORDER BY system, year`); err != nil {
		return nil, fmt.Errorf("store: scalers: %w", err)
	}
	return scalerTable(rows)
}

// seriesFromCells builds a series from cells ordered by metric then year.
// Index 0 is the earliest year in the table; every metric must cover the
// same consecutive years. Non-empty units become "<metric>_unit" text series.
func seriesFromCells(cells []cell) (*model.TimeSeries, error) {
	first := cells[0].Year
	for _, c := range cells {
		first = min(first, c.Year)
	}

	ts := model.NewTimeSeries()
	for lo := 0; lo < len(cells); {
		metric := cells[lo].Metric
		hi := lo
		for hi < len(cells) && cells[hi].Metric == metric {
			hi++
		}
		vals := make([]float64, 0, hi-lo)
		unit := ""
		for i, c := range cells[lo:hi] {
			if c.Year != first+i {
				return nil, fmt.Errorf("metric %q has no value for %d", metric, first+i)
			}
			vals = append(vals, c.Value)
			if c.Unit != "" {
				unit = c.Unit
			}
		}
		ts.PutFloats(metric, vals)
		if unit != "" {
			units := make([]model.Value, len(vals))
			for i := range units {
				units[i] = model.Text(unit)
			}
			ts.Put(model.UnitKey(metric), units)
		}
		lo = hi
	}
	return ts, nil
}

func recordFromScalars(rows []scalar) *model.Record {
	r := model.NewRecord()
	for _, row := range rows {
		r.Set(row.Metric, model.Num(row.Value))
		if row.Unit != "" {
			r.Set(model.UnitKey(row.Metric), model.Text(row.Unit))
		}
	}
	return r
}

// scalerTable pivots rows ordered by system then year into columns.
func scalerTable(rows []ScalerRow) (*kb.ScalerTable, error) {
	yearSet := make(map[int]bool)
	for _, r := range rows {
		yearSet[r.Year] = true
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	st := kb.NewScalerTable(years)
	for lo := 0; lo < len(rows); {
		system := rows[lo].System
		var column []float64
		for lo < len(rows) && rows[lo].System == system {
			column = append(column, rows[lo].Value)
			lo++
		}
		if err := st.AddColumn(system, column); err != nil {
			return nil, fmt.Errorf("store: scalers: %w", err)
		}
	}
	return st, nil
}
