package store

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
)

// Table names.
const (
	TableForestry     = "forestry"
	TableNetZero      = "nz_metrics"
	TableAgriculture  = "agriculture"
	TableOrganicSoils = "organic_soils"
	TableADSeries     = "ad_series"
	TableADReference  = "ad_reference"
	TableScalers      = "scalers"
)

// Schema is the DDL applied by CreateSchema. It is portable between SQLite
// and PostgreSQL.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS forestry (
		system            TEXT NOT NULL,
		harvest           TEXT NOT NULL,
		ccs               INTEGER NOT NULL,
		broadleaf_frac    DOUBLE PRECISION NOT NULL DEFAULT 0,
		organic_soil_frac DOUBLE PRECISION NOT NULL DEFAULT 0,
		year              INTEGER NOT NULL,
		metric            TEXT NOT NULL,
		unit              TEXT NOT NULL DEFAULT '',
		value             DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS forestry_lookup ON forestry (system, harvest, ccs, broadleaf_frac, organic_soil_frac)`,
	`CREATE TABLE IF NOT EXISTS nz_metrics (
		system   TEXT NOT NULL,
		ccs      INTEGER NOT NULL,
		position INTEGER NOT NULL,
		metric   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS agriculture (
		kind         TEXT NOT NULL,
		system       TEXT NOT NULL,
		abatement    TEXT NOT NULL,
		productivity TEXT NOT NULL,
		metric       TEXT NOT NULL,
		unit         TEXT NOT NULL DEFAULT '',
		value        DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS agriculture_lookup ON agriculture (kind, system, abatement, productivity)`,
	`CREATE TABLE IF NOT EXISTS organic_soils (
		soil_type       TEXT NOT NULL,
		drainage_status TEXT NOT NULL,
		metric          TEXT NOT NULL,
		unit            TEXT NOT NULL DEFAULT '',
		value           DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ad_series (
		component TEXT NOT NULL,
		year      INTEGER NOT NULL,
		metric    TEXT NOT NULL,
		unit      TEXT NOT NULL DEFAULT '',
		value     DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ad_reference (
		component      TEXT PRIMARY KEY,
		reference_year INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scalers (
		year   INTEGER NOT NULL,
		system TEXT NOT NULL,
		value  DOUBLE PRECISION NOT NULL
	)`,
}

// CreateSchema creates every baseline table that does not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	s.log.Debug(ctx, "baseline schema ready", logging.String("driver", s.DriverName()))
	return nil
}

//
// ---------- Rows ----------
//

// ForestryRow is one (year, metric) cell of a forestry table. Existing
// forest rows leave the fractions at zero.
type ForestryRow struct {
	System          string  `db:"system"`
	Harvest         string  `db:"harvest"`
	CCS             Flag    `db:"ccs"`
	BroadleafFrac   float64 `db:"broadleaf_frac"`
	OrganicSoilFrac float64 `db:"organic_soil_frac"`
	Year            int     `db:"year"`
	Metric          string  `db:"metric"`
	Unit            string  `db:"unit"`
	Value           float64 `db:"value"`
}

// NetZeroRow places one metric in the net-zero set of a forestry system.
type NetZeroRow struct {
	System   string `db:"system"`
	CCS      Flag   `db:"ccs"`
	Position int    `db:"position"`
	Metric   string `db:"metric"`
}

type AgricultureRow struct {
	Kind         string  `db:"kind"`
	System       string  `db:"system"`
	Abatement    string  `db:"abatement"`
	Productivity string  `db:"productivity"`
	Metric       string  `db:"metric"`
	Unit         string  `db:"unit"`
	Value        float64 `db:"value"`
}

type OrganicSoilRow struct {
	SoilType       string  `db:"soil_type"`
	DrainageStatus string  `db:"drainage_status"`
	Metric         string  `db:"metric"`
	Unit           string  `db:"unit"`
	Value          float64 `db:"value"`
}

type ADSeriesRow struct {
	Component string  `db:"component"`
	Year      int     `db:"year"`
	Metric    string  `db:"metric"`
	Unit      string  `db:"unit"`
	Value     float64 `db:"value"`
}

type ADReferenceRow struct {
	Component     string `db:"component"`
	ReferenceYear int    `db:"reference_year"`
}

type ScalerRow struct {
	Year   int     `db:"year"`
	System string  `db:"system"`
	Value  float64 `db:"value"`
}

// Dataset is a full set of baseline rows, as produced by the workbook
// importer.
type Dataset struct {
	Forestry     []ForestryRow
	NetZero      []NetZeroRow
	Agriculture  []AgricultureRow
	OrganicSoils []OrganicSoilRow
	ADSeries     []ADSeriesRow
	ADReference  []ADReferenceRow
	Scalers      []ScalerRow
}

// Len returns the number of rows across every table.
func (d *Dataset) Len() int {
	return len(d.Forestry) + len(d.NetZero) + len(d.Agriculture) + len(d.OrganicSoils) +
		len(d.ADSeries) + len(d.ADReference) + len(d.Scalers)
}

//
// ---------- Import ----------
//

// insertBatch bounds rows per INSERT to stay under SQLite's bind limit.
const insertBatch = 500

const (
	insertForestry = `INSERT INTO forestry (system, harvest, ccs, broadleaf_frac, organic_soil_frac, year, metric, unit, value)
		VALUES (:system, :harvest, :ccs, :broadleaf_frac, :organic_soil_frac, :year, :metric, :unit, :value)`
	insertNetZero = `INSERT INTO nz_metrics (system, ccs, position, metric)
		VALUES (:system, :ccs, :position, :metric)`
	insertAgriculture = `INSERT INTO agriculture (kind, system, abatement, productivity, metric, unit, value)
		VALUES (:kind, :system, :abatement, :productivity, :metric, :unit, :value)`
	insertOrganicSoils = `INSERT INTO organic_soils (soil_type, drainage_status, metric, unit, value)
		VALUES (:soil_type, :drainage_status, :metric, :unit, :value)`
	insertADSeries = `INSERT INTO ad_series (component, year, metric, unit, value)
		VALUES (:component, :year, :metric, :unit, :value)`
	insertADReference = `INSERT INTO ad_reference (component, reference_year)
		VALUES (:component, :reference_year)`
	insertScalers = `INSERT INTO scalers (year, system, value)
		VALUES (:year, :system, :value)`
)

// Import replaces the contents of every table that ds has rows for, inside
// one transaction. Tables with no rows in ds are left alone.
func (s *Store) Import(ctx context.Context, ds *Dataset) (map[string]int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin import: %w", err)
	}
	defer tx.Rollback()

	counts := make(map[string]int)
	steps := []struct {
		table string
		query string
		n     int
		rows  func(lo, hi int) any
	}{
		{TableForestry, insertForestry, len(ds.Forestry), func(lo, hi int) any { return ds.Forestry[lo:hi] }},
		{TableNetZero, insertNetZero, len(ds.NetZero), func(lo, hi int) any { return ds.NetZero[lo:hi] }},
		{TableAgriculture, insertAgriculture, len(ds.Agriculture), func(lo, hi int) any { return ds.Agriculture[lo:hi] }},
		{TableOrganicSoils, insertOrganicSoils, len(ds.OrganicSoils), func(lo, hi int) any { return ds.OrganicSoils[lo:hi] }},
		{TableADSeries, insertADSeries, len(ds.ADSeries), func(lo, hi int) any { return ds.ADSeries[lo:hi] }},
		{TableADReference, insertADReference, len(ds.ADReference), func(lo, hi int) any { return ds.ADReference[lo:hi] }},
		{TableScalers, insertScalers, len(ds.Scalers), func(lo, hi int) any { return ds.Scalers[lo:hi] }},
	}
	for _, st := range steps {
		if st.n == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+st.table); err != nil {
			return nil, fmt.Errorf("store: clear %s: %w", st.table, err)
		}
		for lo := 0; lo < st.n; lo += insertBatch {
			hi := min(lo+insertBatch, st.n)
			if _, err := tx.NamedExecContext(ctx, st.query, st.rows(lo, hi)); err != nil {
				return nil, fmt.Errorf("store: insert %s: %w", st.table, err)
			}
		}
		counts[st.table] = st.n
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit import: %w", err)
	}
	s.log.Info(ctx, "baseline data imported",
		logging.Int("rows", ds.Len()),
		logging.Int("tables", len(counts)),
	)
	return counts, nil
}
