// Package workbook reads baseline reference workbooks into store datasets.
//
// Each table lives on a sheet named after it with a header row. Long-format
// sheets hold one value per row; the scalers sheet is wide, with a "year"
// column followed by one column per system.
package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/signalsfoundry/landuse-simulator/internal/store"
)

// Read parses a workbook from r. Sheets that are absent are skipped.
func Read(r io.Reader) (*store.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("workbook: open: %w", err)
	}
	defer f.Close()
	return readFile(f)
}

// ReadFile parses the workbook at path.
func ReadFile(path string) (*store.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("workbook: open %s: %w", path, err)
	}
	defer f.Close()
	return readFile(f)
}

func readFile(f *excelize.File) (*store.Dataset, error) {
	sheetName := func(table string) (string, bool) {
		for _, name := range f.GetSheetList() {
			if strings.EqualFold(strings.TrimSpace(name), table) {
				return name, true
			}
		}
		return "", false
	}

	ds := &store.Dataset{}
	readers := []struct {
		table string
		read  func(*sheet) error
	}{
		{store.TableForestry, func(s *sheet) error { return readRows(s, &ds.Forestry, forestryRow) }},
		{store.TableNetZero, func(s *sheet) error { return readRows(s, &ds.NetZero, netZeroRow) }},
		{store.TableAgriculture, func(s *sheet) error { return readRows(s, &ds.Agriculture, agricultureRow) }},
		{store.TableOrganicSoils, func(s *sheet) error { return readRows(s, &ds.OrganicSoils, organicSoilRow) }},
		{store.TableADSeries, func(s *sheet) error { return readRows(s, &ds.ADSeries, adSeriesRow) }},
		{store.TableADReference, func(s *sheet) error { return readRows(s, &ds.ADReference, adReferenceRow) }},
		{store.TableScalers, func(s *sheet) error { return readScalers(s, &ds.Scalers) }},
	}
	for _, rd := range readers {
		name, ok := sheetName(rd.table)
		if !ok {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("workbook: sheet %q: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		s := newSheet(name, rows)
		if err := rd.read(s); err != nil {
			return nil, fmt.Errorf("workbook: %w", err)
		}
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("workbook: no baseline sheets found")
	}
	return ds, nil
}

//
// ---------- Sheet access ----------
//

// sheet indexes the header of one sheet.
type sheet struct {
	name    string
	raw     []string
	header  []string
	columns map[string]int
	rows    [][]string
}

func newSheet(name string, rows [][]string) *sheet {
	s := &sheet{name: name, raw: rows[0], columns: make(map[string]int), rows: rows[1:]}
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		s.header = append(s.header, h)
		if h != "" {
			s.columns[h] = i
		}
	}
	return s
}

// row is one data row with typed accessors. The first failed access is kept.
type row struct {
	s     *sheet
	cells []string
	line  int
	err   error
}

func (r *row) raw(col string, required bool) string {
	idx, ok := r.s.columns[col]
	if !ok {
		if required && r.err == nil {
			r.err = fmt.Errorf("sheet %q: missing column %q", r.s.name, col)
		}
		return ""
	}
	if idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func (r *row) str(col string) string { return r.raw(col, true) }

func (r *row) optStr(col string) string { return r.raw(col, false) }

func (r *row) float(col string) float64 {
	v := r.raw(col, true)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("sheet %q row %d: column %q: %w", r.s.name, r.line, col, err)
	}
	return f
}

func (r *row) optFloat(col string) float64 {
	if _, ok := r.s.columns[col]; !ok {
		return 0
	}
	return r.float(col)
}

func (r *row) integer(col string) int {
	v := r.raw(col, true)
	n, err := strconv.Atoi(v)
	if err != nil {
		// Years typed into spreadsheets often come back as "2020.0".
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			if r.err == nil {
				r.err = fmt.Errorf("sheet %q row %d: column %q: not an integer: %q", r.s.name, r.line, col, v)
			}
			return 0
		}
		n = int(f)
	}
	return n
}

func (r *row) flag(col string) store.Flag {
	v := strings.ToLower(r.raw(col, true))
	switch v {
	case "1", "true", "yes", "y", "ccs":
		return true
	case "", "0", "false", "no", "n", "no_ccs":
		return false
	}
	if r.err == nil {
		r.err = fmt.Errorf("sheet %q row %d: column %q: not a boolean: %q", r.s.name, r.line, col, v)
	}
	return false
}

func (r *row) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readRows[T any](s *sheet, dst *[]T, parse func(*row) T) error {
	for i, cells := range s.rows {
		r := &row{s: s, cells: cells, line: i + 2}
		if r.blank() {
			continue
		}
		v := parse(r)
		if r.err != nil {
			return r.err
		}
		*dst = append(*dst, v)
	}
	return nil
}

//
// ---------- Table parsers ----------
//

func forestryRow(r *row) store.ForestryRow {
	return store.ForestryRow{
		System:          r.str("system"),
		Harvest:         r.str("harvest"),
		CCS:             r.flag("ccs"),
		BroadleafFrac:   r.optFloat("broadleaf_frac"),
		OrganicSoilFrac: r.optFloat("organic_soil_frac"),
		Year:            r.integer("year"),
		Metric:          r.str("metric"),
		Unit:            r.optStr("unit"),
		Value:           r.float("value"),
	}
}

func netZeroRow(r *row) store.NetZeroRow {
	return store.NetZeroRow{
		System:   r.str("system"),
		CCS:      r.flag("ccs"),
		Position: r.integer("position"),
		Metric:   r.str("metric"),
	}
}

func agricultureRow(r *row) store.AgricultureRow {
	return store.AgricultureRow{
		Kind:         r.str("kind"),
		System:       r.str("system"),
		Abatement:    r.str("abatement"),
		Productivity: r.str("productivity"),
		Metric:       r.str("metric"),
		Unit:         r.optStr("unit"),
		Value:        r.float("value"),
	}
}

func organicSoilRow(r *row) store.OrganicSoilRow {
	return store.OrganicSoilRow{
		SoilType:       r.str("soil_type"),
		DrainageStatus: r.str("drainage_status"),
		Metric:         r.str("metric"),
		Unit:           r.optStr("unit"),
		Value:          r.float("value"),
	}
}

func adSeriesRow(r *row) store.ADSeriesRow {
	return store.ADSeriesRow{
		Component: r.str("component"),
		Year:      r.integer("year"),
		Metric:    r.str("metric"),
		Unit:      r.optStr("unit"),
		Value:     r.float("value"),
	}
}

func adReferenceRow(r *row) store.ADReferenceRow {
	return store.ADReferenceRow{
		Component:     r.str("component"),
		ReferenceYear: r.integer("reference_year"),
	}
}

// readScalers unpivots the wide scalers sheet. System columns keep the
// header's original spelling and every cell must hold a multiplier.
func readScalers(s *sheet, dst *[]store.ScalerRow) error {
	if _, ok := s.columns["year"]; !ok {
		return fmt.Errorf("sheet %q: missing column %q", s.name, "year")
	}
	yearCol := s.columns["year"]
	for i, cells := range s.rows {
		r := &row{s: s, cells: cells, line: i + 2}
		if r.blank() {
			continue
		}
		year := r.integer("year")
		if r.err != nil {
			return r.err
		}
		for col, h := range s.header {
			if col == yearCol || h == "" {
				continue
			}
			system := strings.TrimSpace(s.raw[col])
			if col >= len(cells) || strings.TrimSpace(cells[col]) == "" {
				return fmt.Errorf("sheet %q row %d: column %q: missing scaler", s.name, r.line, system)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cells[col]), 64)
			if err != nil {
				return fmt.Errorf("sheet %q row %d: column %q: %w", s.name, r.line, system, err)
			}
			*dst = append(*dst, store.ScalerRow{Year: year, System: system, Value: v})
		}
	}
	return nil
}
