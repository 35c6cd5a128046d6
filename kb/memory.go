package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/signalsfoundry/landuse-simulator/model"
)

type forestKey struct {
	harvest string
	ccs     bool
}

type afforestationKey struct {
	harvest         string
	ccs             bool
	broadleafFrac   float64
	organicSoilFrac float64
}

type nzKey struct {
	system string
	ccs    bool
}

type agricultureKey struct {
	kind         AgricultureKind
	system       string
	abatement    string
	productivity string
}

type soilKey struct {
	soilType       string
	drainageStatus string
}

// MemoryLookup is an in-memory, concurrency-safe Lookup. Several engines may
// share one instance; every read returns a copy.
type MemoryLookup struct {
	mu sync.RWMutex

	existingForest map[forestKey]*model.TimeSeries
	afforestation  map[afforestationKey]*model.TimeSeries
	nzMetrics      map[nzKey][]string
	agriculture    map[agricultureKey]*model.Record
	organicSoils   map[soilKey]*model.Record
	ad             map[string]ADComponent
	scalers        *ScalerTable
}

var _ Lookup = (*MemoryLookup)(nil)

// NewMemoryLookup constructs an empty lookup.
func NewMemoryLookup() *MemoryLookup {
	return &MemoryLookup{
		existingForest: make(map[forestKey]*model.TimeSeries),
		afforestation:  make(map[afforestationKey]*model.TimeSeries),
		nzMetrics:      make(map[nzKey][]string),
		agriculture:    make(map[agricultureKey]*model.Record),
		organicSoils:   make(map[soilKey]*model.Record),
		ad:             make(map[string]ADComponent),
	}
}

//
// ---------- Writers ----------
//

func (m *MemoryLookup) PutExistingForest(harvest string, ccs bool, ts *model.TimeSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existingForest[forestKey{harvest, ccs}] = ts.Clone()
}

// PutAfforestation stores the afforestation table for a unit rate.
func (m *MemoryLookup) PutAfforestation(harvest string, ccs bool, broadleafFrac, organicSoilFrac float64, ts *model.TimeSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.afforestation[afforestationKey{harvest, ccs, broadleafFrac, organicSoilFrac}] = ts.Clone()
}

func (m *MemoryLookup) PutNetZeroMetrics(system string, ccs bool, metrics []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nzMetrics[nzKey{system, ccs}] = append([]string(nil), metrics...)
}

func (m *MemoryLookup) PutAgriculture(kind AgricultureKind, system, abatement, productivity string, r *model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agriculture[agricultureKey{kind, system, abatement, productivity}] = r.Clone()
}

func (m *MemoryLookup) PutOrganicSoil(soilType, drainageStatus string, r *model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.organicSoils[soilKey{soilType, drainageStatus}] = r.Clone()
}

func (m *MemoryLookup) PutADComponent(name string, referenceYear int, ts *model.TimeSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ad[name] = ADComponent{ReferenceYear: referenceYear, Series: ts.Clone()}
}

func (m *MemoryLookup) PutScalers(st *ScalerTable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scalers = st.Clone()
}

//
// ---------- Lookup ----------
//

func (m *MemoryLookup) ExistingForest(_ context.Context, harvest string, ccs bool) (*model.TimeSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.existingForest[forestKey{harvest, ccs}]
	if !ok {
		return nil, fmt.Errorf("%w: existing forest harvest=%q ccs=%t", ErrNotFound, harvest, ccs)
	}
	return ts.Clone(), nil
}

func (m *MemoryLookup) Afforestation(_ context.Context, rate, broadleafFrac, organicSoilFrac float64, harvest string, ccs bool) (*model.TimeSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.afforestation[afforestationKey{harvest, ccs, broadleafFrac, organicSoilFrac}]
	if !ok {
		return nil, fmt.Errorf("%w: afforestation harvest=%q ccs=%t broadleaf=%g organic_soil=%g",
			ErrNotFound, harvest, ccs, broadleafFrac, organicSoilFrac)
	}
	return ScaleSeries(ts, rate), nil
}

func (m *MemoryLookup) NetZeroMetrics(_ context.Context, system string, ccs bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metrics, ok := m.nzMetrics[nzKey{system, ccs}]
	if !ok {
		return nil, fmt.Errorf("%w: net-zero metrics system=%q ccs=%t", ErrNotFound, system, ccs)
	}
	return append([]string(nil), metrics...), nil
}

func (m *MemoryLookup) Agriculture(_ context.Context, kind AgricultureKind, system, abatement, productivity string) (*model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.agriculture[agricultureKey{kind, system, abatement, productivity}]
	if !ok {
		return nil, fmt.Errorf("%w: %s agriculture system=%q abatement=%q productivity=%q",
			ErrNotFound, kind, system, abatement, productivity)
	}
	return r.Clone(), nil
}

func (m *MemoryLookup) OrganicSoil(_ context.Context, soilType, drainageStatus string) (*model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.organicSoils[soilKey{soilType, drainageStatus}]
	if !ok {
		return nil, fmt.Errorf("%w: organic soil %q drainage=%q", ErrNotFound, soilType, drainageStatus)
	}
	return r.Clone(), nil
}

func (m *MemoryLookup) AnaerobicDigestion(_ context.Context, req ADRequest) (*model.TimeSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return BuildAD(req, m.ad)
}

func (m *MemoryLookup) Scalers(context.Context) (*ScalerTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.scalers == nil {
		return NewScalerTable(nil), nil
	}
	return m.scalers.Clone(), nil
}

// ScaleSeries returns a copy of ts with every numeric value multiplied by f.
func ScaleSeries(ts *model.TimeSeries, f float64) *model.TimeSeries {
	out := model.NewTimeSeries()
	for _, k := range ts.Keys() {
		vals, _ := ts.Get(k)
		for i := range vals {
			vals[i] = vals[i].Scale(f)
		}
		out.Put(k, vals)
	}
	return out
}

//
// ---------- JSON documents ----------
//

type lookupJSON struct {
	ExistingForest []struct {
		Harvest string                   `json:"harvest"`
		CCS     bool                     `json:"ccs"`
		Series  map[string][]model.Value `json:"series"`
	} `json:"existing_forest"`
	Afforestation []struct {
		Harvest         string                   `json:"harvest"`
		CCS             bool                     `json:"ccs"`
		BroadleafFrac   float64                  `json:"broadleaf_frac"`
		OrganicSoilFrac float64                  `json:"organic_soil_frac"`
		Series          map[string][]model.Value `json:"series"`
	} `json:"afforestation"`
	NetZeroMetrics []struct {
		System  string   `json:"system"`
		CCS     bool     `json:"ccs"`
		Metrics []string `json:"metrics"`
	} `json:"nz_metrics"`
	Agriculture []struct {
		Kind         AgricultureKind        `json:"kind"`
		System       string                 `json:"system"`
		Abatement    string                 `json:"abatement"`
		Productivity string                 `json:"productivity"`
		Values       map[string]model.Value `json:"values"`
	} `json:"agriculture"`
	OrganicSoils []struct {
		SoilType       string                 `json:"soil_type"`
		DrainageStatus string                 `json:"drainage_status"`
		Values         map[string]model.Value `json:"values"`
	} `json:"organic_soils"`
	AD []struct {
		Component     string                   `json:"component"`
		ReferenceYear int                      `json:"reference_year"`
		Series        map[string][]model.Value `json:"series"`
	} `json:"ad"`
	Scalers *struct {
		Years   []int                `json:"years"`
		Systems map[string][]float64 `json:"systems"`
	} `json:"scalers"`
}

// LoadMemoryLookup decodes a JSON baseline document. Metric order inside
// each table is alphabetical.
func LoadMemoryLookup(r io.Reader) (*MemoryLookup, error) {
	var doc lookupJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("LoadMemoryLookup: decode failed: %w", err)
	}

	m := NewMemoryLookup()
	for _, e := range doc.ExistingForest {
		m.PutExistingForest(e.Harvest, e.CCS, seriesFromMap(e.Series))
	}
	for _, e := range doc.Afforestation {
		m.PutAfforestation(e.Harvest, e.CCS, e.BroadleafFrac, e.OrganicSoilFrac, seriesFromMap(e.Series))
	}
	for _, e := range doc.NetZeroMetrics {
		m.PutNetZeroMetrics(e.System, e.CCS, e.Metrics)
	}
	for _, e := range doc.Agriculture {
		if e.Kind != KindCattle && e.Kind != KindNonCattle {
			return nil, fmt.Errorf("LoadMemoryLookup: unknown agriculture kind %q", e.Kind)
		}
		m.PutAgriculture(e.Kind, e.System, e.Abatement, e.Productivity, recordFromMap(e.Values))
	}
	for _, e := range doc.OrganicSoils {
		m.PutOrganicSoil(e.SoilType, e.DrainageStatus, recordFromMap(e.Values))
	}
	for _, e := range doc.AD {
		m.PutADComponent(e.Component, e.ReferenceYear, seriesFromMap(e.Series))
	}
	if doc.Scalers != nil {
		st := NewScalerTable(doc.Scalers.Years)
		for _, name := range sortedKeys(doc.Scalers.Systems) {
			if err := st.AddColumn(name, doc.Scalers.Systems[name]); err != nil {
				return nil, fmt.Errorf("LoadMemoryLookup: %w", err)
			}
		}
		m.PutScalers(st)
	}
	return m, nil
}

func seriesFromMap(src map[string][]model.Value) *model.TimeSeries {
	ts := model.NewTimeSeries()
	for _, k := range sortedKeys(src) {
		ts.Put(k, src[k])
	}
	return ts
}

func recordFromMap(src map[string]model.Value) *model.Record {
	r := model.NewRecord()
	for _, k := range sortedKeys(src) {
		r.Set(k, src[k])
	}
	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
