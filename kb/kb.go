package kb

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/landuse-simulator/model"
)

// ErrNotFound is returned when no baseline data matches a query.
var ErrNotFound = errors.New("baseline data not found")

// AgricultureKind selects the agriculture reference table.
type AgricultureKind string

const (
	KindNonCattle AgricultureKind = "non_cattle"
	KindCattle    AgricultureKind = "cattle"
)

// ADRequest parameterises the anaerobic digestion lookup.
type ADRequest struct {
	ImplementationYear        int
	CCS                       bool
	AdditionalBiomethaneYear  int
	AdditionalGrassBiomethane float64
	WillowYear                int
	CDRBioenergy              float64
}

// Lookup resolves categorical scenario filters into baseline reference data.
// Returned values are owned by the caller. Unknown combinations wrap
// ErrNotFound.
type Lookup interface {
	ExistingForest(ctx context.Context, harvest string, ccs bool) (*model.TimeSeries, error)
	// Afforestation returns the afforestation table already multiplied by rate.
	Afforestation(ctx context.Context, rate, broadleafFrac, organicSoilFrac float64, harvest string, ccs bool) (*model.TimeSeries, error)
	NetZeroMetrics(ctx context.Context, system string, ccs bool) ([]string, error)
	Agriculture(ctx context.Context, kind AgricultureKind, system, abatement, productivity string) (*model.Record, error)
	OrganicSoil(ctx context.Context, soilType, drainageStatus string) (*model.Record, error)
	AnaerobicDigestion(ctx context.Context, req ADRequest) (*model.TimeSeries, error)
	Scalers(ctx context.Context) (*ScalerTable, error)
}

//
// ---------- Scalers ----------
//

// ScalerTable holds per-system multipliers keyed by calendar year. Columns
// keep insertion order.
type ScalerTable struct {
	Years   []int
	systems []string
	columns map[string][]float64
}

// NewScalerTable constructs a table over the given years.
func NewScalerTable(years []int) *ScalerTable {
	ys := make([]int, len(years))
	copy(ys, years)
	return &ScalerTable{Years: ys, columns: make(map[string][]float64)}
}

// AddColumn adds or replaces the multipliers of one system.
func (st *ScalerTable) AddColumn(system string, values []float64) error {
	if system == "" {
		return fmt.Errorf("scaler column with empty system name")
	}
	if len(values) != len(st.Years) {
		return fmt.Errorf("scaler column %q has %d values for %d years", system, len(values), len(st.Years))
	}
	if _, ok := st.columns[system]; !ok {
		st.systems = append(st.systems, system)
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	st.columns[system] = cp
	return nil
}

// Column returns the multipliers of system.
func (st *ScalerTable) Column(system string) ([]float64, bool) {
	if st == nil {
		return nil, false
	}
	v, ok := st.columns[system]
	return v, ok
}

// Systems lists the system columns in insertion order.
func (st *ScalerTable) Systems() []string {
	if st == nil {
		return nil
	}
	out := make([]string, len(st.systems))
	copy(out, st.systems)
	return out
}

// Clone returns a deep copy.
func (st *ScalerTable) Clone() *ScalerTable {
	out := NewScalerTable(st.Years)
	for _, s := range st.systems {
		_ = out.AddColumn(s, st.columns[s])
	}
	return out
}
