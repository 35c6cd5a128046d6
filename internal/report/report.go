// Package report renders engine evaluations as workbooks, text tables or JSON.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"

	"github.com/signalsfoundry/landuse-simulator/core"
	"github.com/signalsfoundry/landuse-simulator/model"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatXLSX  = "xlsx"
)

// ErrNoSheets is returned when a workbook would have nothing in it.
var ErrNoSheets = errors.New("report: no sheets to write")

// Sheet is the evaluation of one parameter across the horizon.
type Sheet struct {
	Parameter model.Parameter      `json:"parameter"`
	Rows      []core.LabeledSeries `json:"rows"`
}

// Evaluator reports labelled series per parameter. *core.SimulationEngine
// satisfies it.
type Evaluator interface {
	Evaluation(p model.Parameter) []core.LabeledSeries
}

// Collect evaluates every parameter in params, or all of them when none are
// given.
func Collect(se Evaluator, params ...model.Parameter) []Sheet {
	if len(params) == 0 {
		params = model.Parameters()
	}
	sheets := make([]Sheet, 0, len(params))
	for _, p := range params {
		sheets = append(sheets, Sheet{Parameter: p, Rows: se.Evaluation(p)})
	}
	return sheets
}

//
// ---------- Workbook ----------
//

// BuildWorkbook lays out one worksheet per parameter: a header row of years
// followed by one row per label.
func BuildWorkbook(years []int, sheets []Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("report: header style: %w", err)
	}

	for i, sh := range sheets {
		name := string(sh.Parameter)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				f.Close()
				return nil, fmt.Errorf("report: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("report: sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, header, years, sh.Rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, name string, style int, years []int, rows []core.LabeledSeries) error {
	head := make([]any, 0, len(years)+1)
	head = append(head, "label")
	for _, y := range years {
		head = append(head, y)
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return fmt.Errorf("report: %s header: %w", name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(head), 1)
	if err != nil {
		return fmt.Errorf("report: %s header: %w", name, err)
	}
	if err := f.SetCellStyle(name, "A1", last, style); err != nil {
		return fmt.Errorf("report: %s header style: %w", name, err)
	}

	for i, r := range rows {
		line := make([]any, 0, len(years)+1)
		line = append(line, r.Label)
		for j := range years {
			if j < len(r.Values) {
				line = append(line, r.Values[j])
			} else {
				line = append(line, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("report: %s row %d: %w", name, i, err)
		}
		if err := f.SetSheetRow(name, cell, &line); err != nil {
			return fmt.Errorf("report: %s row %q: %w", name, r.Label, err)
		}
	}
	if err := f.SetColWidth(name, "A", "A", 36); err != nil {
		return fmt.Errorf("report: %s column width: %w", name, err)
	}
	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	})
}

// WriteWorkbook streams the workbook built from sheets to w.
func WriteWorkbook(w io.Writer, years []int, sheets []Sheet) error {
	f, err := BuildWorkbook(years, sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes the workbook built from sheets to path.
func SaveWorkbook(path string, years []int, sheets []Sheet) error {
	f, err := BuildWorkbook(years, sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

//
// ---------- Text ----------
//

// WriteTable prints each sheet as an aligned table, values to two decimals.
func WriteTable(w io.Writer, years []int, sheets []Sheet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, sh := range sheets {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "[%s]\t\n", sh.Parameter)
		if len(sh.Rows) == 0 {
			fmt.Fprintln(tw, "(no data)\t")
			continue
		}
		cols := make([]string, 0, len(years)+1)
		cols = append(cols, "label")
		for _, y := range years {
			cols = append(cols, strconv.Itoa(y))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t")
		for _, r := range sh.Rows {
			cols = cols[:0]
			cols = append(cols, r.Label)
			for j := range years {
				if j < len(r.Values) {
					cols = append(cols, strconv.FormatFloat(r.Values[j], 'f', 2, 64))
				} else {
					cols = append(cols, "")
				}
			}
			fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t")
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: write table: %w", err)
	}
	return nil
}

// document is the JSON shape written by WriteJSON.
type document struct {
	Years  []int   `json:"years"`
	Sheets []Sheet `json:"sheets"`
}

// WriteJSON writes years and sheets as one indented JSON document.
func WriteJSON(w io.Writer, years []int, sheets []Sheet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Years: years, Sheets: sheets}); err != nil {
		return fmt.Errorf("report: write json: %w", err)
	}
	return nil
}

// Write dispatches on format. FormatXLSX streams the workbook to w.
func Write(w io.Writer, format string, years []int, sheets []Sheet) error {
	switch strings.ToLower(format) {
	case FormatTable, "":
		return WriteTable(w, years, sheets)
	case FormatJSON:
		return WriteJSON(w, years, sheets)
	case FormatXLSX:
		return WriteWorkbook(w, years, sheets)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}

// FormatFromPath picks xlsx for .xlsx paths, json for .json and table otherwise.
func FormatFromPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	default:
		return FormatTable
	}
}
