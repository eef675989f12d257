// Package export écrit le tableau de bord calculé dans un classeur Excel.
package export

import (
	"fmt"
	"io"
	"strconv"

	"retail-dashboard/pkg/calculator"
	"retail-dashboard/pkg/models"

	"github.com/xuri/excelize/v2"
)

// Noms des onglets du classeur, dans l'ordre.
const (
	SheetKPIs         = "KPIs"
	SheetMonthly      = "Monthly Sales"
	SheetProducts     = "Top Products"
	SheetCountries    = "Top Countries"
	SheetSegments     = "Segments"
	SheetClusters     = "Clusters"
	SheetChurnSegment = "Churn by Segment"
	SheetChurnCluster = "Churn by Cluster"
	SheetForecast     = "Forecast"
)

// Workbook construit le classeur correspondant au tableau de bord d.
// L'appelant doit fermer le fichier retourné.
func Workbook(d *models.Dashboard) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetKPIs); err != nil {
		f.Close()
		return nil, err
	}
	w := &writer{f: f}

	k := d.KPIs
	w.sheet(SheetKPIs, []string{"Metric", "Value"}, [][]any{
		{"Total Revenue", k.TotalRevenue},
		{"Customers", k.Customers},
		{"Orders", k.Orders},
		{"Avg Order Value", k.AvgOrderValue},
		{"Rows", d.Rows},
	})

	rows := make([][]any, 0, len(d.Overview.MonthlySales))
	for _, m := range d.Overview.MonthlySales {
		rows = append(rows, []any{calculator.FormatMonth(m.Month), m.Revenue})
	}
	w.sheet(SheetMonthly, []string{"Month", "Revenue"}, rows)
	w.sheet(SheetProducts, []string{"Description", "Quantity"}, ranked(d.Overview.TopProducts))
	w.sheet(SheetCountries, []string{"Country", "Revenue"}, ranked(d.Overview.TopCountries))
	w.sheet(SheetSegments, []string{"Segment", "Customers"}, counts(d.Segmentation.Segments))
	w.sheet(SheetClusters, []string{"Cluster", "Customers"}, counts(d.Segmentation.Clusters))
	w.sheet(SheetChurnSegment, []string{"Segment", "Customers", "Churn Rate", "Churn %"}, churn(d.Churn.BySegment))
	w.sheet(SheetChurnCluster, []string{"Cluster", "Customers", "Churn Rate", "Churn %"}, churn(d.Churn.ByCluster))

	if d.Forecast.OK() {
		rows = make([][]any, 0, len(d.Forecast.Points))
		for _, p := range d.Forecast.Points {
			rows = append(rows, []any{p.DS.Format("2006-01-02"), p.YHat, p.YHatLower, p.YHatUpper, p.Future})
		}
		w.sheet(SheetForecast, []string{"ds", "yhat", "yhat_lower", "yhat_upper", "future"}, rows)
	} else {
		w.sheet(SheetForecast, []string{"error"}, [][]any{{d.Forecast.Error}})
	}

	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write écrit le classeur de d sur out.
func Write(out io.Writer, d *models.Dashboard) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writer garde la première erreur rencontrée.
type writer struct {
	f     *excelize.File
	err   error
	style int
}

func (w *writer) sheet(name string, header []string, rows [][]any) {
	if w.err != nil {
		return
	}
	if name != SheetKPIs {
		if _, w.err = w.f.NewSheet(name); w.err != nil {
			return
		}
	}
	if w.style == 0 {
		if w.style, w.err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); w.err != nil {
			return
		}
	}

	h := make([]any, len(header))
	for i, s := range header {
		h[i] = s
	}
	if w.err = w.f.SetSheetRow(name, "A1", &h); w.err != nil {
		return
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	if w.err = w.f.SetCellStyle(name, "A1", last+"1", w.style); w.err != nil {
		return
	}
	if w.err = w.f.SetColWidth(name, "A", last, 18); w.err != nil {
		return
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if w.err = w.f.SetSheetRow(name, cell, &r); w.err != nil {
			return
		}
	}
}

func ranked(rs []models.Ranked) [][]any {
	out := make([][]any, len(rs))
	for i, r := range rs {
		out[i] = []any{r.Label, r.Value}
	}
	return out
}

func counts(cs []models.CategoryCount) [][]any {
	out := make([][]any, len(cs))
	for i, c := range cs {
		out[i] = []any{c.Label, c.Count}
	}
	return out
}

func churn(cs []models.ChurnRate) [][]any {
	out := make([][]any, len(cs))
	for i, c := range cs {
		out[i] = []any{c.Group, c.Customers, c.Rate, strconv.FormatFloat(c.Percent, 'f', 2, 64)}
	}
	return out
}
