package main

import (
	"fmt"
	"io"

	"retail-dashboard/pkg/calculator"
	"retail-dashboard/pkg/models"
)

// writeReport imprime le tableau de bord en texte, une section par onglet.
// Format des lignes: "clé ; valeur".
func writeReport(w io.Writer, d *models.Dashboard) {
	k := d.KPIs
	fmt.Fprintln(w, "# KPIs")
	fmt.Fprintf(w, "total_sales ; %.2f\n", k.TotalRevenue)
	fmt.Fprintf(w, "customers ; %d\n", k.Customers)
	fmt.Fprintf(w, "orders ; %d\n", k.Orders)
	fmt.Fprintf(w, "avg_order_value ; %.2f\n", k.AvgOrderValue)

	fmt.Fprintln(w, "\n# Monthly Sales Trend")
	if d.NoData {
		fmt.Fprintln(w, models.NoDataMessage)
	}
	for _, m := range d.Overview.MonthlySales {
		fmt.Fprintf(w, "%s ; %.2f\n", calculator.FormatMonth(m.Month), m.Revenue)
	}

	fmt.Fprintln(w, "\n# Top 10 Products")
	for _, r := range d.Overview.TopProducts {
		fmt.Fprintf(w, "%s ; %.0f\n", r.Label, r.Value)
	}
	fmt.Fprintln(w, "\n# Top Countries by Revenue")
	for _, r := range d.Overview.TopCountries {
		fmt.Fprintf(w, "%s ; %.2f\n", r.Label, r.Value)
	}

	fmt.Fprintln(w, "\n# Customer Segments")
	for _, c := range d.Segmentation.Segments {
		fmt.Fprintf(w, "%s ; %d\n", c.Label, c.Count)
	}
	fmt.Fprintln(w, "\n# Cluster Distribution")
	for _, c := range d.Segmentation.Clusters {
		fmt.Fprintf(w, "%s ; %d\n", c.Label, c.Count)
	}

	fmt.Fprintln(w, "\n# Churn Rate by Segment")
	for _, c := range d.Churn.BySegment {
		fmt.Fprintf(w, "%s ; %.4f ; customers=%d\n", c.Group, c.Rate, c.Customers)
	}
	fmt.Fprintln(w, "\n# Churn Rate by Cluster (%)")
	for _, c := range d.Churn.ByCluster {
		fmt.Fprintf(w, "%s ; %.2f ; customers=%d\n", c.Group, c.Percent, c.Customers)
	}

	fmt.Fprintf(w, "\n# Sales Forecast (Next %d Months)\n", d.Forecast.Periods)
	if !d.Forecast.OK() {
		fmt.Fprintln(w, d.Forecast.Error)
		return
	}
	for _, p := range d.Forecast.Points {
		marker := ""
		if p.Future {
			marker = " ; forecast"
		}
		fmt.Fprintf(w, "%s ; %.2f ; [%.2f, %.2f]%s\n",
			p.DS.Format("2006-01-02"), p.YHat, p.YHatLower, p.YHatUpper, marker)
	}
}
