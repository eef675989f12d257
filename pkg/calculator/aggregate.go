package calculator

import (
	"math"
	"sort"
	"strconv"
	"time"

	"retail-dashboard/pkg/models"

	"github.com/shopspring/decimal"
)

// KPIs → chiffre d'affaires total, clients distincts, panier moyen par facture.
func KPIs(txs []models.Transaction) models.KPISummary {
	total := decimal.Zero
	customers := map[string]struct{}{}
	invoices := map[string]struct{}{}
	for _, tx := range txs {
		total = total.Add(tx.Amount)
		if tx.CustomerID != "" {
			customers[tx.CustomerID] = struct{}{}
		}
		invoices[tx.InvoiceNo] = struct{}{}
	}

	k := models.KPISummary{
		TotalRevenue: total.InexactFloat64(),
		Customers:    len(customers),
		Orders:       len(invoices),
	}
	// moyenne des totaux par facture = total / nombre de factures
	if len(invoices) > 0 {
		k.AvgOrderValue = total.Div(decimal.NewFromInt(int64(len(invoices)))).InexactFloat64()
	}
	return k
}

// MonthlyTrend somme le chiffre d'affaires par mois calendaire, par ordre chronologique.
func MonthlyTrend(txs []models.Transaction) []models.MonthlySales {
	sums := map[time.Time]decimal.Decimal{}
	for _, tx := range txs {
		m := monthStart(tx.InvoiceDate)
		sums[m] = sums[m].Add(tx.Amount)
	}
	out := make([]models.MonthlySales, 0, len(sums))
	for m, v := range sums {
		out = append(out, models.MonthlySales{Month: m, Revenue: v.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// TopProducts → quantités vendues par description, n premiers.
func TopProducts(txs []models.Transaction, n int) []models.Ranked {
	sums := map[string]decimal.Decimal{}
	for _, tx := range txs {
		sums[tx.Description] = sums[tx.Description].Add(decimal.NewFromInt(tx.Quantity))
	}
	return topN(sums, n)
}

// TopCountries → chiffre d'affaires par pays, n premiers.
func TopCountries(txs []models.Transaction, n int) []models.Ranked {
	sums := map[string]decimal.Decimal{}
	for _, tx := range txs {
		sums[tx.Country] = sums[tx.Country].Add(tx.Amount)
	}
	return topN(sums, n)
}

// topN trie les groupes par clé (ordre de regroupement) puis, de façon stable, par valeur décroissante.
func topN(sums map[string]decimal.Decimal, n int) []models.Ranked {
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sort.SliceStable(keys, func(i, j int) bool { return sums[keys[i]].GreaterThan(sums[keys[j]]) })
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]models.Ranked, len(keys))
	for i, k := range keys {
		out[i] = models.Ranked{Label: k, Value: sums[k].InexactFloat64()}
	}
	return out
}

// SegmentCounts → effectif par segment RFM, décroissant.
func SegmentCounts(segs []models.CustomerSegment) []models.CategoryCount {
	labels := make([]string, len(segs))
	for i, s := range segs {
		labels[i] = s.Segment
	}
	return valueCounts(labels)
}

// ClusterCounts → effectif par cluster, décroissant.
func ClusterCounts(segs []models.CustomerSegment) []models.CategoryCount {
	labels := make([]string, len(segs))
	for i, s := range segs {
		labels[i] = strconv.Itoa(s.Cluster)
	}
	return valueCounts(labels)
}

// valueCounts: égalités dans l'ordre de première apparition.
func valueCounts(labels []string) []models.CategoryCount {
	idx := map[string]int{}
	var out []models.CategoryCount
	for _, l := range labels {
		if i, ok := idx[l]; ok {
			out[i].Count++
			continue
		}
		idx[l] = len(out)
		out = append(out, models.CategoryCount{Label: l, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// ChurnBySegment → part de clients churnés par segment, segments triés par nom.
func ChurnBySegment(segs []models.CustomerSegment) []models.ChurnRate {
	rates := churnRates(segs, func(s models.CustomerSegment) string { return s.Segment })
	sort.SliceStable(rates, func(i, j int) bool { return rates[i].Group < rates[j].Group })
	return rates
}

// ChurnByCluster → part de clients churnés par cluster, clusters triés numériquement.
func ChurnByCluster(segs []models.CustomerSegment) []models.ChurnRate {
	rates := churnRates(segs, func(s models.CustomerSegment) string { return strconv.Itoa(s.Cluster) })
	sort.SliceStable(rates, func(i, j int) bool {
		a, _ := strconv.Atoi(rates[i].Group)
		b, _ := strconv.Atoi(rates[j].Group)
		return a < b
	})
	return rates
}

func churnRates(segs []models.CustomerSegment, key func(models.CustomerSegment) string) []models.ChurnRate {
	type acc struct{ total, churned int }
	groups := map[string]*acc{}
	for _, s := range segs {
		k := key(s)
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.total++
		if s.Churned {
			a.churned++
		}
	}
	out := make([]models.ChurnRate, 0, len(groups))
	for k, a := range groups {
		rate := float64(a.churned) / float64(a.total)
		out = append(out, models.ChurnRate{
			Group:     k,
			Customers: a.total,
			Rate:      rate,
			Percent:   math.Round(rate*100*100) / 100,
		})
	}
	return out
}
