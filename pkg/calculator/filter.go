package calculator

import (
	"time"

	"retail-dashboard/pkg/models"
)

// ApplyFilter garde les transactions dans la plage de dates (bornes incluses, au jour près)
// et dans les pays sélectionnés. Une sélection de dates incomplète ou une liste de pays vide
// ne filtre pas. L'ordre d'origine est conservé.
func ApplyFilter(txs []models.Transaction, f models.Filter) []models.Transaction {
	from, to, byDate := dateRange(f.Dates)
	countries := make(map[string]struct{}, len(f.Countries))
	for _, c := range f.Countries {
		countries[c] = struct{}{}
	}

	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if byDate && (tx.InvoiceDate.Before(from) || !tx.InvoiceDate.Before(to)) {
			continue
		}
		if len(countries) > 0 {
			if _, ok := countries[tx.Country]; !ok {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}

// dateRange → [from, to) couvrant les deux jours choisis en entier.
func dateRange(dates []time.Time) (from, to time.Time, ok bool) {
	if len(dates) != 2 {
		return time.Time{}, time.Time{}, false
	}
	a, b := dayStart(dates[0]), dayStart(dates[1])
	if b.Before(a) {
		a, b = b, a
	}
	return a, b.AddDate(0, 0, 1), true
}

// CountryOptions liste les pays dans l'ordre de première apparition.
func CountryOptions(txs []models.Transaction) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tx := range txs {
		if _, ok := seen[tx.Country]; ok {
			continue
		}
		seen[tx.Country] = struct{}{}
		out = append(out, tx.Country)
	}
	return out
}

// Options calcule les valeurs proposées dans la barre latérale: bornes de dates sur tout
// le jeu de données, pays restants après le filtre de dates.
func Options(txs []models.Transaction, f models.Filter) models.FilterOptions {
	var opts models.FilterOptions
	for i, tx := range txs {
		if i == 0 || tx.InvoiceDate.Before(opts.MinDate) {
			opts.MinDate = tx.InvoiceDate
		}
		if i == 0 || tx.InvoiceDate.After(opts.MaxDate) {
			opts.MaxDate = tx.InvoiceDate
		}
	}
	opts.Countries = CountryOptions(ApplyFilter(txs, models.Filter{Dates: f.Dates}))
	if opts.Countries == nil {
		opts.Countries = []string{}
	}
	return opts
}
