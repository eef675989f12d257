package calculator

import (
	"time"

	"retail-dashboard/pkg/forecast"
	"retail-dashboard/pkg/models"
)

// Forecast ajuste le modèle sur la série mensuelle et projette `periods` mois.
// Une erreur d'ajustement n'est pas remontée: elle est portée par ForecastView.Error
// pour que le reste du tableau de bord reste affichable.
func Forecast(monthly []models.MonthlySales, periods int) (models.ForecastView, *forecast.Model) {
	view := models.ForecastView{History: monthly, Periods: periods}
	if len(monthly) == 0 {
		view.Error = models.NoDataMessage
		return view, nil
	}

	// (Month, Revenue) → (ds, y)
	obs := make([]forecast.Observation, len(monthly))
	for i, m := range monthly {
		obs[i] = forecast.Observation{DS: m.Month, Y: m.Revenue}
	}

	model, err := forecast.Fit(obs, forecast.DefaultOptions())
	if err != nil {
		view.Error = "Error in forecasting: " + err.Error()
		return view, nil
	}

	index := make([]time.Time, 0, len(monthly)+periods)
	for _, m := range monthly {
		index = append(index, m.Month)
	}
	index = append(index, nextMonths(model.LastObserved(), periods)...)

	for _, p := range model.Predict(index) {
		view.Points = append(view.Points, models.ForecastPoint{
			DS:        p.DS,
			YHat:      p.YHat,
			YHatLower: p.YHatLower,
			YHatUpper: p.YHatUpper,
			Future:    p.Future,
		})
	}
	return view, model
}
