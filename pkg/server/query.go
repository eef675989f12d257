package server

import (
	"fmt"
	"strings"
	"time"

	"retail-dashboard/pkg/models"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// parseFilter lit ?date=YYYY-MM-DD&date=...&country=...; les valeurs vides sont ignorées
// (champs laissés vides dans le formulaire).
func parseFilter(c *gin.Context) (models.Filter, error) {
	var f models.Filter
	for _, raw := range c.QueryArray("date") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return models.Filter{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
		}
		f.Dates = append(f.Dates, d)
	}
	for _, country := range c.QueryArray("country") {
		if country = strings.TrimSpace(country); country != "" {
			f.Countries = append(f.Countries, country)
		}
	}
	return f, nil
}
