package calculator

import (
	"time"

	"retail-dashboard/pkg/models"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func tx(invoice string, at time.Time, desc string, qty int64, amount, customer, country string) models.Transaction {
	a := decimal.RequireFromString(amount)
	return models.Transaction{
		InvoiceNo:   invoice,
		InvoiceDate: at,
		Description: desc,
		Quantity:    qty,
		UnitPrice:   a.Div(decimal.NewFromInt(qty)),
		Amount:      a,
		CustomerID:  customer,
		Country:     country,
	}
}

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		tx("A", day(2010, 12, 1, 8), "MUG", 2, "10", "1", "United Kingdom"),
		tx("A", day(2010, 12, 1, 8), "CANDLE", 1, "5", "1", "United Kingdom"),
		tx("B", day(2010, 12, 15, 23), "MUG", 4, "20", "2", "France"),
		tx("C", day(2011, 1, 3, 10), "LANTERN", 7, "0.1", "", "Germany"),
		tx("D", day(2011, 1, 31, 17), "CANDLE", 3, "0.2", "3", "France"),
		tx("E", day(2011, 2, 2, 9), "MUG", 1, "3.3", "1", "United Kingdom"),
	}
}

func sampleSegments() []models.CustomerSegment {
	return []models.CustomerSegment{
		{CustomerID: "1", Segment: "Loyal", Cluster: 0, Churned: false},
		{CustomerID: "2", Segment: "At Risk", Cluster: 1, Churned: true},
		{CustomerID: "3", Segment: "At Risk", Cluster: 1, Churned: false},
		{CustomerID: "4", Segment: "Champions", Cluster: 2, Churned: false},
		{CustomerID: "5", Segment: "Lost", Cluster: 10, Churned: true},
		{CustomerID: "6", Segment: "Loyal", Cluster: 0, Churned: true},
	}
}
