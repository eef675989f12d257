package database

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"retail-dashboard/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CSVSource lit les fichiers produits par l'étape de nettoyage hors ligne.
type CSVSource struct {
	TransactionsPath string
	SegmentsPath     string
	Logger           *logrus.Logger
}

// Load implémente Source.
func (s *CSVSource) Load(ctx context.Context) (*models.Dataset, error) {
	txs, err := readFile(s.TransactionsPath, ReadTransactions)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, err := readFile(s.SegmentsPath, ReadSegments)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"transactions": len(txs),
			"segments":     len(segs),
			"file":         s.TransactionsPath,
		}).Info("dataset loaded")
	}
	return &models.Dataset{Transactions: txs, Segments: segs}, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// colonnes acceptées, en-têtes normalisés (minuscules, sans espace ni '_')
var (
	colInvoice     = []string{"invoiceno", "invoice", "invoicenumber"}
	colDate        = []string{"invoicedate"}
	colStockCode   = []string{"stockcode"}
	colDescription = []string{"description"}
	colQuantity    = []string{"quantity"}
	colUnitPrice   = []string{"unitprice", "price"}
	colAmount      = []string{"totalamount", "amount", "total"}
	colCustomer    = []string{"customerid", "customer"}
	colCountry     = []string{"country"}

	colRecency   = []string{"recency"}
	colFrequency = []string{"frequency"}
	colMonetary  = []string{"monetary"}
	colSegment   = []string{"segment"}
	colCluster   = []string{"cluster"}
	colChurned   = []string{"churned", "churn"}
)

type header map[string]int

func newHeader(record []string) header {
	h := header{}
	for i, col := range record {
		key := strings.ToLower(strings.TrimSpace(col))
		key = strings.NewReplacer(" ", "", "_", "", "\ufeff", "").Replace(key)
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

func (h header) index(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

func (h header) require(aliases ...[]string) error {
	for _, a := range aliases {
		if h.index(a) < 0 {
			return fmt.Errorf("colonne manquante: %s", a[0])
		}
	}
	return nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ReadTransactions parse le fichier de transactions nettoyé.
func ReadTransactions(r io.Reader) ([]models.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("fichier vide")
		}
		return nil, err
	}
	h := newHeader(first)
	if err := h.require(colInvoice, colDate, colDescription, colQuantity, colCountry); err != nil {
		return nil, err
	}
	if h.index(colAmount) < 0 && h.index(colUnitPrice) < 0 {
		return nil, fmt.Errorf("colonne manquante: totalamount ou unitprice")
	}

	var (
		iInvoice  = h.index(colInvoice)
		iDate     = h.index(colDate)
		iStock    = h.index(colStockCode)
		iDesc     = h.index(colDescription)
		iQty      = h.index(colQuantity)
		iPrice    = h.index(colUnitPrice)
		iAmount   = h.index(colAmount)
		iCustomer = h.index(colCustomer)
		iCountry  = h.index(colCountry)
	)

	var out []models.Transaction
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		tx := models.Transaction{
			InvoiceNo:   field(record, iInvoice),
			StockCode:   field(record, iStock),
			Description: field(record, iDesc),
			CustomerID:  normalizeCustomerID(field(record, iCustomer)),
			Country:     field(record, iCountry),
		}
		if tx.InvoiceDate, err = parseDate(field(record, iDate)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if tx.Quantity, err = parseInteger(field(record, iQty)); err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		if iPrice >= 0 {
			if tx.UnitPrice, err = decimal.NewFromString(field(record, iPrice)); err != nil {
				return nil, fmt.Errorf("line %d: unit price: %w", line, err)
			}
		}
		if iAmount >= 0 {
			if tx.Amount, err = decimal.NewFromString(field(record, iAmount)); err != nil {
				return nil, fmt.Errorf("line %d: amount: %w", line, err)
			}
		} else {
			tx.Amount = tx.UnitPrice.Mul(decimal.NewFromInt(tx.Quantity))
		}
		if iPrice < 0 && tx.Quantity != 0 {
			tx.UnitPrice = tx.Amount.Div(decimal.NewFromInt(tx.Quantity))
		}
		out = append(out, tx)
	}
	return out, nil
}

// ReadSegments parse le fichier de segmentation client.
func ReadSegments(r io.Reader) ([]models.CustomerSegment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("fichier vide")
		}
		return nil, err
	}
	h := newHeader(first)
	if err := h.require(colSegment, colCluster, colChurned); err != nil {
		return nil, err
	}

	var (
		iCustomer  = h.index(colCustomer)
		iRecency   = h.index(colRecency)
		iFrequency = h.index(colFrequency)
		iMonetary  = h.index(colMonetary)
		iSegment   = h.index(colSegment)
		iCluster   = h.index(colCluster)
		iChurned   = h.index(colChurned)
	)

	var out []models.CustomerSegment
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		seg := models.CustomerSegment{
			CustomerID: normalizeCustomerID(field(record, iCustomer)),
			Segment:    field(record, iSegment),
		}
		cluster, err := parseInteger(field(record, iCluster))
		if err != nil {
			return nil, fmt.Errorf("line %d: cluster: %w", line, err)
		}
		seg.Cluster = int(cluster)
		if seg.Churned, err = parseBool(field(record, iChurned)); err != nil {
			return nil, fmt.Errorf("line %d: churned: %w", line, err)
		}
		// RFM: colonnes informatives, tolérées vides
		if v, err := parseInteger(field(record, iRecency)); err == nil {
			seg.Recency = int(v)
		}
		if v, err := parseInteger(field(record, iFrequency)); err == nil {
			seg.Frequency = int(v)
		}
		if v, err := strconv.ParseFloat(field(record, iMonetary), 64); err == nil {
			seg.Monetary = v
		}
		out = append(out, seg)
	}
	return out, nil
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02",
	"1/2/2006",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date invalide %q", s)
}

// parseInteger accepte "12" comme "12.0" (colonnes exportées en float par pandas).
func parseInteger(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("entier invalide %q", s)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("entier invalide %q", s)
	}
	return int64(f), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "1.0", "yes", "y", "t":
		return true, nil
	case "false", "0", "0.0", "no", "n", "f":
		return false, nil
	}
	return false, fmt.Errorf("booléen invalide %q", s)
}

func normalizeCustomerID(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return ""
	}
	if strings.HasSuffix(s, ".0") {
		return strings.TrimSuffix(s, ".0")
	}
	return s
}
