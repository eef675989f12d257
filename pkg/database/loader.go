package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"retail-dashboard/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb:// ou mysql:// → format MySQL driver
func Open(dsn string) (*sql.DB, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// SQLSource lit les deux tables pré-calculées depuis MySQL/MariaDB.
type SQLSource struct {
	DB                *sql.DB
	TransactionsTable string
	SegmentsTable     string
	Logger            *logrus.Logger
}

// Load implémente Source.
func (s *SQLSource) Load(ctx context.Context) (*models.Dataset, error) {
	txs, err := s.loadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.TransactionsTable, err)
	}
	segs, err := s.loadSegments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.SegmentsTable, err)
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"transactions": len(txs),
			"segments":     len(segs),
		}).Info("dataset loaded from database")
	}
	return &models.Dataset{Transactions: txs, Segments: segs}, nil
}

func (s *SQLSource) loadTransactions(ctx context.Context) ([]models.Transaction, error) {
	if !tableNameRe.MatchString(s.TransactionsTable) {
		return nil, fmt.Errorf("table invalide")
	}
	q := fmt.Sprintf(`
		SELECT InvoiceNo, InvoiceDate, StockCode, Description,
		       Quantity, UnitPrice, TotalAmount, CustomerID, Country
		FROM %s
		ORDER BY InvoiceDate`, s.TransactionsTable)

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			tx          models.Transaction
			stockCode   sql.NullString
			description sql.NullString
			customerID  sql.NullString
		)
		if err := rows.Scan(&tx.InvoiceNo, &tx.InvoiceDate, &stockCode, &description,
			&tx.Quantity, &tx.UnitPrice, &tx.Amount, &customerID, &tx.Country); err != nil {
			return nil, err
		}
		tx.InvoiceDate = tx.InvoiceDate.UTC()
		tx.StockCode = stockCode.String
		tx.Description = description.String
		tx.CustomerID = normalizeCustomerID(customerID.String)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *SQLSource) loadSegments(ctx context.Context) ([]models.CustomerSegment, error) {
	if !tableNameRe.MatchString(s.SegmentsTable) {
		return nil, fmt.Errorf("table invalide")
	}
	q := fmt.Sprintf(`
		SELECT CustomerID, Recency, Frequency, Monetary, Segment, Cluster, Churned
		FROM %s`, s.SegmentsTable)

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CustomerSegment
	for rows.Next() {
		var (
			seg        models.CustomerSegment
			customerID sql.NullString
			recency    sql.NullInt64
			frequency  sql.NullInt64
			monetary   sql.NullFloat64
		)
		if err := rows.Scan(&customerID, &recency, &frequency, &monetary,
			&seg.Segment, &seg.Cluster, &seg.Churned); err != nil {
			return nil, err
		}
		seg.CustomerID = normalizeCustomerID(customerID.String)
		seg.Recency = int(recency.Int64)
		seg.Frequency = int(frequency.Int64)
		seg.Monetary = monetary.Float64
		out = append(out, seg)
	}
	return out, rows.Err()
}
