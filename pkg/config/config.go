// Package config charge la configuration depuis l'environnement (.env optionnel).
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// AppConfig contient la configuration de l'application.
// Les flags de la ligne de commande surchargent ces valeurs dans main.go.
type AppConfig struct {
	// DSN MySQL/MariaDB. Vide = lecture des fichiers CSV.
	DSN string

	TransactionsFile  string
	SegmentsFile      string
	TransactionsTable string
	SegmentsTable     string

	ServerAddr      string
	LogLevel        string
	ForecastPeriods int
}

// Load lit le fichier .env s'il existe puis les variables d'environnement.
func Load() *AppConfig {
	_ = godotenv.Load() // .env est optionnel

	return &AppConfig{
		DSN:               getEnv("RETAIL_DASHBOARD_DSN", ""),
		TransactionsFile:  getEnv("TRANSACTIONS_FILE", "cleaned_online_retail.csv"),
		SegmentsFile:      getEnv("SEGMENTS_FILE", "customer_segments.csv"),
		TransactionsTable: getEnv("TRANSACTIONS_TABLE", "transactions"),
		SegmentsTable:     getEnv("SEGMENTS_TABLE", "customer_segments"),
		ServerAddr:        getEnv("SERVER_ADDR", ":8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ForecastPeriods:   getEnvInt("FORECAST_PERIODS", 6),
	}
}

// NewLogger construit le logger logrus de l'application.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return logger
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
