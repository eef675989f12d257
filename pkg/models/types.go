package models

import (
	"time"

	"github.com/shopspring/decimal"
)

/*
LOAD → types lus depuis les fichiers nettoyés (ou les tables MySQL équivalentes).
*/

// Transaction représente une ligne de facture du jeu de données Online Retail.
type Transaction struct {
	InvoiceNo   string
	InvoiceDate time.Time
	StockCode   string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal // Quantity × UnitPrice
	CustomerID  string          // vide si la ligne n'a pas de client
	Country     string
}

// CustomerSegment représente un client segmenté (RFM + clustering) avec son statut de churn.
type CustomerSegment struct {
	CustomerID string
	Recency    int
	Frequency  int
	Monetary   float64
	Segment    string
	Cluster    int
	Churned    bool
}

// Dataset regroupe les deux tables chargées une seule fois par processus.
type Dataset struct {
	Transactions []Transaction
	Segments     []CustomerSegment
}

/*
FILTER → sélection faite dans la barre latérale
*/

// Filter contient la sélection de l'utilisateur.
type Filter struct {
	Dates     []time.Time // bornes choisies (filtrage seulement si exactement 2)
	Countries []string    // vide = tous les pays
}

// FilterOptions alimente la barre latérale.
type FilterOptions struct {
	MinDate   time.Time `json:"min_date"`
	MaxDate   time.Time `json:"max_date"`
	Countries []string  `json:"countries"`
}

/*
COMPUTE → vues calculées pour un rendu
*/

// KPISummary contient les indicateurs du bandeau supérieur.
type KPISummary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	Customers     int     `json:"customers"`
	Orders        int     `json:"orders"`
	AvgOrderValue float64 `json:"avg_order_value"` // moyenne des totaux par facture
}

// MonthlySales est un point de la série mensuelle (Month = 1er jour du mois, UTC).
type MonthlySales struct {
	Month   time.Time `json:"month"`
	Revenue float64   `json:"revenue"`
}

// Ranked est une ligne d'un classement top-N.
type Ranked struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// CategoryCount est l'effectif d'un segment ou d'un cluster.
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ChurnRate est le taux de churn d'un groupe, en fraction et en pourcentage.
type ChurnRate struct {
	Group     string  `json:"group"`
	Customers int     `json:"customers"`
	Rate      float64 `json:"rate"`    // [0,1]
	Percent   float64 `json:"percent"` // [0,100], arrondi à 2 décimales
}

// ForecastPoint est une ligne de prévision (historique ou futur).
type ForecastPoint struct {
	DS        time.Time `json:"ds"`
	YHat      float64   `json:"yhat"`
	YHatLower float64   `json:"yhat_lower"`
	YHatUpper float64   `json:"yhat_upper"`
	Future    bool      `json:"future"`
}

// ForecastView est le résultat de l'étape de prévision: soit des points, soit une erreur affichable.
type ForecastView struct {
	History []MonthlySales  `json:"history"`
	Points  []ForecastPoint `json:"points,omitempty"`
	Periods int             `json:"periods"`
	Error   string          `json:"error,omitempty"`
}

// OK indique si la prévision a abouti.
func (f ForecastView) OK() bool { return f.Error == "" && len(f.Points) > 0 }

// Overview regroupe les tableaux de l'onglet "Overview".
type Overview struct {
	MonthlySales []MonthlySales `json:"monthly_sales"`
	TopProducts  []Ranked       `json:"top_products"`
	TopCountries []Ranked       `json:"top_countries"`
}

// Segmentation regroupe les effectifs par segment RFM et par cluster.
type Segmentation struct {
	Segments []CategoryCount `json:"segments"`
	Clusters []CategoryCount `json:"clusters"`
}

// Churn regroupe les taux de churn par segment et par cluster.
type Churn struct {
	BySegment []ChurnRate `json:"by_segment"`
	ByCluster []ChurnRate `json:"by_cluster"`
}

// Dashboard contient tout ce qu'un rendu du tableau de bord affiche.
type Dashboard struct {
	Filter       Filter       `json:"-"`
	Rows         int          `json:"rows"`
	NoData       bool         `json:"no_data"`
	KPIs         KPISummary   `json:"kpis"`
	Overview     Overview     `json:"overview"`
	Segmentation Segmentation `json:"segmentation"`
	Churn        Churn        `json:"churn"`
	Forecast     ForecastView `json:"forecast"`
}

// NoDataMessage est affiché à la place des graphiques quand la sélection est vide.
const NoDataMessage = "No data available for the selected filters."

/*
CONFIG → paramètres globaux
*/

// Config contient les paramètres passés au calcul.
type Config struct {
	Filter          Filter
	ForecastPeriods int  // 6 par défaut
	TopN            int  // 10 par défaut
	Verbose         bool // logs détaillés par étape
	Progress        bool // barre de progression (mode rapport)
}
