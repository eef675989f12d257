// Package forecast fits an additive trend + seasonality model to a univariate series
// and produces point forecasts with uncertainty intervals.
//
// The model follows Prophet's decomposition: a piecewise-linear trend with
// changepoints spread over the first 80% of history, plus yearly Fourier terms
// when the history covers at least two years. Parameters are the MAP estimate
// under Gaussian priors, which reduces to a ridge-regularised least squares solve.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrInsufficientData is returned when fewer than two observations are given.
	ErrInsufficientData = errors.New("forecast: at least 2 observations are required")
	// ErrDegenerate is returned for series the model cannot be fitted on.
	ErrDegenerate = errors.New("forecast: degenerate series")
)

// Observation is one (ds, y) row of the input series.
type Observation struct {
	DS time.Time
	Y  float64
}

// Point is one predicted row.
type Point struct {
	DS        time.Time
	YHat      float64
	YHatLower float64
	YHatUpper float64
	Future    bool
}

// Seasonality selects whether yearly terms are used.
type Seasonality int

const (
	SeasonalityAuto Seasonality = iota
	SeasonalityOn
	SeasonalityOff
)

// Options mirror Prophet's defaults.
type Options struct {
	IntervalWidth         float64
	ChangepointRange      float64
	MaxChangepoints       int
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	YearlySeasonality     Seasonality
	YearlyOrder           int
}

// DefaultOptions returns the settings used by the dashboard.
func DefaultOptions() Options {
	return Options{
		IntervalWidth:         0.80,
		ChangepointRange:      0.8,
		MaxChangepoints:       25,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		YearlySeasonality:     SeasonalityAuto,
		YearlyOrder:           10,
	}
}

const (
	trendPriorScale = 5.0
	minSigma2       = 1e-4
	initialSigma2   = 1e-2
	yearDays        = 365.25
)

// Model is a fitted series. It is immutable once returned by Fit.
type Model struct {
	opts Options

	start  time.Time
	last   time.Time
	tScale float64 // seconds between first and last observation
	yScale float64

	changepoints []float64 // on the scaled time axis
	yearly       bool

	beta         []float64
	sigma        float64 // residual noise, scaled units
	meanAbsDelta float64
}

// Fit estimates the model on history. Observations may be given in any order
// but their dates must be distinct and their values finite.
func Fit(history []Observation, opts Options) (*Model, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("%w (got %d)", ErrInsufficientData, len(history))
	}
	obs := make([]Observation, len(history))
	copy(obs, history)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].DS.Before(obs[j].DS) })

	for i, o := range obs {
		if math.IsNaN(o.Y) || math.IsInf(o.Y, 0) {
			return nil, fmt.Errorf("%w: non-finite value at %s", ErrDegenerate, o.DS.Format("2006-01-02"))
		}
		if i > 0 && o.DS.Equal(obs[i-1].DS) {
			return nil, fmt.Errorf("%w: duplicate date %s", ErrDegenerate, o.DS.Format("2006-01-02"))
		}
	}

	m := &Model{
		opts:  opts,
		start: obs[0].DS,
		last:  obs[len(obs)-1].DS,
	}
	m.tScale = m.last.Sub(m.start).Seconds()
	m.yScale = maxAbs(obs)
	if m.yScale == 0 {
		m.yScale = 1
	}

	t := make([]float64, len(obs))
	y := make([]float64, len(obs))
	for i, o := range obs {
		t[i] = m.scaledTime(o.DS)
		y[i] = o.Y / m.yScale
	}
	m.changepoints = placeChangepoints(t, opts.ChangepointRange, opts.MaxChangepoints)

	switch opts.YearlySeasonality {
	case SeasonalityOn:
		m.yearly = opts.YearlyOrder > 0
	case SeasonalityAuto:
		m.yearly = opts.YearlyOrder > 0 && m.last.Sub(m.start) >= 2*365*24*time.Hour
	}

	p := m.numFeatures()
	x := mat.NewDense(len(obs), p, nil)
	for i, o := range obs {
		x.SetRow(i, m.features(t[i], o.DS))
	}
	yv := mat.NewVecDense(len(y), y)

	// The penalty depends on the noise level, estimated by the first pass.
	sigma2 := initialSigma2
	for pass := 0; pass < 2; pass++ {
		beta, err := solve(x, yv, m.penalties(sigma2))
		if err != nil {
			return nil, err
		}
		m.beta = beta
		sigma2 = math.Max(m.residualVariance(x, y), minSigma2)
	}
	m.sigma = math.Sqrt(sigma2)

	deltas := m.beta[2 : 2+len(m.changepoints)]
	var sum float64
	for _, d := range deltas {
		sum += math.Abs(d)
	}
	if len(deltas) > 0 {
		sum /= float64(len(deltas))
	}
	m.meanAbsDelta = sum + 1e-8

	return m, nil
}

// Predict returns one point per date, in the given order.
func (m *Model) Predict(dates []time.Time) []Point {
	z := distuv.UnitNormal.Quantile(0.5 + m.opts.IntervalWidth/2)
	out := make([]Point, len(dates))
	for i, ds := range dates {
		t := m.scaledTime(ds)
		f := m.features(t, ds)
		var yhat float64
		for j, v := range f {
			yhat += v * m.beta[j]
		}

		variance := m.sigma * m.sigma
		if h := t - 1; h > 0 {
			variance += m.trendVariance(h)
		}
		half := z * math.Sqrt(variance) * m.yScale
		yhat *= m.yScale

		out[i] = Point{
			DS:        ds,
			YHat:      yhat,
			YHatLower: yhat - half,
			YHatUpper: yhat + half,
			Future:    ds.After(m.last),
		}
	}
	return out
}

// Changepoints is the number of trend changepoints in the fit.
func (m *Model) Changepoints() int { return len(m.changepoints) }

// Seasonal reports whether yearly terms were fitted.
func (m *Model) Seasonal() bool { return m.yearly }

// Sigma is the residual noise in the units of the input series.
func (m *Model) Sigma() float64 { return m.sigma * m.yScale }

// LastObserved is the date of the latest observation.
func (m *Model) LastObserved() time.Time { return m.last }

// trendVariance approximates the spread of future trends: changepoints arrive at
// rate S per unit of scaled time with Laplace(0, b) slope changes, so the trend
// offset after h has variance S·2b²·h³/3.
func (m *Model) trendVariance(h float64) float64 {
	s := float64(len(m.changepoints))
	b := m.meanAbsDelta
	return s * 2 * b * b * h * h * h / 3
}

func (m *Model) scaledTime(ds time.Time) float64 {
	return ds.Sub(m.start).Seconds() / m.tScale
}

func (m *Model) numFeatures() int {
	p := 2 + len(m.changepoints)
	if m.yearly {
		p += 2 * m.opts.YearlyOrder
	}
	return p
}

// features: [1, t, (t-s₁)₊ … (t-sₖ)₊, sin/cos yearly terms].
func (m *Model) features(t float64, ds time.Time) []float64 {
	f := make([]float64, 0, m.numFeatures())
	f = append(f, 1, t)
	for _, s := range m.changepoints {
		f = append(f, math.Max(t-s, 0))
	}
	if m.yearly {
		days := float64(ds.Unix()) / 86400
		for k := 1; k <= m.opts.YearlyOrder; k++ {
			arg := 2 * math.Pi * float64(k) * days / yearDays
			f = append(f, math.Sin(arg), math.Cos(arg))
		}
	}
	return f
}

// penalties turns the prior scales into ridge weights σ²/τ².
func (m *Model) penalties(sigma2 float64) []float64 {
	p := make([]float64, 0, m.numFeatures())
	p = append(p, sigma2/(trendPriorScale*trendPriorScale), sigma2/(trendPriorScale*trendPriorScale))
	for range m.changepoints {
		p = append(p, sigma2/(m.opts.ChangepointPriorScale*m.opts.ChangepointPriorScale))
	}
	if m.yearly {
		for k := 0; k < 2*m.opts.YearlyOrder; k++ {
			p = append(p, sigma2/(m.opts.SeasonalityPriorScale*m.opts.SeasonalityPriorScale))
		}
	}
	return p
}

func (m *Model) residualVariance(x *mat.Dense, y []float64) float64 {
	var sse float64
	for i := range y {
		var fit float64
		for j, b := range m.beta {
			fit += x.At(i, j) * b
		}
		r := y[i] - fit
		sse += r * r
	}
	return sse / float64(len(y))
}

func solve(x *mat.Dense, y *mat.VecDense, penalty []float64) ([]float64, error) {
	_, p := x.Dims()
	a := mat.NewSymDense(p, nil)
	a.SymOuterK(1, x.T())
	for i, l := range penalty {
		a.SetSym(i, i, a.At(i, i)+l)
	}
	var b mat.VecDense
	b.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("%w: normal equations are not positive definite", ErrDegenerate)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	out := make([]float64, p)
	for i := range out {
		out[i] = beta.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", ErrDegenerate)
		}
	}
	return out, nil
}

// placeChangepoints spreads up to max changepoints evenly over the first
// fraction of the (sorted) scaled history, as Prophet does.
func placeChangepoints(t []float64, fraction float64, max int) []float64 {
	hist := int(math.Floor(float64(len(t)) * fraction))
	n := max
	if n+1 > hist {
		n = hist - 1
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, 0, n)
	step := float64(hist-1) / float64(n)
	for i := 1; i <= n; i++ {
		idx := int(math.RoundToEven(float64(i) * step))
		out = append(out, t[idx])
	}
	return out
}

func maxAbs(obs []Observation) float64 {
	var m float64
	for _, o := range obs {
		if a := math.Abs(o.Y); a > m {
			m = a
		}
	}
	return m
}
