package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthStarts(from time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = from.AddDate(0, i, 0)
	}
	return out
}

// linearSeries is linear in elapsed time, not in month index, so the trend is exact.
func linearSeries(n int) []Observation {
	start := time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]Observation, n)
	for i, ds := range monthStarts(start, n) {
		days := ds.Sub(start).Hours() / 24
		obs[i] = Observation{DS: ds, Y: 1000 + 0.5*days}
	}
	return obs
}

func TestFit_LinearTrend(t *testing.T) {
	history := linearSeries(13)
	m, err := Fit(history, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, m.Seasonal())
	assert.Equal(t, 9, m.Changepoints()) // floor(13*0.8)-1

	dates := make([]time.Time, 0, len(history)+6)
	for _, o := range history {
		dates = append(dates, o.DS)
	}
	last := history[len(history)-1].DS
	dates = append(dates, monthStarts(last.AddDate(0, 1, 0), 6)...)

	points := m.Predict(dates)
	require.Len(t, points, 19)

	start := history[0].DS
	for i, p := range points {
		want := 1000 + 0.5*p.DS.Sub(start).Hours()/24
		assert.InDelta(t, want, p.YHat, want*0.02, "row %d", i)
		assert.LessOrEqual(t, p.YHatLower, p.YHat)
		assert.GreaterOrEqual(t, p.YHatUpper, p.YHat)
		assert.Equal(t, i >= len(history), p.Future, "row %d", i)
	}
}

func TestPredict_FutureIntervalsWiden(t *testing.T) {
	// Noisy series so that changepoint deltas are not all zero.
	start := time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC)
	noise := []float64{0, 120, -80, 60, -150, 90, 30, -60, 140, -20, 70, -110, 40}
	var history []Observation
	for i, ds := range monthStarts(start, len(noise)) {
		history = append(history, Observation{DS: ds, Y: 5000 + 100*float64(i) + noise[i]})
	}
	m, err := Fit(history, DefaultOptions())
	require.NoError(t, err)

	future := m.Predict(monthStarts(m.LastObserved().AddDate(0, 1, 0), 6))
	prev := 0.0
	for _, p := range future {
		width := p.YHatUpper - p.YHatLower
		assert.GreaterOrEqual(t, width, prev)
		prev = width
	}
	assert.Greater(t, m.Sigma(), 0.0)
}

func TestFit_YearlySeasonality(t *testing.T) {
	start := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)
	var history []Observation
	for i, ds := range monthStarts(start, 36) {
		y := 1000 + 200*math.Sin(2*math.Pi*float64(i)/12)
		history = append(history, Observation{DS: ds, Y: y})
	}
	m, err := Fit(history, DefaultOptions())
	require.NoError(t, err)
	require.True(t, m.Seasonal())

	dates := make([]time.Time, len(history))
	for i, o := range history {
		dates[i] = o.DS
	}
	for i, p := range m.Predict(dates) {
		assert.InDelta(t, history[i].Y, p.YHat, 50, "row %d", i)
	}
}

func TestFit_SeasonalityOff(t *testing.T) {
	opts := DefaultOptions()
	opts.YearlySeasonality = SeasonalityOff
	start := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)
	var history []Observation
	for _, ds := range monthStarts(start, 30) {
		history = append(history, Observation{DS: ds, Y: 10})
	}
	m, err := Fit(history, opts)
	require.NoError(t, err)
	assert.False(t, m.Seasonal())
}

func TestFit_TwoPoints(t *testing.T) {
	history := linearSeries(2)
	m, err := Fit(history, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Changepoints())

	points := m.Predict([]time.Time{history[0].DS, history[1].DS})
	assert.InDelta(t, history[0].Y, points[0].YHat, 1)
	assert.InDelta(t, history[1].Y, points[1].YHat, 1)
}

func TestFit_UnsortedInput(t *testing.T) {
	history := linearSeries(6)
	reversed := make([]Observation, len(history))
	for i, o := range history {
		reversed[len(history)-1-i] = o
	}
	m, err := Fit(reversed, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, history[5].DS, m.LastObserved())
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Fit(linearSeries(1), DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)

	bad := linearSeries(4)
	bad[2].Y = math.NaN()
	_, err = Fit(bad, DefaultOptions())
	assert.ErrorIs(t, err, ErrDegenerate)

	dup := linearSeries(4)
	dup[3].DS = dup[2].DS
	_, err = Fit(dup, DefaultOptions())
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestFit_AllZero(t *testing.T) {
	history := linearSeries(5)
	for i := range history {
		history[i].Y = 0
	}
	m, err := Fit(history, DefaultOptions())
	require.NoError(t, err)
	for _, p := range m.Predict([]time.Time{history[0].DS}) {
		assert.InDelta(t, 0, p.YHat, 1e-9)
	}
}

func TestPlaceChangepoints(t *testing.T) {
	tt := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}
	cps := placeChangepoints(tt, 0.8, 25)
	// hist = 8, so 7 changepoints on t[1..7]
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}, cps)

	assert.Nil(t, placeChangepoints([]float64{0, 1}, 0.8, 25))
	assert.Len(t, placeChangepoints(make([]float64, 100), 0.8, 25), 25)
}
