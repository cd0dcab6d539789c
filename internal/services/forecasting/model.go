package forecasting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"TourCast/internal/domain/models"
	domsvc "TourCast/internal/domain/service"
	"TourCast/pkg/util"
)

const (
	// trendPriorScale is the prior sd of intercept and base slope on the scaled axis.
	trendPriorScale = 5.0
	// noiseFloor keeps penalties positive for constant series.
	noiseFloor = 0.01
	// madToSigma converts a median absolute deviation to a normal sd.
	madToSigma = 1.4826
)

var errSingular = errors.New("normal equations are not positive definite")

// NativeEngine fits an additive piecewise-linear trend plus Fourier
// seasonality model by ridge-regularised least squares.
type NativeEngine struct {
	settings Settings
}

// NewNativeEngine creates the in-process engine.
func NewNativeEngine(s Settings) *NativeEngine {
	return &NativeEngine{settings: s}
}

func (e *NativeEngine) Name() string { return "native" }

// Fit implements domsvc.ForecastEngine.
func (e *NativeEngine) Fit(ctx context.Context, series []models.TimeSeriesPoint, g models.Granularity, horizon int) ([]models.ForecastPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(series) < 2 {
		return nil, fmt.Errorf("need at least 2 points, got %d", len(series))
	}
	spec := Preset(g, e.settings)

	n := len(series)
	start := series[0].Timestamp
	spanDays := days(series[n-1].Timestamp, start)
	if spanDays <= 0 {
		return nil, fmt.Errorf("series spans no time")
	}

	y := make([]float64, n)
	scale := 0.0
	for i, p := range series {
		y[i] = p.Value
		scale = math.Max(scale, math.Abs(p.Value))
	}
	if scale == 0 {
		scale = 1
	}
	for i := range y {
		y[i] /= scale
	}

	tHist := make([]float64, n)
	for i, p := range series {
		tHist[i] = days(p.Timestamp, start) / spanDays
	}
	cps := changepoints(tHist, spec.NChangepoints, spec.ChangepointRange)

	m := &design{start: start, spanDays: spanDays, changepoints: cps, seasonalities: spec.Seasonalities}
	X := m.matrix(series)
	p := m.width()

	sigma := noiseFromDiffs(y)
	penalty := make([]float64, p)
	for j := 0; j < p; j++ {
		switch {
		case j < 2:
			penalty[j] = sigma * sigma / (trendPriorScale * trendPriorScale)
		case j < 2+len(cps):
			penalty[j] = sigma * sigma / (spec.ChangepointPriorScale * spec.ChangepointPriorScale)
		default:
			penalty[j] = sigma * sigma / (spec.SeasonalityPriorScale * spec.SeasonalityPriorScale)
		}
	}

	beta, edf, err := ridge(X, y, penalty)
	if err != nil {
		return nil, err
	}

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(X, beta)
	resid := make([]float64, n)
	for i := range y {
		resid[i] = y[i] - fitted.AtVec(i)
	}
	residSD := residualSD(resid, edf)

	// future changepoints arrive at the historical rate with Laplace
	// magnitudes whose scale is the mean absolute fitted delta
	cpRate := float64(len(cps))
	lap := 0.0
	for j := range cps {
		lap += math.Abs(beta.AtVec(2 + j))
	}
	if len(cps) > 0 {
		lap /= float64(len(cps))
	}

	z := distuv.UnitNormal.Quantile(0.5 + spec.IntervalWidth/2)

	out := make([]models.ForecastPoint, 0, n+horizon)
	for i, pt := range series {
		out = append(out, band(pt.Timestamp, fitted.AtVec(i), residSD, z, scale))
	}

	last := series[n-1].Timestamp
	row := make([]float64, p)
	for h := 1; h <= horizon; h++ {
		ts := util.AddPeriods(last, h, string(g))
		m.row(ts, row)
		est := 0.0
		for j, v := range row {
			est += v * beta.AtVec(j)
		}
		ahead := m.scaled(ts) - 1
		trendVar := 2 * lap * lap * cpRate * ahead * ahead * ahead / 3
		out = append(out, band(ts, est, math.Sqrt(residSD*residSD+trendVar), z, scale))
	}

	for _, fp := range out {
		if !finite(fp.PointEstimate) || !finite(fp.LowerBound) || !finite(fp.UpperBound) {
			return nil, fmt.Errorf("non-finite estimate at %s", fp.Timestamp.Format(util.DateLayout))
		}
	}
	return out, nil
}

func band(ts time.Time, est, sd, z, scale float64) models.ForecastPoint {
	return models.ForecastPoint{
		Timestamp:     ts,
		PointEstimate: est * scale,
		LowerBound:    (est - z*sd) * scale,
		UpperBound:    (est + z*sd) * scale,
	}
}

// design builds regressor rows: intercept, slope, changepoint hinges,
// then sin/cos pairs per seasonality.
type design struct {
	start         time.Time
	spanDays      float64
	changepoints  []float64
	seasonalities []Seasonality
}

func (d *design) width() int {
	w := 2 + len(d.changepoints)
	for _, s := range d.seasonalities {
		w += 2 * s.Order
	}
	return w
}

func (d *design) scaled(ts time.Time) float64 {
	return days(ts, d.start) / d.spanDays
}

func (d *design) row(ts time.Time, dst []float64) {
	t := d.scaled(ts)
	dst[0] = 1
	dst[1] = t
	k := 2
	for _, c := range d.changepoints {
		dst[k] = math.Max(0, t-c)
		k++
	}
	// absolute day number keeps seasonal phase independent of the window
	abs := float64(ts.Unix()) / 86400
	for _, s := range d.seasonalities {
		for o := 1; o <= s.Order; o++ {
			x := 2 * math.Pi * float64(o) * abs / s.PeriodDays
			dst[k] = math.Sin(x)
			dst[k+1] = math.Cos(x)
			k += 2
		}
	}
}

func (d *design) matrix(series []models.TimeSeriesPoint) *mat.Dense {
	p := d.width()
	X := mat.NewDense(len(series), p, nil)
	row := make([]float64, p)
	for i, pt := range series {
		d.row(pt.Timestamp, row)
		X.SetRow(i, row)
	}
	return X
}

// residualSD estimates the noise level from residuals of a fit that used
// edf effective parameters. At least one degree of freedom is kept.
func residualSD(resid []float64, edf float64) float64 {
	ssr := floats.Dot(resid, resid)
	dof := math.Max(float64(len(resid))-edf, 1)
	sd := math.Sqrt(ssr / dof)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

// ridge solves (X'X + diag(penalty)) b = X'y by Cholesky. It also returns
// the effective degrees of freedom, the trace of the hat matrix, which is
// p - sum(penalty_j * inv(X'X + diag(penalty))_jj).
func ridge(X *mat.Dense, y []float64, penalty []float64) (*mat.VecDense, float64, error) {
	_, p := X.Dims()
	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())
	for j := 0; j < p; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+penalty[j])
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, 0, errSingular
	}

	xty := mat.NewVecDense(p, nil)
	xty.MulVec(X.T(), mat.NewVecDense(len(y), y))

	beta := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(beta, xty); err != nil {
		return nil, 0, fmt.Errorf("solve: %w", err)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, 0, fmt.Errorf("invert: %w", err)
	}
	edf := float64(p)
	for j := 0; j < p; j++ {
		edf -= penalty[j] * inv.At(j, j)
	}
	return beta, edf, nil
}

// changepoints places up to n candidates at evenly spaced historical
// positions within the first cpRange of the history.
func changepoints(t []float64, n int, cpRange float64) []float64 {
	histSize := int(math.Floor(float64(len(t)) * cpRange))
	if n > histSize-1 {
		n = histSize - 1
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(n)))
		out = append(out, t[idx])
	}
	return out
}

// noiseFromDiffs estimates observation noise from the MAD of first
// differences, which is insensitive to trend and outliers.
func noiseFromDiffs(y []float64) float64 {
	if len(y) < 2 {
		return noiseFloor
	}
	diffs := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		diffs[i-1] = y[i] - y[i-1]
	}
	sort.Float64s(diffs)
	med := stat.Quantile(0.5, stat.Empirical, diffs, nil)
	for i := range diffs {
		diffs[i] = math.Abs(diffs[i] - med)
	}
	sort.Float64s(diffs)
	sigma := madToSigma * stat.Quantile(0.5, stat.Empirical, diffs, nil) / math.Sqrt2
	return math.Max(sigma, noiseFloor)
}

func days(t, from time.Time) float64 {
	return t.Sub(from).Hours() / 24
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var _ domsvc.ForecastEngine = (*NativeEngine)(nil)
