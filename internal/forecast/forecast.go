package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"gotrader/internal/indicator"
	"gotrader/internal/logger"
)

// ErrInsufficientHistory means no forecast can be produced today.
var ErrInsufficientHistory = errors.New("cannot produce a forecast today: not enough history")

// metaLambda regularizes the stacking regressor; base predictions are highly collinear.
const metaLambda = 1.0

// Forecast is the predicted close HorizonDays after AsOf.
type Forecast struct {
	Price     float64
	LastClose float64
	Horizon   int
	AsOf      time.Time
	// Base holds each base model's price forecast, keyed like "ridge-14".
	Base map[string]float64
}

// Provider produces the price forecast consumed by the trading machine.
type Provider interface {
	Predict(ctx context.Context, primary indicator.Table, companions []indicator.Table) (Forecast, error)
}

type Config struct {
	HorizonDays     int
	LookbackWindows []int
	RidgeLambda     float64
	KNNNeighbors    int
	MetaHoldout     int
	MinTrainSamples int
}

// Ensemble stacks ridge and knn regressors over several lookback windows.
type Ensemble struct {
	cfg Config
}

func NewEnsemble(cfg Config) *Ensemble {
	windows := append([]int(nil), cfg.LookbackWindows...)
	sort.Ints(windows)
	cfg.LookbackWindows = windows
	return &Ensemble{cfg: cfg}
}

// job is one (family, window) base model.
type job struct {
	name   string
	window int
	newFn  func() regressor
}

func (e *Ensemble) jobs() []job {
	var out []job
	for _, l := range e.cfg.LookbackWindows {
		out = append(out,
			job{name: fmt.Sprintf("ridge-%d", l), window: l, newFn: func() regressor { return &ridge{lambda: e.cfg.RidgeLambda} }},
			job{name: fmt.Sprintf("knn-%d", l), window: l, newFn: func() regressor { return &knn{k: e.cfg.KNNNeighbors} }},
		)
	}
	return out
}

func (e *Ensemble) Predict(ctx context.Context, primary indicator.Table, companions []indicator.Table) (Forecast, error) {
	if len(e.cfg.LookbackWindows) == 0 || e.cfg.HorizonDays <= 0 {
		return Forecast{}, fmt.Errorf("forecast: horizon and lookback windows must be set")
	}
	n := primary.Len()
	largest := e.cfg.LookbackWindows[len(e.cfg.LookbackWindows)-1]
	need := largest + e.cfg.HorizonDays + e.cfg.MetaHoldout + e.cfg.MinTrainSamples
	if n < need {
		return Forecast{}, fmt.Errorf("%w: %s has %d rows, need %d", ErrInsufficientHistory, primary.Symbol, n, need)
	}
	last := primary.Rows[n-1]

	fb := featureBuilder{
		primary:    primary,
		companions: usableCompanions(primary, companions),
		horizon:    e.cfg.HorizonDays,
	}
	sets := make(map[int]dataset, len(e.cfg.LookbackWindows))
	for _, l := range e.cfg.LookbackWindows {
		ds := fb.build(l)
		if ds.latest == nil {
			return Forecast{}, fmt.Errorf("%w: no feature row for the latest day (window %d)", ErrInsufficientHistory, l)
		}
		sets[l] = ds
	}
	common := commonIndices(sets)

	jobs := e.jobs()
	holdout := e.cfg.MetaHoldout
	stack := holdout >= 2*len(jobs)
	if !stack {
		holdout = 0
	}
	if len(common)-holdout < e.cfg.MinTrainSamples {
		return Forecast{}, fmt.Errorf("%w: %d aligned samples, need %d", ErrInsufficientHistory, len(common), holdout+e.cfg.MinTrainSamples)
	}

	var meta *ridge
	if stack {
		var err error
		meta, err = e.fitMeta(ctx, jobs, sets, common[len(common)-holdout:])
		if err != nil {
			return Forecast{}, err
		}
	}

	latest, err := e.fitAll(ctx, jobs, sets)
	if err != nil {
		return Forecast{}, err
	}

	out := Forecast{
		LastClose: last.Close,
		Horizon:   e.cfg.HorizonDays,
		AsOf:      last.Date,
		Base:      make(map[string]float64, len(jobs)),
	}
	for i, j := range jobs {
		out.Base[j.name] = last.Close * math.Exp(latest[i])
	}
	combined := stat.Mean(latest, nil)
	if meta != nil {
		combined = meta.predict(latest)
	}
	out.Price = last.Close * math.Exp(combined)
	logger.Debugf("forecast %s: %d-day price %.4f from close %.4f (stacked=%v)", primary.Symbol, out.Horizon, out.Price, out.LastClose, stack)
	return out, nil
}

// fitMeta trains every base model on samples before the holdout, then fits the
// meta regressor on their holdout predictions.
func (e *Ensemble) fitMeta(ctx context.Context, jobs []job, sets map[int]dataset, holdout []int) (*ridge, error) {
	start := holdout[0]
	preds := make([][]float64, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds := sets[j.window]
			var x [][]float64
			var y []float64
			byT := make(map[int][]float64, len(holdout))
			for _, s := range ds.samples {
				if s.t < start {
					x = append(x, copyRow(s.x))
					y = append(y, s.y)
				} else {
					byT[s.t] = s.x
				}
			}
			m := j.newFn()
			if err := m.fit(x, y); err != nil {
				return fmt.Errorf("%s: %w", j.name, err)
			}
			out := make([]float64, len(holdout))
			for k, t := range holdout {
				out[k] = m.predict(byT[t])
			}
			preds[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	targets := targetsAt(sets[jobs[0].window], holdout)
	mx := make([][]float64, len(holdout))
	for k := range holdout {
		row := make([]float64, len(jobs))
		for i := range jobs {
			row[i] = preds[i][k]
		}
		mx[k] = row
	}
	meta := &ridge{lambda: metaLambda}
	if err := meta.fit(mx, targets); err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	return meta, nil
}

// fitAll refits every base model on all of its samples and predicts the latest row.
func (e *Ensemble) fitAll(ctx context.Context, jobs []job, sets map[int]dataset) ([]float64, error) {
	out := make([]float64, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds := sets[j.window]
			x := make([][]float64, len(ds.samples))
			y := make([]float64, len(ds.samples))
			for k, s := range ds.samples {
				x[k] = copyRow(s.x)
				y[k] = s.y
			}
			m := j.newFn()
			if err := m.fit(x, y); err != nil {
				return fmt.Errorf("%s: %w", j.name, err)
			}
			out[i] = m.predict(ds.latest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// commonIndices returns the ascending sample indices present in every window.
func commonIndices(sets map[int]dataset) []int {
	count := make(map[int]int)
	for _, ds := range sets {
		for _, s := range ds.samples {
			count[s.t]++
		}
	}
	var out []int
	for t, c := range count {
		if c == len(sets) {
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}

func targetsAt(ds dataset, idx []int) []float64 {
	byT := make(map[int]float64, len(ds.samples))
	for _, s := range ds.samples {
		byT[s.t] = s.y
	}
	out := make([]float64, len(idx))
	for k, t := range idx {
		out[k] = byT[t]
	}
	return out
}

func copyRow(r []float64) []float64 {
	return append([]float64(nil), r...)
}
