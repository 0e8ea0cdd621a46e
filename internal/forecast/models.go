package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var errNotPositiveDefinite = errors.New("normal equations are not positive definite")

// regressor is a base model over standardized features.
type regressor interface {
	fit(x [][]float64, y []float64) error
	predict(x []float64) float64
}

// scaler standardizes each feature to zero mean and unit variance; constant
// features are centred only.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(x *mat.Dense) scaler {
	_, d := x.Dims()
	s := scaler{mean: make([]float64, d), std: make([]float64, d)}
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, x)
		m, sd := stat.MeanStdDev(col, nil)
		if math.IsNaN(sd) || sd < 1e-12 {
			sd = 1
		}
		s.mean[j], s.std[j] = m, sd
	}
	return s
}

func (s scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	floats.SubTo(out, row, s.mean)
	floats.Div(out, s.std)
	return out
}

// standardized fits a scaler on rows and returns the scaled design matrix.
func standardized(rows [][]float64) (scaler, *mat.Dense) {
	d := len(rows[0])
	raw := mat.NewDense(len(rows), d, nil)
	for i, row := range rows {
		raw.SetRow(i, row)
	}
	s := fitScaler(raw)
	z := mat.NewDense(len(rows), d, nil)
	for i, row := range rows {
		z.SetRow(i, s.transform(row))
	}
	return s, z
}

// ridge is L2-regularized least squares with an unpenalized intercept.
type ridge struct {
	lambda    float64
	scale     scaler
	weights   *mat.VecDense
	intercept float64
}

func (r *ridge) fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("ridge: %d rows, %d targets", len(x), len(y))
	}
	var z *mat.Dense
	r.scale, z = standardized(x)
	_, d := z.Dims()
	r.intercept = stat.Mean(y, nil)

	yc := mat.NewVecDense(len(y), nil)
	for i, v := range y {
		yc.SetVec(i, v-r.intercept)
	}

	// (ZᵀZ + λI) w = Zᵀy
	a := mat.NewSymDense(d, nil)
	a.SymOuterK(1, z.T())
	for p := 0; p < d; p++ {
		diag := a.At(p, p) + r.lambda
		// constant columns are all zero after centring
		if diag == 0 {
			diag = 1
		}
		a.SetSym(p, p, diag)
	}
	b := mat.NewVecDense(d, nil)
	b.MulVec(z.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return fmt.Errorf("ridge: %w", errNotPositiveDefinite)
	}
	w := mat.NewVecDense(d, nil)
	if err := chol.SolveVecTo(w, b); err != nil {
		return fmt.Errorf("ridge: %w", err)
	}
	r.weights = w
	return nil
}

func (r *ridge) predict(x []float64) float64 {
	z := mat.NewVecDense(len(x), r.scale.transform(x))
	return r.intercept + mat.Dot(r.weights, z)
}

// knn averages the targets of the k closest training rows (Euclidean, standardized).
type knn struct {
	k     int
	scale scaler
	x     *mat.Dense
	y     []float64
}

func (m *knn) fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("knn: %d rows, %d targets", len(x), len(y))
	}
	m.scale, m.x = standardized(x)
	m.y = append([]float64(nil), y...)
	return nil
}

func (m *knn) predict(x []float64) float64 {
	z := m.scale.transform(x)
	type neighbour struct {
		dist float64
		y    float64
	}
	rows, _ := m.x.Dims()
	all := make([]neighbour, rows)
	for i := 0; i < rows; i++ {
		all[i] = neighbour{dist: floats.Distance(m.x.RawRowView(i), z, 2), y: m.y[i]}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	k := m.k
	if k <= 0 || k > len(all) {
		k = len(all)
	}
	ys := make([]float64, k)
	for i, nb := range all[:k] {
		ys[i] = nb.y
	}
	return stat.Mean(ys, nil)
}
