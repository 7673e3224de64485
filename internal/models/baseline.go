// Package models ships baseline model/prediction callables so the CLI and
// scheduler can exercise the engine end to end without user code. They are
// ordinary ModelFunc/PredictFunc values with no privileged access.
package models

import (
	"context"
	"fmt"

	"github.com/wonny/gridcast/internal/contracts"
)

// MeanModel predicts the per-outcome training mean for every input row
type MeanModel struct {
	Means []float64
}

// MeanTrain is the ModelFunc for the mean baseline
func MeanTrain(ctx context.Context, train contracts.TrainingData) (any, error) {
	if len(train.Outcomes) == 0 {
		return nil, fmt.Errorf("mean model: empty training partition")
	}
	nOut := len(train.OutcomeColumns)
	means := make([]float64, nOut)
	for _, row := range train.Outcomes {
		for j := 0; j < nOut; j++ {
			means[j] += row[j]
		}
	}
	for j := range means {
		means[j] /= float64(len(train.Outcomes))
	}
	return &MeanModel{Means: means}, nil
}

// MeanPredict is the PredictFunc for the mean baseline
func MeanPredict(ctx context.Context, model any, features [][]float64) ([][]float64, error) {
	m, ok := model.(*MeanModel)
	if !ok {
		return nil, fmt.Errorf("mean model: unexpected model type %T", model)
	}
	preds := make([][]float64, len(features))
	for i := range features {
		row := make([]float64, len(m.Means))
		copy(row, m.Means)
		preds[i] = row
	}
	return preds, nil
}

// OLSModel holds least-squares coefficients per outcome column. The first
// coefficient is the intercept; the rest align with the feature columns
// seen at training time.
type OLSModel struct {
	Coef [][]float64
}

// OLSTrain fits ordinary least squares via the normal equations, one
// regression per outcome column. A small ridge term keeps the system
// solvable when features are collinear.
func OLSTrain(ctx context.Context, train contracts.TrainingData) (any, error) {
	n := len(train.Features)
	if n == 0 {
		return nil, fmt.Errorf("ols model: empty training partition")
	}
	p := len(train.Features[0]) + 1 // +1 intercept
	nOut := len(train.OutcomeColumns)

	// X'X and X'y over the augmented design matrix
	xtx := make([][]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	xty := make([][]float64, p)
	for i := range xty {
		xty[i] = make([]float64, nOut)
	}

	aug := make([]float64, p)
	for r, feat := range train.Features {
		aug[0] = 1
		copy(aug[1:], feat)
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				xtx[i][j] += aug[i] * aug[j]
			}
			for k := 0; k < nOut; k++ {
				xty[i][k] += aug[i] * train.Outcomes[r][k]
			}
		}
	}

	const ridge = 1e-8
	for i := 0; i < p; i++ {
		xtx[i][i] += ridge
	}

	coef := make([][]float64, nOut)
	for k := 0; k < nOut; k++ {
		rhs := make([]float64, p)
		for i := 0; i < p; i++ {
			rhs[i] = xty[i][k]
		}
		beta, err := solve(xtx, rhs)
		if err != nil {
			return nil, fmt.Errorf("ols model: outcome %q: %w", train.OutcomeColumns[k], err)
		}
		coef[k] = beta
	}
	return &OLSModel{Coef: coef}, nil
}

// OLSPredict is the PredictFunc for the least-squares baseline
func OLSPredict(ctx context.Context, model any, features [][]float64) ([][]float64, error) {
	m, ok := model.(*OLSModel)
	if !ok {
		return nil, fmt.Errorf("ols model: unexpected model type %T", model)
	}
	preds := make([][]float64, len(features))
	for i, feat := range features {
		row := make([]float64, len(m.Coef))
		for k, beta := range m.Coef {
			if len(feat)+1 != len(beta) {
				return nil, fmt.Errorf("ols model: %d features for %d coefficients", len(feat), len(beta)-1)
			}
			y := beta[0]
			for j, v := range feat {
				y += beta[j+1] * v
			}
			row[k] = y
		}
		preds[i] = row
	}
	return preds, nil
}

// solve performs Gaussian elimination with partial pivoting on a copy of
// the system
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(m[r][col]) > abs(m[pivot][col]) {
				pivot = r
			}
		}
		if abs(m[pivot][col]) == 0 {
			return nil, fmt.Errorf("singular design matrix")
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ByName returns the built-in callable pair for a model name
func ByName(name string) (contracts.ModelFunc, contracts.PredictFunc, error) {
	switch name {
	case "mean", "baseline":
		return MeanTrain, MeanPredict, nil
	case "ols":
		return OLSTrain, OLSPredict, nil
	default:
		return nil, nil, fmt.Errorf("models: unknown built-in model %q", name)
	}
}
