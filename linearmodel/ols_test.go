package linearmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testModel(t *testing.T, model Model, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	t.Helper()

	err := model.Fit(x, y)
	require.NoError(t, err)

	assert.InDelta(t, intercept, model.Intercept(), tol, "intercept")
	assert.InDeltaSlice(t, coef, model.Coef(), tol, "coefficients")

	r2, err := model.Score(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, tol, "score")
}

func TestOLSOptionsValidate(t *testing.T) {
	var opt *OLSOptions
	res, err := opt.Validate()
	require.NoError(t, err)
	assert.Equal(t, NewDefaultOLSOptions(), res)

	res, err = (&OLSOptions{FitIntercept: false}).Validate()
	require.NoError(t, err)
	assert.False(t, res.FitIntercept)
}

func TestOLSRegression(t *testing.T) {
	tol := 1e-6
	testData := map[string]struct {
		x         []float64
		n         int
		y         []float64
		opt       *OLSOptions
		intercept float64
		coef      []float64
	}{
		"with intercept": {
			x: []float64{
				0, 0,
				3, 5,
				9, 20,
				12, 6,
				15, 10,
			},
			n:         2,
			y:         []float64{2, 31, 109, 62, 87},
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
		"without intercept": {
			x: []float64{
				1, 0, 0,
				1, 3, 5,
				1, 9, 20,
				1, 12, 6,
				1, 15, 10,
			},
			n:    3,
			y:    []float64{2, 31, 109, 62, 87},
			opt:  &OLSOptions{FitIntercept: false},
			coef: []float64{2.0, 3.0, 4.0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			m := len(td.y)
			x := mat.NewDense(m, td.n, td.x)
			y := mat.NewDense(m, 1, td.y)

			model, err := NewOLSRegression(td.opt)
			require.NoError(t, err)
			testModel(t, model, x, y, td.intercept, td.coef, tol)
		})
	}
}

func TestOLSRegressionDependentColumns(t *testing.T) {
	// third column duplicates the second so the weight is split between them
	x := mat.NewDense(4, 3, []float64{
		1, 1, 1,
		1, 2, 2,
		1, 3, 3,
		1, 4, 4,
	})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	model, err := NewOLSRegression(&OLSOptions{FitIntercept: false})
	require.NoError(t, err)
	require.NoError(t, model.Fit(x, y))

	coef := model.Coef()
	assert.InDelta(t, 1.0, coef[0], 1e-6)
	assert.InDelta(t, 1.0, coef[1], 1e-6)
	assert.InDelta(t, 1.0, coef[2], 1e-6)

	res, err := model.Predict(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 5, 7, 9}, res, 1e-6)
}

func TestOLSRegressionErrors(t *testing.T) {
	model, err := NewOLSRegression(nil)
	require.NoError(t, err)

	x := mat.NewDense(2, 1, []float64{1, 2})

	assert.ErrorIs(t, model.Fit(nil, x), ErrNoTrainingMatrix)
	assert.ErrorIs(t, model.Fit(x, nil), ErrNoTargetMatrix)
	assert.ErrorIs(t, model.Fit(x, mat.NewDense(3, 1, []float64{1, 2, 3})), ErrTargetLenMismatch)
	assert.ErrorIs(t, model.Fit(mat.NewDense(1, 1, []float64{1}), mat.NewDense(1, 1, []float64{1})), ErrUnderdetermined)

	noIntercept, err := NewOLSRegression(&OLSOptions{FitIntercept: false})
	require.NoError(t, err)
	assert.ErrorIs(t, noIntercept.Fit(mat.NewDense(2, 1, nil), mat.NewDense(2, 1, []float64{1, 2})), ErrFactorization)

	require.NoError(t, model.Fit(x, mat.NewDense(2, 1, []float64{1, 2})))
	_, err = model.Predict(mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
	_, err = model.Predict(nil)
	assert.ErrorIs(t, err, ErrNoDesignMatrix)

	empty := &OLSRegression{}
	assert.ErrorIs(t, empty.Fit(x, x), ErrNoOptions)
}
