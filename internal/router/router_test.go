package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunwell/internal/config"
	"sunwell/internal/types"
)

func newTestRouter() *Router {
	return New(config.DefaultBudgetConfig(), nil)
}

func TestRoutePlanningDangerousHalts(t *testing.T) {
	r := newTestRouter()
	budget := types.NewBudget(200000, 0.2)
	s, err := r.RoutePlanning(types.SignalVector{IsDangerous: types.Yes, Confidence: 0.9}, budget)
	require.NoError(t, err)
	assert.Equal(t, types.StrategyHalt, s.Name)
}

func TestRoutePlanningLowConfidenceClarifies(t *testing.T) {
	r := newTestRouter()
	budget := types.NewBudget(200000, 0.2)
	s, err := r.RoutePlanning(types.SignalVector{IsDangerous: types.No, Confidence: 0.1}, budget)
	require.NoError(t, err)
	assert.Equal(t, types.StrategyClarify, s.Name)
}

func TestRoutePlanningAmbiguousDialectic(t *testing.T) {
	r := newTestRouter()
	budget := types.NewBudget(200000, 0.2)
	s, err := r.RoutePlanning(types.SignalVector{
		IsDangerous: types.No, Confidence: 0.9, IsAmbiguous: types.Yes, Complexity: types.No,
	}, budget)
	require.NoError(t, err)
	assert.Equal(t, types.StrategyDialectic, s.Name)
}

func TestRoutePlanningComplexitySplits(t *testing.T) {
	r := newTestRouter()
	budget := types.NewBudget(200000, 0.2)

	s, err := r.RoutePlanning(types.SignalVector{Confidence: 0.9, Complexity: types.No}, budget)
	require.NoError(t, err)
	assert.Equal(t, types.StrategySingleShot, s.Name)

	s, err = r.RoutePlanning(types.SignalVector{Confidence: 0.9, Complexity: types.Yes}, budget)
	require.NoError(t, err)
	assert.Equal(t, types.StrategyHarmonic5, s.Name)
}

func TestRoutePlanningDowngradesUnderBudgetPressure(t *testing.T) {
	r := newTestRouter()
	budget := types.Budget{Total: 100, Spent: 0, Reserve: 20}
	s, err := r.RoutePlanning(types.SignalVector{Confidence: 0.9, Complexity: types.Yes}, budget)
	require.NoError(t, err)
	assert.Equal(t, types.StrategySingleShot, s.Name, "HARMONIC_5 -> HARMONIC_3 -> SINGLE_SHOT under tight budget")
}

func TestRouteTaskBuckets(t *testing.T) {
	r := newTestRouter()
	budget := types.NewBudget(200000, 0.2)

	cases := []struct {
		conf float64
		want types.StrategyName
	}{
		{0.9, types.StrategySingleShot},
		{0.7, types.StrategyInterference},
		{0.4, types.StrategyVortex},
		{0.1, types.StrategyClarify},
	}
	for _, c := range cases {
		s, err := r.RouteTask(c.conf, budget)
		require.NoError(t, err)
		assert.Equal(t, c.want, s.Name, "confidence %v", c.conf)
	}
}

func TestRouteFixMapsErrorKind(t *testing.T) {
	r := newTestRouter()
	budget := types.NewBudget(200000, 0.2)

	cases := []struct {
		kind types.ErrorKind
		want types.StrategyName
	}{
		{types.ErrSyntax, types.StrategyToolchainFix},
		{types.ErrLint, types.StrategyToolchainFix},
		{types.ErrType, types.StrategyDirectFix},
		{types.ErrImport, types.StrategyDepResolve},
		{types.ErrRuntime, types.StrategyHotspotScan},
		{types.ErrTest, types.StrategyDialectic},
	}
	for _, c := range cases {
		s, err := r.RouteFix(c.kind, 0, budget)
		require.NoError(t, err)
		assert.Equal(t, c.want, s.Name, "kind %v", c.kind)
	}
}

func TestAccountUpdatesBudgetSpent(t *testing.T) {
	r := newTestRouter()
	budget := types.NewBudget(1000, 0.2)
	s := r.strategy(types.StrategySingleShot)
	require.NoError(t, r.Account(&budget, s, 50))
	assert.Equal(t, 50.0, budget.Spent)
}
