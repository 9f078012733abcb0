package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetAffordableAndAccount(t *testing.T) {
	b := NewBudget(1000, 0.2)
	assert.Equal(t, 200.0, b.Reserve)
	assert.True(t, b.Affordable(1.0, 100))

	require.NoError(t, b.Account(700))
	assert.Equal(t, 700.0, b.Spent)
	assert.False(t, b.Affordable(2.0, 100)) // 700+200+200=1100 > 1000
	assert.True(t, b.Affordable(1.0, 100))  // 700+100+200=1000 <= 1000
}

func TestBudgetAccountMonotonic(t *testing.T) {
	b := NewBudget(100, 0.2)
	require.NoError(t, b.Account(10))
	require.NoError(t, b.Account(10))
	assert.Equal(t, 20.0, b.Spent)
	err := b.Account(-5)
	require.Error(t, err)
	assert.Equal(t, 20.0, b.Spent, "spent must not decrease even on a rejected call")
}

func TestBudgetExhausted(t *testing.T) {
	b := NewBudget(100, 0.2)
	require.NoError(t, b.Account(81))
	assert.True(t, b.Exhausted(10)) // 81+10+20=111 > 100
}

func TestDowngradePath(t *testing.T) {
	next, ok := Downgrade(StrategyVortex)
	require.True(t, ok)
	assert.Equal(t, StrategyInterference, next)

	next, ok = Downgrade(next)
	require.True(t, ok)
	assert.Equal(t, StrategySingleShot, next)

	_, ok = Downgrade(StrategySingleShot)
	assert.False(t, ok, "SINGLE_SHOT is a floor strategy")
}
