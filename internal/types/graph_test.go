package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskGraphValidateAcyclic(t *testing.T) {
	g := &TaskGraph{Tasks: []TaskSpec{
		{ID: "a", Requires: nil},
		{ID: "b", Requires: []string{"a"}},
		{ID: "c", Requires: []string{"b"}},
	}}
	require.NoError(t, g.ValidateAcyclic())
}

func TestTaskGraphValidateAcyclicDetectsCycle(t *testing.T) {
	g := &TaskGraph{Tasks: []TaskSpec{
		{ID: "a", Requires: []string{"c"}},
		{ID: "b", Requires: []string{"a"}},
		{ID: "c", Requires: []string{"b"}},
	}}
	err := g.ValidateAcyclic()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestFeederGateAndGatesBlocking(t *testing.T) {
	g := &TaskGraph{
		Tasks: []TaskSpec{{ID: "t1"}, {ID: "t2"}},
		Gates: []Gate{{ID: "g1", Kind: GateImport, DependsOn: []string{"t1"}, Blocks: []string{"t2"}}},
	}
	gate, ok := g.FeederGate("t1")
	require.True(t, ok)
	assert.Equal(t, "g1", gate.ID)

	_, ok = g.FeederGate("t2")
	assert.False(t, ok)

	blocking := g.GatesBlocking("t2")
	require.Len(t, blocking, 1)
	assert.Equal(t, "g1", blocking[0].ID)

	assert.Empty(t, g.GatesBlocking("t1"))
}

func TestGateKindOrdering(t *testing.T) {
	assert.Less(t, GateSyntax.Rank(), GateLint.Rank())
	assert.Less(t, GateLint.Rank(), GateType.Rank())
	assert.Less(t, GateType.Rank(), GateImport.Rank())
	assert.Equal(t, GateImport.Rank(), GateInstantiate.Rank())
	assert.Less(t, GateImport.Rank(), GateSchema.Rank())
	assert.Less(t, GateSchema.Rank(), GateEndpoint.Rank())
	assert.Less(t, GateEndpoint.Rank(), GateIntegration.Rank())
}
