package reconstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

func TestDeriveNodeID_PriorityOrder(t *testing.T) {
	assert.Equal(t, "R-1", DeriveNodeID("Requirement", "r", map[string]any{
		"rid":  "R-1",
		"name": "Login",
	}))

	// name outranks title
	assert.Equal(t, "Login", DeriveNodeID("Requirement", "r", map[string]any{
		"name":  "Login",
		"title": "The login requirement",
	}))
}

func TestDeriveNodeID_StructuralFallback(t *testing.T) {
	assert.Equal(t, "Requirement_r", DeriveNodeID("Requirement", "r", map[string]any{
		"description": "no identifying keys here",
	}))
	assert.Equal(t, "Requirement_", DeriveNodeID("Requirement", "", nil))
}

func TestDeriveNodeID_Idempotent(t *testing.T) {
	props := map[string]any{"boid": "BO-9", "name": "Order"}
	first := DeriveNodeID("BusinessObject", "b", props)
	second := DeriveNodeID("BusinessObject", "b", props)
	assert.Equal(t, first, second)
}

func TestDeriveNodeID_NumericProperty(t *testing.T) {
	assert.Equal(t, "7", DeriveNodeID("Step", "s", map[string]any{"id": int64(7)}))
}

func TestResolveVariable_ExactMapping(t *testing.T) {
	varToID := map[string]string{"a": "R-1"}
	id, ok := ResolveVariable("a", varToID, nil)
	assert.True(t, ok)
	assert.Equal(t, "R-1", id)
}

func TestResolveVariable_StructuralSuffix(t *testing.T) {
	nodes := map[string]*models.NodeState{
		"Requirement_req1": {ID: "Requirement_req1"},
	}
	id, ok := ResolveVariable("req1", map[string]string{}, nodes)
	assert.True(t, ok)
	assert.Equal(t, "Requirement_req1", id)
}

func TestResolveVariable_SubstringFallback(t *testing.T) {
	nodes := map[string]*models.NodeState{
		"R-1": {ID: "R-1"},
	}
	id, ok := ResolveVariable("R-1-rev2", map[string]string{}, nodes)
	assert.True(t, ok)
	assert.Equal(t, "R-1", id)
}

func TestResolveVariable_PropertyValueFallback(t *testing.T) {
	nodes := map[string]*models.NodeState{
		"Requirement_x": {
			ID:         "Requirement_x",
			Properties: map[string]any{"code": "ZZ-42"},
		},
	}
	id, ok := ResolveVariable("ZZ-42", map[string]string{}, nodes)
	assert.True(t, ok)
	assert.Equal(t, "Requirement_x", id)
}

func TestResolveVariable_Unresolved(t *testing.T) {
	_, ok := ResolveVariable("ghost", map[string]string{}, map[string]*models.NodeState{})
	assert.False(t, ok)

	_, ok = ResolveVariable("", map[string]string{}, nil)
	assert.False(t, ok)
}
