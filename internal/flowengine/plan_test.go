package flowengine

import (
	"reflect"
	"testing"

	"github.com/jeamxn/codeblock-bff/internal/models"
)

func blocks(ids ...string) []models.BlockInstance {
	out := make([]models.BlockInstance, len(ids))
	for i, id := range ids {
		out[i] = models.BlockInstance{ID: id}
	}
	return out
}

func conn(from, to string) models.Connection {
	return models.Connection{FromBlockInstanceID: from, ToBlockInstanceID: to}
}

func TestBuildPlanLinearChain(t *testing.T) {
	bs := blocks("a", "b", "c")
	conns := []models.Connection{conn("a", "b"), conn("b", "c")}

	plan, err := BuildPlan(bs, conns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(plan.Order, []int{0, 1, 2}) {
		t.Fatalf("order = %v, want [0 1 2]", plan.Order)
	}
}

func TestBuildPlanIsolatedBlocksKeepInsertionOrder(t *testing.T) {
	bs := blocks("x", "y", "z")
	plan, err := BuildPlan(bs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(plan.Order, []int{0, 1, 2}) {
		t.Fatalf("order = %v, want [0 1 2]", plan.Order)
	}
	if len(plan.Layers) != 1 || len(plan.Layers[0]) != 3 {
		t.Fatalf("expected a single layer of 3 isolated blocks, got %v", plan.Layers)
	}
}

func TestBuildPlanDetectsCycle(t *testing.T) {
	bs := blocks("a", "b")
	conns := []models.Connection{conn("a", "b"), conn("b", "a")}

	_, err := BuildPlan(bs, conns)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if err.Code() != "FLOW_INVALID" {
		t.Fatalf("code = %s, want FLOW_INVALID", err.Code())
	}
}

func TestBuildPlanIsStable(t *testing.T) {
	bs := blocks("a", "b", "c", "d")
	conns := []models.Connection{conn("a", "c"), conn("b", "c"), conn("c", "d")}

	plan1, err := BuildPlan(bs, conns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan2, err := BuildPlan(bs, conns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(plan1.Order, plan2.Order) {
		t.Fatalf("plan(flow) != plan(flow): %v vs %v", plan1.Order, plan2.Order)
	}
}
