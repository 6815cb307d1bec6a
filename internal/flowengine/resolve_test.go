package flowengine

import (
	"testing"

	"github.com/jeamxn/codeblock-bff/internal/models"
)

func TestResolveFlowInput(t *testing.T) {
	ctx := models.NewExecutionContext("flow-1", map[string]any{"msg": "hi"})
	r := NewResolver()

	inputs, err := r.Resolve([]models.InputMapping{
		{TargetInput: "msg", Source: models.MappingSource{Kind: models.MappingFlowInput, Name: "msg"}},
	}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs["msg"] != "hi" {
		t.Fatalf("msg = %v, want hi", inputs["msg"])
	}
}

func TestResolveBlockOutputUndefinedWhenMissing(t *testing.T) {
	ctx := models.NewExecutionContext("flow-1", nil)
	r := NewResolver()

	inputs, err := r.Resolve([]models.InputMapping{
		{TargetInput: "to", Source: models.MappingSource{Kind: models.MappingBlockOutput, BlockID: "a", OutputName: "email"}},
	}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := inputs["to"]; present {
		t.Fatalf("expected 'to' absent, got %v", inputs["to"])
	}
}

func TestResolveBlockOutputUndefinedWhenSourceFailed(t *testing.T) {
	ctx := models.NewExecutionContext("flow-1", nil)
	ctx.SetResult("a", &models.BlockExecutionResult{Status: models.BlockStatusFailure, Outputs: map[string]any{"email": "u@x"}})
	r := NewResolver()

	inputs, err := r.Resolve([]models.InputMapping{
		{TargetInput: "to", Source: models.MappingSource{Kind: models.MappingBlockOutput, BlockID: "a", OutputName: "email"}},
	}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := inputs["to"]; present {
		t.Fatalf("expected 'to' absent when source block failed, got %v", inputs["to"])
	}
}

func TestResolveConstant(t *testing.T) {
	ctx := models.NewExecutionContext("flow-1", nil)
	r := NewResolver()

	inputs, err := r.Resolve([]models.InputMapping{
		{TargetInput: "subject", Source: models.MappingSource{Kind: models.MappingConstant, Value: "hello"}},
	}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs["subject"] != "hello" {
		t.Fatalf("subject = %v, want hello", inputs["subject"])
	}
}

func TestResolveExpressionRejectedUnderStrictMode(t *testing.T) {
	ctx := models.NewExecutionContext("flow-1", nil)
	r := NewResolver()

	_, err := r.Resolve([]models.InputMapping{
		{TargetInput: "x", Source: models.MappingSource{Kind: models.MappingExpression, Text: "1+1"}},
	}, ctx)
	if err == nil {
		t.Fatal("expected UnsupportedMapping error under strict mode")
	}
	if err.Code() != "UNSUPPORTED_MAPPING" {
		t.Fatalf("code = %s, want UNSUPPORTED_MAPPING", err.Code())
	}
}

func TestResolveLaterMappingOverridesEarlier(t *testing.T) {
	ctx := models.NewExecutionContext("flow-1", nil)
	r := NewResolver()

	inputs, err := r.Resolve([]models.InputMapping{
		{TargetInput: "x", Source: models.MappingSource{Kind: models.MappingConstant, Value: "first"}},
		{TargetInput: "x", Source: models.MappingSource{Kind: models.MappingConstant, Value: "second"}},
	}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs["x"] != "second" {
		t.Fatalf("x = %v, want second", inputs["x"])
	}
}
