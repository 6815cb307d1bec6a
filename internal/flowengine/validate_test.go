package flowengine

import (
	"testing"

	"github.com/jeamxn/codeblock-bff/internal/models"
)

func TestValidateAndResolveInputsMissingRequired(t *testing.T) {
	inputs := []models.FlowInput{{Name: "msg", Required: true}}

	_, err := ValidateAndResolveInputs(inputs, map[string]any{})
	if err == nil {
		t.Fatal("expected InputMissing error")
	}
	if err.Code() != "INPUT_MISSING" {
		t.Fatalf("code = %s, want INPUT_MISSING", err.Code())
	}
}

func TestValidateAndResolveInputsDefaultSubstitution(t *testing.T) {
	inputs := []models.FlowInput{{Name: "limit", Required: false, DefaultValue: float64(10)}}

	resolved, err := ValidateAndResolveInputs(inputs, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["limit"] != float64(10) {
		t.Fatalf("limit = %v, want 10", resolved["limit"])
	}
}

func TestValidateAndResolveInputsOptionalNoDefaultStaysAbsent(t *testing.T) {
	inputs := []models.FlowInput{{Name: "nickname", Required: false}}

	resolved, err := ValidateAndResolveInputs(inputs, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := resolved["nickname"]; present {
		t.Fatalf("expected nickname absent, got %v", resolved["nickname"])
	}
}

func TestValidateAndResolveInputsCallerValuePreserved(t *testing.T) {
	inputs := []models.FlowInput{{Name: "msg", Required: true, DefaultValue: "fallback"}}

	resolved, err := ValidateAndResolveInputs(inputs, map[string]any{"msg": "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["msg"] != "hello" {
		t.Fatalf("msg = %v, want hello (caller value should win over default)", resolved["msg"])
	}
}

func TestValidateAndResolveInputsPassesThroughUndeclaredCallerKeys(t *testing.T) {
	resolved, err := ValidateAndResolveInputs(nil, map[string]any{"extra": "value"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["extra"] != "value" {
		t.Fatalf("extra = %v, want value", resolved["extra"])
	}
}
