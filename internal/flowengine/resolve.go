package flowengine

import "github.com/jeamxn/codeblock-bff/internal/models"

// Resolver materialises a block instance's input mappings into concrete
// values. AllowExpressionPassthrough controls which of the two
// documented behaviours for the reserved expression{} mapping kind is
// active; the default is strict mode (reject) because the engine ships
// with no sandboxing story yet.
type Resolver struct {
	AllowExpressionPassthrough bool
}

// NewResolver builds a Resolver in strict mode.
func NewResolver() *Resolver {
	return &Resolver{AllowExpressionPassthrough: false}
}

// Resolve materialises target-input -> value for one block instance's
// mapping list against the current execution context. A later mapping in
// the list overrides an earlier one targeting the same input.
func (r *Resolver) Resolve(mappings []models.InputMapping, ctx *models.ExecutionContext) (map[string]any, *Error) {
	inputs := make(map[string]any, len(mappings))

	for _, m := range mappings {
		value, defined, err := r.resolveOne(m.TargetInput, m.Source, ctx)
		if err != nil {
			return nil, err
		}
		if defined {
			inputs[m.TargetInput] = value
		} else {
			delete(inputs, m.TargetInput)
		}
	}

	return inputs, nil
}

func (r *Resolver) resolveOne(targetInput string, src models.MappingSource, ctx *models.ExecutionContext) (value any, defined bool, err *Error) {
	switch src.Kind {
	case models.MappingFlowInput:
		v, ok := ctx.Inputs[src.Name]
		return v, ok, nil

	case models.MappingBlockOutput:
		result, ok := ctx.Result(src.BlockID)
		if !ok || result.Status == models.BlockStatusFailure {
			return nil, false, nil
		}
		v, ok := result.Outputs[src.OutputName]
		return v, ok, nil

	case models.MappingConstant:
		return src.Value, true, nil

	case models.MappingExpression:
		if r.AllowExpressionPassthrough {
			return src.Text, true, nil
		}
		return nil, false, ErrUnsupportedMapping(targetInput)

	default:
		return nil, false, nil
	}
}
