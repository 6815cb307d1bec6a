package flowengine

import "github.com/jeamxn/codeblock-bff/internal/models"

// ValidateAndResolveInputs checks caller input against a flow's declared
// inputs. For each declared flow input, in order: a missing required
// input fails with InputMissing; a missing optional input with a default
// gets the default substituted; a missing optional input with no default
// is left absent. Type tags are informational only — no coercion is
// performed.
func ValidateAndResolveInputs(inputs []models.FlowInput, caller map[string]any) (map[string]any, *Error) {
	resolved := make(map[string]any, len(caller))
	for k, v := range caller {
		resolved[k] = v
	}

	for _, decl := range inputs {
		if _, present := resolved[decl.Name]; present {
			continue
		}
		if decl.Required {
			return nil, ErrInputMissing(decl.Name)
		}
		if decl.DefaultValue != nil {
			resolved[decl.Name] = decl.DefaultValue
		}
	}

	return resolved, nil
}
