package flowengine

import "github.com/jeamxn/codeblock-bff/internal/models"

// ProjectOutputs builds the flow's flat output object from designated
// source-block outputs. A missing lookup — unknown source block, block
// never dispatched, or missing output key — leaves the corresponding key
// absent from the result, never null.
func ProjectOutputs(declarations []models.FlowOutput, results map[string]*models.BlockExecutionResult) map[string]any {
	outputs := make(map[string]any, len(declarations))

	for _, decl := range declarations {
		result, ok := results[decl.SourceBlockID]
		if !ok || result.Outputs == nil {
			continue
		}
		v, ok := result.Outputs[decl.SourceOutput]
		if !ok {
			continue
		}
		outputs[decl.Name] = v
	}

	return outputs
}
