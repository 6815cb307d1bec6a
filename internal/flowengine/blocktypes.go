package flowengine

import (
	"context"
	"sync"

	"github.com/jeamxn/codeblock-bff/internal/models"
)

// BlockTypeHandler executes one non-api_call block type. Inputs is the
// resolved input map from the Mapping Resolver; the returned outputs map
// becomes the block's recorded outputs on success.
type BlockTypeHandler func(ctx context.Context, inputs map[string]any) (map[string]any, *Error)

// BlockTypeRegistry maps a models.BlockType to its handler. Adapted from
// the reference tools.Registry: a concurrency-safe singleton map with
// Register/Get, grounded on internal/tools/registry.go. Where the
// reference registry holds callable LLM tools, this one holds block-type
// dispatch behaviour — transform is identity passthrough; condition,
// loop, aggregate and custom register as UnsupportedBlockType today
// but adding a real implementation later is a Register
// call, not an edit to the dispatcher.
type BlockTypeRegistry struct {
	mu       sync.RWMutex
	handlers map[models.BlockType]BlockTypeHandler
}

// NewBlockTypeRegistry builds a registry pre-populated with the handlers
// this release requires.
func NewBlockTypeRegistry() *BlockTypeRegistry {
	r := &BlockTypeRegistry{handlers: make(map[models.BlockType]BlockTypeHandler)}

	r.Register(models.BlockTypeTransform, transformHandler)

	unsupported := func(t models.BlockType) BlockTypeHandler {
		return func(_ context.Context, _ map[string]any) (map[string]any, *Error) {
			return nil, ErrUnsupportedBlockType(string(t))
		}
	}
	r.Register(models.BlockTypeCondition, unsupported(models.BlockTypeCondition))
	r.Register(models.BlockTypeLoop, unsupported(models.BlockTypeLoop))
	r.Register(models.BlockTypeAggregate, unsupported(models.BlockTypeAggregate))
	r.Register(models.BlockTypeCustom, unsupported(models.BlockTypeCustom))

	return r
}

// Register adds or replaces the handler for a block type.
func (r *BlockTypeRegistry) Register(t models.BlockType, h BlockTypeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// Get returns the handler for a block type, if registered.
func (r *BlockTypeRegistry) Get(t models.BlockType) (BlockTypeHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// transformHandler is reserved for future mapping logic; today it is an
// identity passthrough of inputs as outputs.
func transformHandler(_ context.Context, inputs map[string]any) (map[string]any, *Error) {
	outputs := make(map[string]any, len(inputs))
	for k, v := range inputs {
		outputs[k] = v
	}
	return outputs, nil
}
