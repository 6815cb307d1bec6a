// Package flowengine is the core of the BFF flow execution service:
// given a validated flow definition and a caller's inputs, it produces
// outputs or a structured failure. Engine.Execute is adapted from the
// reference WorkflowEngine.Execute — dependency graph construction,
// per-block status tracking and the completed/failed bookkeeping loop
// all follow that shape — generalised from the reference's LLM-block
// workflow semantics to block-dispatch-over-HTTP semantics.
package flowengine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jeamxn/codeblock-bff/internal/models"
)

const defaultFlowTimeout = 60 * time.Second

// DefinitionSource is the subset of Component A (definitioncache.Cache)
// the engine needs: lookup-by-slug for published flows and lookup-by-id
// for block definitions. Expressed as an interface here so the engine can
// be exercised against a fake in tests without a Mongo-backed cache.
type DefinitionSource interface {
	GetFlowBySlug(ctx context.Context, slug string) (*models.Flow, error)
	GetBlockDef(ctx context.Context, id string) (*models.BlockDefinition, error)
}

// LogWriter is the subset of LogSink the engine needs.
type LogWriter interface {
	Enqueue(record *models.ExecutionLog)
}

// Engine ties together Components A–F for one execute call.
type Engine struct {
	cache      DefinitionSource
	resolver   *Resolver
	dispatcher *Dispatcher
	logSink    LogWriter

	DefaultFlowTimeout time.Duration
}

// New builds an Engine from its collaborators.
func New(cache DefinitionSource, resolver *Resolver, dispatcher *Dispatcher, logSink LogWriter) *Engine {
	return &Engine{
		cache:              cache,
		resolver:           resolver,
		dispatcher:         dispatcher,
		logSink:            logSink,
		DefaultFlowTimeout: defaultFlowTimeout,
	}
}

// ExecutionOutcome is what Execute returns to its HTTP caller.
type ExecutionOutcome struct {
	Outputs map[string]any
}

// Execute runs slug's published flow against caller inputs: load ->
// validate -> plan -> iterate plan nodes {resolve -> dispatch -> record}
// -> project -> enqueue log.
func (e *Engine) Execute(ctx context.Context, slug string, callerInputs map[string]any, request models.RequestMeta, isTest bool) (*ExecutionOutcome, *Error) {
	flow, err := e.cache.GetFlowBySlug(ctx, slug)
	if err != nil {
		return nil, ErrExecution(err)
	}
	if flow == nil {
		return nil, ErrSlugNotFound(slug)
	}

	resolvedInputs, verr := ValidateAndResolveInputs(flow.Inputs, callerInputs)
	if verr != nil {
		return nil, verr
	}

	plan, perr := BuildPlan(flow.Blocks, flow.Connections)
	if perr != nil {
		return nil, perr
	}

	timeout := e.DefaultFlowTimeout
	if flow.Config.TimeoutSeconds > 0 {
		timeout = time.Duration(flow.Config.TimeoutSeconds) * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	flowCtx := models.NewExecutionContext(flow.ID, resolvedInputs)

	start := time.Now()
	var failedBlockID string

	for _, idx := range plan.Order {
		if execCtx.Err() != nil {
			log.Printf("⏱️ [ENGINE] flow %s hit its deadline before block %s ran", slug, flow.Blocks[idx].ID)
			break
		}

		instance := flow.Blocks[idx]

		blockDef, defErr := e.cache.GetBlockDef(ctx, instance.BlockDefID)
		if defErr != nil {
			result := failureResult(ErrExecution(defErr), time.Now())
			flowCtx.SetResult(instance.ID, result)
			if !continueOnError(instance.Config) {
				failedBlockID = instance.ID
				break
			}
			continue
		}
		if blockDef == nil {
			e := ErrBlockDefMissing(instance.BlockDefID)
			result := failureResult(e, time.Now())
			flowCtx.SetResult(instance.ID, result)
			if !continueOnError(instance.Config) {
				failedBlockID = instance.ID
				break
			}
			continue
		}

		inputs, rerr := e.resolver.Resolve(instance.Mappings, flowCtx)
		if rerr != nil {
			result := failureResult(rerr, time.Now())
			flowCtx.SetResult(instance.ID, result)
			if !continueOnError(instance.Config) {
				failedBlockID = instance.ID
				break
			}
			continue
		}

		result := e.dispatcher.Dispatch(execCtx, blockDef, instance.ID, inputs, instance.Config, flow.Config.TimeoutSeconds, isTest)
		flowCtx.SetResult(instance.ID, result)

		log.Printf("▶️ [ENGINE] flow %s block %s (%s): %s in %dms", slug, instance.ID, blockDef.Name, result.Status, result.DurationMs)

		if result.Status == models.BlockStatusFailure && !continueOnError(instance.Config) {
			failedBlockID = instance.ID
			break
		}
	}

	if execCtx.Err() != nil && failedBlockID == "" {
		return nil, ErrFlowTimeout()
	}

	snapshot := flowCtx.Snapshot()
	outputs := ProjectOutputs(flow.Outputs, snapshot)

	if !isTest {
		e.logSink.Enqueue(&models.ExecutionLog{
			FlowID:      flow.ID,
			FlowVersion: flow.Version,
			Request:     request,
			Result: models.ResultMeta{
				Status:  executionStatus(failedBlockID),
				Outputs: outputs,
				Error:   executionError(failedBlockID, snapshot),
			},
			Blocks: snapshot,
			Performance: models.PerformanceMeta{
				StartedAt:   start,
				CompletedAt: time.Now(),
				DurationMs:  time.Since(start).Milliseconds(),
			},
			CreatedAt: time.Now(),
		})
	}

	if failedBlockID != "" {
		return nil, ErrExecution(fmt.Errorf("block %q failed and aborted the flow", failedBlockID))
	}

	return &ExecutionOutcome{Outputs: outputs}, nil
}

func continueOnError(cfg *models.BlockInstanceConfig) bool {
	return cfg != nil && cfg.ContinueOnError
}

func executionStatus(failedBlockID string) string {
	if failedBlockID != "" {
		return "failed"
	}
	return "completed"
}

func executionError(failedBlockID string, results map[string]*models.BlockExecutionResult) *models.BlockError {
	if failedBlockID == "" {
		return nil
	}
	if r, ok := results[failedBlockID]; ok && r.Error != nil {
		return r.Error
	}
	return &models.BlockError{Message: fmt.Sprintf("block %q failed", failedBlockID)}
}
