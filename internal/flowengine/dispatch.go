package flowengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeamxn/codeblock-bff/internal/models"
)

const (
	defaultBlockTimeout = 30 * time.Second
	retryBaseDelay      = 100 * time.Millisecond
	retryCapDelay       = 2 * time.Second
)

// Dispatcher dispatches one block instance against its upstream HTTP
// operation. One Dispatcher is shared by a process; it holds a single
// *http.Client, matching the reference integration tools' convention of
// building a fresh *http.Request per call via http.NewRequestWithContext
// rather than relying on the client's own timeout.
type Dispatcher struct {
	httpClient *http.Client
	registry   *BlockTypeRegistry

	// DefaultBlockTimeout is used when neither the instance config nor the
	// flow config specify one.
	DefaultBlockTimeout time.Duration

	// HostLimiter is a reserved extension point for a future per-host
	// concurrency cap; nil means unbounded, which is this release's
	// behaviour.
	HostLimiter func(host string) any
}

// NewDispatcher builds a Dispatcher with the standard library's default
// transport and the given block-type registry for non-api_call blocks.
func NewDispatcher(registry *BlockTypeRegistry) *Dispatcher {
	return &Dispatcher{
		httpClient:          &http.Client{},
		registry:            registry,
		DefaultBlockTimeout: defaultBlockTimeout,
	}
}

// Dispatch invokes blockDef given resolved inputs, applying timeout,
// retry and error containment. isTest short-circuits to a synthetic
// success with no upstream call and no retry/timeout logic.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	blockDef *models.BlockDefinition,
	blockInstanceID string,
	inputs map[string]any,
	instanceConfig *models.BlockInstanceConfig,
	flowTimeoutSeconds int,
	isTest bool,
) *models.BlockExecutionResult {
	start := time.Now()

	if isTest {
		return &models.BlockExecutionResult{
			Status: models.BlockStatusSuccess,
			Outputs: map[string]any{
				"_test":   true,
				"blockId": blockInstanceID,
			},
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	switch blockDef.Type {
	case models.BlockTypeAPICall:
		return d.dispatchAPICall(ctx, blockDef, inputs, instanceConfig, flowTimeoutSeconds, start)
	default:
		handler, ok := d.registry.Get(blockDef.Type)
		if !ok {
			return failureResult(ErrUnsupportedBlockType(string(blockDef.Type)), start)
		}
		outputs, err := handler(ctx, inputs)
		if err != nil {
			return failureResult(err, start)
		}
		return &models.BlockExecutionResult{
			Status:     models.BlockStatusSuccess,
			Outputs:    outputs,
			DurationMs: time.Since(start).Milliseconds(),
		}
	}
}

func failureResult(err *Error, start time.Time) *models.BlockExecutionResult {
	return &models.BlockExecutionResult{
		Status:     models.BlockStatusFailure,
		Outputs:    map[string]any{},
		Error:      &models.BlockError{Message: err.Error(), Code: err.Code()},
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// dispatchAPICall is the 10-step api_call path: compose URL, collect
// query/header/body inputs, resolve timeout and retry policy, call
// upstream, parse the response, and project declared outputs.
func (d *Dispatcher) dispatchAPICall(
	ctx context.Context,
	blockDef *models.BlockDefinition,
	inputs map[string]any,
	instanceConfig *models.BlockInstanceConfig,
	flowTimeoutSeconds int,
	start time.Time,
) *models.BlockExecutionResult {
	// Step 1: compose URL, substituting path placeholders.
	rawURL := blockDef.Source.ServerURL + blockDef.Source.Path
	for _, in := range blockDef.Inputs {
		if in.In != models.LocationPath {
			continue
		}
		placeholder := "{" + in.Name + "}"
		v, present := inputs[in.Name]
		if !present {
			if in.Required {
				return failureResult(ErrExecution(fmt.Errorf("unresolved required path parameter %q", in.Name)), start)
			}
			continue
		}
		rawURL = strings.ReplaceAll(rawURL, placeholder, url.PathEscape(fmt.Sprint(v)))
	}

	// Step 2: query parameters.
	parsedURL, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return failureResult(ErrExecution(fmt.Errorf("invalid url %q: %w", rawURL, parseErr)), start)
	}
	q := parsedURL.Query()
	for _, in := range blockDef.Inputs {
		if in.In != models.LocationQuery {
			continue
		}
		if v, present := inputs[in.Name]; present {
			q.Set(in.Name, fmt.Sprint(v))
		}
	}
	parsedURL.RawQuery = q.Encode()

	// Step 3: headers, defaulting Content-Type.
	headers := map[string]string{"Content-Type": "application/json"}
	for _, in := range blockDef.Inputs {
		if in.In != models.LocationHeader {
			continue
		}
		if v, present := inputs[in.Name]; present {
			headers[in.Name] = fmt.Sprint(v)
		}
	}

	// Step 4: body — exactly one input with in == body, else no body.
	var bodyInputName string
	bodyCount := 0
	for _, in := range blockDef.Inputs {
		if in.In == models.LocationBody {
			bodyCount++
			bodyInputName = in.Name
		}
	}
	var bodyBytes []byte
	if bodyCount == 1 {
		if v, present := inputs[bodyInputName]; present {
			encoded, err := json.Marshal(v)
			if err != nil {
				return failureResult(ErrExecution(fmt.Errorf("encode body: %w", err)), start)
			}
			bodyBytes = encoded
		}
	}

	// Step 6: resolve timeout precedence — instance config, flow config, default.
	timeout := d.DefaultBlockTimeout
	if flowTimeoutSeconds > 0 {
		timeout = time.Duration(flowTimeoutSeconds) * time.Second
	}
	if instanceConfig != nil && instanceConfig.TimeoutSeconds > 0 {
		timeout = time.Duration(instanceConfig.TimeoutSeconds) * time.Second
	}

	// Step 7: retry count.
	retries := 0
	if instanceConfig != nil {
		retries = instanceConfig.RetryCount
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusCode, respBody, respHeaders, callErr := d.doWithRetry(callCtx, string(blockDef.Source.Method), parsedURL.String(), headers, bodyBytes, retries)
	if callErr != nil {
		if callCtx.Err() != nil {
			return failureResult(ErrUpstreamTimeout(), start)
		}
		return failureResult(ErrExecution(callErr), start)
	}

	// Step 8: parse body as JSON; non-JSON bodies are left as an opaque string.
	var parsedBody any
	if len(respBody) == 0 {
		parsedBody = nil
	} else if err := json.Unmarshal(respBody, &parsedBody); err != nil {
		parsedBody = string(respBody)
	}

	raw := &models.RawResponse{
		StatusCode: statusCode,
		Body:       parsedBody,
		Headers:    respHeaders,
	}

	// Step 9: project declared outputs.
	outputs := make(map[string]any, len(blockDef.Outputs))
	for _, out := range blockDef.Outputs {
		if v, ok := Project(parsedBody, out.Path); ok {
			outputs[out.Name] = v
		}
	}

	// Step 10: success iff 2xx.
	if statusCode < 200 || statusCode >= 300 {
		return &models.BlockExecutionResult{
			Status:     models.BlockStatusFailure,
			Outputs:    outputs,
			Raw:        raw,
			Error:      &models.BlockError{Message: ErrUpstreamHTTP(statusCode).Error(), Code: ErrUpstreamHTTP(statusCode).Code()},
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	return &models.BlockExecutionResult{
		Status:     models.BlockStatusSuccess,
		Outputs:    outputs,
		Raw:        raw,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// doWithRetry issues the upstream request, retrying on transport failures
// and 5xx responses only — 4xx responses never retry. retries is the
// number of retries after the first try, so at most retries+1 attempts
// are made.
func (d *Dispatcher) doWithRetry(ctx context.Context, method, reqURL string, headers map[string]string, body []byte, retries int) (int, []byte, map[string]string, error) {
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := retryAfter(attempt - 1)
			select {
			case <-ctx.Done():
				return 0, nil, nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return 0, nil, nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.Printf("⚠️ [DISPATCH] attempt %d/%d for %s %s failed: %v", attempt+1, retries+1, method, reqURL, err)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 500 && attempt < retries {
			lastErr = fmt.Errorf("upstream returned %d", resp.StatusCode)
			log.Printf("⚠️ [DISPATCH] attempt %d/%d for %s %s got %d, retrying", attempt+1, retries+1, method, reqURL, resp.StatusCode)
			continue
		}

		respHeaders := make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			respHeaders[k] = resp.Header.Get(k)
		}
		return resp.StatusCode, respBody, respHeaders, nil
	}

	return 0, nil, nil, fmt.Errorf("upstream failed after %d attempt(s): %w", retries+1, lastErr)
}

// retryAfter computes exponential backoff with base 100ms, cap 2s.
func retryAfter(attempt int) time.Duration {
	delay := float64(retryBaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(retryCapDelay) {
		return retryCapDelay
	}
	return time.Duration(delay)
}
