package flowengine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeamxn/codeblock-bff/internal/models"
)

func TestDispatchAPICallHappyPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "7" {
			t.Errorf("expected query id=7, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"gopher"}`))
	}))
	defer upstream.Close()

	blockDef := &models.BlockDefinition{
		Type: models.BlockTypeAPICall,
		Source: models.BlockSource{
			ServerURL: upstream.URL,
			Path:      "/users",
			Method:    models.MethodGet,
		},
		Inputs:  []models.BlockInputDef{{Name: "id", In: models.LocationQuery}},
		Outputs: []models.BlockOutputDef{{Name: "name", Path: "$.name"}},
	}

	d := NewDispatcher(NewBlockTypeRegistry())
	result := d.Dispatch(context.Background(), blockDef, "b1", map[string]any{"id": "7"}, nil, 0, false)

	if result.Status != models.BlockStatusSuccess {
		t.Fatalf("status = %v, want success (err=%v)", result.Status, result.Error)
	}
	if result.Outputs["name"] != "gopher" {
		t.Fatalf("outputs = %v, want name=gopher", result.Outputs)
	}
}

func TestDispatchRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	blockDef := &models.BlockDefinition{
		Type: models.BlockTypeAPICall,
		Source: models.BlockSource{
			ServerURL: upstream.URL,
			Path:      "/flaky",
			Method:    models.MethodGet,
		},
		Outputs: []models.BlockOutputDef{{Name: "ok", Path: "$.ok"}},
	}

	d := NewDispatcher(NewBlockTypeRegistry())
	result := d.Dispatch(context.Background(), blockDef, "b1", nil, &models.BlockInstanceConfig{RetryCount: 2}, 0, false)

	if result.Status != models.BlockStatusSuccess {
		t.Fatalf("status = %v, want success after retries (err=%v)", result.Status, result.Error)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3 (1 initial + 2 retries)", calls.Load())
	}
}

func TestDispatchDoesNotRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad"}`))
	}))
	defer upstream.Close()

	blockDef := &models.BlockDefinition{
		Type: models.BlockTypeAPICall,
		Source: models.BlockSource{
			ServerURL: upstream.URL,
			Path:      "/bad",
			Method:    models.MethodGet,
		},
	}

	d := NewDispatcher(NewBlockTypeRegistry())
	result := d.Dispatch(context.Background(), blockDef, "b1", nil, &models.BlockInstanceConfig{RetryCount: 3}, 0, false)

	if result.Status != models.BlockStatusFailure {
		t.Fatalf("status = %v, want failure", result.Status)
	}
	if result.Error.Code != "UPSTREAM_HTTP_ERROR" {
		t.Fatalf("error code = %s, want UPSTREAM_HTTP_ERROR", result.Error.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestDispatchTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	blockDef := &models.BlockDefinition{
		Type: models.BlockTypeAPICall,
		Source: models.BlockSource{
			ServerURL: upstream.URL,
			Path:      "/slow",
			Method:    models.MethodGet,
		},
	}

	d := NewDispatcher(NewBlockTypeRegistry())
	d.DefaultBlockTimeout = 50 * time.Millisecond
	result := d.Dispatch(context.Background(), blockDef, "b1", nil, nil, 0, false)

	if result.Status != models.BlockStatusFailure {
		t.Fatalf("status = %v, want failure on timeout", result.Status)
	}
	if result.Error.Code != "UPSTREAM_TIMEOUT" {
		t.Fatalf("error code = %s, want UPSTREAM_TIMEOUT", result.Error.Code)
	}
}

func TestDispatchTestModeShortCircuits(t *testing.T) {
	blockDef := &models.BlockDefinition{Type: models.BlockTypeAPICall}

	d := NewDispatcher(NewBlockTypeRegistry())
	result := d.Dispatch(context.Background(), blockDef, "b1", nil, nil, 0, true)

	if result.Status != models.BlockStatusSuccess {
		t.Fatalf("status = %v, want success", result.Status)
	}
	if result.Outputs["blockId"] != "b1" {
		t.Fatalf("outputs = %v, want blockId=b1", result.Outputs)
	}
}

func TestDispatchArrayIndexProjection(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"a"},{"id":"b"}]}`))
	}))
	defer upstream.Close()

	blockDef := &models.BlockDefinition{
		Type: models.BlockTypeAPICall,
		Source: models.BlockSource{
			ServerURL: upstream.URL,
			Path:      "/list",
			Method:    models.MethodGet,
		},
		Outputs: []models.BlockOutputDef{{Name: "second", Path: "$.items[1].id"}},
	}

	d := NewDispatcher(NewBlockTypeRegistry())
	result := d.Dispatch(context.Background(), blockDef, "b1", nil, nil, 0, false)

	if result.Status != models.BlockStatusSuccess {
		t.Fatalf("status = %v, want success (err=%v)", result.Status, result.Error)
	}
	if result.Outputs["second"] != "b" {
		t.Fatalf("outputs = %v, want second=b", result.Outputs)
	}
}
