package executor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"maestro/internal/agent/ports"
	"maestro/internal/catalog"
	"maestro/internal/decompose"
	"maestro/internal/llm"
	"maestro/internal/toolregistry"
)

func newTestExecutor(t *testing.T, client ports.LLMClient) *Executor {
	t.Helper()
	registry, err := toolregistry.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	exec, err := New(Options{
		Client:       client,
		Registry:     registry,
		Catalog:      catalog.New(),
		MaxParallel:  4,
		AgentTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return exec
}

func twoTierGraph() *decompose.TaskGraph {
	return graphOf([]decompose.SubTask{
		{ID: "t1", Title: "Schema", Description: "design the schema", Domain: catalog.DomainDB, Priority: 80, Complexity: 2},
		{ID: "t2", Title: "Endpoints", Description: "implement the endpoints", Domain: catalog.DomainBackend,
			Dependencies: []string{"t1"}, Priority: 70, Complexity: 3},
	})
}

func TestExecuteFlowsDependencyContext(t *testing.T) {
	mock := llm.NewMock().
		RespondWhen("design the schema", "users(id, email)").
		RespondWhen("implement the endpoints", "endpoints done")

	result := newTestExecutor(t, mock).Execute(context.Background(), twoTierGraph())

	if result.Tiers != 2 {
		t.Fatalf("tiers = %d, want 2", result.Tiers)
	}
	for _, id := range []string{"t1", "t2"} {
		taskResult := result.Results[id]
		if taskResult == nil || !taskResult.Success {
			t.Fatalf("task %s did not succeed: %+v", id, taskResult)
		}
	}

	// The downstream task's prompt must embed the upstream response.
	var sawDepContext bool
	for _, req := range mock.Requests() {
		for _, msg := range req.Messages {
			if strings.Contains(msg.Content, "Result of t1") && strings.Contains(msg.Content, "users(id, email)") {
				sawDepContext = true
			}
		}
	}
	if !sawDepContext {
		t.Fatal("dependency context not embedded in downstream prompt")
	}
}

func TestExecuteSkipsDependentsOfFailedTasks(t *testing.T) {
	mock := llm.NewMock().Enqueue(llm.MockResponse{Err: errors.New("model down")})

	result := newTestExecutor(t, mock).Execute(context.Background(), twoTierGraph())

	t1 := result.Results["t1"]
	if t1 == nil || t1.Success {
		t.Fatalf("t1 should have failed: %+v", t1)
	}
	t2 := result.Results["t2"]
	if t2 == nil || t2.Success {
		t.Fatalf("t2 should not have run: %+v", t2)
	}
	if !strings.HasPrefix(t2.Response, "Skipped: dependency t1 failed") {
		t.Fatalf("t2 response = %q", t2.Response)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("skipped task still called the model: %d calls", mock.CallCount())
	}
}

func TestExecuteFailureIsolationWithinTier(t *testing.T) {
	mock := llm.NewMock().
		RespondWhen("design the schema", "schema ok").
		Enqueue(llm.MockResponse{Err: errors.New("boom")})

	graph := graphOf([]decompose.SubTask{
		{ID: "t1", Title: "Schema", Description: "design the schema", Domain: catalog.DomainDB, Priority: 80},
		{ID: "t2", Title: "Other", Description: "unrelated work", Domain: catalog.DomainCoder, Priority: 70},
	})

	result := newTestExecutor(t, mock).Execute(context.Background(), graph)
	if result.Cancelled {
		t.Fatal("run reported cancelled")
	}
	if !result.Results["t1"].Success {
		t.Fatalf("sibling dragged down: %+v", result.Results["t1"])
	}
	if result.Results["t2"].Success {
		t.Fatal("failed task reported success")
	}
}

func TestExecuteUnknownDomainFails(t *testing.T) {
	mock := llm.NewMock().EnqueueText("unused")
	agents := catalog.New()
	agents.Unregister("planner")

	registry, _ := toolregistry.NewRegistry()
	exec, err := New(Options{Client: mock, Registry: registry, Catalog: agents})
	if err != nil {
		t.Fatal(err)
	}

	graph := graphOf([]decompose.SubTask{
		{ID: "t1", Title: "Plan", Description: "plan it", Domain: catalog.DomainPlanner},
	})
	result := exec.Execute(context.Background(), graph)
	taskResult := result.Results["t1"]
	if taskResult.Success || !strings.Contains(taskResult.Error, "no agent available") {
		t.Fatalf("unexpected result: %+v", taskResult)
	}
}

// cancellingClient cancels the run after a fixed number of completions.
type cancellingClient struct {
	*llm.Mock
	cancel     context.CancelFunc
	afterCalls int32
	served     atomic.Int32
}

func (c *cancellingClient) StreamComplete(ctx context.Context, req ports.CompletionRequest, callbacks ports.StreamCallbacks) (*ports.CompletionResponse, error) {
	resp, err := c.Mock.StreamComplete(ctx, req, callbacks)
	if c.served.Add(1) == c.afterCalls {
		c.cancel()
	}
	return resp, err
}

func TestExecuteCancellationBetweenTiers(t *testing.T) {
	mock := llm.NewMock().
		RespondWhen("first thing", "one done").
		RespondWhen("second thing", "two done")

	graph := graphOf([]decompose.SubTask{
		{ID: "t1", Title: "One", Description: "first thing", Domain: catalog.DomainCoder, Priority: 80},
		{ID: "t2", Title: "Two", Description: "second thing", Domain: catalog.DomainCoder, Priority: 70},
		{ID: "t3", Title: "Three", Description: "third thing", Domain: catalog.DomainCoder, Dependencies: []string{"t1", "t2"}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &cancellingClient{Mock: mock, cancel: cancel, afterCalls: 2}

	result := newTestExecutor(t, client).Execute(ctx, graph)

	if !result.Cancelled {
		t.Fatal("result not marked cancelled")
	}
	if !result.Results["t1"].Success || !result.Results["t2"].Success {
		t.Fatal("tier-1 results not preserved")
	}
	t3 := result.Results["t3"]
	if t3 == nil || t3.Success || t3.Response != "Skipped: pipeline cancelled" {
		t.Fatalf("t3 = %+v", t3)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("tier-2 driver launched after cancellation: %d calls", mock.CallCount())
	}
	if result.Success(nil) {
		t.Fatal("cancelled run reported success")
	}
}

func TestResultSuccessRespectsCriticalDomains(t *testing.T) {
	result := &Result{Results: map[string]*SubTaskResult{
		"code": {TaskID: "code", Domain: catalog.DomainCoder, Success: true},
		"docs": {TaskID: "docs", Domain: catalog.DomainDocs, Success: false, Error: "timeout"},
	}}

	critical := map[catalog.Domain]bool{catalog.DomainCoder: true, catalog.DomainDocs: false}
	if !result.Success(critical) {
		t.Fatal("docs failure should not fail the run")
	}

	result.Results["code"].Success = false
	if result.Success(critical) {
		t.Fatal("coder failure must fail the run")
	}
}

func TestModifiedFilesDeduplicated(t *testing.T) {
	records := []ports.ToolResult{
		{Tool: "write_file", Args: map[string]any{"path": "a.go"}, Success: true},
		{Tool: "edit_file", Args: map[string]any{"path": "a.go"}, Success: true},
		{Tool: "write_file", Args: map[string]any{"path": "b.go"}, Success: false},
		{Tool: "delete_file", Args: map[string]any{"file": "c.go"}, Success: true},
		{Tool: "read_file", Args: map[string]any{"path": "d.go"}, Success: true},
	}
	files := modifiedFiles(records)
	want := []string{"a.go", "c.go"}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}
}
