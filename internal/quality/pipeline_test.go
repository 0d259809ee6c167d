package quality

import (
	"context"
	"errors"
	"math"
	"testing"

	"maestro/internal/llm"
)

const criticMarker = "strict code answer critic"

func TestRunEscalatesTemperatures(t *testing.T) {
	mock := llm.NewMock().
		RespondWhen(criticMarker, `{"score": 80, "reason": "solid"}`).
		EnqueueText(wellFormedAnswer(), wellFormedAnswer(), wellFormedAnswer())

	pipeline := New(Options{Client: mock, Candidates: 3})
	result, err := pipeline.Run(context.Background(), "Write a function that adds two numbers")
	if err != nil {
		t.Fatal(err)
	}
	if result.CandidateCount != 3 {
		t.Fatalf("candidate count = %d", result.CandidateCount)
	}

	var genTemps []float64
	for _, req := range mock.Requests() {
		for _, msg := range req.Messages {
			if msg.Content == styleSystemPrompt {
				genTemps = append(genTemps, req.Temperature)
				break
			}
		}
	}
	want := []float64{0.05, 0.07, 0.09}
	if len(genTemps) != len(want) {
		t.Fatalf("generation calls = %d, want %d", len(genTemps), len(want))
	}
	for i, temp := range genTemps {
		if math.Abs(temp-want[i]) > 1e-9 {
			t.Fatalf("candidate %d temperature = %v, want %v", i, temp, want[i])
		}
	}

	// 0.6*100 programmatic + 0.4*80 learned.
	if result.FinalScore != 92 {
		t.Fatalf("final score = %d, want 92", result.FinalScore)
	}
	if result.WasRewritten {
		t.Fatal("high scorer must not be rewritten")
	}
}

func TestRunRewritesBelowThreshold(t *testing.T) {
	mock := llm.NewMock().
		RespondWhen(criticMarker, `{"score": 40, "reason": "unstructured"}`).
		RespondWhen("Rewrite the given answer", wellFormedAnswer()).
		EnqueueText("Here is some code without any structure.")

	pipeline := New(Options{Client: mock, Candidates: 1, RewriteBelow: 70})
	result, err := pipeline.Run(context.Background(), "Write a function that adds two numbers")
	if err != nil {
		t.Fatal(err)
	}

	if !result.WasRewritten {
		t.Fatalf("low scorer not rewritten (score %d)", result.FinalScore)
	}
	if result.FinalText != wellFormedAnswer() {
		t.Fatalf("final text is not the rewrite output")
	}
	// Rewrite rescores the programmatic part only; the learned 40 carries.
	if result.FinalScore != 76 {
		t.Fatalf("final score = %d, want 76", result.FinalScore)
	}
}

func TestRunRewriteFailureKeepsOriginal(t *testing.T) {
	original := "Unstructured answer body."
	mock := llm.NewMock().
		RespondWhen(criticMarker, `{"score": 40, "reason": "meh"}`).
		EnqueueText(original).
		Enqueue(llm.MockResponse{Err: errors.New("rewrite model down")})

	pipeline := New(Options{Client: mock, Candidates: 1})
	result, err := pipeline.Run(context.Background(), "Write a parser")
	if err != nil {
		t.Fatal(err)
	}
	if result.WasRewritten {
		t.Fatal("failed rewrite reported as rewritten")
	}
	if result.FinalText != original {
		t.Fatalf("final text = %q", result.FinalText)
	}
}

func TestRunSkipsFailedCandidates(t *testing.T) {
	mock := llm.NewMock().
		RespondWhen(criticMarker, `{"score": 90, "reason": "good"}`).
		Enqueue(llm.MockResponse{Err: errors.New("transient")}).
		EnqueueText(wellFormedAnswer())

	pipeline := New(Options{Client: mock, Candidates: 2})
	result, err := pipeline.Run(context.Background(), "Write a function that adds")
	if err != nil {
		t.Fatal(err)
	}
	if result.CandidateCount != 1 {
		t.Fatalf("candidate count = %d, want 1", result.CandidateCount)
	}
}

func TestRunAllCandidatesFail(t *testing.T) {
	mock := llm.NewMock().
		Enqueue(llm.MockResponse{Err: errors.New("down")}).
		Enqueue(llm.MockResponse{Err: errors.New("down")})

	_, err := New(Options{Client: mock, Candidates: 2}).Run(context.Background(), "Write code")
	if err == nil {
		t.Fatal("expected error when every candidate fails")
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := llm.NewMock().EnqueueText("unused")
	_, err := New(Options{Client: mock, Candidates: 1}).Run(ctx, "Write code")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("cancelled run made %d model calls", mock.CallCount())
	}
}

func TestJudgeFallsBackOnBadOutput(t *testing.T) {
	tests := []struct {
		name     string
		response llm.MockResponse
		want     int
	}{
		{"call error", llm.MockResponse{Err: errors.New("down")}, 50},
		{"unparseable", llm.MockResponse{Content: "no json here"}, 50},
		{"out of range", llm.MockResponse{Content: `{"score": 250, "reason": "x"}`}, 50},
		{"valid", llm.MockResponse{Content: `{"score": 85, "reason": "tight"}`}, 85},
		{"fenced json", llm.MockResponse{Content: "```json\n{\"score\": 60, \"reason\": \"ok\"}\n```"}, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMock().Enqueue(tt.response)
			score, _ := NewJudge(mock).Score(context.Background(), "req", "answer")
			if score != tt.want {
				t.Fatalf("score = %d, want %d", score, tt.want)
			}
		})
	}
}

func TestIsCodeGenerationRequest(t *testing.T) {
	tests := []struct {
		goal string
		want bool
	}{
		{"Write a function that reverses a string", true},
		{"Create a TypeScript debounce helper", true},
		{"Implement quicksort in Go", true},
		{"generate a regex for emails", true},
		{"I need a function that parses dates", true},
		{"Fix the login bug in auth.go", false},
		{"Refactor this file for readability", false},
		{"Update the README in my project", false},
		{"What is a closure?", false},
		{"Write tests for the codebase", false},
	}
	for _, tt := range tests {
		if got := IsCodeGenerationRequest(tt.goal); got != tt.want {
			t.Fatalf("IsCodeGenerationRequest(%q) = %t, want %t", tt.goal, got, tt.want)
		}
	}
}
