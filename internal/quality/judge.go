package quality

import (
	"context"

	"maestro/internal/agent/ports"
	"maestro/internal/logging"
	"maestro/internal/parser"
)

// defaultLearnedScore is used whenever the critic fails: call error,
// unparseable reply or out-of-range score.
const defaultLearnedScore = 50

const criticSystemPrompt = `You are a strict code answer critic. You receive one answer to a code
generation request and rate its quality.

Evaluate:
1. Correctness of the code for the stated request
2. Adherence to the required structure (one-line summary, single primary
   code block, tests, notes)
3. Code clarity and idiomatic style
4. Absence of leaked reasoning or filler

Respond with ONLY a JSON object:
{"score": <number 0-100>, "reason": "<brief explanation>"}`

// Judge scores candidates with one zero-temperature critic call per
// candidate.
type Judge struct {
	client ports.LLMClient
	logger logging.Logger
}

// NewJudge constructs a judge over the given client.
func NewJudge(client ports.LLMClient) *Judge {
	return &Judge{client: client, logger: logging.NewComponentLogger("quality-judge")}
}

// Score returns the critic's 0-100 rating and its reason. Failures fall
// back to the neutral default rather than propagating.
func (j *Judge) Score(ctx context.Context, request, candidate string) (int, string) {
	resp, err := j.client.Complete(ctx, ports.CompletionRequest{
		Messages: []ports.Message{
			{Role: ports.RoleSystem, Content: criticSystemPrompt},
			{Role: ports.RoleUser, Content: "Request:\n" + request + "\n\nAnswer:\n" + candidate},
		},
		Temperature: 0,
		MaxTokens:   512,
	})
	if err != nil {
		j.logger.Warn("critic call failed, using default score: %v", err)
		return defaultLearnedScore, ""
	}

	var verdict struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if err := parser.DecodeObject(resp.Content, &verdict); err != nil {
		j.logger.Warn("critic output unparseable, using default score: %v", err)
		return defaultLearnedScore, ""
	}
	score := int(verdict.Score)
	if score < 0 || score > 100 {
		j.logger.Warn("critic score %d out of range, using default", score)
		return defaultLearnedScore, verdict.Reason
	}
	return score, verdict.Reason
}
