package quality

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"maestro/internal/agent/ports"
	"maestro/internal/logging"
)

const (
	defaultCandidates      = 3
	defaultBaseTemperature = 0.05
	temperatureStep        = 0.02
	temperatureCeiling     = 0.15
	defaultRewriteBelow    = 70

	programmaticWeight = 0.6
	learnedWeight      = 0.4
)

// Options configures the pipeline.
type Options struct {
	Client       ports.LLMClient
	Events       ports.EventListener
	Logger       logging.Logger
	Candidates   int
	BaseTemp     float64
	RewriteBelow int
}

// Result is the pipeline's aggregate output.
type Result struct {
	FinalText      string
	FinalScore     int
	CandidateCount int
	WasRewritten   bool
	AllScores      []Candidate
	Duration       time.Duration
}

// Pipeline generates K candidates, scores them with the hybrid critic,
// reranks, and rewrites the best candidate when it scores below threshold.
type Pipeline struct {
	opts   Options
	judge  *Judge
	events ports.EventListener
	logger logging.Logger
}

// New constructs a pipeline.
func New(opts Options) *Pipeline {
	if opts.Candidates <= 0 {
		opts.Candidates = defaultCandidates
	}
	if opts.BaseTemp <= 0 {
		opts.BaseTemp = defaultBaseTemperature
	}
	if opts.RewriteBelow <= 0 {
		opts.RewriteBelow = defaultRewriteBelow
	}
	return &Pipeline{
		opts:   opts,
		judge:  NewJudge(opts.Client),
		events: ports.OrNop(opts.Events),
		logger: logging.OrNop(opts.Logger),
	}
}

var (
	codeGenOpenerRe = regexp.MustCompile(`(?i)^\s*(write|create|implement|generate)\b`)
	workspaceWords  = []string{
		"this file", "my project", "the codebase", "this repo", "refactor",
		"in my", "fix the", "update the", "our ",
	}
)

// IsCodeGenerationRequest reports whether the goal matches the
// code-generation heuristic: a generation opener or "function that"
// phrasing, without workspace-editing language.
func IsCodeGenerationRequest(goal string) bool {
	lower := strings.ToLower(goal)
	for _, word := range workspaceWords {
		if strings.Contains(lower, word) {
			return false
		}
	}
	if codeGenOpenerRe.MatchString(goal) {
		return true
	}
	return strings.Contains(lower, "function that")
}

const styleSystemPrompt = `You answer code generation requests in exactly four parts:

One-line summary: <one sentence>

<single fenced code block with the implementation>

Tests:
<fenced code block with tests>

Notes:
- <bullet list of caveats and decisions>

Output nothing else. Do not narrate your reasoning.`

// fewShot demonstrates the required output shape.
var fewShot = []ports.Message{
	{Role: ports.RoleUser, Content: "Write a TypeScript function that clamps a number to a range"},
	{Role: ports.RoleAssistant, Content: "One-line summary: Clamp a number between a minimum and maximum.\n\n" +
		"```ts\nexport function clamp(value: number, min: number, max: number): number {\n" +
		"  if (min > max) throw new RangeError(\"min must be <= max\");\n" +
		"  return Math.min(Math.max(value, min), max);\n}\n```\n\n" +
		"Tests:\n```ts\nimport { clamp } from \"./clamp\";\n\n" +
		"test(\"clamps below\", () => expect(clamp(-1, 0, 10)).toBe(0));\n" +
		"test(\"clamps above\", () => expect(clamp(11, 0, 10)).toBe(10));\n" +
		"test(\"passes through\", () => expect(clamp(5, 0, 10)).toBe(5));\n" +
		"test(\"rejects inverted range\", () => expect(() => clamp(1, 2, 0)).toThrow(RangeError));\n```\n\n" +
		"Notes:\n- Throws on an inverted range instead of silently swapping.\n- NaN propagates, matching Math.min/max semantics."},
}

const rewriteSystemPrompt = `Rewrite the given answer so it follows the required four-part structure
exactly (one-line summary, single primary fenced code block, tests block,
notes bullet list) while preserving its functionality. Remove any leaked
reasoning. Output only the rewritten answer.`

// Run executes the full pipeline for one code-generation request.
func (p *Pipeline) Run(ctx context.Context, request string) (*Result, error) {
	started := time.Now()
	result := &Result{}

	candidates := make([]Candidate, 0, p.opts.Candidates)
	for i := 0; i < p.opts.Candidates; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		temperature := p.opts.BaseTemp + temperatureStep*float64(i)
		if temperature > temperatureCeiling {
			temperature = temperatureCeiling
		}

		messages := make([]ports.Message, 0, len(fewShot)+2)
		messages = append(messages, ports.Message{Role: ports.RoleSystem, Content: styleSystemPrompt})
		messages = append(messages, fewShot...)
		messages = append(messages, ports.Message{Role: ports.RoleUser, Content: request})

		resp, err := p.opts.Client.Complete(ctx, ports.CompletionRequest{
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   4096,
		})
		if err != nil {
			p.logger.Warn("candidate %d generation failed: %v", i, err)
			continue
		}
		candidates = append(candidates, p.score(ctx, request, i, resp.Content))
	}
	if len(candidates) == 0 {
		return nil, ctxOrGenerationError(ctx)
	}
	result.CandidateCount = len(candidates)

	// Rerank by combined score, stable on candidate index.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	best := candidates[0]

	if best.Score < p.opts.RewriteBelow {
		if rewritten, ok := p.rewrite(ctx, best); ok {
			best = rewritten
			result.WasRewritten = true
		}
	}

	result.FinalText = best.Text
	result.FinalScore = best.Score
	result.AllScores = candidates
	result.Duration = time.Since(started)
	return result, nil
}

func (p *Pipeline) score(ctx context.Context, request string, index int, text string) Candidate {
	programmatic, checks := ScoreProgrammatic(text)
	learned, notes := p.judge.Score(ctx, request, text)
	combined := int(math.Round(programmaticWeight*float64(programmatic) + learnedWeight*float64(learned)))

	return Candidate{
		Index: index,
		Text:  text,
		Score: combined,
		Breakdown: Breakdown{
			ProgrammaticScore: programmatic,
			LearnedScore:      learned,
			Combined:          combined,
			Checks:            checks,
			CriticNotes:       notes,
		},
	}
}

// rewrite runs one deterministic structure-enforcing pass over the best
// candidate. Only the programmatic component is rescored; the learned score
// carries over.
func (p *Pipeline) rewrite(ctx context.Context, best Candidate) (Candidate, bool) {
	resp, err := p.opts.Client.Complete(ctx, ports.CompletionRequest{
		Messages: []ports.Message{
			{Role: ports.RoleSystem, Content: rewriteSystemPrompt},
			{Role: ports.RoleUser, Content: best.Text},
		},
		Temperature: 0,
		MaxTokens:   4096,
	})
	if err != nil {
		p.logger.Warn("rewrite pass failed, keeping original best: %v", err)
		return Candidate{}, false
	}

	programmatic, checks := ScoreProgrammatic(resp.Content)
	learned := best.Breakdown.LearnedScore
	combined := int(math.Round(programmaticWeight*float64(programmatic) + learnedWeight*float64(learned)))

	return Candidate{
		Index: best.Index,
		Text:  resp.Content,
		Score: combined,
		Breakdown: Breakdown{
			ProgrammaticScore: programmatic,
			LearnedScore:      learned,
			Combined:          combined,
			Checks:            checks,
			CriticNotes:       best.Breakdown.CriticNotes,
		},
	}, true
}

func ctxOrGenerationError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errAllCandidatesFailed
}

var errAllCandidatesFailed = &generationError{}

type generationError struct{}

func (*generationError) Error() string { return "quality: all candidate generations failed" }
