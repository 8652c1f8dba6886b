// Package extract issues schema-constrained extraction requests against the
// LLM oracle and parses responses into typed records.
package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/bluereef-labs/mpagent/internal/config"
	"github.com/bluereef-labs/mpagent/internal/model"
	"github.com/bluereef-labs/mpagent/internal/resilience"
	"github.com/bluereef-labs/mpagent/pkg/anthropic"
)

// errMalformed marks schema-mismatched responses. Wrapped transient so the
// bounded-retry policy re-queries the oracle for them.
var errMalformed = eris.New("extract: malformed oracle response")

// IsMalformed reports whether err stems from a schema-mismatched response.
func IsMalformed(err error) bool {
	return eris.Is(err, errMalformed)
}

// SegmentResult is the outcome of extracting one target from one segment.
// On failure the segment keeps its records empty and Failed set; the caller
// surfaces this as a partial document, never silently promoting it.
type SegmentResult struct {
	Segment    model.Segment
	Target     model.Target
	Zones      []model.ZonationRecord
	Objectives []model.ConservationObjective
	Citations  []model.CitationRecord
	Missing    []string
	Raw        string
	Attempts   int
	Usage      model.TokenUsage
	Failed     bool
	Err        string
	// OracleDown is set when the terminal failure was a transient,
	// provider-side error (outage, rate limiting), as opposed to a
	// persistently malformed response.
	OracleDown bool
}

// Pipeline runs gated, retried extraction calls. The semaphore and rate
// limiter mediate the shared oracle budget; no other state is shared across
// concurrent segment tasks.
type Pipeline struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	retry       resilience.RetryConfig
	callTimeout time.Duration
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
}

// New builds a Pipeline from config.
func New(client anthropic.Client, aiCfg config.AnthropicConfig, exCfg config.ExtractConfig) *Pipeline {
	maxConcurrent := exCfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	rps := exCfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2.0
	}
	timeout := time.Duration(exCfg.CallTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxTokens := aiCfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &Pipeline{
		client:      client,
		model:       aiCfg.Model,
		maxTokens:   maxTokens,
		retry:       resilience.FromConfig(exCfg.MaxAttempts, exCfg.InitialBackoffMs, exCfg.MaxBackoffMs),
		callTimeout: timeout,
		sem:         semaphore.NewWeighted(maxConcurrent),
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// ExtractSegment extracts one target from one segment, retrying malformed
// and transient failures up to the configured bound. The returned result is
// never nil; exhausted retries set Failed.
func (p *Pipeline) ExtractSegment(ctx context.Context, seg model.Segment, target model.Target) *SegmentResult {
	result := &SegmentResult{Segment: seg, Target: target}

	prompt, err := BuildPrompt(target, seg)
	if err != nil {
		result.Failed = true
		result.Err = err.Error()
		return result
	}

	parsed, err := p.query(ctx, seg, target, prompt, result)
	if err != nil {
		result.Failed = true
		result.Err = err.Error()
		result.OracleDown = !IsMalformed(err) && resilience.IsTransient(err)
		zap.L().Warn("extraction failed",
			zap.String("segment", seg.ID),
			zap.String("target", string(target)),
			zap.Int("attempts", result.Attempts),
			zap.Bool("oracle_down", result.OracleDown),
			zap.Error(err),
		)
		return result
	}

	result.Zones = parsed.Zones
	result.Objectives = parsed.Objectives
	result.Citations = parsed.Citations
	result.Missing = parsed.Missing
	result.Raw = parsed.Raw
	return result
}

// Repair re-issues a narrower extraction citing a specific validation
// violation. At most one attempt; the caller flags the record unverified on
// failure.
func (p *Pipeline) Repair(ctx context.Context, seg model.Segment, target model.Target, violation string) (*Parsed, error) {
	result := &SegmentResult{Segment: seg, Target: target}
	single := p.retry
	single.MaxAttempts = 1

	prompt := BuildRepairPrompt(target, seg, violation)
	parsed, err := p.attempt(ctx, single, seg, target, "repair", prompt, result)
	if err != nil {
		return nil, err
	}
	return parsed, nil
}

func (p *Pipeline) query(ctx context.Context, seg model.Segment, target model.Target, prompt string, result *SegmentResult) (*Parsed, error) {
	return p.attempt(ctx, p.retry, seg, target, "extract", prompt, result)
}

func (p *Pipeline) attempt(ctx context.Context, retryCfg resilience.RetryConfig, seg model.Segment, target model.Target, phase, prompt string, result *SegmentResult) (*Parsed, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "extract: acquire oracle slot")
	}
	defer p.sem.Release(1)

	temperature := 0.0
	req := anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	}

	retryCfg.OnRetry = resilience.RetryLogger("anthropic", phase+":"+string(target))

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*Parsed, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limiter")
		}

		result.Attempts++
		attempt := result.Attempts

		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()

		resp, err := p.client.CreateMessage(callCtx, req)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		if err == nil {
			result.Usage.Add(model.TokenUsage{
				InputTokens:  int(resp.Usage.InputTokens),
				OutputTokens: int(resp.Usage.OutputTokens),
			})
			resp.Usage.LogCost(p.model, phase)
			if resp.Truncated() {
				outcome = "truncated"
			}
		}
		zap.L().Info("extraction attempt",
			zap.String("segment", seg.ID),
			zap.String("target", string(target)),
			zap.String("phase", phase),
			zap.Int("attempt", attempt),
			zap.String("outcome", outcome),
		)
		if err != nil {
			return nil, err
		}
		if resp.Truncated() {
			return nil, resilience.NewTransientError(eris.Wrapf(errMalformed, "truncated at %d tokens", p.maxTokens), 0)
		}

		parsed := Parse(target, seg, resp.Text)
		if parsed.Outcome == OutcomeMalformed {
			return nil, resilience.NewTransientError(eris.Wrapf(errMalformed, "segment %s target %s", seg.ID, target), 0)
		}
		return parsed, nil
	})
}
