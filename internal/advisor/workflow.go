package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/models"
)

// ProgressSink receives progress events from the streaming workflow
// variant. Sinks must not block; panics inside a sink are recovered and
// never alter pipeline behavior.
type ProgressSink func(event models.ProgressEvent)

// Run executes the full pipeline for a strategy and returns the aggregated
// result. On the first stage failure the remaining stages are skipped and
// the partial result is retained for diagnostics.
func (a *Advisor) Run(ctx context.Context, strategy *models.Strategy, prev *models.PreviousRecommendation) *models.WorkflowResult {
	return a.RunWithProgress(ctx, strategy, prev, nil)
}

// RunWithProgress is Run with stage-boundary events relayed through sink.
// Passing a nil sink is equivalent to Run.
func (a *Advisor) RunWithProgress(ctx context.Context, strategy *models.Strategy, prev *models.PreviousRecommendation, sink ProgressSink) *models.WorkflowResult {
	started := time.Now()
	result := &models.WorkflowResult{Strategy: strategy}

	a.logger.Info("advisory workflow starting",
		"strategy_id", strategy.ID,
		"holding", strategy.Coin)

	// Profile
	profile, err := runStage(a, result, sink, StageProfile, "classifying investment preference",
		func() (*models.InvestorProfile, int, bool, error) {
			p, err := a.runProfile(ctx, strategy)
			return p, 0, false, err
		})
	if err != nil {
		return a.fail(result, started, StageProfile, err)
	}
	result.Profile = profile

	// Screener
	candidates, err := runStage(a, result, sink, StageScreener, "screening candidate coins",
		func() ([]string, int, bool, error) {
			symbols, toolCalls, fallback, err := a.runScreener(ctx, profile)
			return symbols, toolCalls, fallback, err
		})
	if err != nil {
		return a.fail(result, started, StageScreener, err)
	}
	result.Candidates = candidates

	// Quantitative
	quantCoins, err := runStage(a, result, sink, StageQuantitative, "computing momentum scores",
		func() ([]models.ScoredCoin, int, bool, error) {
			coins, toolCalls, err := a.runQuantitative(ctx, candidates, profile.CurrentHoldingSymbol)
			return coins, toolCalls, false, err
		})
	if err != nil {
		return a.fail(result, started, StageQuantitative, err)
	}
	result.QuantAnalysis = quantCoins

	// Qualitative
	qualCoins, err := runStage(a, result, sink, StageQualitative, "reviewing security and reputation",
		func() ([]models.ScoredCoin, int, bool, error) {
			coins, toolCalls, err := a.runQualitative(ctx, quantCoins, profile.CurrentHoldingSymbol)
			return coins, toolCalls, false, err
		})
	if err != nil {
		return a.fail(result, started, StageQualitative, err)
	}
	result.QualAnalysis = qualCoins

	// Committee
	decision, err := runStage(a, result, sink, StageCommittee, "reaching a final decision",
		func() (*models.CommitteeDecision, int, bool, error) {
			d, err := a.runCommittee(ctx, qualCoins, strategy, profile.InvestmentHorizon, prev)
			return d, 0, false, err
		})
	if err != nil {
		return a.fail(result, started, StageCommittee, err)
	}
	result.Decision = decision

	result.Success = true
	result.TotalDurationMs = time.Since(started).Milliseconds()

	a.logger.Info("advisory workflow completed",
		"strategy_id", strategy.ID,
		"recommendation", decision.Recommendation,
		"duration_ms", result.TotalDurationMs)

	return result
}

// runStage wraps one stage invocation with timing, stage metadata, and
// progress events. It returns the stage's output untouched.
func runStage[T any](a *Advisor, result *models.WorkflowResult, sink ProgressSink, name, startMsg string, fn func() (T, int, bool, error)) (T, error) {
	emit(sink, models.ProgressEvent{Type: models.ProgressAgentStart, Stage: name, Message: startMsg})

	started := time.Now()
	out, toolCalls, fallback, err := fn()

	status := models.StageStatus{
		Name:         name,
		Success:      err == nil,
		DurationMs:   time.Since(started).Milliseconds(),
		ToolCalls:    toolCalls,
		FallbackMode: fallback,
	}
	if err != nil {
		status.Error = err.Error()
		result.Stages = append(result.Stages, status)
		emit(sink, models.ProgressEvent{Type: models.ProgressAgentError, Stage: name, Message: err.Error()})
		return out, err
	}

	result.Stages = append(result.Stages, status)
	emit(sink, models.ProgressEvent{
		Type:    models.ProgressAgentComplete,
		Stage:   name,
		Message: fmt.Sprintf("%s completed in %dms", name, status.DurationMs),
		Payload: out,
	})

	return out, nil
}

func (a *Advisor) fail(result *models.WorkflowResult, started time.Time, stage string, err error) *models.WorkflowResult {
	result.Success = false
	result.Error = err.Error()
	result.ErrorType = inference.ErrorType(err)
	result.TotalDurationMs = time.Since(started).Milliseconds()

	a.logger.Error("advisory workflow failed",
		"strategy_id", result.Strategy.ID,
		"stage", stage,
		"error", err,
		"error_type", result.ErrorType)

	return result
}

// emit relays one event to the sink. A nil sink is a no-op; a panicking
// sink is recovered so observation can never change pipeline outcomes.
func emit(sink ProgressSink, event models.ProgressEvent) {
	if sink == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	sink(event)
}
