// Package pipeline converts inbound inquiry emails into priced proposal
// drafts. A fixed sequence of stages threads a single PipelineState record
// through classification, extraction, planning, costing, proposal writing
// and the collaborator writes; each AI-backed stage carries a deterministic
// fallback, so the run always finishes with best-effort output.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ottomail/proposal-cli/internal/config"
	"github.com/ottomail/proposal-cli/internal/cost"
	"github.com/ottomail/proposal-cli/internal/model"
	"github.com/ottomail/proposal-cli/internal/resilience"
	"github.com/ottomail/proposal-cli/internal/store"
	"github.com/ottomail/proposal-cli/pkg/gmail"
	"github.com/ottomail/proposal-cli/pkg/llm"
	"github.com/ottomail/proposal-cli/pkg/notify"
)

// ErrEmptyCompletion indicates the provider returned a blank completion.
// Stages treat it like any other failure but keep the distinction in their
// diagnostics.
var ErrEmptyCompletion = eris.New("pipeline: empty completion")

// CompletionFunc is the bounded completion call handed to each AI-backed
// stage. The pipeline wraps the raw provider with a timeout and retry
// before stages ever see it.
type CompletionFunc func(ctx context.Context, prompt string) (string, error)

// Pipeline orchestrates the inquiry-to-proposal stages.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	llm      llm.Client
	mail     gmail.Client
	notifier notify.Client
	costCalc *cost.Calculator
	retry    resilience.Policy
}

// New creates a Pipeline with all dependencies. Collaborators are
// constructed once per process and injected; the pipeline never
// reinitializes them.
func New(cfg *config.Config, st store.Store, llmClient llm.Client, mail gmail.Client, notifier notify.Client) *Pipeline {
	retry := resilience.DefaultPolicy()
	retry.OnRetry = resilience.RetryLogger("llm", "complete")
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		llm:      llmClient,
		mail:     mail,
		notifier: notifier,
		costCalc: cost.NewCalculator(cfg.Pricing.Rates()),
		retry:    retry,
	}
}

// complete wraps the provider call with a per-attempt timeout and the
// retry policy. Timeout expiry surfaces as an ordinary failure, which the
// calling stage absorbs through its fallback.
func (p *Pipeline) complete(ctx context.Context, prompt string) (string, error) {
	timeout := time.Duration(p.cfg.LLM.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return resilience.Retry(ctx, p.retry, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		text, err := p.llm.Complete(callCtx, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyCompletion
		}
		return text, nil
	})
}

// Run executes the full pipeline for one inbound email and returns the
// final state. The email ID is the correlation key: the run record, step
// checkpoints and persisted client/proposal rows all trace back to it.
// Run returns an error only on a contract violation between stages; AI
// failures never propagate past their stage.
func (p *Pipeline) Run(ctx context.Context, email model.InboundEmail) (*model.PipelineState, error) {
	log := zap.L().With(
		zap.String("email_id", email.ID),
		zap.String("from", email.From),
	)
	log.Info("pipeline: processing inquiry", zap.String("subject", email.Subject))

	run, err := p.store.CreateRun(ctx, email)
	if err != nil {
		// Bookkeeping must not block proposal generation.
		log.Warn("pipeline: failed to create run record", zap.Error(err))
	}

	state := model.NewPipelineState(email)

	// apply merges a stage patch and checkpoints the step so a restart can
	// see how far this email got.
	apply := func(name string, fn func() model.StagePatch) {
		start := time.Now()
		patch := fn()
		state = state.Apply(patch)

		log.Info("pipeline: stage complete",
			zap.String("stage", name),
			zap.String("step", string(state.CurrentStep)),
			zap.Bool("fallback", state.CurrentStep.IsFallback()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)

		if run != nil {
			if err := p.store.UpdateRunStep(ctx, run.ID, state.CurrentStep); err != nil {
				log.Warn("pipeline: failed to checkpoint step", zap.Error(err))
			}
		}
	}

	finish := func(status model.RunStatus) {
		if run == nil {
			return
		}
		if err := p.store.UpdateRunResult(ctx, run.ID, status, &state); err != nil {
			log.Warn("pipeline: failed to save run result", zap.Error(err))
		}
	}

	// Stage 1: classification. Total by construction; a failure is a
	// valid negative classification.
	apply("classify", func() model.StagePatch {
		return ClassifyStage(ctx, state, p.complete)
	})

	// Branch A: invalid inquiries terminate here with downstream fields
	// at their initialization defaults.
	if !state.IsValidInquiry {
		log.Info("pipeline: inquiry rejected",
			zap.Float64("confidence", state.ConfidenceScore),
			zap.String("reason", state.ClassificationReason),
		)
		finish(model.RunStatusRejected)
		return &state, nil
	}

	apply("extract", func() model.StagePatch {
		return ExtractStage(ctx, state, p.complete)
	})

	apply("plan", func() model.StagePatch {
		return PlanStage(ctx, state, p.complete)
	})

	// Stage 4: cost. Pure and fallback-free; a missing or invalid plan
	// here is an upstream contract violation and fails the run loudly
	// instead of fabricating a price.
	if state.ProjectPlan == nil {
		finish(model.RunStatusFailed)
		return &state, eris.New("pipeline: planning stage left no project plan")
	}
	estimate, err := p.costCalc.Estimate(state.ProjectPlan.TotalEstimatedHours, string(state.ProjectPlan.Complexity))
	if err != nil {
		finish(model.RunStatusFailed)
		return &state, eris.Wrap(err, "pipeline: cost stage")
	}
	apply("cost", func() model.StagePatch {
		return model.StagePatch{Step: model.StepCosted, Cost: estimate}
	})

	apply("propose", func() model.StagePatch {
		return ProposeStage(ctx, state, p.complete)
	})

	apply("store", func() model.StagePatch {
		return StoreStage(ctx, state, p.store)
	})

	apply("draft", func() model.StagePatch {
		return DraftStage(ctx, state, p.mail)
	})

	// Branch B: notify only when a human needs to look. Draft creation
	// currently always sets the flag; the branch is the policy hook.
	if state.NeedsHumanReview {
		apply("notify", func() model.StagePatch {
			return NotifyStage(ctx, state, p.notifier)
		})
	}

	finish(model.RunStatusComplete)

	log.Info("pipeline: proposal ready",
		zap.String("client", state.ClientName),
		zap.String("project", truncate(state.ProjectType, 80)),
		zap.Int("cost_min", state.CostEstimate.Min),
		zap.Int("cost_max", state.CostEstimate.Max),
		zap.String("draft_id", state.DraftID),
	)

	return &state, nil
}
