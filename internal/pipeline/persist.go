package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ottomail/proposal-cli/internal/model"
	"github.com/ottomail/proposal-cli/internal/store"
	"github.com/ottomail/proposal-cli/pkg/gmail"
	"github.com/ottomail/proposal-cli/pkg/notify"
)

// StoreStage persists the client and proposal records. Writes are
// fire-and-forget from the pipeline's perspective: failures are logged and
// the run continues, since a reviewable draft matters more than a row.
func StoreStage(ctx context.Context, state model.PipelineState, st store.Store) model.StagePatch {
	patch := model.StagePatch{Step: model.StepStored}

	clientID, err := st.CreateClient(ctx, model.ClientRecord{
		Name:          state.ClientName,
		Email:         state.EmailFrom,
		ProjectType:   state.ProjectType,
		Requirements:  state.Requirements,
		OriginalEmail: state.EmailBody,
		Status:        "new",
	})
	if err != nil {
		zap.L().Warn("store: failed to create client record",
			zap.String("email_id", state.EmailID),
			zap.Error(err),
		)
		return patch
	}
	patch.ClientID = &clientID

	proposalID, err := st.CreateProposal(ctx, model.ProposalRecord{
		ClientID:     clientID,
		Plan:         state.ProjectPlan,
		ProposalText: state.ProposalText,
		CostMin:      state.CostEstimate.Min,
		CostMax:      state.CostEstimate.Max,
		Status:       model.ProposalStatusPendingApproval,
	})
	if err != nil {
		zap.L().Warn("store: failed to create proposal record",
			zap.String("email_id", state.EmailID),
			zap.String("client_id", clientID),
			zap.Error(err),
		)
		return patch
	}
	patch.ProposalID = &proposalID

	return patch
}

// DraftStage creates the reply draft in the client's thread. The draft is
// never auto-sent. needs_human_review is set unconditionally: today every
// drafted proposal goes to a human, and the flag exists as the policy hook
// the final router branch consults.
func DraftStage(ctx context.Context, state model.PipelineState, mail gmail.Client) model.StagePatch {
	review := true
	patch := model.StagePatch{
		Step:             model.StepDraftCreated,
		NeedsHumanReview: &review,
	}

	if mail == nil {
		zap.L().Warn("draft: gmail client not configured, skipping draft",
			zap.String("email_id", state.EmailID),
		)
		patch.Err = "Draft creation failed: gmail client not configured"
		return patch
	}

	subject := "Re: " + state.EmailSubject
	draftID, err := mail.CreateDraft(ctx, state.EmailFrom, subject, state.ProposalText)
	if err != nil {
		zap.L().Warn("draft: failed to create draft",
			zap.String("email_id", state.EmailID),
			zap.Error(err),
		)
		patch.Err = fmt.Sprintf("Draft creation failed: %v", err)
		return patch
	}
	patch.DraftID = &draftID

	return patch
}

// NotifyStage sends a best-effort summary to the review channel.
func NotifyStage(ctx context.Context, state model.PipelineState, notifier notify.Client) model.StagePatch {
	if notifier == nil {
		return model.StagePatch{Step: model.StepNotified}
	}

	text := fmt.Sprintf(
		"New proposal drafted for %s (%s)\nProject: %s\nInvestment: $%s - $%s\nDraft: %s\nReview and send from the mailbox.",
		state.ClientName,
		state.EmailFrom,
		state.ProjectType,
		formatUSD(state.CostEstimate.Min),
		formatUSD(state.CostEstimate.Max),
		state.DraftID,
	)

	if err := notifier.SendMessage(ctx, text); err != nil {
		zap.L().Warn("notify: failed to send review notification",
			zap.String("email_id", state.EmailID),
			zap.Error(err),
		)
	}

	return model.StagePatch{Step: model.StepNotified}
}
