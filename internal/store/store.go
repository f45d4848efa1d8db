package store

import (
	"context"

	"github.com/ottomail/proposal-cli/internal/model"
)

// Store defines the persistence interface for the proposal pipeline.
// Runs are keyed by their inbound email ID, which serves as the
// correlation key for checkpointing and idempotency checks.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, email model.InboundEmail) (*model.Run, error)
	UpdateRunStep(ctx context.Context, runID string, step model.Step) error
	UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.PipelineState) error
	GetRunByEmailID(ctx context.Context, emailID string) (*model.Run, error)

	// Clients and proposals
	CreateClient(ctx context.Context, client model.ClientRecord) (string, error)
	CreateProposal(ctx context.Context, proposal model.ProposalRecord) (string, error)
	ListPendingProposals(ctx context.Context) ([]model.ProposalRecord, error)
	ApproveProposal(ctx context.Context, proposalID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
