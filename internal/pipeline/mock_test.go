package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ottomail/proposal-cli/internal/model"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, email model.InboundEmail) (*model.Run, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStep(ctx context.Context, runID string, step model.Step) error {
	args := m.Called(ctx, runID, step)
	return args.Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.PipelineState) error {
	args := m.Called(ctx, runID, status, result)
	return args.Error(0)
}

func (m *mockStore) GetRunByEmailID(ctx context.Context, emailID string) (*model.Run, error) {
	args := m.Called(ctx, emailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) CreateClient(ctx context.Context, client model.ClientRecord) (string, error) {
	args := m.Called(ctx, client)
	return args.String(0), args.Error(1)
}

func (m *mockStore) CreateProposal(ctx context.Context, proposal model.ProposalRecord) (string, error) {
	args := m.Called(ctx, proposal)
	return args.String(0), args.Error(1)
}

func (m *mockStore) ListPendingProposals(ctx context.Context) ([]model.ProposalRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProposalRecord), args.Error(1)
}

func (m *mockStore) ApproveProposal(ctx context.Context, proposalID string) error {
	args := m.Called(ctx, proposalID)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Gmail Mock ---

type mockMail struct {
	mock.Mock
}

func (m *mockMail) ListUnread(ctx context.Context, max int) ([]model.InboundEmail, error) {
	args := m.Called(ctx, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InboundEmail), args.Error(1)
}

func (m *mockMail) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	args := m.Called(ctx, to, subject, body)
	return args.String(0), args.Error(1)
}

func (m *mockMail) MarkRead(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// --- Notify Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendMessage(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

// --- Completion helpers ---

// completeWith returns a CompletionFunc that always yields text.
func completeWith(text string) CompletionFunc {
	return func(context.Context, string) (string, error) {
		return text, nil
	}
}

// completeErr returns a CompletionFunc that always fails.
func completeErr(err error) CompletionFunc {
	return func(context.Context, string) (string, error) {
		return "", err
	}
}

// testEmail is the baseline inquiry used across stage tests.
func testEmail() model.InboundEmail {
	return model.InboundEmail{
		ID:      "msg-1",
		From:    "Jane Doe <jane@example.com>",
		Subject: "Website project",
		Body:    "We need a new website for our bakery with online ordering.",
	}
}
