package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ottomail/proposal-cli/internal/model"
)

// SQLiteStore implements Store on a local SQLite database. It is the
// zero-infrastructure option for single-operator setups and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the SQLite database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open database")
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent runs.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", pragma)
		}
	}

	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	email_id     TEXT NOT NULL,
	email        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'queued',
	current_step TEXT NOT NULL DEFAULT 'started',
	result       TEXT,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS clients (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	email          TEXT NOT NULL,
	project_type   TEXT NOT NULL,
	requirements   TEXT NOT NULL,
	original_email TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'new',
	created_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS proposals (
	id            TEXT PRIMARY KEY,
	client_id     TEXT NOT NULL REFERENCES clients(id),
	plan          TEXT,
	proposal_text TEXT NOT NULL,
	cost_min      INTEGER NOT NULL,
	cost_max      INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending_approval',
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_email_id ON runs(email_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
CREATE INDEX IF NOT EXISTS idx_proposals_client_id ON proposals(client_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, email model.InboundEmail) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	emailJSON, err := json.Marshal(email)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal email")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, email_id, email, status, current_step, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, email.ID, string(emailJSON), string(model.RunStatusRunning), string(model.StepStarted), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:          id,
		EmailID:     email.ID,
		Email:       email,
		Status:      model.RunStatusRunning,
		CurrentStep: model.StepStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStep(ctx context.Context, runID string, step model.Step) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET current_step = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(step), string(model.RunStatusRunning), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: update run step")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.PipelineState) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, result = ?, current_step = ?, updated_at = ? WHERE id = ?`,
		string(status), string(resultJSON), string(result.CurrentStep), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: update run result")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRunByEmailID(ctx context.Context, emailID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email_id, email, status, current_step, result, created_at, updated_at FROM runs WHERE email_id = ? ORDER BY created_at DESC LIMIT 1`,
		emailID,
	)

	var run model.Run
	var emailJSON string
	var resultJSON sql.NullString
	var status, step string
	if err := row.Scan(&run.ID, &run.EmailID, &emailJSON, &status, &step, &resultJSON, &run.CreatedAt, &run.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get run by email id")
	}
	run.Status = model.RunStatus(status)
	run.CurrentStep = model.Step(step)

	if err := json.Unmarshal([]byte(emailJSON), &run.Email); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal email")
	}
	if resultJSON.Valid && resultJSON.String != "" {
		run.Result = &model.PipelineState{}
		if err := json.Unmarshal([]byte(resultJSON.String), run.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &run, nil
}

func (s *SQLiteStore) CreateClient(ctx context.Context, client model.ClientRecord) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(client.Requirements)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal requirements")
	}

	status := client.Status
	if status == "" {
		status = "new"
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, email, project_type, requirements, original_email, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, client.Name, client.Email, client.ProjectType, string(reqJSON), client.OriginalEmail, status, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert client")
	}
	return id, nil
}

func (s *SQLiteStore) CreateProposal(ctx context.Context, proposal model.ProposalRecord) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	planJSON, err := json.Marshal(proposal.Plan)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal plan")
	}

	status := proposal.Status
	if status == "" {
		status = model.ProposalStatusPendingApproval
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO proposals (id, client_id, plan, proposal_text, cost_min, cost_max, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, proposal.ClientID, string(planJSON), proposal.ProposalText, proposal.CostMin, proposal.CostMax, string(status), now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert proposal")
	}
	return id, nil
}

func (s *SQLiteStore) ListPendingProposals(ctx context.Context) ([]model.ProposalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, plan, proposal_text, cost_min, cost_max, status, created_at FROM proposals WHERE status = ? ORDER BY created_at`,
		string(model.ProposalStatusPendingApproval),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending proposals")
	}
	defer rows.Close()

	var proposals []model.ProposalRecord
	for rows.Next() {
		var p model.ProposalRecord
		var planJSON sql.NullString
		var status string
		if err := rows.Scan(&p.ID, &p.ClientID, &planJSON, &p.ProposalText, &p.CostMin, &p.CostMax, &status, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan proposal")
		}
		p.Status = model.ProposalStatus(status)
		if planJSON.Valid && planJSON.String != "" && planJSON.String != "null" {
			p.Plan = &model.ProjectPlan{}
			if err := json.Unmarshal([]byte(planJSON.String), p.Plan); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal plan")
			}
		}
		proposals = append(proposals, p)
	}
	return proposals, eris.Wrap(rows.Err(), "sqlite: iterate proposals")
}

func (s *SQLiteStore) ApproveProposal(ctx context.Context, proposalID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE proposals SET status = ? WHERE id = ?`,
		string(model.ProposalStatusApproved), proposalID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: approve proposal")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: proposal %s not found", proposalID)
	}
	return nil
}
