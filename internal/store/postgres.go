package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ottomail/proposal-cli/internal/db"
	"github.com/ottomail/proposal-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot store operations.
var preparedStatements = map[string]string{
	"insert_run":       `INSERT INTO runs (id, email_id, email, status, current_step, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"update_run_step":  `UPDATE runs SET current_step = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"update_run_result": `UPDATE runs SET status = $1, result = $2, current_step = $3, updated_at = $4 WHERE id = $5`,
	"get_run_by_email": `SELECT id, email_id, email, status, current_step, result, created_at, updated_at FROM runs WHERE email_id = $1 ORDER BY created_at DESC LIMIT 1`,
	"insert_client":    `INSERT INTO clients (id, name, email, project_type, requirements, original_email, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"insert_proposal":  `INSERT INTO proposals (id, client_id, plan, proposal_text, cost_min, cost_max, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	email_id     TEXT NOT NULL,
	email        JSONB NOT NULL,
	status       TEXT NOT NULL DEFAULT 'queued',
	current_step TEXT NOT NULL DEFAULT 'started',
	result       JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clients (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	email          TEXT NOT NULL,
	project_type   TEXT NOT NULL,
	requirements   JSONB NOT NULL,
	original_email TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'new',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS proposals (
	id            TEXT PRIMARY KEY,
	client_id     TEXT NOT NULL REFERENCES clients(id),
	plan          JSONB,
	proposal_text TEXT NOT NULL,
	cost_min      INTEGER NOT NULL,
	cost_max      INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending_approval',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_email_id ON runs(email_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
CREATE INDEX IF NOT EXISTS idx_proposals_client_id ON proposals(client_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, email model.InboundEmail) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	emailJSON, err := json.Marshal(email)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal email")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, email_id, email, status, current_step, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, email.ID, emailJSON, string(model.RunStatusRunning), string(model.StepStarted), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) UpdateRunStep(ctx context.Context, runID string, step model.Step) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET current_step = $1, status = $2, updated_at = $3 WHERE id = $4`,
		string(step), string(model.RunStatusRunning), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update run step")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.PipelineState) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, result = $2, current_step = $3, updated_at = $4 WHERE id = $5`,
		string(status), resultJSON, string(result.CurrentStep), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update run result")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRunByEmailID(ctx context.Context, emailID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email_id, email, status, current_step, result, created_at, updated_at FROM runs WHERE email_id = $1 ORDER BY created_at DESC LIMIT 1`,
		emailID,
	)

	var run model.Run
	var emailJSON []byte
	var resultJSON []byte
	var status, step string
	if err := row.Scan(&run.ID, &run.EmailID, &emailJSON, &status, &step, &resultJSON, &run.CreatedAt, &run.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get run by email id")
	}
	run.Status = model.RunStatus(status)
	run.CurrentStep = model.Step(step)

	if err := json.Unmarshal(emailJSON, &run.Email); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal email")
	}
	if len(resultJSON) > 0 {
		run.Result = &model.PipelineState{}
		if err := json.Unmarshal(resultJSON, run.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &run, nil
}

func (s *PostgresStore) CreateClient(ctx context.Context, client model.ClientRecord) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(client.Requirements)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal requirements")
	}

	status := client.Status
	if status == "" {
		status = "new"
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO clients (id, name, email, project_type, requirements, original_email, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, client.Name, client.Email, client.ProjectType, reqJSON, client.OriginalEmail, status, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert client")
	}
	return id, nil
}

func (s *PostgresStore) CreateProposal(ctx context.Context, proposal model.ProposalRecord) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	planJSON, err := json.Marshal(proposal.Plan)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal plan")
	}

	status := proposal.Status
	if status == "" {
		status = model.ProposalStatusPendingApproval
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO proposals (id, client_id, plan, proposal_text, cost_min, cost_max, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, proposal.ClientID, planJSON, proposal.ProposalText, proposal.CostMin, proposal.CostMax, string(status), now,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert proposal")
	}
	return id, nil
}

func (s *PostgresStore) ListPendingProposals(ctx context.Context) ([]model.ProposalRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, plan, proposal_text, cost_min, cost_max, status, created_at FROM proposals WHERE status = $1 ORDER BY created_at`,
		string(model.ProposalStatusPendingApproval),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending proposals")
	}
	defer rows.Close()

	var proposals []model.ProposalRecord
	for rows.Next() {
		var p model.ProposalRecord
		var planJSON []byte
		var status string
		if err := rows.Scan(&p.ID, &p.ClientID, &planJSON, &p.ProposalText, &p.CostMin, &p.CostMax, &status, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan proposal")
		}
		p.Status = model.ProposalStatus(status)
		if len(planJSON) > 0 && string(planJSON) != "null" {
			p.Plan = &model.ProjectPlan{}
			if err := json.Unmarshal(planJSON, p.Plan); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal plan")
			}
		}
		proposals = append(proposals, p)
	}
	return proposals, eris.Wrap(rows.Err(), "postgres: iterate proposals")
}

func (s *PostgresStore) ApproveProposal(ctx context.Context, proposalID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE proposals SET status = $1 WHERE id = $2`,
		string(model.ProposalStatusApproved), proposalID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: approve proposal")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: proposal %s not found", proposalID)
	}
	return nil
}
