package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ottomail/proposal-cli/internal/pipeline"
	"github.com/ottomail/proposal-cli/internal/store"
	"github.com/ottomail/proposal-cli/pkg/gmail"
	"github.com/ottomail/proposal-cli/pkg/llm"
	"github.com/ottomail/proposal-cli/pkg/notify"
)

// googleTokenURL is Google's OAuth2 token endpoint used to refresh Gmail
// access tokens.
const googleTokenURL = "https://oauth2.googleapis.com/token"

// pipelineEnv holds all initialized clients and the pipeline needed by the
// process/inbox/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Mail     gmail.Client // nil when Gmail is not configured
	Notifier notify.Client
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "proposals.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initGmail builds the Gmail client from the configured OAuth refresh
// token. Returns nil when Gmail is not configured; the pipeline then skips
// draft creation.
func initGmail(ctx context.Context) gmail.Client {
	if cfg.Gmail.ClientID == "" || cfg.Gmail.ClientSecret == "" || cfg.Gmail.RefreshToken == "" {
		zap.L().Warn("gmail not configured, drafts disabled")
		return nil
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: googleTokenURL},
	}
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.Gmail.RefreshToken})
	return gmail.NewClient(ctx, ts)
}

// initPipeline sets up the store and all clients, runs migrations, and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	llmClient, err := llm.New(ctx, llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.Key,
		Model:       cfg.LLM.Model,
		MaxTokens:   int64(cfg.LLM.MaxTokens),
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init llm provider")
	}

	mail := initGmail(ctx)

	var notifier notify.Client
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewClient(cfg.Notify.WebhookURL)
	} else {
		zap.L().Debug("PROPOSAL_NOTIFY_WEBHOOK_URL not set, review notifications disabled")
	}

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("gmail", mail != nil),
		zap.Bool("notify", notifier != nil),
	)

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, llmClient, mail, notifier),
		Mail:     mail,
		Notifier: notifier,
	}, nil
}
