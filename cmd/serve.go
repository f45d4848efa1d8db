package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ottomail/proposal-cli/internal/model"
	"github.com/ottomail/proposal-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for inquiry processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		// Webhook runs are asynchronous; they use the server's lifetime
		// context so shutdown cancels in-flight pipelines.
		runEmail := func(email model.InboundEmail) {
			state, err := env.Pipeline.Run(ctx, email)
			if err != nil {
				zap.L().Error("webhook processing failed",
					zap.String("email_id", email.ID),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("webhook processing complete",
				zap.String("email_id", email.ID),
				zap.Bool("valid_inquiry", state.IsValidInquiry),
				zap.String("step", string(state.CurrentStep)),
			)
		}

		r := newRouter(env.Store, runEmail)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP API. The run callback receives each accepted
// webhook email; it is injected so tests can observe submissions without a
// live pipeline.
func newRouter(st store.Store, run func(model.InboundEmail)) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhook/email", func(w http.ResponseWriter, req *http.Request) {
		var email model.InboundEmail
		if err := json.NewDecoder(req.Body).Decode(&email); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if email.ID == "" || email.From == "" || email.Body == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id, from and body are required"})
			return
		}

		go run(email)

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":   "accepted",
			"email_id": email.ID,
		})
	})

	r.Get("/runs/{emailID}", func(w http.ResponseWriter, req *http.Request) {
		emailID := chi.URLParam(req, "emailID")
		run, err := st.GetRunByEmailID(req.Context(), emailID)
		if err != nil {
			zap.L().Error("failed to load run", zap.String("email_id", emailID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load run"})
			return
		}
		if run == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run for email"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Get("/proposals/pending", func(w http.ResponseWriter, req *http.Request) {
		proposals, err := st.ListPendingProposals(req.Context())
		if err != nil {
			zap.L().Error("failed to list pending proposals", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list proposals"})
			return
		}
		if proposals == nil {
			proposals = []model.ProposalRecord{}
		}
		writeJSON(w, http.StatusOK, proposals)
	})

	r.Post("/proposals/{proposalID}/approve", func(w http.ResponseWriter, req *http.Request) {
		proposalID := chi.URLParam(req, "proposalID")
		if err := st.ApproveProposal(req.Context(), proposalID); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "proposal not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":      "approved",
			"proposal_id": proposalID,
		})
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
