package main

import (
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	inboxMax         int
	inboxConcurrency int
	inboxKeepUnread  bool
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Process unread inquiry emails from the Gmail inbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "inbox")
		if err != nil {
			return err
		}
		defer env.Close()

		maxResults := inboxMax
		if maxResults == 0 {
			maxResults = cfg.Gmail.MaxResults
		}

		emails, err := env.Mail.ListUnread(ctx, maxResults)
		if err != nil {
			return eris.Wrap(err, "list unread messages")
		}
		if len(emails) == 0 {
			zap.L().Info("inbox empty, nothing to process")
			return nil
		}
		zap.L().Info("processing inbox", zap.Int("messages", len(emails)))

		concurrency := inboxConcurrency
		if concurrency == 0 {
			concurrency = cfg.Inbox.MaxConcurrent
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		var succeeded, rejected, failed atomic.Int64

		for _, email := range emails {
			g.Go(func() error {
				log := zap.L().With(zap.String("email_id", email.ID))

				state, err := env.Pipeline.Run(gctx, email)
				if err != nil {
					failed.Add(1)
					log.Error("processing failed", zap.Error(err))
					return nil // one bad email must not stop the batch
				}
				if state.IsValidInquiry {
					succeeded.Add(1)
				} else {
					rejected.Add(1)
				}

				// Mark read so the next poll skips this message. The draft
				// already exists; losing the label update only risks a
				// duplicate run keyed to the same email ID.
				if !inboxKeepUnread {
					if err := env.Mail.MarkRead(gctx, email.ID); err != nil {
						log.Warn("failed to mark message read", zap.Error(err))
					}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "inbox batch")
		}

		zap.L().Info("inbox complete",
			zap.Int64("proposals", succeeded.Load()),
			zap.Int64("rejected", rejected.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

func init() {
	inboxCmd.Flags().IntVar(&inboxMax, "max", 0, "max messages to fetch (default from config)")
	inboxCmd.Flags().IntVar(&inboxConcurrency, "concurrency", 0, "concurrent pipeline runs (default from config)")
	inboxCmd.Flags().BoolVar(&inboxKeepUnread, "keep-unread", false, "do not mark processed messages as read")
	rootCmd.AddCommand(inboxCmd)
}
