package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Review stored proposals",
}

var proposalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List proposals awaiting approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("proposals"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		proposals, err := st.ListPendingProposals(ctx)
		if err != nil {
			return eris.Wrap(err, "list pending proposals")
		}
		if len(proposals) == 0 {
			fmt.Println("No proposals awaiting approval.")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(proposals)
	},
}

var proposalsApproveCmd = &cobra.Command{
	Use:   "approve <proposal-id>",
	Short: "Approve a pending proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		proposalID := args[0]

		if err := cfg.Validate("proposals"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if err := st.ApproveProposal(ctx, proposalID); err != nil {
			return eris.Wrap(err, "approve proposal")
		}

		zap.L().Info("proposal approved", zap.String("proposal_id", proposalID))
		fmt.Printf("Proposal %s approved.\n", proposalID)
		return nil
	},
}

func init() {
	proposalsCmd.AddCommand(proposalsListCmd)
	proposalsCmd.AddCommand(proposalsApproveCmd)
	rootCmd.AddCommand(proposalsCmd)
}
