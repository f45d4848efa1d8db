package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ottomail/proposal-cli/internal/model"
)

var (
	processFrom    string
	processSubject string
	processBody    string
	processFile    string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the proposal pipeline for a single inquiry email",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		email, err := loadEmail()
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		state, err := env.Pipeline.Run(ctx, email)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("processing complete",
			zap.String("email_id", email.ID),
			zap.Bool("valid_inquiry", state.IsValidInquiry),
			zap.String("step", string(state.CurrentStep)),
		)

		// Print final state JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

// loadEmail builds the inbound email from --file or the individual flags.
func loadEmail() (model.InboundEmail, error) {
	if processFile != "" {
		data, err := os.ReadFile(processFile)
		if err != nil {
			return model.InboundEmail{}, eris.Wrap(err, "read email file")
		}
		var email model.InboundEmail
		if err := json.Unmarshal(data, &email); err != nil {
			return model.InboundEmail{}, eris.Wrap(err, "parse email file")
		}
		if email.ID == "" {
			email.ID = uuid.New().String()
		}
		return email, nil
	}

	if processFrom == "" || processBody == "" {
		return model.InboundEmail{}, eris.New("either --file or both --from and --body are required")
	}
	return model.InboundEmail{
		ID:      uuid.New().String(),
		From:    processFrom,
		Subject: processSubject,
		Body:    processBody,
	}, nil
}

func init() {
	processCmd.Flags().StringVar(&processFrom, "from", "", "sender address")
	processCmd.Flags().StringVar(&processSubject, "subject", "", "email subject")
	processCmd.Flags().StringVar(&processBody, "body", "", "email body")
	processCmd.Flags().StringVar(&processFile, "file", "", "path to a JSON file with the email")
	rootCmd.AddCommand(processCmd)
}
