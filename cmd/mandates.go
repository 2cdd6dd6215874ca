package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-gocardless/app/mapper"
	"github.com/vibast-solutions/ms-go-gocardless/app/types"
)

var mandateMetadata map[string]string

var mandatesCmd = &cobra.Command{
	Use:   "mandates",
	Short: "Manage direct debit mandates",
}

var mandatesCancelCmd = &cobra.Command{
	Use:   "cancel <mandate-id>",
	Short: "Cancel a mandate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &types.MandateActionRequest{MandateId: args[0], Metadata: mandateMetadata}
		if err := req.Validate(); err != nil {
			return err
		}

		app := mustCreateGatewayService()
		defer app.cleanup()

		mandate, err := app.service.CancelMandate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(mapper.MandateToResponse(mandate))
	},
}

var mandatesReinstateCmd = &cobra.Command{
	Use:   "reinstate <mandate-id>",
	Short: "Reinstate a cancelled or expired mandate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &types.MandateActionRequest{MandateId: args[0], Metadata: mandateMetadata}
		if err := req.Validate(); err != nil {
			return err
		}

		app := mustCreateGatewayService()
		defer app.cleanup()

		mandate, err := app.service.ReinstateMandate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(mapper.MandateToResponse(mandate))
	},
}

func init() {
	rootCmd.AddCommand(mandatesCmd)
	mandatesCmd.AddCommand(mandatesCancelCmd)
	mandatesCmd.AddCommand(mandatesReinstateCmd)

	mandatesCmd.PersistentFlags().StringToStringVar(&mandateMetadata, "metadata", nil, "Metadata to attach, e.g. --metadata reason=closed")
}
