package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
	"github.com/vibast-solutions/ms-go-gocardless/app/service"
)

var eventsFilter service.EventFilter

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect provider events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Walk provider events page by page and print them as JSON lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := mustCreateGatewayService()
		defer app.cleanup()

		encoder := json.NewEncoder(cmd.OutOrStdout())
		count, err := app.service.WalkEvents(cmd.Context(), eventsFilter, func(event *gocardless.Event) error {
			return encoder.Encode(event)
		})
		cmd.PrintErrf("%d events\n", count)
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd)

	eventsListCmd.Flags().StringVar(&eventsFilter.ResourceType, "resource-type", "", "Only events for this resource type, e.g. payments")
	eventsListCmd.Flags().StringVar(&eventsFilter.Action, "action", "", "Only events with this action, e.g. paid_out")
	eventsListCmd.Flags().StringVar(&eventsFilter.CreatedAfter, "created-after", "", "Only events created after this RFC 3339 timestamp")
	eventsListCmd.Flags().IntVar(&eventsFilter.PageSize, "page-size", 50, "Events requested per page")
}
