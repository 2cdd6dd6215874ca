package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gocardless",
	Short: "GoCardless direct debit gateway",
	Long:  "A direct debit gateway for GoCardless redirect flows, webhook reconciliation, refunds and mandate management.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
