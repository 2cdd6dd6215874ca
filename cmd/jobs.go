package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/service"
	"github.com/vibast-solutions/ms-go-gocardless/config"
)

var (
	workerMode     bool
	receiptsStatus string
	receiptsLimit  int32
)

var receiptsCmd = &cobra.Command{
	Use:   "receipts",
	Short: "Run webhook receipt related commands",
}

var receiptsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete webhook receipts older than the configured retention",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"receipts_purge",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReceiptsPurgeInterval },
			func(s *service.GatewayService, ctx context.Context) error {
				return s.RunPurgeReceiptsBatch(ctx)
			},
		)
	},
}

var receiptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the most recent webhook receipts as JSON lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := parseReceiptStatus(receiptsStatus)
		if err != nil {
			return err
		}

		app := mustCreateGatewayService()
		defer app.cleanup()

		items, err := app.service.ListReceipts(cmd.Context(), status, receiptsLimit)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		for _, item := range items {
			if err := encoder.Encode(item); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(receiptsCmd)
	receiptsCmd.AddCommand(receiptsPurgeCmd)
	receiptsCmd.AddCommand(receiptsListCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
	receiptsListCmd.Flags().StringVar(&receiptsStatus, "status", "all", "Receipt status: processed, rejected or all")
	receiptsListCmd.Flags().Int32Var(&receiptsLimit, "limit", 50, "Maximum number of receipts to print")
}

func parseReceiptStatus(raw string) (int32, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return 0, nil
	case "processed":
		return entity.WebhookReceiptProcessed, nil
	case "rejected":
		return entity.WebhookReceiptRejected, nil
	default:
		return 0, fmt.Errorf("unknown receipt status %q", raw)
	}
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.GatewayService, ctx context.Context) error,
) {
	app := mustCreateGatewayService()
	defer app.cleanup()

	if workerMode {
		runWorker(name, intervalResolver(app.cfg), app.service, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(app.service, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	gatewayService *service.GatewayService,
	fn func(s *service.GatewayService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(gatewayService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(gatewayService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
