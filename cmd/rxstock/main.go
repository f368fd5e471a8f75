package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rxstock/m/internal/config"
	"rxstock/m/internal/logging"
)

// app carries what every command needs once the root command has run.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	timeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rxstock",
		Short:         "Pharmacy inventory, alerts and prescriptions",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if url, _ := cmd.Flags().GetString("api"); url != "" {
				cfg.APIURL = url
			}
			if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
				cfg.MutationMode = mode
			}
			a.timeout, _ = cmd.Flags().GetDuration("timeout")
			a.cfg = cfg
			a.log = logging.New(cfg.Env, cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().String("api", "", "REST API base URL (overrides API_URL)")
	root.PersistentFlags().Duration("timeout", 10*time.Second, "REST API request timeout")
	root.PersistentFlags().String("mode", "", "mutation mode: pessimistic or optimistic (overrides MUTATION_MODE)")

	root.AddCommand(serveCmd(a))
	root.AddCommand(migrateCmd(a))
	root.AddCommand(seedCmd(a))
	root.AddCommand(digestCmd(a))
	root.AddCommand(medicinesCmd(a))
	root.AddCommand(alertsCmd(a))
	root.AddCommand(prescriptionsCmd(a))
	root.AddCommand(dashboardCmd(a))
	return root
}
