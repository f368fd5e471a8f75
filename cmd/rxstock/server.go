package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"rxstock/m/internal/alerting"
	"rxstock/m/internal/api"
	"rxstock/m/internal/database"
	"rxstock/m/internal/migrations"
	"rxstock/m/internal/seed"
	"rxstock/m/internal/store"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServer(cmd.Context())
		},
	}
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

func seedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the medicine catalog CSV into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				file = a.cfg.SeedCSV
			}
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			n, raised, err := a.seed(cmd.Context(), db, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d medicine(s), raised %d alert(s).\n", n, raised)
			return nil
		},
	}
	cmd.Flags().String("file", "", "catalog CSV (defaults to SEED_CSV)")
	return cmd
}

func digestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print unresolved alerts raised in the last 24 hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote, _ := cmd.Flags().GetBool("remote"); remote {
				d, err := a.client().Digest(cmd.Context())
				if err != nil {
					return err
				}
				return d.Write(cmd.OutOrStdout())
			}

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			d, err := alerting.NewMonitor(store.New(db), a.log).Digest(cmd.Context())
			if err != nil {
				return err
			}
			return d.Write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("remote", false, "fetch the digest from the REST API instead of the database")
	return cmd
}

// openDB connects and applies the schema.
func (a *app) openDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := database.Connect(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseDSN, a.log)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// seed loads the catalog and raises the alerts the new stock warrants.
func (a *app) seed(ctx context.Context, db *sqlx.DB, file string) (int, int, error) {
	n, err := seed.LoadMedicines(ctx, db, file, a.log)
	if err != nil || n == 0 {
		return n, 0, err
	}
	repo := store.New(db)
	medicines, err := repo.ListMedicines(ctx)
	if err != nil {
		return n, 0, err
	}
	raised, err := alerting.NewMonitor(repo, a.log).Sweep(ctx, medicines)
	return n, raised, err
}

func (a *app) runServer(ctx context.Context) error {
	db, err := a.openDB(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to open database")
		return err
	}
	defer db.Close()

	if a.cfg.SeedCSV != "" {
		if _, err := os.Stat(a.cfg.SeedCSV); err == nil {
			if _, _, err := a.seed(ctx, db, a.cfg.SeedCSV); err != nil {
				a.log.Warn().Err(err).Str("file", a.cfg.SeedCSV).Msg("seeding failed")
			}
		}
	}

	repo := store.New(db)
	handler := api.New(repo, alerting.NewMonitor(repo, a.log), a.log, api.WithOrigins(a.cfg.CORSOrigins))
	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.HTTPPort).Str("driver", a.cfg.DatabaseDriver).Msg("rxstock server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.log.Info().Msg("server stopped")
	return nil
}
