package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medpos/internal/config"
	"medpos/internal/infra"
	"medpos/internal/middleware"
	"medpos/internal/model"
	"medpos/internal/repository"
	"medpos/internal/router"
	"medpos/internal/service"
	"medpos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medpos",
		Short:         "Sale transaction engine for medical equipment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedStaffCmd(), dlqCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// loadConfig reads config and sets up the global logger: pretty in development, JSON in production.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the receipt workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	// Worker handlers are wired here (composition root) so the pool has
	// direct access to the repositories and the mailer.
	var receipts service.ReceiptQueue
	if rdb != nil {
		dispatcher := worker.NewDispatcher(rdb)
		receipts = dispatcher

		receiptW := worker.NewReceiptWorker(repository.NewSaleRepository(db), dispatcher,
			infra.GenerateInvoicePDF, cfg.CompanyName, cfg.ReceiptStoragePath)
		emailW := worker.NewEmailWorker(infra.NewMailer(cfg), infra.NewCircuitBreaker(infra.DefaultCBConfig()))
		worker.StartWorkerPool(ctx, rdb, worker.Handlers{
			worker.JobReceipt: receiptW.Process,
			worker.JobEmail:   emailW.Process,
		}, cfg.WorkerPoolSize)
	} else {
		log.Warn().Msg("REDIS_URL not set: receipts disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(cfg, db, rdb, receipts),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("medpos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables, constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := infra.NewDatabase(cfg)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			if err := infra.RunMigrations(db); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

// seedStaffCmd creates a staff member and prints a token for it. Password
// login lives outside this service, so the token is the only credential.
func seedStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-staff",
		Short: "Create or update a staff user and print a signed token",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			role, _ := cmd.Flags().GetString("role")
			first, _ := cmd.Flags().GetString("first-name")
			last, _ := cmd.Flags().GetString("last-name")

			switch role {
			case model.RoleAdmin, model.RoleEmployee, model.RoleDoctor:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := infra.NewDatabase(cfg)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}

			u := &model.User{Username: username, FirstName: first, LastName: last, Role: role}
			if err := repository.NewUserRepository(db).Upsert(cmd.Context(), u); err != nil {
				return fmt.Errorf("upsert user: %w", err)
			}
			tok, err := middleware.IssueToken(cfg.JWTSecret, u.ID, u.Username, u.Role,
				time.Duration(cfg.JWTExpirationHours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) id=%s\n%s\n", u.Username, u.Role, u.ID, tok)
			return nil
		},
	}
	cmd.Flags().String("username", "admin", "Staff username")
	cmd.Flags().String("role", model.RoleAdmin, "ADMIN | EMPLOYEE | DOCTOR")
	cmd.Flags().String("first-name", "Admin", "First name")
	cmd.Flags().String("last-name", "Demo", "Last name")
	return cmd
}

func dlqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "List dead-lettered receipt and email jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt64("limit")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rdb, err := infra.NewRedis(cmd.Context(), cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			if rdb == nil {
				return errors.New("REDIS_URL is not set")
			}
			defer rdb.Close()

			out := cmd.OutOrStdout()
			for _, queue := range []string{worker.QueueReceipt, worker.QueueEmail} {
				n, err := worker.DLQLength(cmd.Context(), rdb, queue)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d\n", worker.DLQPrefix+queue, n)
				entries, err := worker.DLQEntries(cmd.Context(), rdb, queue, limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(out, "  %s %s attempts=%d %s payload=%s\n",
						e.FailedAt.Format(time.RFC3339), e.JobType, e.Attempts, e.Reason, string(e.Payload))
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64("limit", 20, "Entries to show per queue")
	return cmd
}
