package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "helpdesk-worker",
		Short:         "Background jobs, mail delivery and maintenance for the helpdesk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newJobCmd(), newMigrateCmd(), newTokenCmd())
	return root
}

// runtime holds what every subcommand that touches the database needs.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	pg      *persistence.Postgres
	redis   *persistence.Redis
	store   repository.Store
	mailer  mail.Mailer

	closeMailer func()
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.Named("worker")

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	mailer, closeMailer := mail.NewOutbound(cfg.Mail, cfg.Queue, logger)

	return &runtime{
		cfg:         cfg,
		logger:      logger,
		metrics:     observability.NewMetrics(),
		pg:          pg,
		redis:       persistence.NewRedis(cfg.Redis, logger),
		store:       repository.NewStore(pg.PoolHandle()),
		mailer:      mailer,
		closeMailer: closeMailer,
	}, nil
}

func (r *runtime) Close() {
	r.closeMailer()
	r.redis.Close()
	r.pg.Close()
	_ = r.logger.Sync()
}

// scheduler builds the report jobs. Pushes from the worker reach API
// sessions only through the redis relay, since no socket connects here.
func (r *runtime) scheduler() *worker.Scheduler {
	var dispatcher events.Dispatcher
	if r.cfg.Realtime.RelayEnabled {
		dispatcher = realtime.NewRedisRelay(r.redis.Client, r.cfg.Realtime.RelayChannel, nil, r.logger)
	}
	notifier := service.NewNotificationService(service.NotificationDependencies{
		Store:      r.store,
		Dispatcher: dispatcher,
		Mailer:     r.mailer,
		BaseURL:    r.cfg.Mail.BaseURL,
		Logger:     r.logger,
	})
	reports := service.NewReportService(service.ReportDependencies{
		Store:         r.store,
		Notifier:      notifier,
		Logger:        r.logger,
		Location:      r.cfg.Scheduler.Location(),
		EscalateAfter: r.cfg.Scheduler.EscalationAfter(),
	})
	return worker.NewScheduler(reports, r.cfg.Scheduler, r.metrics, r.logger)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run scheduled jobs and the mail consumer until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			sched := rt.scheduler()
			sched.Start(ctx)
			defer sched.Stop()

			if rt.cfg.Mail.Enabled && rt.cfg.Queue.URL != "" {
				consumer := mail.NewQueueConsumer(rt.cfg.Queue.URL, rt.cfg.Queue.MailQueue, rt.cfg.Queue.Prefetch, mail.NewSMTPMailer(rt.cfg.Mail), rt.logger)
				go func() {
					if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						rt.logger.Error("mail consumer stopped", zap.Error(err))
					}
				}()
			}

			rt.logger.Info("worker started", zap.Strings("jobs", sched.Jobs()))
			<-ctx.Done()
			rt.logger.Info("shutting down worker")
			return nil
		},
	}
}

func newJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "job <name>",
		Short:     "Run one report job immediately",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{worker.JobEscalation, worker.JobDailySummary, worker.JobWeeklyReport},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			return rt.scheduler().RunNow(cmd.Context(), args[0])
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:       "migrate <up|down|status>",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			if dir == "" {
				dir = rt.cfg.Postgres.MigrationsDir
			}

			switch args[0] {
			case "up":
				return persistence.RunMigrations(ctx, rt.pg.PoolHandle(), dir, rt.logger)
			case "down":
				return persistence.RollbackMigration(ctx, rt.pg.PoolHandle(), dir, rt.logger)
			case "status":
				return persistence.MigrationStatus(ctx, rt.pg.PoolHandle(), dir)
			default:
				return fmt.Errorf("unknown migrate action %q", args[0])
			}
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	return cmd
}

// newTokenCmd signs a token the way the identity provider would, for local use.
func newTokenCmd() *cobra.Command {
	var (
		userID int64
		name   string
		email  string
		staff  bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if userID <= 0 {
				return errors.New("--user must be positive")
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTLMinutes)
			token, expires, err := tokens.GenerateToken(domain.User{
				ID:          userID,
				DisplayName: strings.TrimSpace(name),
				Email:       strings.TrimSpace(email),
				IsStaff:     staff,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id carried in the token")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().BoolVar(&staff, "staff", false, "issue a staff token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
