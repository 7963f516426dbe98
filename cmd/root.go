// Package cmd defines the moviegraph command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/app"
	"github.com/JakeFAU/moviegraph-crawler/internal/checkpoint"
	"github.com/JakeFAU/moviegraph-crawler/internal/config"
	"github.com/JakeFAU/moviegraph-crawler/internal/logging"
)

const closeTimeout = 15 * time.Second

// crawlApp is what the commands need from app.App; tests substitute it.
type crawlApp interface {
	Start(ctx context.Context, req app.StartRequest) (app.Result, error)
	Resume(ctx context.Context, req app.ResumeRequest) (app.Result, error)
	Inspect(ctx context.Context, location string) (checkpoint.Checkpoint, error)
	Close(ctx context.Context) error
}

// newApp is the application factory, replaced in tests.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (crawlApp, error) {
	return app.New(ctx, cfg, logger)
}

// newLogger is the logger factory, replaced in tests.
var newLogger = func(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
}

// session carries what the root command prepared for its subcommands.
type session struct {
	cfg    config.Config
	logger *zap.Logger
}

type sessionKey struct{}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "moviegraph",
		Short: "Crawl the movie/person graph of a film site into relational tables.",
		Long: `moviegraph walks a film site breadth first, alternating between movie and
person pages, and writes Movies, People, Professions, PersonProfessions and
Roles. Every step is checkpointed so a crawl can be paused and resumed.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, &session{cfg: cfg, logger: logger}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if s, ok := cmd.Context().Value(sessionKey{}).(*session); ok {
				_ = s.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newStartCmd(), newResumeCmd(), newStatusCmd())
	return cmd
}

func resolveSession(ctx context.Context) (*session, error) {
	s, ok := ctx.Value(sessionKey{}).(*session)
	if !ok || s == nil {
		return nil, errors.New("configuration not loaded")
	}
	return s, nil
}

// withApp builds the app for cfg, runs fn and always closes the app so
// buffered progress is flushed even when fn fails.
func withApp(ctx context.Context, s *session, cfg config.Config, fn func(crawlApp) error) (err error) {
	a, err := newApp(ctx, cfg, s.logger)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil {
			s.logger.Warn("application shutdown incomplete", zap.Error(cerr))
		}
	}()
	return fn(a)
}

// Execute runs the command line. SIGINT and SIGTERM pause a running crawl
// at the next step boundary.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}
